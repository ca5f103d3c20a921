// healthcheck probes the service's gRPC health endpoint and exits non-zero
// unless it reports SERVING.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	service := flag.String("service", "", "Health service name (empty checks the whole server)")
	timeout := flag.Duration("timeout", 5*time.Second, "Probe timeout")
	flag.Parse()

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: *service})
	if err != nil {
		log.Printf("health check failed: %v", err)
		os.Exit(1)
	}

	log.Printf("%s %q: %s", *serverAddr, *service, resp.GetStatus())
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}
