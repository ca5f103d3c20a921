// Package store keeps recently submitted contributions in memory so they
// can be reviewed and played back.
package store

import (
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sign-landmark-service/internal/models"
)

var (
	ErrNotFound = errors.New("contribution not found")
	ErrRejected = errors.New("contribution not admitted to the review cache")
)

// Contribution is a stored sequence with its metadata. Treat it as
// read-only once stored.
type Contribution struct {
	ID             string                 `json:"id"`
	Sign           string                 `json:"sign"`
	Source         string                 `json:"source"`
	Frames         int                    `json:"frames"`
	EmptyFrames    int                    `json:"emptyFrames"`
	Coverage       models.SectionCoverage `json:"coverage"`
	BackendMessage string                 `json:"backendMessage,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	Sequence       [][]float64            `json:"-"`
}

// Config sizes the cache.
type Config struct {
	MaxContributions int64
	TTL              time.Duration // 0 keeps entries until evicted
}

// Store is a bounded, concurrency-safe contribution cache.
type Store struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// New creates a store holding at most cfg.MaxContributions entries.
func New(cfg Config) (*Store, error) {
	size := cfg.MaxContributions
	if size <= 0 {
		size = 256
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * size,
		MaxCost:     size,
		BufferItems: 64,
		// each entry costs 1, so MaxCost counts contributions
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("size", size).Dur("ttl", cfg.TTL).Msg("Contribution review cache initialized")
	return &Store{cache: cache, ttl: cfg.TTL}, nil
}

// Put stores c, assigning an ID and creation time when missing. The
// sequence is copied. Returns the contribution ID.
func (s *Store) Put(c Contribution) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Sequence = cloneSequence(c.Sequence)
	if c.Frames == 0 {
		c.Frames = len(c.Sequence)
	}

	if !s.cache.SetWithTTL(c.ID, &c, 1, s.ttl) {
		return c.ID, ErrRejected
	}
	// make the entry visible to the next Get
	s.cache.Wait()
	return c.ID, nil
}

// Get returns the contribution with the given ID.
func (s *Store) Get(id string) (*Contribution, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	c, ok := v.(*Contribution)
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Delete removes a contribution.
func (s *Store) Delete(id string) {
	s.cache.Del(id)
}

// Close stops the cache's background goroutines.
func (s *Store) Close() {
	s.cache.Close()
}

func cloneSequence(seq [][]float64) [][]float64 {
	out := make([][]float64, len(seq))
	for i, vec := range seq {
		out[i] = slices.Clone(vec)
	}
	return out
}
