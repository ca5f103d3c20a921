package capture

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"
)

// Generator produces capture session IDs of the form
// "<prefix>-<sign>-<n>". Safe for concurrent use.
type Generator struct {
	prefix  string
	counter uint64
}

// NewGenerator creates a generator. An empty prefix defaults to "cap".
func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = "cap"
	}
	return &Generator{prefix: prefix}
}

// Next returns the next session ID for sign.
func (g *Generator) Next(sign string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-%s-%d", g.prefix, slug(sign), n)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "unlabeled"
	}
	return out
}
