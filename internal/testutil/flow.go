package testutil

import "sync"

// FixedTokenGenerator returns predetermined request tokens.
//
// Tokens are returned in order; once exhausted, the last token repeats. With
// no tokens it returns "test-token-default". This keeps golden traces stable
// regardless of how many fetches a scenario triggers.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokenGenerator creates a generator over tokens.
func NewFixedTokenGenerator(tokens ...string) *FixedTokenGenerator {
	if len(tokens) == 0 {
		tokens = []string{"test-token-default"}
	}
	return &FixedTokenGenerator{tokens: tokens}
}

// Generate implements serversync.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := g.tokens[g.idx]
	if g.idx < len(g.tokens)-1 {
		g.idx++
	}
	return token
}
