package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// KeyGenerator produces unique object keys of the form
// {language}_{normalizedWord}_{timestamp}.png. The timestamp component is
// strictly increasing across calls, so two generations for the same word can
// never collide on key.
type KeyGenerator struct {
	mu     sync.Mutex
	lastTS int64
	now    func() time.Time
}

// NewKeyGenerator creates a KeyGenerator using the wall clock.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

// NewKeyGeneratorWithClock creates a KeyGenerator with an injected clock,
// for tests.
func NewKeyGeneratorWithClock(now func() time.Time) *KeyGenerator {
	return &KeyGenerator{now: now}
}

// StickerKey returns the object key for a new sticker. Consecutive calls in
// the same millisecond still yield distinct, increasing timestamps.
func (g *KeyGenerator) StickerKey(language, word string) string {
	g.mu.Lock()
	ts := g.now().UnixMilli()
	if ts <= g.lastTS {
		ts = g.lastTS + 1
	}
	g.lastTS = ts
	g.mu.Unlock()

	return fmt.Sprintf("%s_%s_%d.png", strings.ToLower(language), NormalizeWord(word), ts)
}

// NormalizeWord lowercases a word and strips everything that is not a letter
// or digit, so that accents, spaces, and punctuation cannot produce invalid
// or ambiguous object keys.
func NormalizeWord(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
