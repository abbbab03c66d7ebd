// Package budget decides whether a book fits in the model's context window.
package budget

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCeiling is the largest book, in tokens, that may be loaded into a
// conversation. It leaves headroom below gpt-4o's 128k window for turns.
const DefaultCeiling = 120000

var ErrBudgetExceeded = errors.New("token budget exceeded")

// ExceededError reports how far over the ceiling a book is
type ExceededError struct {
	Count   int
	Ceiling int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("book content too large for the model (%d tokens, limit %d)", e.Count, e.Ceiling)
}

func (e *ExceededError) Unwrap() error {
	return ErrBudgetExceeded
}

// Counter counts tokens the way the target model's tokenizer does
type Counter interface {
	Count(text string) int
}

// Gate counts book tokens against a ceiling. Counts are cached by content
// hash since the same book is typically selected many times.
type Gate struct {
	counter Counter
	ceiling int
	cache   *cache.Cache
}

func NewGate(counter Counter, ceiling int) *Gate {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Gate{
		counter: counter,
		ceiling: ceiling,
		cache:   cache.New(1*time.Hour, 10*time.Minute),
	}
}

func (g *Gate) Ceiling() int {
	return g.ceiling
}

// CountTokens returns the token count of text
func (g *Gate) CountTokens(text string) int {
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	if n, found := g.cache.Get(key); found {
		return n.(int)
	}
	n := g.counter.Count(text)
	g.cache.Set(key, n, cache.DefaultExpiration)
	return n
}

// ExceedsBudget reports whether count is strictly over the ceiling
func (g *Gate) ExceedsBudget(count int) bool {
	return count > g.ceiling
}

// Check counts content and returns an *ExceededError if it is over budget.
// The count is returned either way.
func (g *Gate) Check(content string) (int, error) {
	n := g.CountTokens(content)
	if g.ExceedsBudget(n) {
		return n, &ExceededError{Count: n, Ceiling: g.ceiling}
	}
	return n, nil
}
