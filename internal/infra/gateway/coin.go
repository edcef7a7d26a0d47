package gateway

import (
	"math/rand"
	"sync"
)

// Coin decide se uma transação pendente é confirmada em CheckStatus.
// Simula o webhook do banco; testes injetam FixedCoin.
type Coin interface {
	Flip() bool
}

// RandomCoin aprova com probabilidade rate usando um gerador semeado.
type RandomCoin struct {
	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

// NewRandomCoin creates a seeded coin. rate is clamped to [0, 1].
func NewRandomCoin(seed int64, rate float64) *RandomCoin {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &RandomCoin{rng: rand.New(rand.NewSource(seed)), rate: rate}
}

func (c *RandomCoin) Flip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() < c.rate
}

// FixedCoin always returns its own value.
type FixedCoin bool

func (c FixedCoin) Flip() bool { return bool(c) }
