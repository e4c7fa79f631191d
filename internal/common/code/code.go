package code

import (
	"math/rand"
	"sync"
	"time"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_generator.go github.com/KirkDiggler/rollroom/internal/common/code Generator

const (
	// Alphabet is the set of characters used in session codes
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// DefaultLength is the number of characters in a session code
	DefaultLength = 6
)

// Generator produces short, human-typeable session codes
type Generator interface {
	NewCode() string
}

// Config for the code generator
type Config struct {
	// Optional seed for testing
	Seed int64

	// Length of generated codes, DefaultLength when zero
	Length int
}

// RandomGenerator draws codes uniformly from Alphabet
type RandomGenerator struct {
	mu     sync.Mutex
	random *rand.Rand
	length int
}

// New creates a new code generator
func New(cfg *Config) *RandomGenerator {
	seed := time.Now().UnixNano()
	length := DefaultLength
	if cfg != nil {
		if cfg.Seed != 0 {
			seed = cfg.Seed
		}
		if cfg.Length > 0 {
			length = cfg.Length
		}
	}

	return &RandomGenerator{
		random: rand.New(rand.NewSource(seed)),
		length: length,
	}
}

// NewCode returns a new random code
func (g *RandomGenerator) NewCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, g.length)
	for i := range buf {
		buf[i] = Alphabet[g.random.Intn(len(Alphabet))]
	}
	return string(buf)
}
