package monkey

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrMonkey is the injected failure.
var ErrMonkey = errors.New("monkey error")

// Monkey injects random failures with a fixed probability.
// A zero chance disables it.
type Monkey struct {
	chance float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// New ...
func New(chance float64) *Monkey {
	return &Monkey{
		chance: chance,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enabled reports whether any failure can ever be injected.
func (m *Monkey) Enabled() bool {
	return m != nil && m.chance > 0
}

// RandomizeError with some probability generates a random "monkey" error.
// A non-nil err is returned unchanged.
func (m *Monkey) RandomizeError(err error) error {
	if err != nil {
		return err
	}
	if !m.Enabled() {
		return nil
	}
	m.mu.Lock()
	roll := m.rnd.Float64()
	m.mu.Unlock()
	if roll >= m.chance {
		return nil
	}
	return ErrMonkey
}
