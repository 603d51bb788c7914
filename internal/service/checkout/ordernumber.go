package checkout

import (
	"fmt"
	"sync"
	"time"
)

// NumberGenerator produces order numbers in the form ORD-<10 digits>. The
// suffix is derived from unix milliseconds, so numbers sort roughly by
// creation time and can be audited against the clock; a mutex-guarded bump
// keeps them strictly increasing within a process.
type NumberGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{now: time.Now}
}

func (g *NumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := g.now().UnixMilli() % 1e10
	if candidate <= g.last {
		candidate = g.last + 1
	}
	g.last = candidate
	return fmt.Sprintf("ORD-%010d", candidate)
}
