package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is the instant every StubClock starts from unless told otherwise.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a migrate.Clock under test control. With a zero step it is
// frozen; otherwise Tick moves it forward by step. Safe for concurrent use.
type StubClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// FixedClock returns a frozen StubClock set to Epoch.
func FixedClock() *StubClock {
	return &StubClock{now: Epoch}
}

// TickingClock returns a StubClock at Epoch that advances by step on Tick.
func TickingClock(step time.Duration) *StubClock {
	return &StubClock{now: Epoch, step: step}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Tick advances the clock by its step and returns the new time.
func (c *StubClock) Tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// StubIDGenerator hands out "<prefix>-1", "<prefix>-2" and so on.
type StubIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewStubIDGenerator returns a generator using the prefix "id".
func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{prefix: "id"}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
