package engine

import (
	"sync"
	"sync/atomic"
)

// Canceller is the stop signal shared between the search and the goroutine
// controlling it. The search polls it at every node; the time manager is
// consulted only once every interval polls.
type Canceller struct {
	stop     atomic.Bool
	polls    uint32
	interval uint32
	tm       TimeManager

	mu   sync.Mutex
	cond *sync.Cond
}

// NewCanceller creates a canceller that checks the clock every interval polls.
func NewCanceller(interval int) *Canceller {
	c := &Canceller{interval: uint32(max(interval, 1))}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Interrupt requests the running search to stop. Safe from any goroutine.
func (c *Canceller) Interrupt() {
	c.mu.Lock()
	c.stop.Store(true)
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Reset clears a previous stop request.
func (c *Canceller) Reset() {
	c.stop.Store(false)
	c.polls = 0
}

// Stopped reports whether a stop was requested or decided.
func (c *Canceller) Stopped() bool {
	return c.stop.Load()
}

// Poll is called by the search with the current node count.
func (c *Canceller) Poll(nodes uint64) bool {
	if c.stop.Load() {
		return true
	}
	c.polls++
	if c.polls%c.interval != 0 || c.tm == nil {
		return false
	}
	if c.tm.ShouldInterruptSearch(nodes) {
		c.stop.Store(true)
		return true
	}
	return false
}

// Wait blocks until Interrupt is called.
func (c *Canceller) Wait() {
	c.mu.Lock()
	for !c.stop.Load() {
		c.cond.Wait()
	}
	c.mu.Unlock()
}
