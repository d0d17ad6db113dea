// Package sessiontest provides a manual clock and a scripted picker for
// driving a session.Machine deterministically.
package sessiontest

import (
	"QuestionnaireBot/session"
	"sort"
	"sync"
	"time"
)

// Clock is a session.Scheduler whose time only moves on Advance.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*timer
}

type timer struct {
	clock   *Clock
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) AfterFunc(d time.Duration, f func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{clock: c, at: c.now + d, seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, firing due callbacks in time order
// (ties in scheduling order) on the calling goroutine.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

func (c *Clock) nextDueLocked(target time.Duration) *timer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	c.timers = live

	sort.Slice(c.timers, func(i, j int) bool {
		if c.timers[i].at != c.timers[j].at {
			return c.timers[i].at < c.timers[j].at
		}
		return c.timers[i].seq < c.timers[j].seq
	})
	if len(c.timers) == 0 || c.timers[0].at > target {
		return nil
	}
	return c.timers[0]
}

// Pending counts callbacks that are neither fired nor stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// Picker returns the scripted indexes in turn, wrapping around, each reduced
// modulo n.
type Picker struct {
	mu     sync.Mutex
	values []int
	i      int
}

func NewPicker(values ...int) *Picker {
	if len(values) == 0 {
		values = []int{0}
	}
	return &Picker{values: values}
}

func (p *Picker) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.values[p.i%len(p.values)]
	p.i++
	return v % n
}

// Settle is how far to advance a clock so that every default-paced callback
// of one step has fired.
const Settle = 10 * time.Second
