// Package clock maps the event driven sync timestamps of a dump onto a fixed frame rate.
package clock

import (
	"fmt"
	"time"

	"github.com/dmisol/recplay/defs"
)

// Tick tells how to advance the video. Prepare comes first: the screen as it
// is now is composited and held, it is what the next boundary shows. Then
// Repeat copies of the held frame are emitted, then a freshly composited one
// when Fresh is set.
type Tick struct {
	Prepare bool
	Repeat  int
	Fresh   bool
}

// Frames is the total number of frames the tick emits
func (t Tick) Frames() int {
	if t.Fresh {
		return t.Repeat + 1
	}
	return t.Repeat
}

type Clock struct {
	interval time.Duration

	started bool
	last    time.Duration // last observed timestamp
	emitted time.Duration // presentation instant of the last emitted frame
	dirty   bool          // damaged since the last sync
	pending bool          // a prepared frame waits for the next boundary
}

func New(interval time.Duration) *Clock {
	return &Clock{interval: interval}
}

// Damage marks the screen as changed since the last emitted frame
func (c *Clock) Damage() {
	c.dirty = true
}

func (c *Clock) Dirty() bool {
	return c.dirty
}

// Sync consumes a timestamp, in milliseconds as carried by the sync instruction
func (c *Clock) Sync(ms int64) (t Tick, err error) {
	ts := time.Duration(ms) * time.Millisecond
	if c.started && ts < c.last {
		err = fmt.Errorf("%w: timestamp %d after %d", defs.ErrOrdering, ms, c.last.Milliseconds())
		return
	}
	c.last = ts

	if !c.started {
		c.started = true
		c.emitted = ts
		c.dirty = false
		t.Fresh = true
		return
	}

	k := int((ts - c.emitted) / c.interval)
	if k == 0 {
		if c.dirty {
			t.Prepare = true
			c.dirty, c.pending = false, true
		}
		return
	}
	c.emitted += time.Duration(k) * c.interval
	c.pending = false

	if c.dirty {
		t.Repeat = k - 1
		t.Fresh = true
		c.dirty = false
		return
	}
	t.Repeat = k
	return
}

// Flush is called once the dump is over, it tells whether a last fresh frame is due
func (c *Clock) Flush() (fresh bool) {
	fresh = c.dirty || c.pending
	c.dirty, c.pending = false, false
	return
}
