// Package clock paces sinks that have no native "ready" notification.
package clock

import (
	"time"
)

// maxLag is the number of periods a pacer may fall behind before it resynchronizes.
const maxLag = 4

// PeriodDuration returns the playback time of frames frames at rate Hz.
func PeriodDuration(frames int, rate uint32) time.Duration {
	if rate == 0 {
		return 0
	}

	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// Pacer hands out one period slot every period of wall-clock time.
// It is not safe for concurrent use.
type Pacer struct {
	period time.Duration
	next   time.Time
	late   bool

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPacer returns a pacer for slots of the given length.
func NewPacer(period time.Duration) *Pacer {
	return &Pacer{
		period: period,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Period returns the slot length.
func (p *Pacer) Period() time.Duration {
	return p.period
}

// Wait sleeps until the next slot is due and reports true, or sleeps for
// timeout and reports false if the slot is further away.
// The first call after NewPacer or Reset is ready immediately.
func (p *Pacer) Wait(timeout time.Duration) bool {
	now := p.now()
	if p.next.IsZero() {
		p.next = now
	}

	d := p.next.Sub(now)
	if d <= 0 {
		return true
	}

	if d > timeout {
		p.sleep(timeout)

		return false
	}

	p.sleep(d)

	return true
}

// Tick consumes the current slot. If the consumer fell more than a few
// periods behind, the schedule restarts from now and Late reports true until
// the next Reset.
func (p *Pacer) Tick() {
	if p.next.IsZero() {
		p.next = p.now()
	}

	p.next = p.next.Add(p.period)

	if now := p.now(); now.Sub(p.next) > maxLag*p.period {
		p.next = now
		p.late = true
	}
}

// Late reports whether the schedule was resynchronized since the last Reset.
func (p *Pacer) Late() bool {
	return p.late
}

// Reset restarts the schedule at the next Wait.
func (p *Pacer) Reset() {
	p.next = time.Time{}
	p.late = false
}
