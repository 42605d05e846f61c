package rig

import "time"

// Debouncer turns a bouncing switch level into a stable pressed signal.
type Debouncer struct {
	interval   time.Duration
	last       Level
	lastChange time.Time
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval, last: LevelReleased}
}

// Update records the level sampled at now and reports whether the switch
// has been held pressed, unchanged, for at least the debounce interval.
func (d *Debouncer) Update(level Level, now time.Time) bool {
	if level != d.last {
		d.last = level
		d.lastChange = now
	}
	return d.last == LevelPressed && now.Sub(d.lastChange) >= d.interval
}

// Pending reports a press that has not yet been stable long enough.
func (d *Debouncer) Pending(now time.Time) bool {
	return d.last == LevelPressed && now.Sub(d.lastChange) < d.interval
}
