package rig

import "time"

type CompletionParams struct {
	ZeroThreshold float64
	Hold          time.Duration
}

func (params *CompletionParams) Validate() error {
	if !(params.ZeroThreshold > 0) {
		return ErrInvalidZeroThreshold
	}
	if params.Hold < 0 {
		return ErrInvalidDuration
	}
	return nil
}

// CompletionDetector fires once the TDS proxy has stayed below the zero
// threshold for the whole hold time. Any sample at or above the threshold
// drops the progress made so far.
type CompletionDetector struct {
	params CompletionParams
	armed  bool
	since  time.Time
}

func NewCompletionDetector(params CompletionParams) *CompletionDetector {
	return &CompletionDetector{params: params}
}

func (c *CompletionDetector) Update(tds Reading, now time.Time) bool {
	if !tds.Valid || tds.Value >= c.params.ZeroThreshold {
		c.Disarm()
		return false
	}
	if !c.armed {
		c.armed = true
		c.since = now
	}
	if now.Sub(c.since) >= c.params.Hold {
		c.Disarm()
		return true
	}
	return false
}

func (c *CompletionDetector) Disarm() {
	c.armed = false
	c.since = time.Time{}
}

// Armed returns whether the zero timer runs and when it was started.
func (c *CompletionDetector) Armed() (bool, time.Time) {
	return c.armed, c.since
}
