// Package pulse implements the Pulse Monitor: given the latest Stable
// reading for a channel, decide whether a corrective pulse is due, and
// enforce the minimum refractory interval between pulses.
package pulse

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// pulseCategory is the sole catrate category used by a Monitor's limiter;
// each Monitor owns a private Limiter, so the category need not vary.
const pulseCategory = "pulse"

// Monitor decides whether a corrective pulse is due for one actuator
// channel, and enforces the minimum interval between pulses. The interval
// gate is delegated to a github.com/joeycumines/go-catrate Limiter
// configured with a single one-event-per-interval rate: Allow supplies the
// "at least pulse_minimum_interval has elapsed since the last pulse" half
// of the arming condition, while Monitor itself layers the suspended/Resume
// hard gate on top, since a sliding-window limiter alone can't express
// "suspended until an explicit resume" (a hung pulse task must not let a
// second pulse arm merely because the interval has elapsed).
//
// Monitor is not safe for concurrent use; the scheduler is its sole owner.
type Monitor struct {
	threshold        float64
	pulseDuration    time.Duration
	pulseMinInterval time.Duration
	limiter          *catrate.Limiter
	suspended        bool
}

// New constructs a Monitor for one actuator channel.
func New(threshold float64, pulseMinInterval, pulseDuration time.Duration) *Monitor {
	return &Monitor{
		threshold:        threshold,
		pulseDuration:    pulseDuration,
		pulseMinInterval: pulseMinInterval,
		limiter:          newLimiter(pulseMinInterval),
	}
}

func newLimiter(interval time.Duration) *catrate.Limiter {
	return catrate.NewLimiter(map[time.Duration]int{interval: 1})
}

// SetThreshold updates the arming threshold, effective on the next Update.
func (m *Monitor) SetThreshold(v float64) { m.threshold = v }

// SetPulseDuration updates the pulse duration returned by a future arming.
func (m *Monitor) SetPulseDuration(d time.Duration) { m.pulseDuration = d }

// SetPulseMinInterval updates the refractory interval. Since the interval
// is baked into the underlying limiter's sliding window, the limiter is
// rebuilt; any in-progress refractory window is discarded.
func (m *Monitor) SetPulseMinInterval(d time.Duration) {
	m.pulseMinInterval = d
	m.limiter = newLimiter(d)
}

// Threshold, PulseDuration and PulseMinInterval report the monitor's
// current configuration.
func (m *Monitor) Threshold() float64             { return m.threshold }
func (m *Monitor) PulseDuration() time.Duration    { return m.pulseDuration }
func (m *Monitor) PulseMinInterval() time.Duration { return m.pulseMinInterval }
func (m *Monitor) Suspended() bool                 { return m.suspended }

// Update returns (pulseDuration, true) iff all of: the monitor isn't
// suspended, current exceeds the threshold, and at least
// pulse_minimum_interval has elapsed since the last pulse. Arming sets
// suspended atomically with the true return; the caller must eventually
// call Resume, the only method that clears it.
func (m *Monitor) Update(current float64) (time.Duration, bool) {
	if m.suspended {
		return 0, false
	}
	if current <= m.threshold {
		return 0, false
	}
	if _, ok := m.limiter.Allow(pulseCategory); !ok {
		return 0, false
	}
	m.suspended = true
	return m.pulseDuration, true
}

// Resume clears the suspended flag. Only the scheduler's pulse task driver
// calls this, exactly once per task, and never on the poisoned-lock abort
// path (that suspension is deliberate, a fail-safe against further dosing).
func (m *Monitor) Resume() { m.suspended = false }
