package scheduler

import (
	"time"

	"github.com/kelpwell/hydrostat/internal/protocol"
)

// waitOpenTimeout bounds how long a pulse task will wait for the board to
// confirm an actuator has opened before giving up and poisoning the lock.
// Resolves the open question in the source design note: indefinite waits
// are not acceptable in an unattended appliance.
const waitOpenTimeout = 5 * time.Second

// taskState is the pulse task state machine (WaitLock is implicit: a task
// value only exists once its lock is acquired, so the first live state is
// WaitOpen).
type taskState int

const (
	taskWaitOpen taskState = iota
	taskWaitDuration
	taskWaitClose
)

// pulseTask tracks one in-flight corrective pulse for a single actuator.
// At most one exists per actuator at a time; its lifetime is owned
// entirely by the scheduler's event loop goroutine.
type pulseTask struct {
	actuator protocol.Actuator
	duration time.Duration
	state    taskState
	deadline time.Time
}

// newPulseTask constructs a task in WaitOpen, armed with the pulse
// duration it will hold the actuator open for once opening is confirmed.
// The caller is responsible for acquiring the actuator lock and sending
// the open command; deadline bounds how long WaitOpen may last.
func newPulseTask(actuator protocol.Actuator, duration time.Duration, now time.Time) *pulseTask {
	return &pulseTask{
		actuator: actuator,
		duration: duration,
		state:    taskWaitOpen,
		deadline: now.Add(waitOpenTimeout),
	}
}
