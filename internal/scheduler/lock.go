package scheduler

import "fmt"

// HardwareError wraps a hardware-reported failure: an actuator command came
// back with success=false.
type HardwareError struct {
	Actuator string
	Detail   string
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hydrostat: hardware error on %s: %s", e.Actuator, e.Detail)
}

// actuatorLock is the mutex for at-most-one pulse task per actuator. A
// poisoned lock is terminal: no further task may acquire it. Unlike the
// source's lock, it does not track an opened/closed tri-state separately
// from the task: the scheduler drives pulseTask.state transitions
// directly off reply.Success in handleActuatorReply, so there is no
// second place that needs to observe "did the last command open or close
// the actuator" (see DESIGN.md).
type actuatorLock struct {
	locked   bool
	poisoned error
}

func (l *actuatorLock) poison(err error) {
	l.poisoned = err
}

func (l *actuatorLock) acquire() {
	l.locked = true
}

func (l *actuatorLock) release() {
	l.locked = false
}
