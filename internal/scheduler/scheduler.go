// Package scheduler implements the single-threaded cooperative event loop
// that ties the protocol codec, the samples analysers and the pulse
// monitors together: it polls the board on a 1s tick, steps any in-flight
// pulse task on a 200ms tick, and reacts to inbound lines and UI requests
// off its ingress mailbox. No method on Scheduler blocks on I/O; the
// transport's reader goroutine and any UI goroutine only ever hand it a
// message and move on.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kelpwell/hydrostat/internal/analyser"
	"github.com/kelpwell/hydrostat/internal/protocol"
	"github.com/kelpwell/hydrostat/internal/pulse"
)

// for testing purposes
var timeNow = time.Now

const (
	pollInterval = time.Second
	taskInterval = 200 * time.Millisecond

	historySize        = 20
	tdsPrecision       = 4
	phPrecision        = 1
	stabilisationDelay = 10 * time.Second
)

// Transport is the scheduler's outbound collaborator: a single serial
// line it may write commands to. It never reads; inbound lines arrive as
// lineMsg values posted to the scheduler's ingress mailbox by the
// transport's own reader goroutine.
type Transport interface {
	Send(protocol.Command) error
}

// Logger is the minimal structured-logging contract the scheduler needs;
// a concrete logiface-backed implementation is supplied at the CLI
// bootstrap layer.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
}

// Scheduler is the control loop described by the Scheduler Core concern.
// It owns two per-channel Analysers (TDS, pH; temperature is reported but
// never regulated), two per-actuator Pulse Monitors, and the two actuator
// locks. It is constructed once and driven by a single call to Run.
type Scheduler struct {
	settings  Settings
	sink      Sink
	transport Transport
	logger    Logger

	tdsAnalyser *analyser.Analyser
	phAnalyser  *analyser.Analyser

	tdsMonitor *pulse.Monitor
	phMonitor  *pulse.Monitor

	tdsMonitoringEnabled bool
	phMonitoringEnabled  bool

	valveLock *actuatorLock
	pumpLock  *actuatorLock

	valveTask *pulseTask
	pumpTask  *pulseTask

	lastStatus *protocol.Status

	in chan inbound
}

// New constructs a Scheduler. Init must be called once before Run to seed
// live state (monitor thresholds, enable flags) from Settings.
func New(settings Settings, sink Sink, transport Transport, logger Logger) *Scheduler {
	return &Scheduler{
		settings:    settings,
		sink:        sink,
		transport:   transport,
		logger:      logger,
		tdsAnalyser: analyser.New(historySize, tdsPrecision, stabilisationDelay),
		phAnalyser:  analyser.New(historySize, phPrecision, stabilisationDelay),
		valveLock:   &actuatorLock{},
		pumpLock:    &actuatorLock{},
		in:          make(chan inbound, 16),
	}
}

// Init seeds the pulse monitors and enable flags from durable settings.
// It must run before Run and before any PostLine/SetParam/GetParam call.
func (s *Scheduler) Init() {
	s.tdsMonitor = pulse.New(s.settings.TDSThreshold(), s.settings.OsmosisPulseMinInterval(), s.settings.OsmosisPulseDuration())
	s.phMonitor = pulse.New(s.settings.PHThreshold(), s.settings.PHPulseMinInterval(), s.settings.PHPulseDuration())
	s.tdsMonitoringEnabled = s.settings.TDSMonitoringEnabled()
	s.phMonitoringEnabled = s.settings.PHMonitoringEnabled()
	s.logInfo("scheduler initialised")
}

// PostLine delivers one raw line read from the board. Safe to call from
// any goroutine; never blocks longer than it takes to enqueue.
func (s *Scheduler) PostLine(line string) {
	s.in <- lineMsg{line: line}
}

// Query forwards an operator free-form query to the Sink via the loop, so
// it is timestamped consistently with every other event.
func (s *Scheduler) Query(text string) {
	s.in <- queryMsg{text: text}
}

// GetParam reads a parameter's current value. It blocks until the loop
// services the request or ctx is done.
func (s *Scheduler) GetParam(ctx context.Context, kind ParameterKind) (ParameterValue, error) {
	reply := make(chan ParameterValue, 1)
	select {
	case s.in <- getParamMsg{kind: kind, reply: reply}:
	case <-ctx.Done():
		return ParameterValue{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return ParameterValue{}, ctx.Err()
	}
}

// SetParam writes a parameter through to Settings and applies it live. It
// blocks until the loop has committed the change or ctx is done.
func (s *Scheduler) SetParam(ctx context.Context, kind ParameterKind, value ParameterValue) error {
	done := make(chan struct{})
	select {
	case s.in <- setParamMsg{kind: kind, value: value, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the event loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()
	taskTicker := time.NewTicker(taskInterval)
	defer taskTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.in:
			s.handle(msg)
		case <-pollTicker.C:
			s.poll()
		case <-taskTicker.C:
			s.stepTasks()
		}
	}
}

func (s *Scheduler) handle(msg inbound) {
	switch m := msg.(type) {
	case lineMsg:
		s.handleLine(m.line)
	case getParamMsg:
		ops := parameterTable[m.kind]
		m.reply <- ops.read(s)
	case setParamMsg:
		ops := parameterTable[m.kind]
		ops.commit(s, m.value)
		close(m.done)
	case queryMsg:
		s.sink.Query(timeNow(), m.text)
	}
}

func (s *Scheduler) poll() {
	if err := s.transport.Send(protocol.GetFilteredCommand()); err != nil {
		s.logError("failed to request filtered readings", err)
	}
}

func (s *Scheduler) handleLine(line string) {
	reply, err := protocol.Parse(line)
	if err != nil {
		s.logWarn(err.Error())
		return
	}
	now := timeNow()
	switch reply.Kind {
	case protocol.ReplyGetFiltered:
		s.processFiltered(now, reply)
	case protocol.ReplySetValve:
		s.handleActuatorReply(now, protocol.Valve, reply)
	case protocol.ReplySetPump:
		s.handleActuatorReply(now, protocol.DosingPump, reply)
	case protocol.ReplyGetRaw:
		// A raw read is operator-initiated diagnostics and does not drive
		// scheduler state.
	case protocol.ReplyUnknown:
		// Logged, but not acted on.
		s.logWarn("unrecognised reply opcode: " + reply.Raw)
	}
}

func (s *Scheduler) processFiltered(now time.Time, reply protocol.Reply) {
	if reply.Status != nil {
		s.handleStatus(now, *reply.Status)
	}

	s.processChannel(now, protocol.TDS, reply, s.tdsAnalyser, s.tdsMonitor, s.tdsMonitoringEnabled, protocol.Valve, s.valveLock, &s.valveTask)
	s.processChannel(now, protocol.PH, reply, s.phAnalyser, s.phMonitor, s.phMonitoringEnabled, protocol.DosingPump, s.pumpLock, &s.pumpTask)

	if v, ok := reply.Reading(protocol.Temperature); ok {
		s.sink.TemperatureValue(v)
	}
}

func (s *Scheduler) handleStatus(now time.Time, status protocol.Status) {
	if s.lastStatus != nil && *s.lastStatus == status {
		return
	}
	prev := s.lastStatus
	s.lastStatus = &status
	s.sink.StatusChanged(status)

	s.diffConnected(prev, status, protocol.TDS, s.tdsAnalyser)
	s.diffConnected(prev, status, protocol.PH, s.phAnalyser)
	s.diffConnected(prev, status, protocol.Temperature, nil)
}

// diffConnected logs a transition of one probe's connected bit, and, for a
// regulated channel, clears its analyser so stale samples spanning a
// disconnect never contribute to a classification.
func (s *Scheduler) diffConnected(prev *protocol.Status, status protocol.Status, ch protocol.Channel, an *analyser.Analyser) {
	now := ch.Connected(status)
	if prev != nil && ch.Connected(*prev) == now {
		return
	}
	if now {
		s.logInfo(ch.String() + " probe connected")
		return
	}
	s.logWarn(ch.String() + " probe disconnected")
	if an != nil {
		an.Clear()
	}
}

// processChannel samples one regulated channel's analyser, notifies the
// Sink on a state change, and arms a pulse task when the channel is
// Stable, monitoring is enabled for it, its actuator lock isn't poisoned,
// and no pulse is already in flight.
func (s *Scheduler) processChannel(
	now time.Time,
	ch protocol.Channel,
	reply protocol.Reply,
	an *analyser.Analyser,
	mon *pulse.Monitor,
	enabled bool,
	actuator protocol.Actuator,
	lock *actuatorLock,
	task **pulseTask,
) {
	v, ok := reply.Reading(ch)
	if !ok {
		return
	}

	state, changed := an.Sample(now, v)
	if changed {
		s.sink.ProbeValue(ch, v, state)
	}

	if !enabled || state.Kind != analyser.Stable {
		return
	}
	if lock.poisoned != nil || *task != nil {
		return
	}

	duration, armed := mon.Update(float64(state.Value))
	if !armed {
		return
	}

	s.beginTask(now, actuator, duration, lock, task)
}

func (s *Scheduler) beginTask(now time.Time, actuator protocol.Actuator, duration time.Duration, lock *actuatorLock, task **pulseTask) {
	lock.acquire()
	tk := newPulseTask(actuator, duration, now)
	*task = tk
	if err := s.transport.Send(protocol.ForActuator(actuator, true)); err != nil {
		s.abortTask(tk, lock, s.monitorFor(actuator), err)
		*task = nil
	}
}

func (s *Scheduler) stepTasks() {
	now := timeNow()
	s.stepTask(now, &s.valveTask, s.valveLock, s.tdsMonitor)
	s.stepTask(now, &s.pumpTask, s.pumpLock, s.phMonitor)
}

func (s *Scheduler) stepTask(now time.Time, task **pulseTask, lock *actuatorLock, mon *pulse.Monitor) {
	tk := *task
	if tk == nil {
		return
	}
	switch tk.state {
	case taskWaitOpen:
		if now.After(tk.deadline) {
			s.abortTask(tk, lock, mon, fmt.Errorf("timed out waiting for %s to open", tk.actuator))
			*task = nil
		}
	case taskWaitDuration:
		if !now.Before(tk.deadline) {
			tk.state = taskWaitClose
			if err := s.transport.Send(protocol.ForActuator(tk.actuator, false)); err != nil {
				s.abortTask(tk, lock, mon, err)
				*task = nil
			}
		}
	case taskWaitClose:
		// Awaiting the board's close confirmation; handled in
		// handleActuatorReply, not by the timer.
	}
}

func (s *Scheduler) handleActuatorReply(now time.Time, actuator protocol.Actuator, reply protocol.Reply) {
	lock, task, mon := s.actuatorState(actuator)

	if !reply.Success {
		// Poison unconditionally, even with no task in flight: a stray
		// failure reply still poisons the lock, and processChannel never
		// arms a pulse task for an actuator whose lock is poisoned.
		err := &HardwareError{Actuator: actuator.String(), Detail: reply.Raw}
		if tk := *task; tk != nil {
			s.abortTask(tk, lock, mon, err)
			*task = nil
		} else {
			lock.poison(err)
			s.logError(actuator.String()+" actuator reported failure with no pulse task in flight", err)
		}
		return
	}

	tk := *task
	if tk == nil {
		return
	}

	switch tk.state {
	case taskWaitOpen:
		tk.state = taskWaitDuration
		tk.deadline = now.Add(tk.duration)
	case taskWaitClose:
		lock.release()
		mon.Resume()
		*task = nil
		s.logInfo(actuator.String() + " pulse complete")
	case taskWaitDuration:
		// An unsolicited confirmation while holding the pulse open; not
		// expected, and not acted on beyond the success check above.
	}
}

// abortTask poisons the actuator lock and logs the failure. The pulse
// monitor is deliberately left suspended: resuming it here would let a
// second pulse arm on top of a hardware fault, the opposite of the
// fail-safe the lock exists for.
func (s *Scheduler) abortTask(tk *pulseTask, lock *actuatorLock, mon *pulse.Monitor, err error) {
	lock.poison(err)
	s.logError(tk.actuator.String()+" pulse task aborted", err)
}

func (s *Scheduler) actuatorState(a protocol.Actuator) (*actuatorLock, **pulseTask, *pulse.Monitor) {
	switch a {
	case protocol.Valve:
		return s.valveLock, &s.valveTask, s.tdsMonitor
	case protocol.DosingPump:
		return s.pumpLock, &s.pumpTask, s.phMonitor
	default:
		panic(fmt.Sprintf("scheduler: unknown actuator %d", a))
	}
}

func (s *Scheduler) monitorFor(a protocol.Actuator) *pulse.Monitor {
	_, _, mon := s.actuatorState(a)
	return mon
}

func (s *Scheduler) logInfo(msg string) {
	s.logger.Info(msg)
	s.sink.Log(timeNow(), msg, LevelInfo)
}

func (s *Scheduler) logWarn(msg string) {
	s.logger.Warn(msg)
	s.sink.Log(timeNow(), msg, LevelWarn)
}

func (s *Scheduler) logError(msg string, err error) {
	s.logger.Error(msg, err)
	s.sink.Log(timeNow(), fmt.Sprintf("%s: %v", msg, err), LevelError)
}
