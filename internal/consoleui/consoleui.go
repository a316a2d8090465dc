// Package consoleui supplies the default, always-available UI event sink:
// it renders every scheduler event as a structured log line rather than
// drawing the chart/log/parameter widgets the original firmware's gui/
// tree implements, so the appliance stays observable without a terminal
// UI attached.
package consoleui

import (
	"fmt"
	"time"

	"github.com/kelpwell/hydrostat/internal/analyser"
	"github.com/kelpwell/hydrostat/internal/protocol"
	"github.com/kelpwell/hydrostat/internal/scheduler"
)

// Logger is the subset of logging.Logger consoleui needs.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
}

// Sink implements scheduler.Sink by logging every event through logger.
type Sink struct {
	logger Logger
}

// New constructs a console Sink.
func New(logger Logger) *Sink { return &Sink{logger: logger} }

var _ scheduler.Sink = (*Sink)(nil)

// StatusChanged logs the new status word.
func (s *Sink) StatusChanged(status protocol.Status) {
	s.logger.Info(fmt.Sprintf("status changed: %#032b", uint32(status)))
}

// ProbeValue logs a probe's new reading and its classification.
func (s *Sink) ProbeValue(channel protocol.Channel, value float64, state analyser.State) {
	s.logger.Info(fmt.Sprintf("%s = %.2f (%s)", channel, value, state.Kind))
}

// TemperatureValue logs the latest temperature reading; temperature is
// reported but never regulated.
func (s *Sink) TemperatureValue(value float64) {
	s.logger.Info(fmt.Sprintf("temperature = %.2f", value))
}

// Log forwards a scheduler-originated log line at the matching level.
func (s *Sink) Log(_ time.Time, message string, level scheduler.LogLevel) {
	switch level {
	case scheduler.LevelWarn:
		s.logger.Warn(message)
	case scheduler.LevelError:
		s.logger.Error(message, nil)
	default:
		s.logger.Info(message)
	}
}

// Query logs an operator-issued query.
func (s *Sink) Query(_ time.Time, text string) {
	s.logger.Info("query: " + text)
}
