package scheduler

import (
	"time"

	"github.com/kelpwell/hydrostat/internal/analyser"
	"github.com/kelpwell/hydrostat/internal/protocol"
)

// LogLevel discriminates a Log event's severity.
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelWarn
	LevelError
)

// Sink is the UI event sink the scheduler produces into (spec §6). The
// console log sink and any richer UI both implement it. The scheduler
// calls every Sink method synchronously from its loop goroutine, so a
// method that blocks stalls the loop; the Sink must be non-nil, since the
// calls are made without a nil check.
type Sink interface {
	StatusChanged(status protocol.Status)
	ProbeValue(channel protocol.Channel, value float64, state analyser.State)
	TemperatureValue(value float64)
	Log(at time.Time, message string, level LogLevel)
	Query(at time.Time, message string)
}
