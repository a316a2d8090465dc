package transport

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/kelpwell/hydrostat/internal/protocol"
)

// fakePort is an in-memory Port: writes land in out, and Read serves
// lines queued via feed, one byte at a time behind a mutex so it's safe
// for the reader goroutine.
type fakePort struct {
	mu  sync.Mutex
	out bytes.Buffer
	in  bytes.Buffer
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in.Read(b)
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in.WriteString(s)
}

// fakeLogger records Warn/Error calls for assertions.
type fakeLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *fakeLogger) Warn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *fakeLogger) Error(msg string, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *fakeLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

type fakeSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *fakeSink) PostLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *fakeSink) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func TestSendRendersCommand(t *testing.T) {
	port := &fakePort{}
	tr := newTransport(port, &fakeLogger{})

	if err := tr.Send(protocol.GetFilteredCommand()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := port.out.String(); got != "G1\n" {
		t.Fatalf("want %q, got %q", "G1\n", got)
	}
}

func TestAttachPostsLines(t *testing.T) {
	port := &fakePort{}
	port.feed("OK G1 TDS1 500.0\nOK S0 ON\n")

	tr := newTransport(port, &fakeLogger{})
	sink := &fakeSink{}
	tr.Attach(sink)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(sink.get()) >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	lines := sink.get()
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %v", lines)
	}
	if lines[0] != "OK G1 TDS1 500.0" || lines[1] != "OK S0 ON" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	tr.Close()
}

// TestReadLoopLogsOnPortClosed covers spec.md §7 "Board disconnected": the
// reader goroutine must log when the scan loop ends because the port's
// data is exhausted (EOF), not go silent.
func TestReadLoopLogsOnPortClosed(t *testing.T) {
	port := &fakePort{}
	port.feed("OK G1 TDS1 500.0\n")

	logger := &fakeLogger{}
	tr := newTransport(port, logger)
	sink := &fakeSink{}
	tr.Attach(sink)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if logger.warnCount() > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if logger.warnCount() == 0 {
		t.Fatal("expected readLoop to log a warning once the port's data is exhausted")
	}
}
