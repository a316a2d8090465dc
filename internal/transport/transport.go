// Package transport owns the physical serial line to the board. It is
// grounded structurally on Daedaluz-goserial's raw-mode Port (a
// synchronous Write, a per-read timeout, explicit line discipline) but
// wired to go.bug.st/serial for the concrete cross-platform Open/Mode API
// and its USB enumerator, since goserial's ioctl-based implementation is
// Linux-only and has no VID/PID discovery.
package transport

import (
	"bufio"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/kelpwell/hydrostat/internal/protocol"
)

// defaultBaudRate matches the board's fixed line speed; the protocol has
// no autobaud or negotiation step.
const defaultBaudRate = 115200

// readTimeout bounds a single read call on the port. The reader goroutine
// checks for shutdown only between lines, not on each timed-out read.
const readTimeout = 10 * time.Second

// vendorID and productID identify the board's USB-serial bridge.
const (
	vendorID  = "1A86"
	productID = "7523"
)

// Sink receives lines read from the board. The scheduler's PostLine
// method satisfies this, but the interface keeps this package free of a
// direct scheduler dependency.
type Sink interface {
	PostLine(line string)
}

// Logger is the minimal structured-logging contract Transport needs; the
// same shape as scheduler.Logger, duplicated here so this package stays
// free of a direct scheduler dependency.
type Logger interface {
	Warn(msg string)
	Error(msg string, err error)
}

// Port is the transport's line-oriented port. Both Transport and its
// tests depend on this narrow interface rather than serial.Port directly.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Transport owns one open serial port and the goroutine reading lines
// off it. Send is synchronous and safe to call from any goroutine; lines
// read are posted to sink, never touched locally.
type Transport struct {
	port   Port
	sink   Sink
	logger Logger
	done   chan struct{}
}

// Discover lists every USB-attached candidate port matching the board's
// vendor/product ID pair, per the §6 USB VID/PID scan.
func Discover() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: enumerate ports: %w", err)
	}
	var names []string
	for _, p := range ports {
		if p.IsUSB && equalFoldHex(p.VID, vendorID) && equalFoldHex(p.PID, productID) {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func equalFoldHex(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Open opens portName in raw, 8-N-1 mode with the board's fixed baud
// rate and read timeout. logger is used to report the reader goroutine's
// exit when the link is lost (spec.md §7 "Board disconnected": "The read
// thread logs and exits.").
func Open(portName string, logger Logger) (*Transport, error) {
	mode := &serial.Mode{BaudRate: defaultBaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: set read timeout: %w", err)
	}
	return newTransport(port, logger), nil
}

func newTransport(port Port, logger Logger) *Transport {
	return &Transport{port: port, logger: logger, done: make(chan struct{})}
}

// Attach starts the reader goroutine posting every line read to sink. It
// must be called at most once.
func (t *Transport) Attach(sink Sink) {
	t.sink = sink
	go t.readLoop()
}

// Send renders and writes one command. It never blocks on a reply: the
// board's response, if any, arrives later as a line on the reader
// goroutine.
func (t *Transport) Send(c protocol.Command) error {
	_, err := t.port.Write([]byte(c.Render()))
	if err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Close stops the reader goroutine and releases the port.
func (t *Transport) Close() error {
	close(t.done)
	return t.port.Close()
}

// readLoop scans lines off the port until the scanner gives up, either
// because the port was closed locally (t.done) or the link failed. Per
// spec.md §7 "Board disconnected": "The read thread logs and exits."
func (t *Transport) readLoop() {
	scanner := bufio.NewScanner(t.port)
	for scanner.Scan() {
		select {
		case <-t.done:
			return
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		t.sink.PostLine(line)
	}

	select {
	case <-t.done:
		return
	default:
	}
	if err := scanner.Err(); err != nil {
		t.logger.Error("serial read failed, reader exiting", err)
	} else {
		t.logger.Warn("serial read loop exiting: port closed (EOF)")
	}
}
