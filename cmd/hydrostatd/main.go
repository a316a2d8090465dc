// Command hydrostatd is the hydroponics control appliance daemon: it
// discovers the board over USB, opens the serial line, loads durable
// settings, and runs the scheduler until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kelpwell/hydrostat/internal/consoleui"
	"github.com/kelpwell/hydrostat/internal/logging"
	"github.com/kelpwell/hydrostat/internal/scheduler"
	"github.com/kelpwell/hydrostat/internal/settings"
	"github.com/kelpwell/hydrostat/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		daemon     = flag.Bool("daemon", false, "run headless, without the interactive console prompt")
		port       = flag.String("port", "", "serial port to open; auto-discovered via USB VID/PID if empty")
		settingsDB = flag.String("settings", defaultSettingsPath(), "path to the settings database file")
	)
	flag.BoolVar(daemon, "d", false, "alias of -daemon")
	flag.Parse()

	logger := logging.New(os.Stderr)

	portName := *port
	if portName == "" {
		candidates, err := transport.Discover()
		if err != nil {
			return fmt.Errorf("hydrostatd: %w", err)
		}
		if len(candidates) == 0 {
			return fmt.Errorf("hydrostatd: no board found on any USB serial port")
		}
		portName = candidates[0]
	}

	tr, err := transport.Open(portName, logger)
	if err != nil {
		return fmt.Errorf("hydrostatd: %w", err)
	}
	defer tr.Close()

	if err := os.MkdirAll(filepath.Dir(*settingsDB), 0o755); err != nil {
		return fmt.Errorf("hydrostatd: %w", err)
	}
	store, err := settings.Open(*settingsDB)
	if err != nil {
		return fmt.Errorf("hydrostatd: %w", err)
	}
	defer store.Close()

	sink := consoleui.New(logger)
	sched := scheduler.New(store, sink, tr, logger)
	sched.Init()
	tr.Attach(sched)

	if !*daemon {
		logger.Info("running in interactive mode with the console UI as the only sink")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sched.Run(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("hydrostatd: %w", err)
	}
	return nil
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hydrostat-settings.db"
	}
	return filepath.Join(dir, "hydrostat", "settings.db")
}
