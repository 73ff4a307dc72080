// Package supervisor owns the lifecycle of the external terminal-driver
// process and the communication channel to it. It guarantees exactly one
// fresh driver instance is running and reachable before any transaction is
// attempted, and recovers deterministically from a crashed or hung instance
// by killing it and starting over.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/tdonkor/payterm/internal/metrics"
	"github.com/tdonkor/payterm/internal/terminal"
)

var (
	// ErrDriverNotReady means the driver process started but its listener
	// never came up within the ready timeout.
	ErrDriverNotReady = errors.New("terminal driver did not become ready")
	// ErrChannelClosed means a session was requested outside the
	// initialize/teardown window.
	ErrChannelClosed = errors.New("terminal channel is not open")
)

// Config locates the driver and bounds the supervision steps.
type Config struct {
	// ExecutablePath is the driver binary; it is launched with its own
	// install directory as working directory.
	ExecutablePath string
	// ProcessName matches stale instances to kill. Defaults to the
	// executable's base name.
	ProcessName string
	// Endpoint is the local address the driver listens on.
	Endpoint string
	// ReadyTimeout bounds the post-launch readiness poll.
	ReadyTimeout time.Duration
	// PollInterval paces the readiness and exit-wait loops.
	PollInterval time.Duration
	// Timeouts configures the channel handed to the engine.
	Timeouts terminal.Timeouts
}

func (c Config) withDefaults() Config {
	if c.ProcessName == "" {
		c.ProcessName = filepath.Base(c.ExecutablePath)
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 15 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	return c
}

// managedProcess is the slice of process operations the supervisor needs.
type managedProcess interface {
	Name() (string, error)
	Terminate() error
	Kill() error
	IsRunning() (bool, error)
}

// Supervisor holds the only two resources kept for the peripheral's full
// lifetime: the driver process and the channel factory.
type Supervisor struct {
	cfg Config

	mu      sync.Mutex
	channel *terminal.Channel

	listProcesses func() ([]managedProcess, error)
	startProcess  func(path, dir string) error
	probe         func(endpoint string) error
}

// New builds a supervisor over the real OS process table.
func New(cfg Config) *Supervisor {
	return &Supervisor{
		cfg:           cfg.withDefaults(),
		listProcesses: listOSProcesses,
		startProcess:  startDriver,
		probe:         probeEndpoint,
	}
}

// Initialize runs the full supervision sequence: kill stale instances, launch
// a fresh one, wait for its listener, open the channel.
func (s *Supervisor) Initialize(ctx context.Context) error {
	if err := s.EnsureSingleInstance(ctx); err != nil {
		return err
	}
	if err := s.Launch(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.channel = terminal.NewChannel(s.cfg.Endpoint, s.cfg.Timeouts)
	s.mu.Unlock()
	return nil
}

// EnsureSingleInstance terminates every process matching the driver's name
// and blocks until each exit is observed. Zero matches is fine.
func (s *Supervisor) EnsureSingleInstance(ctx context.Context) error {
	procs, err := s.listProcesses()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil || !strings.EqualFold(name, s.cfg.ProcessName) {
			continue
		}
		log.Printf("[supervisor] terminating stale driver instance %q", name)
		if err := p.Terminate(); err != nil {
			// Terminate can race with the process exiting on its own.
			if running, _ := p.IsRunning(); running {
				if err := p.Kill(); err != nil {
					return fmt.Errorf("kill stale driver: %w", err)
				}
			}
		}
		if err := s.waitExit(ctx, p); err != nil {
			return err
		}
		metrics.DriverKillsTotal.Inc()
	}
	return nil
}

func (s *Supervisor) waitExit(ctx context.Context, p managedProcess) error {
	for {
		running, err := p.IsRunning()
		if err != nil || !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for driver exit: %w", ctx.Err())
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// Launch starts the driver with its working directory set to its install
// location, then polls the endpoint until the listener answers. There is no
// fixed settle delay; readiness is observed, not assumed.
func (s *Supervisor) Launch(ctx context.Context) error {
	dir := filepath.Dir(s.cfg.ExecutablePath)
	if err := s.startProcess(s.cfg.ExecutablePath, dir); err != nil {
		return fmt.Errorf("launch driver: %w", err)
	}
	metrics.DriverLaunchesTotal.Inc()
	log.Printf("[supervisor] driver launched from %s", s.cfg.ExecutablePath)
	return s.awaitReady(ctx)
}

func (s *Supervisor) awaitReady(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	var lastErr error
	for {
		if lastErr = s.probe(s.cfg.Endpoint); lastErr == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %v", ErrDriverNotReady, lastErr)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for driver readiness: %w", ctx.Err())
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// Dial hands out a fresh session per operation. Implements terminal.Dialer.
func (s *Supervisor) Dial(ctx context.Context) (terminal.Session, error) {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		return nil, ErrChannelClosed
	}
	return ch.Dial(ctx)
}

// Teardown drops the channel and repeats the kill-and-wait sequence. The
// driver is forcibly terminated even mid-transaction; resolving an in-flight
// transaction is the terminal's own responsibility.
func (s *Supervisor) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.channel = nil
	s.mu.Unlock()
	return s.EnsureSingleInstance(ctx)
}

// --- real OS implementations ---

func listOSProcesses() ([]managedProcess, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	out := make([]managedProcess, len(procs))
	for i, p := range procs {
		out[i] = osProcess{p}
	}
	return out, nil
}

type osProcess struct {
	p *process.Process
}

func (o osProcess) Name() (string, error)    { return o.p.Name() }
func (o osProcess) Terminate() error         { return o.p.Terminate() }
func (o osProcess) Kill() error              { return o.p.Kill() }
func (o osProcess) IsRunning() (bool, error) { return o.p.IsRunning() }

func startDriver(path, dir string) error {
	cmd := exec.Command(path)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child when it exits so it never lingers as a zombie.
	go cmd.Wait()
	return nil
}

func probeEndpoint(endpoint string) error {
	conn, err := net.DialTimeout("tcp", endpoint, time.Second)
	if err != nil {
		return err
	}
	return conn.Close()
}
