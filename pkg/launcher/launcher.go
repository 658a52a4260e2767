package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Default supervision timings, applied when the corresponding Config
// field is zero.
const (
	DefaultHealthInterval = time.Second
	DefaultStartupTimeout = 60 * time.Second
	DefaultStopGrace      = 10 * time.Second
)

// Config describes the upstream process to supervise.
type Config struct {
	// Command is the upstream executable.
	Command string

	// Args are the upstream's command-line arguments.
	Args []string

	// Env is appended to the current environment. Empty keeps the
	// parent environment as-is.
	Env []string

	// HealthURL is polled by WaitReady until it answers with a
	// non-error status.
	HealthURL string

	// HealthInterval is the poll interval while waiting for readiness.
	// Default: 1s
	HealthInterval time.Duration

	// StartupTimeout bounds WaitReady.
	// Default: 60s
	StartupTimeout time.Duration

	// StopGrace is how long the process gets to exit after SIGTERM
	// before being killed.
	// Default: 10s
	StopGrace time.Duration

	// Stdout and Stderr receive the child's output. Nil inherits the
	// sidecar's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher runs and supervises a single upstream process.
type Launcher struct {
	config Config
	logger *slog.Logger
	client *http.Client

	mu      sync.Mutex
	cmd     *exec.Cmd
	started bool
	running bool
	exitErr error
	doneCh  chan struct{}
}

// New creates a launcher for the configured upstream command.
func New(config Config, logger *slog.Logger) (*Launcher, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("launcher command cannot be empty")
	}
	if config.HealthInterval <= 0 {
		config.HealthInterval = DefaultHealthInterval
	}
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = DefaultStartupTimeout
	}
	if config.StopGrace <= 0 {
		config.StopGrace = DefaultStopGrace
	}
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}
	if logger == nil {
		logger = slog.Default().With("component", "launcher")
	}

	return &Launcher{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: config.HealthInterval},
		doneCh: make(chan struct{}),
	}, nil
}

// Start launches the upstream process. The process inherits the
// context: cancellation delivers SIGTERM and, after the stop grace
// period, SIGKILL.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("launcher already started")
	}

	cmd := exec.CommandContext(ctx, l.config.Command, l.config.Args...)
	cmd.Stdout = l.config.Stdout
	cmd.Stderr = l.config.Stderr
	if len(l.config.Env) > 0 {
		cmd.Env = append(os.Environ(), l.config.Env...)
	}

	// Prefer a polite shutdown on context cancellation; WaitDelay
	// escalates to SIGKILL when the grace period runs out.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = l.config.StopGrace

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start upstream process: %w", err)
	}

	l.cmd = cmd
	l.started = true
	l.running = true

	l.logger.Info("upstream process started",
		"command", l.config.Command,
		"pid", cmd.Process.Pid,
	)

	go l.monitor(cmd)

	return nil
}

// monitor reaps the child and records its exit.
func (l *Launcher) monitor(cmd *exec.Cmd) {
	err := cmd.Wait()

	l.mu.Lock()
	l.running = false
	l.exitErr = err
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("upstream process exited", "error", err)
	} else {
		l.logger.Info("upstream process exited")
	}

	close(l.doneCh)
}

// WaitReady polls the health URL until the upstream answers, the
// startup timeout elapses, the process exits, or ctx is cancelled.
func (l *Launcher) WaitReady(ctx context.Context) error {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return fmt.Errorf("launcher not started")
	}
	if l.config.HealthURL == "" {
		return nil
	}

	deadline := time.NewTimer(l.config.StartupTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(l.config.HealthInterval)
	defer ticker.Stop()

	for {
		err := l.probe(ctx)
		if err == nil {
			l.logger.Info("upstream ready", "health_url", l.config.HealthURL)
			return nil
		}
		l.logger.Debug("upstream not ready yet", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.doneCh:
			if exitErr := l.Err(); exitErr != nil {
				return fmt.Errorf("upstream process exited before becoming ready: %w", exitErr)
			}
			return fmt.Errorf("upstream process exited before becoming ready")
		case <-deadline.C:
			return fmt.Errorf("upstream not ready after %s", l.config.StartupTimeout)
		case <-ticker.C:
		}
	}
}

// probe performs one health check against the configured URL.
func (l *Launcher) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.HealthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// Stop terminates the upstream process: SIGTERM, then the stop grace
// period, then SIGKILL. Safe to call when the process already exited
// or never started.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	if !l.started || !l.running {
		l.mu.Unlock()
		return nil
	}
	cmd := l.cmd
	l.mu.Unlock()

	l.logger.Info("stopping upstream process", "pid", cmd.Process.Pid)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// The process may have exited between the running check and
		// the signal. monitor settles the bookkeeping either way.
		l.logger.Debug("failed to signal upstream process", "error", err)
	}

	select {
	case <-l.doneCh:
		return nil
	case <-time.After(l.config.StopGrace):
	}

	l.logger.Warn("upstream process did not exit within grace period, killing",
		"grace", l.config.StopGrace.String(),
	)

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill upstream process: %w", err)
	}

	<-l.doneCh
	return nil
}

// IsRunning reports whether the upstream process is currently alive.
func (l *Launcher) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Done returns a channel that closes when the upstream process exits
// for any reason. It never closes if Start was never called.
func (l *Launcher) Done() <-chan struct{} {
	return l.doneCh
}

// Err returns the exit error of the upstream process, nil while it is
// still running or when it exited cleanly.
func (l *Launcher) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exitErr
}
