package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"repurpose/internal/config"
	"repurpose/internal/logging"
)

// ErrAlreadyRunning reports that another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another repurpose daemon instance is already running")

// Daemon serves the HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler http.Handler
	logPath string

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	api     *apiServer
	started time.Time
	cancel  context.CancelFunc
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool      `json:"running"`
	PID          int       `json:"pid"`
	Address      string    `json:"address,omitempty"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	JobDBPath    string    `json:"job_db_path"`
	LockFilePath string    `json:"lock_file_path"`
	LogPath      string    `json:"log_path"`
}

// New constructs a daemon serving handler on the configured bind address.
func New(cfg *config.Config, handler http.Handler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || handler == nil {
		return nil, errors.New("daemon requires config and handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		handler:  handler,
		logPath:  filepath.Join(cfg.Paths.LogDir, "repurpose.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving. The server shuts down
// when ctx ends or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	api := newAPIServer(d.cfg.Paths.APIBind, d.handler, d.logger)
	if err := api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.api = api
	d.cancel = cancel
	d.started = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("repurpose daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", api.addr()),
	)
	return nil
}

// Stop shuts down the server and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may need the stale lock file removed"),
		)
	}
	d.api = nil
	d.running.Store(false)
	d.logger.Info("repurpose daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Addr returns the bound listener address, useful when binding port 0.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		JobDBPath:    d.cfg.JobStorePath(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	if status.Running {
		status.Address = d.Addr()
		d.mu.Lock()
		status.StartedAt = d.started
		d.mu.Unlock()
	}
	return status
}
