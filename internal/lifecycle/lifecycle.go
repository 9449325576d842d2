// Package lifecycle records whether the serving process is accepting
// connections. Marking the service running is a scoped acquisition: every
// Start is paired with exactly one Release, and Run guarantees that Release
// happens on every exit path, panics included.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"ftpvault/internal/schema"
)

// State is the in-process view of the recorder.
type State int

const (
	Stopped State = iota
	Starting
	Running
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// DefaultStopTimeout bounds the single stop write.
const DefaultStopTimeout = 5 * time.Second

var (
	// ErrAlreadyStarted is returned by Start when a Hold is outstanding.
	ErrAlreadyStarted = errors.New("service already marked running")

	// ErrUnexpectedFault wraps a panic recovered by Run.
	ErrUnexpectedFault = errors.New("unexpected fault")
)

// Cause explains why a Hold is released.
type Cause struct {
	err error
}

// Clean is a normal shutdown.
func Clean() Cause { return Cause{} }

// Faulted is a shutdown caused by err.
func Faulted(err error) Cause {
	if err == nil {
		err = ErrUnexpectedFault
	}
	return Cause{err: err}
}

// Err returns the fault, or nil for a clean stop.
func (c Cause) Err() error { return c.err }

func (c Cause) String() string {
	if c.err == nil {
		return "clean"
	}
	return "faulted: " + c.err.Error()
}

// Recorder writes the process state pair for the current process.
type Recorder struct {
	schema      *schema.Schema
	log         *slog.Logger
	pid         int
	stopTimeout time.Duration

	mu    sync.Mutex
	state State
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.stopTimeout = d }
}

// WithPID overrides the recorded pid, which defaults to os.Getpid().
func WithPID(pid int) Option {
	return func(r *Recorder) { r.pid = pid }
}

// New returns a Recorder writing through s.
func New(s *schema.Schema, log *slog.Logger, opts ...Option) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{
		schema:      s,
		log:         log,
		pid:         os.Getpid(),
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current in-process state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Hold is an outstanding "marked running" acquisition.
type Hold struct {
	r     *Recorder
	runID string

	once sync.Once
	err  error
}

// Start writes {pid, running=true}. The caller must Release the returned
// Hold on every exit path; Run does that automatically.
func (r *Recorder) Start(ctx context.Context) (*Hold, error) {
	r.mu.Lock()
	if r.state != Stopped {
		r.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	r.state = Starting
	r.mu.Unlock()

	h := &Hold{r: r, runID: uuid.NewString()}
	rec := schema.ProcessStateRecord{PID: r.pid, Running: true}
	if err := r.schema.SetProcessState(ctx, rec); err != nil {
		r.setState(Stopped)
		r.log.Error("service_start_record_failed", "run", h.runID, "pid", r.pid, "error", err)
		return nil, fmt.Errorf("marking service running: %w", err)
	}

	r.setState(Running)
	r.log.Info("service_started", "run", h.runID, "pid", r.pid)
	return h, nil
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// RunID identifies this acquisition in logs.
func (h *Hold) RunID() string { return h.runID }

// Release writes {pid=0, running=false}. It makes one attempt bounded by
// the stop timeout on a context of its own, so it still runs after the
// serving context was cancelled. A failed write is logged and returned but
// not retried. Calls after the first return the first result.
func (h *Hold) Release(cause Cause) error {
	h.once.Do(func() {
		r := h.r
		ctx, cancel := context.WithTimeout(context.Background(), r.stopTimeout)
		defer cancel()

		err := r.schema.SetProcessState(ctx, schema.ProcessStateRecord{})
		r.setState(Stopped)
		if err != nil {
			h.err = fmt.Errorf("marking service stopped: %w", err)
			r.log.Error("service_stop_record_failed", "run", h.runID, "pid", r.pid, "cause", cause.String(), "error", err)
			return
		}
		if cause.Err() != nil {
			r.log.Warn("service_stopped", "run", h.runID, "pid", r.pid, "cause", cause.String())
		} else {
			r.log.Info("service_stopped", "run", h.runID, "pid", r.pid, "cause", cause.String())
		}
	})
	return h.err
}

// Run marks the service running, calls serve, and marks it stopped however
// serve exits. A panic in serve is recorded as a fault and then re-raised.
// The serve error takes precedence over a failed stop write.
func (r *Recorder) Run(ctx context.Context, serve func(ctx context.Context) error) (err error) {
	h, err := r.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			h.Release(Faulted(fmt.Errorf("%w: %v", ErrUnexpectedFault, p)))
			panic(p)
		}
	}()

	serveErr := serve(ctx)
	cause := Clean()
	if serveErr != nil {
		cause = Faulted(serveErr)
	}
	if relErr := h.Release(cause); relErr != nil && serveErr == nil {
		return relErr
	}
	return serveErr
}
