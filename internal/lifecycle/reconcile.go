package lifecycle

import (
	"context"
	"errors"
	"syscall"

	"ftpvault/internal/schema"
)

// ProcessAlive reports whether a process with the given pid exists. A
// process owned by another user counts as alive.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Reconcile clears a running record whose pid is no longer alive, which is
// what a crash that skipped Release leaves behind. It reports whether the
// record was cleared. alive defaults to ProcessAlive.
func Reconcile(ctx context.Context, s *schema.Schema, alive func(pid int) bool) (bool, error) {
	if alive == nil {
		alive = ProcessAlive
	}
	rec, err := s.ProcessState(ctx)
	if err != nil {
		return false, err
	}
	if !rec.Running || alive(rec.PID) {
		return false, nil
	}
	if err := s.SetProcessState(ctx, schema.ProcessStateRecord{}); err != nil {
		return false, err
	}
	return true, nil
}
