// Package status is the reader side of the process state: what a
// supervisor or status display sees, whether the recorded pid is still
// alive, and notifications when the store changes.
package status

import (
	"context"

	"ftpvault/internal/lifecycle"
	"ftpvault/internal/schema"
)

// Report is a point-in-time view of the service.
type Report struct {
	Running bool `json:"running"`
	PID     int  `json:"pid"`
	Alive   bool `json:"alive"`
	// Stale is set when the store claims running but the pid is gone,
	// which is what a crash that skipped cleanup leaves behind.
	Stale bool `json:"stale"`
}

// Snapshot reads the process state through s. alive defaults to
// lifecycle.ProcessAlive.
func Snapshot(ctx context.Context, s *schema.Schema, alive func(pid int) bool) (Report, error) {
	if alive == nil {
		alive = lifecycle.ProcessAlive
	}
	rec, err := s.ProcessState(ctx)
	if err != nil {
		return Report{}, err
	}
	r := Report{Running: rec.Running, PID: rec.PID}
	if rec.PID > 0 {
		r.Alive = alive(rec.PID)
	}
	r.Stale = r.Running && !r.Alive
	return r, nil
}
