package assetvfs

import (
	"log/slog"

	"github.com/meridian-engine/assetvfs/job"
)

// Option configures a VFS.
type Option func(*VFS)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(v *VFS) {
		v.logger = logger
	}
}

// WithScheduler attaches a job scheduler, enabling RequestAsync and
// asynchronous handler loads. The VFS does not own the scheduler; the
// caller closes it.
func WithScheduler(s *job.Scheduler) Option {
	return func(v *VFS) {
		v.scheduler = s
	}
}

// WithNotifier substitutes the file change notifier used by Watch. The
// default is the platform notifier, created on first Watch.
func WithNotifier(n Notifier) Option {
	return func(v *VFS) {
		v.notifier = n
	}
}
