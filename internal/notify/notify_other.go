//go:build !linux

package notify

import (
	"errors"
	"fmt"
)

// Watcher is unavailable on this platform.
type Watcher struct{}

// New reports that file watching is not supported on this platform.
func New() (*Watcher, error) {
	return nil, fmt.Errorf("notify: %w on this platform", errors.ErrUnsupported)
}

func (w *Watcher) Events() <-chan Event { return nil }
func (w *Watcher) Add(string) error     { return errors.ErrUnsupported }
func (w *Watcher) Remove(string) error  { return errors.ErrUnsupported }
func (w *Watcher) Close() error         { return nil }
