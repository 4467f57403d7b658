package assetvfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/meridian-engine/assetvfs/internal/notify"
)

// Notifier is the file change event source behind Watch. The default is
// the platform notifier, created on the first Watch; WithNotifier
// substitutes another, which tests use to drive events deterministically.
type Notifier interface {
	Add(path string) error
	Remove(path string) error
	Events() <-chan notify.Event
	Close() error
}

// WatchID identifies one watch registration. Zero is never issued.
type WatchID uint64

// WatchOp describes what happened to a watched asset.
type WatchOp uint8

const (
	// WatchWritten means the backing file changed content.
	WatchWritten WatchOp = iota
	// WatchDeleted means the backing file went away. The registration
	// is dropped before the callback fires; re-watch after the asset
	// reappears.
	WatchDeleted
)

func (o WatchOp) String() string {
	switch o {
	case WatchWritten:
		return "written"
	case WatchDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// WatchEvent is delivered to a WatchFunc when a watched asset changes.
// For WatchWritten, Data carries the new content; for WatchDeleted,
// Data has StatusNotFound and no payload.
type WatchEvent struct {
	Op   WatchOp
	Data Data
}

// WatchFunc receives change events. It runs on the watcher goroutine,
// serially across all watches; do slow work elsewhere.
type WatchFunc func(WatchEvent)

type watchEntry struct {
	id     WatchID
	asset  string
	pkg    string
	binary bool
	path   string
	fn     WatchFunc

	// stamp is the content hash at registration or last delivery, used
	// to suppress rewrites that did not change bytes.
	stamp    [32]byte
	hasStamp bool
}

type watchRegistry struct {
	mu          sync.Mutex
	pumpRunning bool
	nextID      WatchID
	byID        map[WatchID]*watchEntry
	byPath      map[string][]*watchEntry
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{
		byID:   make(map[WatchID]*watchEntry),
		byPath: make(map[string][]*watchEntry),
	}
}

// Watch registers fn to run when the asset's backing file changes. The
// asset must resolve to an on-disk path (loose packages only): assets
// served from archives are not watchable. An empty packageName resolves
// the path the way an unscoped request would.
//
// Rewrites that produce identical content are suppressed.
func (v *VFS) Watch(assetName, packageName string, binary bool, fn WatchFunc) (WatchID, error) {
	if fn == nil {
		return 0, errors.New("assetvfs: watch callback is required")
	}
	path, ok := v.PathFor(assetName, packageName)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotWatchable, assetName)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}

	n, err := v.ensureNotifier()
	if err != nil {
		return 0, err
	}

	e := &watchEntry{
		asset:  assetName,
		pkg:    packageName,
		binary: binary,
		path:   abs,
		fn:     fn,
	}
	if data, err := os.ReadFile(abs); err == nil {
		e.stamp = blake3.Sum256(data)
		e.hasStamp = true
	}

	r := v.watches
	r.mu.Lock()
	r.nextID++
	e.id = r.nextID
	r.byID[e.id] = e
	r.byPath[abs] = append(r.byPath[abs], e)
	first := len(r.byPath[abs]) == 1
	r.mu.Unlock()

	// The notifier tracks paths, not subscriptions: only the first
	// registration for a path installs the underlying watch.
	if first {
		if err := n.Add(abs); err != nil {
			r.mu.Lock()
			delete(r.byID, e.id)
			r.byPath[abs] = removeEntry(r.byPath[abs], e)
			if len(r.byPath[abs]) == 0 {
				delete(r.byPath, abs)
			}
			r.mu.Unlock()
			return 0, err
		}
	}

	v.log().Debug("watch registered", "asset", assetName, "path", abs, "id", uint64(e.id))
	return e.id, nil
}

// Unwatch drops a registration. Unknown ids are a no-op.
func (v *VFS) Unwatch(id WatchID) error {
	r := v.watches
	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.byID, id)
	r.byPath[e.path] = removeEntry(r.byPath[e.path], e)
	last := len(r.byPath[e.path]) == 0
	if last {
		delete(r.byPath, e.path)
	}
	r.mu.Unlock()

	if last && v.notifier != nil {
		return v.notifier.Remove(e.path)
	}
	return nil
}

// ensureNotifier lazily creates the platform notifier and starts the
// event pump. Registry state is guarded by the registry lock; notifier
// calls happen outside it.
func (v *VFS) ensureNotifier() (Notifier, error) {
	r := v.watches
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.notifier == nil {
		n, err := notify.New()
		if err != nil {
			return nil, err
		}
		v.notifier = n
	}
	if !r.pumpRunning {
		r.pumpRunning = true
		go v.pump(v.notifier.Events())
	}
	return v.notifier, nil
}

// pump forwards notifier events to watch callbacks. It exits when the
// notifier's event channel closes.
func (v *VFS) pump(events <-chan notify.Event) {
	for ev := range events {
		switch ev.Op {
		case notify.OpWrite:
			v.fireWritten(ev.Path)
		case notify.OpRemove:
			v.fireDeleted(ev.Path)
		}
	}
}

func (v *VFS) fireWritten(path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		// Mid-write or briefly absent during a replace; the completed
		// write delivers its own event.
		v.log().Debug("watched file unreadable, skipping", "path", path, "error", err)
		return
	}
	stamp := blake3.Sum256(payload)

	r := v.watches
	r.mu.Lock()
	var fire []*watchEntry
	for _, e := range r.byPath[path] {
		if e.hasStamp && e.stamp == stamp {
			continue
		}
		e.stamp = stamp
		e.hasStamp = true
		fire = append(fire, e)
	}
	r.mu.Unlock()

	for _, e := range fire {
		d := Data{
			Name:    e.asset,
			Package: e.pkg,
			Path:    path,
			Payload: append([]byte(nil), payload...),
			Status:  StatusOK,
		}
		if e.binary {
			d.Flags |= FlagBinary
		}
		v.log().Debug("watched asset written", "asset", e.asset, "path", path)
		e.fn(WatchEvent{Op: WatchWritten, Data: d})
	}
}

func (v *VFS) fireDeleted(path string) {
	r := v.watches
	r.mu.Lock()
	entries := r.byPath[path]
	delete(r.byPath, path)
	for _, e := range entries {
		delete(r.byID, e.id)
	}
	r.mu.Unlock()

	if len(entries) == 0 {
		return
	}
	if v.notifier != nil {
		if err := v.notifier.Remove(path); err != nil {
			v.log().Warn("notifier remove failed", "path", path, "error", err)
		}
	}

	// Registrations are dropped before callbacks run, so a callback
	// re-watching the asset cannot race its own removal.
	for _, e := range entries {
		d := Data{
			Name:    e.asset,
			Package: e.pkg,
			Path:    path,
			Status:  StatusNotFound,
		}
		if e.binary {
			d.Flags |= FlagBinary
		}
		v.log().Debug("watched asset deleted", "asset", e.asset, "path", path)
		e.fn(WatchEvent{Op: WatchDeleted, Data: d})
	}
}

func removeEntry(entries []*watchEntry, target *watchEntry) []*watchEntry {
	for i, e := range entries {
		if e == target {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}
