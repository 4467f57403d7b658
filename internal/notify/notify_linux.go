package notify

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// debounceDelay is how long the watcher waits after the first event of a
// burst before reading the queue dry and emitting, coalescing rapid
// successive writes (editors, multi-file exports) into one event per
// path.
const debounceDelay = 50 * time.Millisecond

const writeMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO
const removeMask = unix.IN_DELETE | unix.IN_MOVED_FROM

// Watcher is an inotify-backed change notifier. One inotify descriptor
// serves all registered files; directories are watched once no matter
// how many files inside them are registered.
type Watcher struct {
	fd     int
	events chan Event
	stop   chan struct{}

	mu     sync.Mutex
	closed bool
	dirs   map[string]*dirWatch // directory path -> watch
	byWD   map[int32]*dirWatch
}

// dirWatch tracks one watched directory and the registered files in it.
type dirWatch struct {
	wd    int32
	dir   string
	files map[string]string // base name -> registered absolute path
}

// New creates a Watcher and starts its event loop.
func New() (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("notify: inotify_init1: %w", err)
	}
	w := &Watcher{
		fd:     fd,
		events: make(chan Event, 64),
		stop:   make(chan struct{}),
		dirs:   make(map[string]*dirWatch),
		byWD:   make(map[int32]*dirWatch),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel change events are delivered on. It is
// closed when the Watcher is closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Add registers the file at path. Events for it carry the absolute form
// of path. Adding a path twice is a no-op.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	name := filepath.Base(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("notify: watcher closed")
	}

	dw, ok := w.dirs[dir]
	if !ok {
		// The directory watch catches atomic renames: a temp file
		// renamed over the target is a new inode, invisible to a watch
		// on the old one.
		wd, err := unix.InotifyAddWatch(w.fd, dir, writeMask|removeMask)
		if err != nil {
			return fmt.Errorf("notify: inotify_add_watch %s: %w", dir, err)
		}
		dw = &dirWatch{wd: int32(wd), dir: dir, files: make(map[string]string)}
		w.dirs[dir] = dw
		w.byWD[dw.wd] = dw
	}
	dw.files[name] = abs
	return nil
}

// Remove unregisters the file at path. The directory watch is released
// when no registered files remain in it.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	name := filepath.Base(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	dw, ok := w.dirs[dir]
	if !ok {
		return nil
	}
	delete(dw.files, name)
	if len(dw.files) > 0 {
		return nil
	}
	delete(w.dirs, dir)
	delete(w.byWD, dw.wd)
	if w.closed {
		return nil
	}
	if _, err := unix.InotifyRmWatch(w.fd, uint32(dw.wd)); err != nil {
		return fmt.Errorf("notify: inotify_rm_watch %s: %w", dir, err)
	}
	return nil
}

// Close stops the event loop, closes the events channel, and releases
// the inotify descriptor. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	close(w.stop)
	return nil
}

// loop polls the inotify descriptor and forwards matching events. It
// polls with a 100ms timeout so it stays responsive to Close without
// spinning. The descriptor is closed here, after the last read.
func (w *Watcher) loop() {
	defer close(w.events)
	defer unix.Close(w.fd)

	buffer := make([]byte, 4096)
	pending := make(map[string]Op)

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(w.fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		w.collect(buffer[:bytesRead], pending)
		if len(pending) == 0 {
			continue
		}

		// Debounce: give a burst time to finish, then read the queue
		// dry so one event per path goes out, last operation winning.
		time.Sleep(debounceDelay)
		for {
			bytesRead, err := unix.Read(w.fd, buffer)
			if err != nil {
				break
			}
			w.collect(buffer[:bytesRead], pending)
		}

		for path, op := range pending {
			select {
			case w.events <- Event{Path: path, Op: op}:
			case <-w.stop:
				return
			}
			delete(pending, path)
		}
	}
}

// collect parses raw inotify events into pending, keeping only events
// for registered files. Layout from inotify(7):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded to alignment
//	};
func (w *Watcher) collect(buffer []byte, pending map[string]Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		wd := int32(binary.NativeEndian.Uint32(buffer[offset : offset+4]))
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}

		if nameLength == 0 {
			offset += eventSize
			continue
		}
		dw, ok := w.byWD[wd]
		if !ok {
			offset += eventSize
			continue
		}
		name := nullTerminated(buffer[offset+unix.SizeofInotifyEvent : offset+eventSize])
		path, ok := dw.files[name]
		if !ok {
			offset += eventSize
			continue
		}

		switch {
		case mask&removeMask != 0:
			pending[path] = OpRemove
		case mask&writeMask != 0:
			pending[path] = OpWrite
		}
		offset += eventSize
	}
}

// nullTerminated extracts a string from a null-padded byte slice,
// stopping at the first null byte.
func nullTerminated(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
