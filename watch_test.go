package assetvfs_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-engine/assetvfs"
	"github.com/meridian-engine/assetvfs/internal/notify"
	"github.com/meridian-engine/assetvfs/pack"
)

// fakeNotifier drives watch events deterministically, standing in for
// the platform notifier.
type fakeNotifier struct {
	mu     sync.Mutex
	refs   map[string]int
	events chan notify.Event
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		refs:   make(map[string]int),
		events: make(chan notify.Event, 16),
	}
}

func (f *fakeNotifier) Add(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[path]++
	return nil
}

func (f *fakeNotifier) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[path]--
	return nil
}

func (f *fakeNotifier) Events() <-chan notify.Event { return f.events }

func (f *fakeNotifier) Close() error {
	close(f.events)
	return nil
}

func (f *fakeNotifier) watching(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refs[path]
}

func (f *fakeNotifier) emit(path string, op notify.Op) {
	f.events <- notify.Event{Path: path, Op: op}
}

type watchHarness struct {
	v      *assetvfs.VFS
	fake   *fakeNotifier
	dir    string
	events chan assetvfs.WatchEvent
}

func newWatchHarness(t *testing.T, files map[string]string) *watchHarness {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	fake := newFakeNotifier()
	v := assetvfs.New(assetvfs.WithNotifier(fake))
	require.NoError(t, v.Mount(pack.NewDir("dev", dir)))

	return &watchHarness{
		v:      v,
		fake:   fake,
		dir:    dir,
		events: make(chan assetvfs.WatchEvent, 16),
	}
}

func (h *watchHarness) abs(t *testing.T, rel string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join(h.dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return abs
}

func (h *watchHarness) record(ev assetvfs.WatchEvent) {
	h.events <- ev
}

func (h *watchHarness) next(t *testing.T) assetvfs.WatchEvent {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return assetvfs.WatchEvent{}
	}
}

func TestWatchWritten(t *testing.T) {
	t.Parallel()

	h := newWatchHarness(t, map[string]string{"cfg/game.ini": "fov = 90"})
	id, err := h.v.Watch("cfg/game.ini", "dev", false, h.record)
	require.NoError(t, err)
	require.NotZero(t, id)

	path := h.abs(t, "cfg/game.ini")
	require.Equal(t, 1, h.fake.watching(path))

	require.NoError(t, os.WriteFile(path, []byte("fov = 110"), 0o644))
	h.fake.emit(path, notify.OpWrite)

	ev := h.next(t)
	assert.Equal(t, assetvfs.WatchWritten, ev.Op)
	require.True(t, ev.Data.OK())
	assert.Equal(t, "fov = 110", ev.Data.Text())
	assert.Equal(t, "cfg/game.ini", ev.Data.Name)
	assert.Equal(t, "dev", ev.Data.Package)
	assert.Equal(t, path, ev.Data.Path)
}

func TestWatchSuppressesUnchangedContent(t *testing.T) {
	t.Parallel()

	h := newWatchHarness(t, map[string]string{
		"a.txt": "same",
		"b.txt": "old",
	})
	_, err := h.v.Watch("a.txt", "dev", false, h.record)
	require.NoError(t, err)
	_, err = h.v.Watch("b.txt", "dev", false, h.record)
	require.NoError(t, err)

	// Rewrite a.txt with identical bytes, then change b.txt. Events are
	// pumped in order, so the next delivery being b proves a's rewrite
	// was swallowed by the content stamp.
	aPath := h.abs(t, "a.txt")
	require.NoError(t, os.WriteFile(aPath, []byte("same"), 0o644))
	h.fake.emit(aPath, notify.OpWrite)

	bPath := h.abs(t, "b.txt")
	require.NoError(t, os.WriteFile(bPath, []byte("new"), 0o644))
	h.fake.emit(bPath, notify.OpWrite)

	ev := h.next(t)
	assert.Equal(t, "b.txt", ev.Data.Name)
	assert.Equal(t, "new", ev.Data.Text())
}

func TestWatchDeletedUnregisters(t *testing.T) {
	t.Parallel()

	h := newWatchHarness(t, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
	})
	_, err := h.v.Watch("a.txt", "dev", false, h.record)
	require.NoError(t, err)
	_, err = h.v.Watch("b.txt", "dev", false, h.record)
	require.NoError(t, err)

	aPath := h.abs(t, "a.txt")
	require.NoError(t, os.Remove(aPath))
	h.fake.emit(aPath, notify.OpRemove)

	ev := h.next(t)
	assert.Equal(t, assetvfs.WatchDeleted, ev.Op)
	assert.Equal(t, assetvfs.StatusNotFound, ev.Data.Status)
	assert.Nil(t, ev.Data.Payload)
	assert.Equal(t, "a.txt", ev.Data.Name)

	// The registration died with the file: further events for the path
	// deliver nothing, while other watches stay live.
	h.fake.emit(aPath, notify.OpWrite)

	bPath := h.abs(t, "b.txt")
	require.NoError(t, os.WriteFile(bPath, []byte("b2"), 0o644))
	h.fake.emit(bPath, notify.OpWrite)

	ev = h.next(t)
	assert.Equal(t, "b.txt", ev.Data.Name)
	assert.Equal(t, 0, h.fake.watching(aPath))
}

func TestWatchMultipleSubscribers(t *testing.T) {
	t.Parallel()

	h := newWatchHarness(t, map[string]string{"a.txt": "v1"})
	path := h.abs(t, "a.txt")

	first := make(chan assetvfs.WatchEvent, 4)
	id1, err := h.v.Watch("a.txt", "dev", false, func(ev assetvfs.WatchEvent) { first <- ev })
	require.NoError(t, err)
	_, err = h.v.Watch("a.txt", "dev", false, h.record)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	h.fake.emit(path, notify.OpWrite)

	ev := h.next(t)
	assert.Equal(t, "v2", ev.Data.Text())
	select {
	case ev = <-first:
		assert.Equal(t, "v2", ev.Data.Text())
	case <-time.After(2 * time.Second):
		t.Fatal("first subscriber saw nothing")
	}

	// Dropping one subscription keeps the path watched for the other.
	require.NoError(t, h.v.Unwatch(id1))
	require.Equal(t, 1, h.fake.watching(path))

	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o644))
	h.fake.emit(path, notify.OpWrite)

	ev = h.next(t)
	assert.Equal(t, "v3", ev.Data.Text())
	select {
	case ev = <-first:
		t.Fatalf("unwatched subscriber still notified: %v", ev.Op)
	default:
	}
}

func TestWatchUnwatch(t *testing.T) {
	t.Parallel()

	h := newWatchHarness(t, map[string]string{"a.txt": "v1"})
	path := h.abs(t, "a.txt")

	id, err := h.v.Watch("a.txt", "dev", false, h.record)
	require.NoError(t, err)
	require.NoError(t, h.v.Unwatch(id))
	assert.Equal(t, 0, h.fake.watching(path))

	// Unknown ids are a no-op.
	require.NoError(t, h.v.Unwatch(assetvfs.WatchID(9999)))
}

func TestWatchRequiresPath(t *testing.T) {
	t.Parallel()

	v := assetvfs.New(assetvfs.WithNotifier(newFakeNotifier()))
	require.NoError(t, v.Mount(newArchivePackage(t, "shipped", map[string]string{
		"a.txt": "a",
	})))

	_, err := v.Watch("a.txt", "shipped", false, func(assetvfs.WatchEvent) {})
	require.ErrorIs(t, err, assetvfs.ErrNotWatchable)

	_, err = v.Watch("a.txt", "shipped", false, nil)
	require.Error(t, err)
}
