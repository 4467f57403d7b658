package assetvfs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-engine/assetvfs"
	"github.com/meridian-engine/assetvfs/job"
)

func TestRequestAsync(t *testing.T) {
	t.Parallel()

	s := job.New(job.WithWorkers(2))
	defer s.Close()

	v := assetvfs.New(assetvfs.WithScheduler(s))
	require.NoError(t, v.Mount(newDirPackage(t, "base", map[string]string{
		"ui/menu.txt": "play",
	})))

	var got assetvfs.Data
	calls := 0
	err := v.RequestAsync(assetvfs.Request{
		Name:     "ui/menu.txt",
		Callback: func(d assetvfs.Data) { calls++; got = d },
	})
	require.NoError(t, err)

	// The callback cannot run before a dispatch, no matter how fast the
	// worker finishes.
	require.Zero(t, calls)

	require.Eventually(t, func() bool { return s.Dispatch(8) > 0 }, time.Second, time.Millisecond)
	require.Equal(t, 1, calls)
	require.True(t, got.OK())
	assert.Equal(t, "play", got.Text())
	assert.Equal(t, "base", got.Package)

	// Same outcome as the synchronous path.
	direct := v.Request(assetvfs.Request{Name: "ui/menu.txt"})
	assert.Equal(t, direct.Payload, got.Payload)
	assert.Equal(t, direct.Status, got.Status)
}

func TestRequestAsyncFailureStillCallsBack(t *testing.T) {
	t.Parallel()

	s := job.New(job.WithWorkers(1))
	defer s.Close()

	v := assetvfs.New(assetvfs.WithScheduler(s))
	require.NoError(t, v.Mount(newDirPackage(t, "base", nil)))

	var got assetvfs.Data
	calls := 0
	err := v.RequestAsync(assetvfs.Request{
		Name:     "missing.dat",
		Tag:      "retry-later",
		Callback: func(d assetvfs.Data) { calls++; got = d },
	})
	require.NoError(t, err)
	require.NoError(t, s.Drain(context.Background()))

	require.Equal(t, 1, calls)
	assert.Equal(t, assetvfs.StatusNotFoundAnywhere, got.Status)
	assert.Equal(t, "retry-later", got.Tag)
	assert.Nil(t, got.Payload)
}

func TestRequestAsyncNilCallback(t *testing.T) {
	t.Parallel()

	s := job.New(job.WithWorkers(1))
	defer s.Close()

	v := assetvfs.New(assetvfs.WithScheduler(s))
	require.NoError(t, v.Mount(newDirPackage(t, "base", map[string]string{"a.txt": "a"})))

	// Fire-and-forget requests are allowed.
	require.NoError(t, v.RequestAsync(assetvfs.Request{Name: "a.txt"}))
	require.NoError(t, s.Drain(context.Background()))
}

func TestRequestAsyncWithoutScheduler(t *testing.T) {
	t.Parallel()

	v := assetvfs.New()
	err := v.RequestAsync(assetvfs.Request{Name: "a.txt"})
	require.ErrorIs(t, err, assetvfs.ErrNoScheduler)
}
