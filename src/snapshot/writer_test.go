package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, now time.Time) *Writer {
	t.Helper()
	w, err := NewWriter(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	w.now = func() time.Time { return now }
	return w
}

func TestWriteAndLoad(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 30, 0, 123456000, time.UTC)
	w := newTestWriter(t, now)

	payload := map[string]any{"symbol": "AAPL", "iv_rank": 41.5}
	path, err := w.Write(context.Background(), "swarm-7", payload)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir(), "20250301T143000.123456Z_swarm-7.json"), path)

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "swarm-7", snap.InstanceID)
	assert.True(t, now.Equal(snap.CreatedAt))
	assert.JSONEq(t, `{"symbol":"AAPL","iv_rank":41.5}`, string(snap.Payload))

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteRefusesOverwrite(t *testing.T) {
	w := newTestWriter(t, time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC))

	path, err := w.Write(context.Background(), "swarm-1", map[string]int{"v": 1})
	require.NoError(t, err)

	_, err = w.Write(context.Background(), "swarm-1", map[string]int{"v": 2})
	assert.ErrorIs(t, err, ErrExists)

	snap, err := Load(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(snap.Payload))
}

func TestWriteGeneratesInstanceID(t *testing.T) {
	w := newTestWriter(t, time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC))

	path, err := w.Write(context.Background(), "", []string{"leg"})
	require.NoError(t, err)

	snap, err := Load(path)
	require.NoError(t, err)
	_, err = uuid.Parse(snap.InstanceID)
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_"+snap.InstanceID+".json"))
}

func TestWriteRejectsPathInInstanceID(t *testing.T) {
	w := newTestWriter(t, time.Now())

	_, err := w.Write(context.Background(), "../escape", nil)
	assert.Error(t, err)
}

func TestWriteBefore(t *testing.T) {
	w := newTestWriter(t, time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC))

	var seen string
	err := w.WriteBefore(context.Background(), "swarm-2", map[string]string{"k": "v"}, func(ctx context.Context, path string) error {
		_, statErr := os.Stat(path)
		require.NoError(t, statErr)
		seen = path
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, seen)

	t.Run("callback error is returned", func(t *testing.T) {
		boom := errors.New("llm unavailable")
		err := w.WriteBefore(context.Background(), "swarm-3", nil, func(context.Context, string) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("callback skipped when the write fails", func(t *testing.T) {
		called := false
		err := w.WriteBefore(context.Background(), "swarm-2", nil, func(context.Context, string) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrExists)
		assert.False(t, called)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		err := w.WriteBefore(ctx, "swarm-4", nil, func(context.Context, string) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestList(t *testing.T) {
	w := newTestWriter(t, time.Time{})
	ctx := context.Background()

	for _, ts := range []time.Time{
		time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	} {
		w.now = func() time.Time { return ts }
		_, err := w.Write(ctx, "swarm", nil)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir(), "notes.txt"), []byte("x"), 0o644))

	paths, err := w.List()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "20250301T090000.000000Z_swarm.json", filepath.Base(paths[0]))
	assert.Equal(t, "20250302T090000.000000Z_swarm.json", filepath.Base(paths[1]))
}
