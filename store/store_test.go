package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amp-labs/amp-fsm/codec"
	"github.com/amp-labs/amp-fsm/config"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lightSwitch(t *testing.T) (*statemachine.Engine, *[]string) {
	t.Helper()

	var entered []string

	def, err := statemachine.NewBuilder().
		State("off").
		OnEnter(statemachine.Sync(func(context.Context) error {
			entered = append(entered, "off")

			return nil
		})).
		Done().
		State("on").
		OnEnter(statemachine.Sync(func(context.Context) error {
			entered = append(entered, "on")

			return nil
		})).
		Done().
		Build()
	require.NoError(t, err)

	engine := statemachine.NewEngine(
		statemachine.WithName(t.Name()),
		statemachine.WithLogger(statemachine.NopLogger{}),
	)
	require.NoError(t, engine.Attach(def))

	return engine, &entered
}

func await(t *testing.T, fn func(done statemachine.Callback) error) {
	t.Helper()

	ch := make(chan error, 1)
	require.NoError(t, fn(func(err error) { ch <- err }))

	select {
	case err := <-ch:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  config.Store
	}{
		{"memory", config.Store{Backend: config.BackendMemory}},
		{"default", config.Store{}},
		{"file", config.Store{Backend: config.BackendFile, Path: filepath.Join(dir, "files")}},
		{"redis", config.Store{Backend: config.BackendRedis, RedisAddr: mr.Addr(), KeyPrefix: "open:"}},
		{"sqlite", config.Store{Backend: config.BackendSQLite, Path: filepath.Join(dir, "open.db")}},
		{"badger", config.Store{Backend: config.BackendBadger}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st, err := Open(ctx, tt.cfg, codec.Default)
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })

			snap := statemachine.Snapshot{State: "on", Data: "payload"}
			require.NoError(t, st.Put(ctx, "k", snap))

			got, err := st.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, snap, got)

			require.NoError(t, st.Delete(ctx, "k"))

			_, err = st.Get(ctx, "k")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}

	_, err := Open(ctx, config.Store{Backend: "etcd"}, codec.Default)
	require.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, config.Store{Backend: config.BackendFile}, codec.Default)
	require.Error(t, err)
}

func TestSnapshotStore_PrefixAndCodec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := NewMemoryStore()
	c := codec.Codec{Format: codec.FormatYAML, Compression: codec.CompressionZstd}
	st := New(mem, c, "tenant-a:")

	require.NoError(t, st.Put(ctx, "door", statemachine.Snapshot{State: "open"}))

	raw, err := mem.Get(ctx, "tenant-a:door")
	require.NoError(t, err)

	decoded, err := c.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "open", decoded.State)

	require.NoError(t, mem.Put(ctx, "tenant-a:corrupt", []byte("not an envelope")))

	_, err = st.Get(ctx, "corrupt")
	require.ErrorIs(t, err, codec.ErrInvalidEnvelope)
}

func TestCheckpointAndResume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := New(NewMemoryStore(), codec.Default, "fsm:")

	engine, _ := lightSwitch(t)
	require.ErrorIs(t, Checkpoint(ctx, st, "hall", engine), statemachine.ErrNoActiveState)

	await(t, func(done statemachine.Callback) error { return engine.Start(ctx, "off", nil, done) })
	await(t, func(done statemachine.Callback) error {
		return engine.Transition(ctx, "on", map[string]any{"watts": 60}, done)
	})
	require.NoError(t, Checkpoint(ctx, st, "hall", engine))

	restored, entered := lightSwitch(t)
	await(t, func(done statemachine.Callback) error { return Resume(ctx, st, "hall", restored, done) })

	assert.Equal(t, "on", restored.CurrentState())
	assert.Equal(t, map[string]any{"watts": float64(60)}, restored.Data())
	assert.Equal(t, []string{"on"}, *entered)

	err := Resume(ctx, st, "missing", restored, nil)
	require.ErrorIs(t, err, ErrNotFound)
}
