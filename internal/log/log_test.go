package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keydeck/keydeck/internal/pubsub"
)

func TestNewListener_NilBeforeInit(t *testing.T) {
	require.Nil(t, NewListener(context.Background()))
}

func TestNewListener_TailsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keydeck.log")
	closer, err := InitWithTeaLog(path, "keydeck")
	require.NoError(t, err)
	t.Cleanup(closer)
	SetMinLevel(LevelDebug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewListener(ctx)
	require.NotNil(t, l)

	Info(CatApp, "external change applied", "profiles", 3)

	msg := l.Listen()()
	entry, ok := msg.(Entry)
	require.True(t, ok)
	require.Equal(t, pubsub.KindEntry, entry.Kind)
	require.Contains(t, entry.Payload, "external change applied")
	require.Contains(t, entry.Payload, "profiles=3")
	require.Contains(t, entry.Payload, "[INFO]")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "external change applied")
}

func TestListener_ClosedOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keydeck.log")
	closer, err := InitWithTeaLog(path, "keydeck")
	require.NoError(t, err)
	t.Cleanup(closer)

	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(ctx)
	require.NotNil(t, l)

	cancel()
	require.Nil(t, l.Listen()(), "cancelled listener yields nil, not a stale entry")
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keydeck.log")
	closer, err := Init(path)
	require.NoError(t, err)
	t.Cleanup(closer)
	SetMinLevel(LevelDebug)

	Warn(CatWatcher, "debounce fired", "path", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[WARN]")
	require.Contains(t, string(data), "debounce fired")

	again, err := Init(filepath.Join(t.TempDir(), "other.log"))
	require.NoError(t, err)
	require.NotNil(t, again, "repeat init keeps the original logger")
}
