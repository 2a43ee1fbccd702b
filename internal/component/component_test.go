package component

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keydeck/keydeck/internal/bus"
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/rpc"
)

// fake is a minimal feature component for lifecycle tests. Peer snapshots
// are stored per sender (replace, never accumulate) with a separate apply
// log for exactly-once assertions.
type fake struct {
	core *Core

	initCalls    int
	destroyCalls int
	initErr      error
	applyPanic   bool

	state   any
	peers   map[string]any
	applies []string
}

func newFake(t *testing.T, name string, b *bus.Bus, r *rpc.Layer, state any) *fake {
	t.Helper()
	f := &fake{state: state, peers: make(map[string]any)}
	f.core = NewCore(name, b, r, f)
	return f
}

func (f *fake) OnInit() error { f.initCalls++; return f.initErr }
func (f *fake) OnDestroy()    { f.destroyCalls++ }

func (f *fake) CurrentState() any { return f.state }

func (f *fake) ApplyPeerState(sender string, state any) {
	if f.applyPanic {
		panic("bad merge")
	}
	f.peers[sender] = state
	f.applies = append(f.applies, sender)
}

func newSubstrate() (*bus.Bus, *rpc.Layer) {
	return bus.New(), rpc.New()
}

func TestInit_Transitions(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)

	require.Equal(t, StateNew, f.core.State())
	require.NoError(t, f.core.Init())
	require.Equal(t, StateReady, f.core.State())
	require.Equal(t, 1, f.initCalls)
}

func TestInit_TwiceIsNoOp(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)

	require.NoError(t, f.core.Init())
	require.NoError(t, f.core.Init())
	require.Equal(t, 1, f.initCalls, "OnInit must run exactly once")
}

func TestInit_HookErrorKeepsStateNew(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)
	f.initErr = errors.New("boom")

	err := f.core.Init()
	require.Error(t, err)
	require.Equal(t, StateNew, f.core.State())
	require.Zero(t, b.SubscriberCount(events.TopicComponentReady))
}

func TestDestroy_RemovesTrackedSubscriptions(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)
	require.NoError(t, f.core.Init())

	var custom int
	f.core.Subscribe("custom", func(any) { custom++ })
	require.Equal(t, 1, b.SubscriberCount("custom"))

	f.core.Destroy()

	require.Equal(t, StateDestroyed, f.core.State())
	require.Equal(t, 1, f.destroyCalls)
	require.Zero(t, b.SubscriberCount("custom"))
	require.Zero(t, b.SubscriberCount(events.TopicComponentReady))

	b.Publish("custom", nil)
	require.Zero(t, custom)
}

func TestDestroy_TwiceIsNoOp(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)
	require.NoError(t, f.core.Init())

	f.core.Destroy()
	f.core.Destroy()
	require.Equal(t, 1, f.destroyCalls)
}

func TestInit_AfterDestroyFails(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)
	require.NoError(t, f.core.Init())
	f.core.Destroy()

	require.Error(t, f.core.Init())
	require.Equal(t, StateDestroyed, f.core.State())
}

func TestSubscribe_AfterDestroyIsInert(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)
	require.NoError(t, f.core.Init())
	f.core.Destroy()

	f.core.Subscribe("late", func(any) {})
	require.Zero(t, b.SubscriberCount("late"))
}

func TestEmit_Publishes(t *testing.T) {
	b, r := newSubstrate()
	f := newFake(t, "keys", b, r, nil)

	var got any
	b.Subscribe("t", func(p any) { got = p })
	f.core.Emit("t", 7)
	require.Equal(t, 7, got)
}
