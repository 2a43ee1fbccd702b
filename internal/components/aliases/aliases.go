// Package aliases maintains a read-only view of the active profile's command
// aliases, alongside the active environment.
//
// Like every subscriber cache, the view is replaced wholesale on each
// accepted broadcast; the coordinator remains the only writer.
package aliases

import (
	"sync"

	"github.com/keydeck/keydeck/internal/bus"
	"github.com/keydeck/keydeck/internal/component"
	"github.com/keydeck/keydeck/internal/coordinator"
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/profile"
	"github.com/keydeck/keydeck/internal/rpc"
)

// Name is this component's name on the bus.
const Name = "Aliases"

// State is the snapshot this component shares with late-joining peers.
type State struct {
	ProfileID   string
	Environment profile.Environment
	Aliases     map[string]string
}

// Component caches the active profile's aliases.
type Component struct {
	core  *component.Core
	coord *coordinator.Coordinator

	mu    sync.RWMutex
	state State
}

// New creates the aliases component on the shared substrate.
func New(b *bus.Bus, r *rpc.Layer, coord *coordinator.Coordinator) *Component {
	c := &Component{}
	c.coord = coord
	c.core = component.NewCore(Name, b, r, c)
	return c
}

// Core exposes the lifecycle core.
func (c *Component) Core() *component.Core { return c.core }

// Init initializes the component.
func (c *Component) Init() error { return c.core.Init() }

// Destroy tears the component down.
func (c *Component) Destroy() { c.core.Destroy() }

// OnInit registers with the coordinator and wires the broadcast listeners.
func (c *Component) OnInit() error {
	snap := c.coord.RegisterSubscriber(Name)
	c.applySnapshot(snap)

	c.core.Subscribe(events.TopicProfileSwitched, c.onSwitched)
	c.core.Subscribe(events.TopicProfileUpdated, c.onUpdated)
	c.core.Subscribe(events.TopicProfileDeleted, c.onDeleted)
	c.core.Subscribe(events.TopicEnvSwitched, c.onEnvSwitched)
	c.core.Subscribe(events.TopicInitialState, c.onInitialState)
	return nil
}

// OnDestroy unregisters from coordinator pushes.
func (c *Component) OnDestroy() {
	c.coord.UnregisterSubscriber(Name)
}

// CurrentState returns this component's shareable snapshot.
func (c *Component) CurrentState() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.state
	out.Aliases = cloneAliases(c.state.Aliases)
	return out
}

// ApplyPeerState adopts the coordinator's canonical snapshot; pushes from
// other peers are ignored.
func (c *Component) ApplyPeerState(sender string, state any) {
	if sender != coordinator.Name {
		return
	}
	if snap, ok := state.(profile.Snapshot); ok {
		c.applySnapshot(snap)
	}
}

// Expand returns the expansion for alias in the active profile.
func (c *Component) Expand(alias string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	expansion, ok := c.state.Aliases[alias]
	return expansion, ok
}

// Environment returns the cached active environment.
func (c *Component) Environment() profile.Environment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Environment
}

// All returns a copy of the cached aliases.
func (c *Component) All() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAliases(c.state.Aliases)
}

func (c *Component) onSwitched(payload any) {
	ev, ok := payload.(events.ProfileSwitched)
	if !ok {
		return
	}
	c.mu.Lock()
	c.state = State{
		ProfileID:   ev.Profile.ID,
		Environment: c.state.Environment,
		Aliases:     cloneAliases(ev.Profile.Aliases),
	}
	c.mu.Unlock()
}

func (c *Component) onUpdated(payload any) {
	ev, ok := payload.(events.ProfileUpdated)
	if !ok {
		return
	}
	c.mu.Lock()
	if ev.Profile.ID == c.state.ProfileID {
		c.state.Aliases = cloneAliases(ev.Profile.Aliases)
	}
	c.mu.Unlock()
}

func (c *Component) onDeleted(payload any) {
	ev, ok := payload.(events.ProfileDeleted)
	if !ok {
		return
	}
	c.mu.Lock()
	if ev.ID == c.state.ProfileID {
		c.state = State{Environment: c.state.Environment, Aliases: map[string]string{}}
	}
	c.mu.Unlock()
}

func (c *Component) onEnvSwitched(payload any) {
	ev, ok := payload.(events.EnvSwitched)
	if !ok {
		return
	}
	c.mu.Lock()
	c.state.Environment = ev.Environment
	c.mu.Unlock()
}

func (c *Component) onInitialState(payload any) {
	ev, ok := payload.(events.InitialState)
	if !ok || ev.Target != Name {
		return
	}
	c.applySnapshot(ev.Snapshot)
}

func (c *Component) applySnapshot(snap profile.Snapshot) {
	next := State{Environment: snap.Environment, Aliases: map[string]string{}}
	if active, ok := snap.Active(); ok {
		next.ProfileID = active.ID
		next.Aliases = cloneAliases(active.Aliases)
	}

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
}

func cloneAliases(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
