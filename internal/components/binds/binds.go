// Package binds maintains a read-only view of the active profile's keybinds.
//
// The cache is replaced wholesale on every accepted broadcast and never
// mutated in place, so it can never hold a mix of old and new canonical
// fields. Mutations go through the rpc layer like any other component.
package binds

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
const Name = "Binds"

// State is the snapshot this component shares with late-joining peers.
type State struct {
	ProfileID string
	Binds     map[string]string
}

// Component caches the active profile's keybinds.
type Component struct {
	core  *component.Core
	coord *coordinator.Coordinator

	mu        sync.RWMutex
	profileID string
	binds     map[string]string
}

// New creates the binds component on the shared substrate.
func New(b *bus.Bus, r *rpc.Layer, coord *coordinator.Coordinator) *Component {
	c := &Component{coord: coord}
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
	return State{ProfileID: c.profileID, Binds: cloneBinds(c.binds)}
}

// ApplyPeerState adopts the coordinator's canonical snapshot. Pushes from
// other peers carry no keybind data and are ignored. Application replaces
// the cache, so a repeated push cannot accumulate.
func (c *Component) ApplyPeerState(sender string, state any) {
	if sender != coordinator.Name {
		return
	}
	if snap, ok := state.(profile.Snapshot); ok {
		c.applySnapshot(snap)
	}
}

// Lookup returns the command bound to key in the active profile.
func (c *Component) Lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.binds[key]
	return cmd, ok
}

// All returns a copy of the cached keybinds.
func (c *Component) All() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneBinds(c.binds)
}

// ProfileID returns the id of the profile the cache reflects.
func (c *Component) ProfileID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profileID
}

func (c *Component) onSwitched(payload any) {
	ev, ok := payload.(events.ProfileSwitched)
	if !ok {
		return
	}
	c.replace(ev.Profile.ID, ev.Profile.Binds)
}

func (c *Component) onUpdated(payload any) {
	ev, ok := payload.(events.ProfileUpdated)
	if !ok {
		return
	}
	c.mu.RLock()
	relevant := ev.Profile.ID == c.profileID
	c.mu.RUnlock()
	if relevant {
		c.replace(ev.Profile.ID, ev.Profile.Binds)
	}
}

func (c *Component) onDeleted(payload any) {
	ev, ok := payload.(events.ProfileDeleted)
	if !ok {
		return
	}
	c.mu.RLock()
	relevant := ev.ID == c.profileID
	c.mu.RUnlock()
	if relevant {
		c.replace("", nil)
	}
}

func (c *Component) onInitialState(payload any) {
	ev, ok := payload.(events.InitialState)
	if !ok || ev.Target != Name {
		return
	}
	c.applySnapshot(ev.Snapshot)
}

func (c *Component) applySnapshot(snap profile.Snapshot) {
	if active, ok := snap.Active(); ok {
		c.replace(active.ID, active.Binds)
		return
	}
	c.replace("", nil)
}

// replace swaps the whole cache; never merge field by field.
func (c *Component) replace(profileID string, binds map[string]string) {
	c.mu.Lock()
	c.profileID = profileID
	c.binds = cloneBinds(binds)
	c.mu.Unlock()
}

func cloneBinds(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
