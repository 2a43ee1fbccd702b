// Package component gives every keydeck feature a uniform lifecycle:
// init/destroy state machine, bus subscriptions that are torn down
// automatically, and the late-join handshake that synchronizes state between
// components regardless of their init order.
//
// Features implement the Hooks interface and compose a Core rather than
// inheriting from a base type.
package component

import (
	"fmt"
	"sync"

	"github.com/keydeck/keydeck/internal/bus"
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/log"
	"github.com/keydeck/keydeck/internal/rpc"
)

// State is a component's lifecycle state.
type State int

const (
	StateNew State = iota
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Hooks is implemented by each feature component.
type Hooks interface {
	// OnInit runs exactly once, before the late-join handshake.
	OnInit() error

	// OnDestroy runs exactly once, after tracked subscriptions are removed.
	OnDestroy()

	// CurrentState returns a snapshot pushed to late-joining peers.
	CurrentState() any

	// ApplyPeerState merges a peer's snapshot. It must replace any state
	// previously applied for the same sender, never accumulate, so that a
	// repeated push cannot double-apply side effects.
	ApplyPeerState(sender string, state any)
}

// Core carries the lifecycle machinery a feature composes.
type Core struct {
	name  string
	bus   *bus.Bus
	rpc   *rpc.Layer
	hooks Hooks

	mu      sync.Mutex
	state   State
	cancels []bus.CancelFunc
	replied map[string]bool // late-join: senders already answered
}

// NewCore creates the lifecycle core for one named component.
func NewCore(name string, b *bus.Bus, r *rpc.Layer, hooks Hooks) *Core {
	return &Core{
		name:    name,
		bus:     b,
		rpc:     r,
		hooks:   hooks,
		replied: make(map[string]bool),
	}
}

// Name returns the component name.
func (c *Core) Name() string { return c.name }

// State returns the current lifecycle state.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Bus returns the shared event bus.
func (c *Core) Bus() *bus.Bus { return c.bus }

// RPC returns the shared request/response layer.
func (c *Core) RPC() *rpc.Layer { return c.rpc }

// Init transitions New -> Ready, runs OnInit once, then performs the
// late-join handshake. Repeat calls warn and no-op.
func (c *Core) Init() error {
	c.mu.Lock()
	switch c.state {
	case StateReady:
		c.mu.Unlock()
		log.Warn(log.CatComp, "init called twice", "component", c.name)
		return nil
	case StateDestroyed:
		c.mu.Unlock()
		log.Warn(log.CatComp, "init on destroyed component", "component", c.name)
		return fmt.Errorf("component %q is destroyed", c.name)
	}
	c.mu.Unlock()

	if err := c.hooks.OnInit(); err != nil {
		return fmt.Errorf("initializing %q: %w", c.name, err)
	}

	c.mu.Lock()
	c.state = StateReady
	c.mu.Unlock()

	// Handshake listeners must be live before the announce goes out, so a
	// peer reacting to the announce can reach us.
	c.Subscribe(events.TopicComponentReady, c.onPeerReady)
	c.Subscribe(events.TopicComponentState, c.onPeerState)

	log.Debug(log.CatComp, "component ready", "component", c.name)
	c.Emit(events.TopicComponentReady, events.ComponentReady{Name: c.name})
	return nil
}

// Destroy transitions to Destroyed, removes every tracked subscription, then
// runs OnDestroy. Repeat calls warn and no-op.
func (c *Core) Destroy() {
	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		log.Warn(log.CatComp, "destroy called twice", "component", c.name)
		return
	}
	c.state = StateDestroyed
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	c.hooks.OnDestroy()
	log.Debug(log.CatComp, "component destroyed", "component", c.name)
}

// Subscribe registers a bus listener and tracks it for automatic teardown on
// Destroy. The returned cancel removes just this registration early.
func (c *Core) Subscribe(topic string, fn bus.Handler) bus.CancelFunc {
	cancel := c.bus.Subscribe(topic, fn)

	c.mu.Lock()
	if c.state == StateDestroyed {
		c.mu.Unlock()
		cancel()
		return func() {}
	}
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	return cancel
}

// Emit publishes on the shared bus.
func (c *Core) Emit(topic string, payload any) {
	c.bus.Publish(topic, payload)
}
