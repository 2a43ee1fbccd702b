package component

import (
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/log"
)

// Late-join handshake.
//
// A component announces itself once when it finishes initializing. Every
// already-running peer answers the announce with a scoped push of its own
// snapshot. The newcomer applies each snapshot and pushes its own back to
// that sender, exactly once per sender, flagged as a reply so the exchange
// terminates. The result is order-independent: whichever of two components
// initializes last, both end up holding the other's snapshot exactly once.

// onPeerReady pushes our snapshot to a newly announced peer.
func (c *Core) onPeerReady(payload any) {
	ready, ok := payload.(events.ComponentReady)
	if !ok || ready.Name == c.name {
		return
	}

	log.Debug(log.CatComp, "peer announced", "component", c.name, "peer", ready.Name)
	c.Emit(events.TopicComponentState, events.ComponentState{
		Target: ready.Name,
		Sender: c.name,
		State:  c.hooks.CurrentState(),
	})
}

// onPeerState applies a snapshot addressed to us and, for announce-triggered
// pushes, answers the sender with our own snapshot once.
func (c *Core) onPeerState(payload any) {
	push, ok := payload.(events.ComponentState)
	if !ok || push.Target != c.name || push.Sender == c.name {
		return
	}

	c.applyPeerState(push.Sender, push.State)

	if push.Reply {
		return
	}

	c.mu.Lock()
	answered := c.replied[push.Sender]
	c.replied[push.Sender] = true
	c.mu.Unlock()
	if answered {
		return
	}

	c.Emit(events.TopicComponentState, events.ComponentState{
		Target: push.Sender,
		Sender: c.name,
		State:  c.hooks.CurrentState(),
		Reply:  true,
	})
}

// applyPeerState runs the feature's merge hook with panic isolation; a bad
// hook must not break the dispatch pass that is delivering the push.
func (c *Core) applyPeerState(sender string, state any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatComp, "apply peer state panicked",
				"component", c.name, "sender", sender, "panic", r)
		}
	}()
	c.hooks.ApplyPeerState(sender, state)
}
