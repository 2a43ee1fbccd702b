// Package coordinator owns the canonical shared state: the profile
// documents, the active profile and the active environment.
//
// Single-writer discipline: only the coordinator mutates canonical state.
// Every other component requests mutations over the rpc layer and learns the
// outcome from the resulting broadcast, like any other subscriber. Caches
// held by subscribers are replaced wholesale; snapshots handed out are deep
// copies, so nobody can alias coordinator-owned maps.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keydeck/keydeck/internal/bus"
	"github.com/keydeck/keydeck/internal/component"
	"github.com/keydeck/keydeck/internal/events"
	"github.com/keydeck/keydeck/internal/log"
	"github.com/keydeck/keydeck/internal/profile"
	"github.com/keydeck/keydeck/internal/rpc"
	"github.com/keydeck/keydeck/internal/store"
)

// Name is the coordinator's component name, the sender of canonical
// snapshots in the late-join handshake.
const Name = "Coordinator"

// Coordinator is the distinguished source-of-truth component.
type Coordinator struct {
	core  *component.Core
	rpc   *rpc.Layer
	store *store.Cached

	mu          sync.Mutex
	snap        profile.Snapshot
	subscribers map[string]bool
	detaches    []func()
}

// New creates the coordinator on the shared substrate.
func New(b *bus.Bus, r *rpc.Layer, st *store.Cached) *Coordinator {
	c := &Coordinator{
		rpc:         r,
		store:       st,
		subscribers: make(map[string]bool),
	}
	c.core = component.NewCore(Name, b, r, c)
	return c
}

// Core exposes the lifecycle core (Init/Destroy).
func (c *Coordinator) Core() *component.Core { return c.core }

// Init initializes the coordinator.
func (c *Coordinator) Init() error { return c.core.Init() }

// Destroy tears the coordinator down.
func (c *Coordinator) Destroy() { c.core.Destroy() }

// OnInit loads persisted state and registers the mutation responders.
func (c *Coordinator) OnInit() error {
	snap, err := c.store.LoadSnapshot(context.Background())
	if err != nil {
		return fmt.Errorf("loading canonical state: %w", err)
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	log.Info(log.CatCoord, "canonical state loaded",
		"profiles", len(snap.Profiles), "active", snap.ActiveProfile, "env", snap.Environment)

	responders := map[string]rpc.Handler{
		events.ReqSwitchProfile: c.handleSwitchProfile,
		events.ReqUpdateProfile: c.handleUpdateProfile,
		events.ReqCreateProfile: c.handleCreateProfile,
		events.ReqDeleteProfile: c.handleDeleteProfile,
		events.ReqSwitchEnv:     c.handleSwitchEnv,
		events.ReqGetState:      c.handleGetState,
		events.ReqGetProfile:    c.handleGetProfile,
	}
	for topic, handler := range responders {
		detach, err := c.rpc.Respond(topic, handler)
		if err != nil {
			c.detachAll()
			return fmt.Errorf("registering responder: %w", err)
		}
		c.detaches = append(c.detaches, detach)
	}

	c.core.Subscribe(events.TopicExternalChange, c.onExternalChange)
	return nil
}

// OnDestroy frees the mutation topics.
func (c *Coordinator) OnDestroy() {
	c.detachAll()
}

func (c *Coordinator) detachAll() {
	for _, detach := range c.detaches {
		detach()
	}
	c.detaches = nil
}

// CurrentState returns a deep copy of the canonical snapshot. This is what
// late-joining components receive through the handshake.
func (c *Coordinator) CurrentState() any {
	return c.Snapshot()
}

// ApplyPeerState is a no-op: the coordinator is the source of truth and
// never adopts state from peers.
func (c *Coordinator) ApplyPeerState(sender string, state any) {
	log.Debug(log.CatCoord, "ignoring peer state", "sender", sender)
}

// Snapshot returns a deep copy of the canonical state.
func (c *Coordinator) Snapshot() profile.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

// RegisterSubscriber records a component for future scoped pushes and
// returns the current canonical state synchronously for the immediate case.
func (c *Coordinator) RegisterSubscriber(name string) profile.Snapshot {
	c.mu.Lock()
	c.subscribers[name] = true
	snap := c.snap.Clone()
	c.mu.Unlock()

	log.Debug(log.CatCoord, "subscriber registered", "name", name)
	return snap
}

// UnregisterSubscriber stops scoped pushes to name.
func (c *Coordinator) UnregisterSubscriber(name string) {
	c.mu.Lock()
	delete(c.subscribers, name)
	c.mu.Unlock()
}

func (c *Coordinator) handleSwitchProfile(payload any) (any, error) {
	req, ok := payload.(events.SwitchProfileRequest)
	if !ok {
		return nil, fmt.Errorf("switch-profile: unexpected payload %T", payload)
	}

	c.mu.Lock()
	target, exists := c.snap.Profiles[req.ID]
	previous := c.snap.ActiveProfile
	c.mu.Unlock()
	if !exists {
		return nil, &store.ProfileNotFoundError{ID: req.ID}
	}

	// Persist before touching canonical state: a rejected write must leave
	// the snapshot, the database and every subscriber cache in agreement.
	if err := c.store.SetActiveProfile(context.Background(), req.ID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snap.ActiveProfile = req.ID
	c.mu.Unlock()

	result := target.Clone()
	c.core.Emit(events.TopicProfileSwitched, events.ProfileSwitched{
		PreviousID: previous,
		Profile:    result,
	})
	return result, nil
}

func (c *Coordinator) handleUpdateProfile(payload any) (any, error) {
	req, ok := payload.(events.UpdateProfileRequest)
	if !ok {
		return nil, fmt.Errorf("update-profile: unexpected payload %T", payload)
	}

	c.mu.Lock()
	existing, exists := c.snap.Profiles[req.Profile.ID]
	c.mu.Unlock()
	if !exists {
		return nil, &store.ProfileNotFoundError{ID: req.Profile.ID}
	}

	updated := req.Profile.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := c.store.SaveProfile(context.Background(), updated); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snap.Profiles[updated.ID] = updated
	c.mu.Unlock()

	result := updated.Clone()
	c.core.Emit(events.TopicProfileUpdated, events.ProfileUpdated{Profile: result})
	return result, nil
}

func (c *Coordinator) handleCreateProfile(payload any) (any, error) {
	req, ok := payload.(events.CreateProfileRequest)
	if !ok {
		return nil, fmt.Errorf("create-profile: unexpected payload %T", payload)
	}

	now := time.Now().UTC()
	created := profile.Profile{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Game:      req.Game,
		Binds:     map[string]string{},
		Aliases:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.store.SaveProfile(context.Background(), created); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snap.Profiles[created.ID] = created
	c.mu.Unlock()

	result := created.Clone()
	c.core.Emit(events.TopicProfileCreated, events.ProfileUpdated{Profile: result})
	return result, nil
}

func (c *Coordinator) handleDeleteProfile(payload any) (any, error) {
	req, ok := payload.(events.DeleteProfileRequest)
	if !ok {
		return nil, fmt.Errorf("delete-profile: unexpected payload %T", payload)
	}

	c.mu.Lock()
	_, exists := c.snap.Profiles[req.ID]
	wasActive := c.snap.ActiveProfile == req.ID
	c.mu.Unlock()
	if !exists {
		return nil, &store.ProfileNotFoundError{ID: req.ID}
	}

	if err := c.store.DeleteProfile(context.Background(), req.ID); err != nil {
		return nil, err
	}
	if wasActive {
		if err := c.store.SetActiveProfile(context.Background(), ""); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	delete(c.snap.Profiles, req.ID)
	if wasActive {
		c.snap.ActiveProfile = ""
	}
	c.mu.Unlock()

	c.core.Emit(events.TopicProfileDeleted, events.ProfileDeleted{ID: req.ID})
	if wasActive {
		// No profile is active anymore; Profile stays zero.
		c.core.Emit(events.TopicProfileSwitched, events.ProfileSwitched{PreviousID: req.ID})
	}
	return nil, nil
}

func (c *Coordinator) handleSwitchEnv(payload any) (any, error) {
	req, ok := payload.(events.SwitchEnvRequest)
	if !ok {
		return nil, fmt.Errorf("switch-environment: unexpected payload %T", payload)
	}

	if err := c.store.SetEnvironment(context.Background(), req.Environment); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snap.Environment = req.Environment
	c.mu.Unlock()

	c.core.Emit(events.TopicEnvSwitched, events.EnvSwitched{Environment: req.Environment})
	return req.Environment, nil
}

func (c *Coordinator) handleGetState(payload any) (any, error) {
	return c.Snapshot(), nil
}

// handleGetProfile serves one persisted document, read through the profile
// cache rather than the in-memory snapshot.
func (c *Coordinator) handleGetProfile(payload any) (any, error) {
	req, ok := payload.(events.GetProfileRequest)
	if !ok {
		return nil, fmt.Errorf("get-profile: unexpected payload %T", payload)
	}
	p, err := c.store.GetProfile(context.Background(), req.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// onExternalChange reloads canonical state after an out-of-process write and
// pushes the fresh snapshot to every registered subscriber, scoped so
// unrelated components do not have to filter it.
func (c *Coordinator) onExternalChange(payload any) {
	ctx := context.Background()
	if err := c.store.InvalidateAll(ctx); err != nil {
		log.ErrorErr(log.CatCoord, "invalidating cache after external change", err)
	}

	snap, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		log.ErrorErr(log.CatCoord, "reloading after external change", err)
		return
	}

	c.mu.Lock()
	c.snap = snap
	names := make([]string, 0, len(c.subscribers))
	for name := range c.subscribers {
		names = append(names, name)
	}
	c.mu.Unlock()

	log.Info(log.CatCoord, "canonical state reloaded", "profiles", len(snap.Profiles))
	for _, name := range names {
		c.core.Emit(events.TopicInitialState, events.InitialState{
			Target:   name,
			Snapshot: snap.Clone(),
		})
	}
}
