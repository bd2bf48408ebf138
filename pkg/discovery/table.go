/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package discovery tracks discovery sessions dispatched to fleet daemons.
package discovery

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/clock"
	"github.com/carverauto/daemonfleet/pkg/models"
)

const maxProgress = 100

// SessionTable is the in-memory registry of active and recent sessions.
// The mutex is held only for map access; callers receive copies.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.DiscoverySession
	clock    clock.Clock
}

// NewSessionTable returns an empty table stamped by c.
func NewSessionTable(c clock.Clock) *SessionTable {
	if c == nil {
		c = clock.Real()
	}

	return &SessionTable{
		sessions: make(map[uuid.UUID]*models.DiscoverySession),
		clock:    c,
	}
}

// Create inserts a pending session.
func (t *SessionTable) Create(id, daemonID uuid.UUID) (models.DiscoverySession, error) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[id]; exists {
		return models.DiscoverySession{}, fmt.Errorf("%w: session %s already exists", models.ErrConflict, id)
	}

	session := &models.DiscoverySession{
		ID:        id,
		DaemonID:  daemonID,
		State:     models.SessionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.sessions[id] = session

	return copySession(session), nil
}

// Get returns a snapshot of the session.
func (t *SessionTable) Get(id uuid.UUID) (models.DiscoverySession, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	session, ok := t.sessions[id]
	if !ok {
		return models.DiscoverySession{}, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}

	return copySession(session), nil
}

// Advance applies update if the state machine allows it. The bool reports
// whether anything changed; a disallowed transition returns the current
// snapshot and false.
func (t *SessionTable) Advance(id uuid.UUID, update models.SessionUpdate) (models.DiscoverySession, bool, error) {
	transition, applied, err := t.Transition(id, update)

	return transition.Session, applied, err
}

// Transition is Advance that also reports the state the session left.
func (t *SessionTable) Transition(id uuid.UUID, update models.SessionUpdate) (models.SessionTransition, bool, error) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[id]
	if !ok {
		return models.SessionTransition{}, false, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}

	previous := session.State
	applied := applyUpdate(session, update, now) == nil

	return models.SessionTransition{Session: copySession(session), PreviousState: previous}, applied, nil
}

func applyUpdate(session *models.DiscoverySession, update models.SessionUpdate, now time.Time) error {
	if !session.State.CanTransitionTo(update.State) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, session.State, update.State)
	}

	session.State = update.State

	if update.Progress != nil {
		session.Progress = min(*update.Progress, maxProgress)
	}

	if update.State == models.SessionCompleted {
		session.Progress = maxProgress
	}

	if update.Error != "" {
		session.Error = update.Error
	}

	if update.Payload != nil {
		session.Payload = append([]byte(nil), update.Payload...)
	}

	if now.After(session.UpdatedAt) {
		session.UpdatedAt = now
	}

	return nil
}

// List returns every session, oldest first.
func (t *SessionTable) List() []models.DiscoverySession {
	return t.collect(func(*models.DiscoverySession) bool { return true })
}

// ListActive returns non-terminal sessions, oldest first.
func (t *SessionTable) ListActive() []models.DiscoverySession {
	return t.collect(func(s *models.DiscoverySession) bool { return !s.State.IsTerminal() })
}

func (t *SessionTable) collect(keep func(*models.DiscoverySession) bool) []models.DiscoverySession {
	t.mu.RLock()
	out := make([]models.DiscoverySession, 0, len(t.sessions))

	for _, session := range t.sessions {
		if keep(session) {
			out = append(out, copySession(session))
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return out[i].ID.String() < out[j].ID.String()
	})

	return out
}

// ExpireOverdue moves every non-terminal session older than ceiling to timed_out.
// Age is measured from CreatedAt.
func (t *SessionTable) ExpireOverdue(now time.Time, ceiling time.Duration) []models.SessionTransition {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []models.SessionTransition

	for _, session := range t.sessions {
		if session.State.IsTerminal() || now.Sub(session.CreatedAt) <= ceiling {
			continue
		}

		previous := session.State
		update := models.SessionUpdate{
			State: models.SessionTimedOut,
			Error: fmt.Sprintf("session exceeded running time ceiling of %s", ceiling),
		}

		if err := applyUpdate(session, update, now); err != nil {
			continue
		}

		expired = append(expired, models.SessionTransition{Session: copySession(session), PreviousState: previous})
	}

	return expired
}

// EvictTerminal removes terminal sessions whose last transition is older than retention.
// Age is measured from UpdatedAt, the time the session became terminal, and
// not from CreatedAt as in ExpireOverdue.
func (t *SessionTable) EvictTerminal(now time.Time, retention time.Duration) []models.DiscoverySession {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []models.DiscoverySession

	for id, session := range t.sessions {
		if !session.State.IsTerminal() || now.Sub(session.UpdatedAt) <= retention {
			continue
		}

		evicted = append(evicted, copySession(session))
		delete(t.sessions, id)
	}

	return evicted
}

// CountByState reports how many sessions sit in each state.
func (t *SessionTable) CountByState() map[models.SessionState]int64 {
	counts := make(map[models.SessionState]int64, len(models.AllSessionStates))
	for _, state := range models.AllSessionStates {
		counts[state] = 0
	}

	t.mu.RLock()
	for _, session := range t.sessions {
		counts[session.State]++
	}
	t.mu.RUnlock()

	return counts
}

// Len reports the number of tracked sessions.
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.sessions)
}

func copySession(session *models.DiscoverySession) models.DiscoverySession {
	out := *session
	if session.Payload != nil {
		out.Payload = append([]byte(nil), session.Payload...)
	}

	return out
}
