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

package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

const defaultFanOutLimit = 16

// ManagerOption customises the behaviour of the Manager.
type ManagerOption func(*Manager)

// Manager composes the session table with the fleet: it creates sessions,
// dispatches them to daemons and applies daemon reports and cancellations.
type Manager struct {
	table       *SessionTable
	fleet       Fleet
	events      EventSink
	fanOutLimit int
	logger      logger.Logger
}

// DispatchResult is the outcome of one daemon's share of a fleet-wide discovery.
type DispatchResult struct {
	DaemonID uuid.UUID
	Session  models.DiscoverySession
	Err      error
}

// NewManager wires a Manager over table and fleet.
func NewManager(table *SessionTable, fleet Fleet, log logger.Logger, opts ...ManagerOption) (*Manager, error) {
	if table == nil {
		return nil, errNilTable
	}

	if fleet == nil {
		return nil, errNilFleet
	}

	m := &Manager{
		table:       table,
		fleet:       fleet,
		fanOutLimit: defaultFanOutLimit,
		logger:      log,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	observeSessionTable(table)

	return m, nil
}

// WithEventSink publishes every applied transition to sink.
func WithEventSink(sink EventSink) ManagerOption {
	return func(m *Manager) {
		m.events = sink
	}
}

// WithFanOutLimit bounds concurrent dispatches in StartFleetDiscovery.
func WithFanOutLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.fanOutLimit = limit
		}
	}
}

// StartDiscovery creates a session for daemonID and dispatches it. A nil
// sessionID is replaced by a generated one. On dispatch failure the session is
// marked failed and the dispatch error returned alongside the snapshot.
func (m *Manager) StartDiscovery(ctx context.Context, daemonID, sessionID uuid.UUID) (models.DiscoverySession, error) {
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	session, err := m.table.Create(sessionID, daemonID)
	if err != nil {
		return models.DiscoverySession{}, err
	}

	m.publish(ctx, models.SessionTransition{Session: session})

	daemon, err := m.fleet.GetDaemon(ctx, daemonID)
	if err == nil && daemon == nil {
		err = fmt.Errorf("%w: daemon %s for session %s", models.ErrNotFound, daemonID, sessionID)
	}

	if err != nil {
		return m.failSession(ctx, sessionID, err), err
	}

	if err := m.fleet.DispatchDiscovery(ctx, daemon, models.DaemonDiscoveryRequest{SessionID: sessionID}); err != nil {
		recordDispatchFailure(ctx)

		m.logger.Warn().Err(err).
			Str("daemon_id", daemonID.String()).
			Str("session_id", sessionID.String()).
			Msg("discovery dispatch failed")

		return m.failSession(ctx, sessionID, err), err
	}

	session, applied, err := m.advance(ctx, sessionID, models.SessionUpdate{State: models.SessionDispatched})
	if err != nil {
		return session, err
	}

	// Cancelled while the dispatch was in flight; the daemon accepted the work
	// and must be told to stop.
	if !applied && session.State == models.SessionCancelled {
		m.cancelOnDaemon(ctx, session)
	}

	return session, nil
}

func (m *Manager) failSession(ctx context.Context, sessionID uuid.UUID, cause error) models.DiscoverySession {
	session, _, err := m.advance(ctx, sessionID, models.SessionUpdate{
		State: models.SessionFailed,
		Error: cause.Error(),
	})
	if err != nil {
		m.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to mark session failed")
	}

	return session
}

// StartFleetDiscovery starts one session per daemon concurrently. Each result
// stands alone; one daemon's failure does not stop the others.
func (m *Manager) StartFleetDiscovery(ctx context.Context, daemonIDs []uuid.UUID) []DispatchResult {
	results := make([]DispatchResult, len(daemonIDs))

	var g errgroup.Group
	g.SetLimit(m.fanOutLimit)

	for i, daemonID := range daemonIDs {
		i, daemonID := i, daemonID

		g.Go(func() error {
			session, err := m.StartDiscovery(ctx, daemonID, uuid.Nil)
			results[i] = DispatchResult{DaemonID: daemonID, Session: session, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	failed := 0

	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	m.logger.Info().
		Int("daemons", len(daemonIDs)).
		Int("failed", failed).
		Msg("fleet discovery dispatched")

	return results
}

// Advance applies a state report to a session.
func (m *Manager) Advance(ctx context.Context, sessionID uuid.UUID, update models.SessionUpdate) (models.DiscoverySession, bool, error) {
	return m.advance(ctx, sessionID, update)
}

// ReportProgress applies a report from daemonID, which must own the session.
func (m *Manager) ReportProgress(
	ctx context.Context, daemonID, sessionID uuid.UUID, update models.SessionUpdate) (models.DiscoverySession, bool, error) {
	session, err := m.table.Get(sessionID)
	if err != nil {
		return models.DiscoverySession{}, false, err
	}

	if session.DaemonID != daemonID {
		return models.DiscoverySession{}, false,
			fmt.Errorf("%w: session %s for daemon %s", models.ErrNotFound, sessionID, daemonID)
	}

	return m.advance(ctx, sessionID, update)
}

func (m *Manager) advance(ctx context.Context, sessionID uuid.UUID, update models.SessionUpdate) (models.DiscoverySession, bool, error) {
	transition, applied, err := m.table.Transition(sessionID, update)
	if err != nil {
		return transition.Session, false, err
	}

	if !applied {
		m.logger.Debug().
			Str("session_id", sessionID.String()).
			Str("state", string(transition.Session.State)).
			Str("requested", string(update.State)).
			Msg("ignored session transition")

		return transition.Session, false, nil
	}

	m.publish(ctx, transition)

	return transition.Session, true, nil
}

// Cancel stops a session. Terminal sessions are returned unchanged. For
// dispatched or running sessions the daemon is asked to stop first; that call
// is best effort and its failure only logged.
func (m *Manager) Cancel(ctx context.Context, sessionID uuid.UUID) (models.DiscoverySession, error) {
	session, err := m.table.Get(sessionID)
	if err != nil {
		return models.DiscoverySession{}, err
	}

	if session.State.IsTerminal() {
		return session, nil
	}

	if session.State == models.SessionDispatched || session.State == models.SessionRunning {
		m.cancelOnDaemon(ctx, session)
	}

	session, _, err = m.advance(ctx, sessionID, models.SessionUpdate{State: models.SessionCancelled})

	return session, err
}

func (m *Manager) cancelOnDaemon(ctx context.Context, session models.DiscoverySession) {
	daemon, err := m.fleet.GetDaemon(ctx, session.DaemonID)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("daemon_id", session.DaemonID.String()).
			Str("session_id", session.ID.String()).
			Msg("daemon lookup failed, skipping remote cancellation")

		return
	}

	if daemon == nil {
		m.logger.Info().
			Str("daemon_id", session.DaemonID.String()).
			Str("session_id", session.ID.String()).
			Msg("daemon no longer registered, skipping remote cancellation")

		return
	}

	if err := m.fleet.DispatchCancellation(ctx, daemon, session.ID); err != nil {
		recordCancelDispatchFailure(ctx)

		m.logger.Warn().Err(err).
			Str("daemon_id", session.DaemonID.String()).
			Str("session_id", session.ID.String()).
			Bool("transport", errors.Is(err, models.ErrTransportFailure)).
			Msg("remote cancellation failed")
	}
}

// Get returns a snapshot of one session.
func (m *Manager) Get(sessionID uuid.UUID) (models.DiscoverySession, error) {
	return m.table.Get(sessionID)
}

// ListActive returns non-terminal sessions, oldest first.
func (m *Manager) ListActive() []models.DiscoverySession {
	return m.table.ListActive()
}

// List returns every tracked session, oldest first.
func (m *Manager) List() []models.DiscoverySession {
	return m.table.List()
}

// NotifyTransitions publishes transitions applied outside the manager, such
// as reclaimer timeouts.
func (m *Manager) NotifyTransitions(ctx context.Context, transitions []models.SessionTransition) {
	for _, transition := range transitions {
		m.publish(ctx, transition)
	}
}

// publish must be called without the table lock held.
func (m *Manager) publish(ctx context.Context, transition models.SessionTransition) {
	if m.events == nil {
		return
	}

	if err := m.events.PublishSessionTransition(ctx, transition); err != nil {
		m.logger.Warn().Err(err).
			Str("session_id", transition.Session.ID.String()).
			Str("state", string(transition.Session.State)).
			Msg("failed to publish session transition")
	}
}
