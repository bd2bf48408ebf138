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
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/daemonfleet/pkg/clock"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

var errDaemonUnreachable = errors.New("dial tcp: connection refused")

type managerMocks struct {
	Fleet  *MockFleet
	Events *MockEventSink
	Clock  *clock.Fake
	Table  *SessionTable
}

func setupManager(t *testing.T, opts ...ManagerOption) (*Manager, *managerMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mocks := &managerMocks{
		Fleet:  NewMockFleet(ctrl),
		Events: NewMockEventSink(ctrl),
		Clock:  clock.NewFake(testEpoch),
	}
	mocks.Table = NewSessionTable(mocks.Clock)

	opts = append([]ManagerOption{WithEventSink(mocks.Events)}, opts...)

	m, err := NewManager(mocks.Table, mocks.Fleet, logger.NewTestLogger(), opts...)
	require.NoError(t, err)

	return m, mocks
}

func testDaemon(id uuid.UUID) *models.Daemon {
	return &models.Daemon{
		ID:        id,
		HostID:    uuid.New(),
		IP:        netip.MustParseAddr("10.1.0.7"),
		Port:      60073,
		NetworkID: uuid.New(),
		APIKey:    "key",
	}
}

// transitionTo matches a published transition by its states.
func transitionTo(previous, current models.SessionState) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		tr, ok := x.(models.SessionTransition)
		return ok && tr.PreviousState == previous && tr.Session.State == current
	})
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	_, err := NewManager(nil, NewMockFleet(gomock.NewController(t)), logger.NewTestLogger())
	require.ErrorIs(t, err, errNilTable)

	_, err = NewManager(NewSessionTable(nil), nil, logger.NewTestLogger())
	require.ErrorIs(t, err, errNilFleet)
}

func TestManager_DispatchAdvanceCancelCancel(t *testing.T) {
	m, mocks := setupManager(t)
	ctx := context.Background()
	daemonID, sessionID := uuid.New(), uuid.New()
	daemon := testDaemon(daemonID)

	gomock.InOrder(
		mocks.Events.EXPECT().PublishSessionTransition(gomock.Any(), transitionTo("", models.SessionPending)).Return(nil),
		mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(daemon, nil),
		mocks.Fleet.EXPECT().DispatchDiscovery(gomock.Any(), daemon, models.DaemonDiscoveryRequest{SessionID: sessionID}).Return(nil),
		mocks.Events.EXPECT().
			PublishSessionTransition(gomock.Any(), transitionTo(models.SessionPending, models.SessionDispatched)).Return(nil),
		mocks.Events.EXPECT().
			PublishSessionTransition(gomock.Any(), transitionTo(models.SessionDispatched, models.SessionRunning)).Return(nil),
		mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(daemon, nil),
		mocks.Fleet.EXPECT().DispatchCancellation(gomock.Any(), daemon, sessionID).Return(nil),
		mocks.Events.EXPECT().
			PublishSessionTransition(gomock.Any(), transitionTo(models.SessionRunning, models.SessionCancelled)).Return(nil),
	)

	session, err := m.StartDiscovery(ctx, daemonID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionDispatched, session.State)

	session, applied, err := m.ReportProgress(ctx, daemonID, sessionID, models.SessionUpdate{
		State:    models.SessionRunning,
		Progress: progress(40),
	})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, uint8(40), session.Progress)

	session, err = m.Cancel(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, session.State)

	// Second cancel: no remote call, no event, same terminal snapshot.
	again, err := m.Cancel(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, session, again)

	assert.Empty(t, m.ListActive())
	assert.Len(t, m.List(), 1)
}

func TestManager_StartDiscoveryGeneratesSessionID(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil))
	daemonID := uuid.New()

	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(testDaemon(daemonID), nil)
	mocks.Fleet.EXPECT().DispatchDiscovery(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	session, err := m.StartDiscovery(context.Background(), daemonID, uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.ID)

	got, err := m.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionDispatched, got.State)
}

func TestManager_StartDiscoveryDispatchFailure(t *testing.T) {
	m, mocks := setupManager(t)
	daemonID := uuid.New()
	dispatchErr := fmt.Errorf("%w: daemon %s: %w", models.ErrTransportFailure, daemonID, errDaemonUnreachable)

	mocks.Events.EXPECT().PublishSessionTransition(gomock.Any(), transitionTo("", models.SessionPending)).Return(nil)
	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(testDaemon(daemonID), nil)
	mocks.Fleet.EXPECT().DispatchDiscovery(gomock.Any(), gomock.Any(), gomock.Any()).Return(dispatchErr)
	mocks.Events.EXPECT().
		PublishSessionTransition(gomock.Any(), transitionTo(models.SessionPending, models.SessionFailed)).
		Return(errors.New("nats unavailable"))

	session, err := m.StartDiscovery(context.Background(), daemonID, uuid.Nil)
	require.ErrorIs(t, err, models.ErrTransportFailure)
	assert.Equal(t, models.SessionFailed, session.State)
	assert.Contains(t, session.Error, "connection refused")
}

func TestManager_StartDiscoveryUnknownDaemon(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil))
	daemonID := uuid.New()

	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(nil, nil)

	session, err := m.StartDiscovery(context.Background(), daemonID, uuid.Nil)
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, models.SessionFailed, session.State)
}

func TestManager_StartDiscoveryDuplicateSession(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil))
	daemonID, sessionID := uuid.New(), uuid.New()

	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(testDaemon(daemonID), nil)
	mocks.Fleet.EXPECT().DispatchDiscovery(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	_, err := m.StartDiscovery(context.Background(), daemonID, sessionID)
	require.NoError(t, err)

	_, err = m.StartDiscovery(context.Background(), daemonID, sessionID)
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestManager_CancelSkipsRemoteForPendingOrDeletedDaemon(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil))
	ctx := context.Background()

	pending, err := mocks.Table.Create(uuid.New(), uuid.New())
	require.NoError(t, err)

	// No fleet expectations: a pending session was never sent to its daemon.
	got, err := m.Cancel(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.State)

	orphan, err := mocks.Table.Create(uuid.New(), uuid.New())
	require.NoError(t, err)
	_, _, err = mocks.Table.Advance(orphan.ID, models.SessionUpdate{State: models.SessionDispatched})
	require.NoError(t, err)

	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), orphan.DaemonID).Return(nil, nil)

	got, err = m.Cancel(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.State)

	_, err = m.Cancel(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestManager_CancelRemoteFailureStillCancels(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil))
	daemonID := uuid.New()
	daemon := testDaemon(daemonID)

	session, err := mocks.Table.Create(uuid.New(), daemonID)
	require.NoError(t, err)
	_, _, err = mocks.Table.Advance(session.ID, models.SessionUpdate{State: models.SessionDispatched})
	require.NoError(t, err)

	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(daemon, nil)
	mocks.Fleet.EXPECT().DispatchCancellation(gomock.Any(), daemon, session.ID).
		Return(fmt.Errorf("%w: declined", models.ErrRemoteRejected))

	got, err := m.Cancel(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.State)
}

func TestManager_CancelDuringDispatchStopsDaemon(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil))
	ctx := context.Background()
	daemonID, sessionID := uuid.New(), uuid.New()
	daemon := testDaemon(daemonID)

	dispatching := make(chan struct{})
	release := make(chan struct{})

	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), daemonID).Return(daemon, nil).Times(2)
	mocks.Fleet.EXPECT().DispatchDiscovery(gomock.Any(), daemon, models.DaemonDiscoveryRequest{SessionID: sessionID}).
		DoAndReturn(func(context.Context, *models.Daemon, models.DaemonDiscoveryRequest) error {
			close(dispatching)
			<-release

			return nil
		})
	mocks.Fleet.EXPECT().DispatchCancellation(gomock.Any(), daemon, sessionID).Return(nil)

	type startResult struct {
		session models.DiscoverySession
		err     error
	}

	done := make(chan startResult, 1)

	go func() {
		session, err := m.StartDiscovery(ctx, daemonID, sessionID)
		done <- startResult{session: session, err: err}
	}()

	<-dispatching

	cancelled, err := m.Cancel(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cancelled.State)

	close(release)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, models.SessionCancelled, res.session.State)
	case <-time.After(5 * time.Second):
		t.Fatal("StartDiscovery did not return")
	}
}

func TestManager_ReportProgressOwnershipAndIgnoredTransitions(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil))
	ctx := context.Background()
	owner := uuid.New()

	session, err := mocks.Table.Create(uuid.New(), owner)
	require.NoError(t, err)

	_, _, err = m.ReportProgress(ctx, uuid.New(), session.ID, models.SessionUpdate{State: models.SessionRunning})
	require.ErrorIs(t, err, models.ErrNotFound)

	// pending -> running is not a legal step and is dropped silently.
	got, applied, err := m.ReportProgress(ctx, owner, session.ID, models.SessionUpdate{State: models.SessionRunning})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.SessionPending, got.State)

	_, _, err = m.Advance(ctx, uuid.New(), models.SessionUpdate{State: models.SessionFailed})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestManager_StartFleetDiscoveryIsolatesFailures(t *testing.T) {
	m, mocks := setupManager(t, WithEventSink(nil), WithFanOutLimit(2))
	healthy := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	broken := uuid.New()
	ids := append(append([]uuid.UUID{}, healthy...), broken)

	var mu sync.Mutex

	dispatched := map[uuid.UUID]int{}

	mocks.Fleet.EXPECT().GetDaemon(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID) (*models.Daemon, error) {
			return testDaemon(id), nil
		}).Times(len(ids))
	mocks.Fleet.EXPECT().DispatchDiscovery(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d *models.Daemon, _ models.DaemonDiscoveryRequest) error {
			mu.Lock()
			dispatched[d.ID]++
			mu.Unlock()

			if d.ID == broken {
				return fmt.Errorf("%w: 503", models.ErrRemoteRejected)
			}

			return nil
		}).Times(len(ids))

	results := m.StartFleetDiscovery(context.Background(), ids)
	require.Len(t, results, len(ids))

	for i, r := range results {
		assert.Equal(t, ids[i], r.DaemonID)
		assert.Equal(t, 1, dispatched[r.DaemonID])

		if r.DaemonID == broken {
			require.ErrorIs(t, r.Err, models.ErrRemoteRejected)
			assert.Equal(t, models.SessionFailed, r.Session.State)

			continue
		}

		require.NoError(t, r.Err)
		assert.Equal(t, models.SessionDispatched, r.Session.State)
	}

	assert.Len(t, m.ListActive(), len(healthy))
}

func TestManager_NotifyTransitionsPublishesReclaimerTimeouts(t *testing.T) {
	m, mocks := setupManager(t)

	session, err := mocks.Table.Create(uuid.New(), uuid.New())
	require.NoError(t, err)

	mocks.Events.EXPECT().
		PublishSessionTransition(gomock.Any(), transitionTo(models.SessionPending, models.SessionTimedOut)).
		Return(nil)

	reclaimer := NewReclaimer(mocks.Table, mocks.Clock, DefaultReclaimerConfig(), logger.NewTestLogger(),
		WithTimeoutHook(m.NotifyTransitions))

	result := reclaimer.Sweep(session.CreatedAt.Add(models.DefaultRunningTimeout + time.Second))
	require.Len(t, result.TimedOut, 1)
}
