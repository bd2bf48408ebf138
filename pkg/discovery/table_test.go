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
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/daemonfleet/pkg/clock"
	"github.com/carverauto/daemonfleet/pkg/models"
)

var testEpoch = time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC)

func progress(p uint8) *uint8 {
	return &p
}

// pathTo lists the updates that walk a pending session into state.
func pathTo(state models.SessionState) []models.SessionState {
	switch state {
	case models.SessionPending:
		return nil
	case models.SessionDispatched:
		return []models.SessionState{models.SessionDispatched}
	case models.SessionRunning:
		return []models.SessionState{models.SessionDispatched, models.SessionRunning}
	case models.SessionCompleted:
		return []models.SessionState{models.SessionDispatched, models.SessionRunning, models.SessionCompleted}
	case models.SessionFailed, models.SessionCancelled, models.SessionTimedOut:
		return []models.SessionState{state}
	}

	return nil
}

func sessionIn(t *testing.T, table *SessionTable, state models.SessionState) models.DiscoverySession {
	t.Helper()

	session, err := table.Create(uuid.New(), uuid.New())
	require.NoError(t, err)

	for _, step := range pathTo(state) {
		var applied bool

		session, applied, err = table.Advance(session.ID, models.SessionUpdate{State: step})
		require.NoError(t, err)
		require.True(t, applied, "step to %s", step)
	}

	require.Equal(t, state, session.State)

	return session
}

func TestSessionTable_CreateAndGet(t *testing.T) {
	table := NewSessionTable(clock.NewFake(testEpoch))
	id, daemonID := uuid.New(), uuid.New()

	session, err := table.Create(id, daemonID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, session.State)
	assert.Equal(t, daemonID, session.DaemonID)
	assert.Equal(t, testEpoch, session.CreatedAt)
	assert.Equal(t, testEpoch, session.UpdatedAt)

	_, err = table.Create(id, uuid.New())
	require.ErrorIs(t, err, models.ErrConflict)

	got, err := table.Get(id)
	require.NoError(t, err)
	assert.Equal(t, daemonID, got.DaemonID, "conflicting create must not replace the session")

	_, err = table.Get(uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)

	_, _, err = table.Advance(uuid.New(), models.SessionUpdate{State: models.SessionFailed})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSessionTable_TransitionRules(t *testing.T) {
	allowed := map[models.SessionState][]models.SessionState{
		models.SessionPending: {
			models.SessionDispatched, models.SessionFailed, models.SessionCancelled, models.SessionTimedOut,
		},
		models.SessionDispatched: {
			models.SessionRunning, models.SessionCompleted,
			models.SessionFailed, models.SessionCancelled, models.SessionTimedOut,
		},
		models.SessionRunning: {
			models.SessionRunning, models.SessionCompleted,
			models.SessionFailed, models.SessionCancelled, models.SessionTimedOut,
		},
	}

	for _, from := range models.AllSessionStates {
		for _, to := range models.AllSessionStates {
			want := false

			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}

			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				fake := clock.NewFake(testEpoch)
				table := NewSessionTable(fake)
				before := sessionIn(t, table, from)

				fake.Advance(time.Second)

				after, applied, err := table.Advance(before.ID, models.SessionUpdate{State: to, Error: "reason"})
				require.NoError(t, err)
				assert.Equal(t, want, applied)

				if want {
					assert.Equal(t, to, after.State)
					assert.Equal(t, testEpoch.Add(time.Second), after.UpdatedAt)
				} else {
					assert.Equal(t, before, after, "rejected transition must leave the session untouched")
				}
			})
		}
	}
}

func TestSessionTable_TerminalStatesAbsorbEverything(t *testing.T) {
	table := NewSessionTable(clock.NewFake(testEpoch))

	for _, terminal := range []models.SessionState{
		models.SessionCompleted, models.SessionFailed, models.SessionCancelled, models.SessionTimedOut,
	} {
		session := sessionIn(t, table, terminal)

		for _, next := range models.AllSessionStates {
			got, applied, err := table.Advance(session.ID, models.SessionUpdate{
				State:    next,
				Progress: progress(5),
				Payload:  json.RawMessage(`{"x":1}`),
			})
			require.NoError(t, err)
			assert.False(t, applied, "%s -> %s", terminal, next)
			assert.Equal(t, session, got)
		}

		got, err := table.Get(session.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, got.State)
	}

	assert.Empty(t, table.ExpireOverdue(testEpoch.Add(24*time.Hour), time.Minute))
}

func TestSessionTable_ProgressAndPayload(t *testing.T) {
	fake := clock.NewFake(testEpoch)
	table := NewSessionTable(fake)
	session := sessionIn(t, table, models.SessionDispatched)

	fake.Advance(time.Minute)

	got, applied, err := table.Advance(session.ID, models.SessionUpdate{
		State:    models.SessionRunning,
		Progress: progress(40),
		Payload:  json.RawMessage(`{"hosts":3}`),
	})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, uint8(40), got.Progress)
	assert.JSONEq(t, `{"hosts":3}`, string(got.Payload))

	fake.Advance(time.Minute)

	got, applied, err = table.Advance(session.ID, models.SessionUpdate{State: models.SessionRunning, Progress: progress(250)})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, uint8(100), got.Progress)
	assert.JSONEq(t, `{"hosts":3}`, string(got.Payload), "payload survives updates that omit it")
	assert.Equal(t, testEpoch.Add(2*time.Minute), got.UpdatedAt)

	// Snapshots do not alias table state.
	got.Payload[0] = 'X'

	again, err := table.Get(session.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hosts":3}`, string(again.Payload))

	done, applied, err := table.Advance(session.ID, models.SessionUpdate{State: models.SessionCompleted})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, uint8(100), done.Progress)
}

func TestSessionTable_ListOrderingAndActive(t *testing.T) {
	fake := clock.NewFake(testEpoch)
	table := NewSessionTable(fake)

	first := sessionIn(t, table, models.SessionRunning)
	fake.Advance(time.Second)
	second := sessionIn(t, table, models.SessionFailed)
	fake.Advance(time.Second)
	third := sessionIn(t, table, models.SessionPending)

	all := table.List()
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, third.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	active := table.ListActive()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, third.ID, active[1].ID)

	counts := table.CountByState()
	assert.Equal(t, int64(1), counts[models.SessionRunning])
	assert.Equal(t, int64(1), counts[models.SessionFailed])
	assert.Equal(t, int64(1), counts[models.SessionPending])
	assert.Equal(t, int64(0), counts[models.SessionCompleted])
	assert.Equal(t, 3, table.Len())
}

func TestSessionTable_ExpireOverdueBoundary(t *testing.T) {
	table := NewSessionTable(clock.NewFake(testEpoch))
	ceiling := 10 * time.Minute

	pending := sessionIn(t, table, models.SessionPending)
	running := sessionIn(t, table, models.SessionRunning)
	completed := sessionIn(t, table, models.SessionCompleted)

	assert.Empty(t, table.ExpireOverdue(testEpoch.Add(ceiling), ceiling), "exactly at the ceiling is not overdue")

	expired := table.ExpireOverdue(testEpoch.Add(ceiling+time.Nanosecond), ceiling)
	require.Len(t, expired, 2)

	previous := map[uuid.UUID]models.SessionState{}
	for _, tr := range expired {
		assert.Equal(t, models.SessionTimedOut, tr.Session.State)
		assert.NotEmpty(t, tr.Session.Error)
		previous[tr.Session.ID] = tr.PreviousState
	}

	assert.Equal(t, models.SessionPending, previous[pending.ID])
	assert.Equal(t, models.SessionRunning, previous[running.ID])

	got, err := table.Get(completed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.State)
}

func TestSessionTable_EvictTerminalBoundary(t *testing.T) {
	fake := clock.NewFake(testEpoch)
	table := NewSessionTable(fake)
	retention := 24 * time.Hour

	active := sessionIn(t, table, models.SessionRunning)

	fake.Advance(time.Hour)
	finished := sessionIn(t, table, models.SessionCancelled)
	finishedAt := testEpoch.Add(time.Hour)

	assert.Empty(t, table.EvictTerminal(finishedAt.Add(retention), retention), "exactly at retention is kept")

	evicted := table.EvictTerminal(finishedAt.Add(retention+time.Nanosecond), retention)
	require.Len(t, evicted, 1)
	assert.Equal(t, finished.ID, evicted[0].ID)

	_, err := table.Get(finished.ID)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = table.Get(active.ID)
	require.NoError(t, err, "non-terminal sessions are never evicted")
}
