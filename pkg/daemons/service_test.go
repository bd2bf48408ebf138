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

package daemons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/daemonfleet/pkg/clock"
	"github.com/carverauto/daemonfleet/pkg/hashutil"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

func newTestService(t *testing.T, store Store, opts ...ServiceOption) (*Service, *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(testEpoch)
	opts = append([]ServiceOption{WithClock(fake)}, opts...)

	return NewService(store, logger.NewTestLogger(), opts...), fake
}

func TestService_RegisterAndConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewMemoryStore())
	network := uuid.New()

	a := newTestDaemon(t, "10.0.0.5", time.Time{}, network)
	stored, err := svc.RegisterDaemon(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, testEpoch, stored.RegisteredAt)
	assert.Equal(t, testEpoch, stored.LastSeen)

	b := newTestDaemon(t, "10.0.0.6", time.Time{}, network)
	b.HostID = a.HostID

	_, err = svc.RegisterDaemon(ctx, b)
	require.ErrorIs(t, err, models.ErrConflict)

	got, err := svc.GetDaemon(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, *stored, *got)

	byHost, err := svc.GetDaemonByHost(ctx, a.HostID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byHost.ID)

	missing, err := svc.GetDaemon(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestService_RegisterRejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryStore())

	_, err := svc.RegisterDaemon(context.Background(), nil)
	require.ErrorIs(t, err, models.ErrDaemonNil)

	d := newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New())
	d.Port = 0

	_, err = svc.RegisterDaemon(context.Background(), d)
	require.ErrorIs(t, err, models.ErrInvalidDaemon)
}

func TestService_APIKeyHashing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc, _ := newTestService(t, store, WithAPIKeyHasher(NewAPIKeyHasher(models.APIKeyHashingSHA256)))

	d := newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New())
	d.APIKey = "s3cret"

	stored, err := svc.RegisterDaemon(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, hashutil.SHA256Hex("s3cret"), stored.APIKey)
	assert.Equal(t, "s3cret", d.APIKey, "caller's record must not be mutated")

	found, err := svc.GetDaemonByAPIKey(ctx, "s3cret")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, d.ID, found.ID)

	found, err = svc.GetDaemonByAPIKey(ctx, hashutil.SHA256Hex("s3cret"))
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = svc.GetDaemonByAPIKey(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestService_PlaintextAPIKeyLookup(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewMemoryStore(), WithAPIKeyHasher(NewAPIKeyHasher(models.APIKeyHashingNone)))

	d := newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New())
	_, err := svc.RegisterDaemon(ctx, d)
	require.NoError(t, err)

	found, err := svc.GetDaemonByAPIKey(ctx, d.APIKey)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, d.APIKey, found.APIKey)
}

func TestService_ReceiveHeartbeatNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	svc, fake := newTestService(t, NewMemoryStore())

	d := newTestDaemon(t, "10.0.0.5", time.Time{}, uuid.New())
	stored, err := svc.RegisterDaemon(ctx, d)
	require.NoError(t, err)

	fake.Advance(30 * time.Second)

	beat, err := svc.ReceiveHeartbeat(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, testEpoch.Add(30*time.Second), beat.LastSeen)

	// A record whose LastSeen is ahead of the clock keeps it.
	future := *beat
	future.LastSeen = testEpoch.Add(time.Hour)

	beat, err = svc.ReceiveHeartbeat(ctx, &future)
	require.NoError(t, err)
	assert.Equal(t, testEpoch.Add(time.Hour), beat.LastSeen)

	got, err := svc.GetDaemon(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, testEpoch.Add(time.Hour), got.LastSeen)
	assert.Equal(t, testEpoch, got.RegisteredAt)
}

func TestService_UpdateDaemonReturnsStoredRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, NewMemoryStore())

	stored, err := svc.RegisterDaemon(ctx, newTestDaemon(t, "10.0.0.5", time.Time{}, uuid.New()))
	require.NoError(t, err)

	change := *stored
	change.Port = 60100
	change.RegisteredAt = testEpoch.Add(time.Hour)

	updated, err := svc.UpdateDaemon(ctx, &change)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, uint16(60100), updated.Port)
	assert.Equal(t, testEpoch, updated.RegisteredAt, "registration time is immutable")

	_, err = svc.UpdateDaemon(ctx, newTestDaemon(t, "10.0.0.9", testEpoch, uuid.New()))
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_ReceiveHeartbeatUnknownDaemon(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryStore())

	_, err := svc.ReceiveHeartbeat(context.Background(), newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New()))
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.ReceiveHeartbeat(context.Background(), nil)
	require.ErrorIs(t, err, models.ErrDaemonNil)
}

func TestService_StoreErrorsPropagate(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	storageErr := errors.Join(models.ErrStorage, errors.New("connection reset"))
	networks := []uuid.UUID{uuid.New()}

	store.EXPECT().GetAll(gomock.Any(), networks).Return(nil, storageErr)
	store.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(storageErr)
	store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(storageErr)

	_, err := svc.ListDaemons(ctx, networks)
	require.ErrorIs(t, err, models.ErrStorage)

	require.ErrorIs(t, svc.DeleteDaemon(ctx, uuid.New()), models.ErrStorage)

	updated, err := svc.UpdateDaemon(ctx, newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New()))
	require.ErrorIs(t, err, models.ErrStorage)
	assert.Nil(t, updated)
}
