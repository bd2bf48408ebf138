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
	"fmt"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/daemonfleet/pkg/db"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// fakeRow feeds fixed column values to scanCNPGDaemon.
type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}

	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case *string:
			*d = v.(string)
		case *int32:
			*d = v.(int32)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}

	return nil
}

func daemonRowValues(d *models.Daemon, rawIP string, port int32) []interface{} {
	return []interface{}{d.ID, d.HostID, rawIP, port, d.LastSeen, d.RegisteredAt, d.NetworkID, d.APIKey}
}

func TestBuildCNPGDaemonInsertArgs(t *testing.T) {
	d := newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New())
	d.LastSeen = testEpoch.In(time.FixedZone("CET", 3600))

	args, err := buildCNPGDaemonInsertArgs(d)
	require.NoError(t, err)
	require.Len(t, args, 8)

	assert.Equal(t, d.ID, args[0])
	assert.Equal(t, d.HostID, args[1])
	assert.Equal(t, `"10.0.0.5"`, args[2])
	assert.Equal(t, int32(60073), args[3])
	assert.Equal(t, time.UTC, args[4].(time.Time).Location())
	assert.Equal(t, testEpoch, args[5])
	assert.Equal(t, d.NetworkID, args[6])
	assert.Equal(t, d.APIKey, args[7])

	_, err = buildCNPGDaemonInsertArgs(nil)
	require.ErrorIs(t, err, models.ErrDaemonNil)
}

func TestBuildCNPGDaemonUpdateArgs(t *testing.T) {
	d := newTestDaemon(t, "2001:db8::5", testEpoch, uuid.New())

	args, err := buildCNPGDaemonUpdateArgs(d)
	require.NoError(t, err)
	require.Len(t, args, 7)

	assert.Equal(t, d.ID, args[0])
	assert.Equal(t, `"2001:db8::5"`, args[2])
	assert.Equal(t, d.APIKey, args[6])
}

func TestScanCNPGDaemon(t *testing.T) {
	d := newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New())

	got, err := scanCNPGDaemon(fakeRow{values: daemonRowValues(d, `"10.0.0.5"`, 60073)})
	require.NoError(t, err)
	assert.Equal(t, *d, *got)
}

func TestScanCNPGDaemon_Errors(t *testing.T) {
	d := newTestDaemon(t, "10.0.0.5", testEpoch, uuid.New())

	_, err := scanCNPGDaemon(fakeRow{values: daemonRowValues(d, "not-an-ip", 60073)})
	require.ErrorIs(t, err, models.ErrSerializationFailure)

	_, err = scanCNPGDaemon(fakeRow{values: daemonRowValues(d, `"10.0.0.5"`, 70000)})
	require.ErrorIs(t, err, models.ErrSerializationFailure)

	_, err = scanCNPGDaemon(fakeRow{err: pgx.ErrNoRows})
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestWrapDaemonStoreError(t *testing.T) {
	id := uuid.New()

	conflict := wrapDaemonStoreError("create", id, &pgconn.PgError{Code: "23505", ConstraintName: "daemons_host_id_key"})
	require.ErrorIs(t, conflict, models.ErrConflict)
	assert.Contains(t, conflict.Error(), "daemons_host_id_key")
	assert.Contains(t, conflict.Error(), id.String())

	malformed := wrapDaemonStoreError("create", id, &pgconn.PgError{Code: "22P02", Message: "invalid input syntax"})
	require.ErrorIs(t, malformed, models.ErrSerializationFailure)

	other := wrapDaemonStoreError("update", id, &pgconn.PgError{Code: "57014", Message: "canceling statement"})
	require.ErrorIs(t, other, models.ErrStorage)
	assert.NotErrorIs(t, other, models.ErrConflict)

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(other, &pgErr))
}

func TestNewCNPGStore_NilPool(t *testing.T) {
	_, err := NewCNPGStore(nil, logger.NewTestLogger())
	require.ErrorIs(t, err, errNilStore)
}

// TestCNPGStore_Integration runs the store contract against a live database.
// Set FLEET_TEST_POSTGRES_DSN to a disposable database to enable it.
func TestCNPGStore_Integration(t *testing.T) {
	dsn := os.Getenv("FLEET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FLEET_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	log := logger.NewTestLogger()
	require.NoError(t, db.RunCNPGMigrations(ctx, pool, log))

	_, err = pool.Exec(ctx, "TRUNCATE daemons")
	require.NoError(t, err)

	store, err := NewCNPGStore(pool, log)
	require.NoError(t, err)

	network := uuid.New()
	a := newTestDaemon(t, "10.0.0.5", testEpoch, network)
	b := newTestDaemon(t, "fd00::7", testEpoch.Add(time.Minute), network)

	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	dup := newTestDaemon(t, "10.0.0.6", testEpoch, network)
	dup.HostID = a.HostID
	require.ErrorIs(t, store.Create(ctx, dup), models.ErrConflict)

	got, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.IP, got.IP)
	assert.True(t, a.RegisteredAt.Equal(got.RegisteredAt))

	byKey, err := store.GetByAPIKeyHash(ctx, b.APIKey)
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, netip.MustParseAddr("fd00::7"), byKey.IP)

	missing, err := store.GetByHostID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := store.GetAll(ctx, []uuid.UUID{network})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)

	ghost := newTestDaemon(t, "10.0.0.9", testEpoch, network)
	require.ErrorIs(t, store.Update(ctx, ghost), models.ErrNotFound)

	a.APIKey = b.APIKey
	require.ErrorIs(t, store.Update(ctx, a), models.ErrConflict)

	require.NoError(t, store.Delete(ctx, a.ID))
	require.NoError(t, store.Delete(ctx, a.ID))
}
