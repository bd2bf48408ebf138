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
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/daemonfleet/pkg/db"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

const (
	daemonColumns = `id, host_id, ip, port, last_seen, registered_at, network_id, api_key`

	insertDaemonSQL = `
INSERT INTO daemons (
	id,
	host_id,
	ip,
	port,
	last_seen,
	registered_at,
	network_id,
	api_key
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`

	selectDaemonByIDSQL     = `SELECT ` + daemonColumns + ` FROM daemons WHERE id = $1`
	selectDaemonByHostSQL   = `SELECT ` + daemonColumns + ` FROM daemons WHERE host_id = $1`
	selectDaemonByAPIKeySQL = `SELECT ` + daemonColumns + ` FROM daemons WHERE api_key = $1`

	selectDaemonsByNetworkSQL = `
SELECT ` + daemonColumns + `
FROM daemons
WHERE network_id = ANY($1)
ORDER BY registered_at DESC, id`

	updateDaemonSQL = `
UPDATE daemons SET
	host_id = $2,
	ip = $3,
	port = $4,
	last_seen = $5,
	network_id = $6,
	api_key = $7
WHERE id = $1`

	deleteDaemonSQL = `DELETE FROM daemons WHERE id = $1`
)

// pgxQuerier is the subset of pgxpool.Pool the store needs.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CNPGStore keeps daemon records in the CNPG daemons table.
type CNPGStore struct {
	pool   pgxQuerier
	logger logger.Logger
}

var _ Store = (*CNPGStore)(nil)

// NewCNPGStore wraps an open pool. The schema must already be migrated.
func NewCNPGStore(pool *pgxpool.Pool, log logger.Logger) (*CNPGStore, error) {
	if pool == nil {
		return nil, errNilStore
	}

	return &CNPGStore{pool: pool, logger: log}, nil
}

func (s *CNPGStore) Create(ctx context.Context, daemon *models.Daemon) error {
	args, err := buildCNPGDaemonInsertArgs(daemon)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertDaemonSQL, args...); err != nil {
		return wrapDaemonStoreError("create", daemon.ID, err)
	}

	return nil
}

func (s *CNPGStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Daemon, error) {
	return s.getOne(ctx, selectDaemonByIDSQL, id, id.String())
}

func (s *CNPGStore) GetByHostID(ctx context.Context, hostID uuid.UUID) (*models.Daemon, error) {
	return s.getOne(ctx, selectDaemonByHostSQL, hostID, "host "+hostID.String())
}

func (s *CNPGStore) GetByAPIKeyHash(ctx context.Context, keyHash string) (*models.Daemon, error) {
	if keyHash == "" {
		return nil, nil
	}

	return s.getOne(ctx, selectDaemonByAPIKeySQL, keyHash, "by api key")
}

func (s *CNPGStore) getOne(ctx context.Context, query string, arg any, label string) (*models.Daemon, error) {
	daemon, err := scanCNPGDaemon(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		if errors.Is(err, models.ErrSerializationFailure) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: get daemon %s: %w", models.ErrStorage, label, err)
	}

	return daemon, nil
}

func (s *CNPGStore) GetAll(ctx context.Context, networkIDs []uuid.UUID) ([]*models.Daemon, error) {
	if len(networkIDs) == 0 {
		return []*models.Daemon{}, nil
	}

	rows, err := s.pool.Query(ctx, selectDaemonsByNetworkSQL, networkIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: list daemons: %w", models.ErrStorage, err)
	}
	defer rows.Close()

	out := make([]*models.Daemon, 0)

	for rows.Next() {
		daemon, err := scanCNPGDaemon(rows)
		if err != nil {
			if errors.Is(err, models.ErrSerializationFailure) {
				return nil, err
			}

			return nil, fmt.Errorf("%w: scan daemon row: %w", models.ErrStorage, err)
		}

		out = append(out, daemon)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate daemon rows: %w", models.ErrStorage, err)
	}

	return out, nil
}

func (s *CNPGStore) Update(ctx context.Context, daemon *models.Daemon) error {
	args, err := buildCNPGDaemonUpdateArgs(daemon)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, updateDaemonSQL, args...)
	if err != nil {
		return wrapDaemonStoreError("update", daemon.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: daemon %s", models.ErrNotFound, daemon.ID)
	}

	return nil
}

func (s *CNPGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, deleteDaemonSQL, id)
	if err != nil {
		return wrapDaemonStoreError("delete", id, err)
	}

	if tag.RowsAffected() == 0 && s.logger != nil {
		s.logger.Debug().Str("daemon_id", id.String()).Msg("delete of unknown daemon ignored")
	}

	return nil
}

func wrapDaemonStoreError(op string, id uuid.UUID, err error) error {
	if constraint, ok := db.IsUniqueViolation(err); ok {
		return fmt.Errorf("%w: %s daemon %s violates %s", models.ErrConflict, op, id, constraint)
	}

	if db.IsInvalidTextRepresentation(err) {
		return fmt.Errorf("%w: %s daemon %s: %w", models.ErrSerializationFailure, op, id, err)
	}

	return fmt.Errorf("%w: %s daemon %s: %w", models.ErrStorage, op, id, err)
}

func buildCNPGDaemonInsertArgs(daemon *models.Daemon) ([]interface{}, error) {
	if daemon == nil {
		return nil, models.ErrDaemonNil
	}

	ip, err := encodeDaemonIP(daemon)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		daemon.ID,
		daemon.HostID,
		ip,
		int32(daemon.Port),
		daemon.LastSeen.UTC(),
		daemon.RegisteredAt.UTC(),
		daemon.NetworkID,
		daemon.APIKey,
	}, nil
}

func buildCNPGDaemonUpdateArgs(daemon *models.Daemon) ([]interface{}, error) {
	if daemon == nil {
		return nil, models.ErrDaemonNil
	}

	ip, err := encodeDaemonIP(daemon)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		daemon.ID,
		daemon.HostID,
		ip,
		int32(daemon.Port),
		daemon.LastSeen.UTC(),
		daemon.NetworkID,
		daemon.APIKey,
	}, nil
}

// encodeDaemonIP stores the address JSON-encoded, e.g. "10.0.0.5" with quotes.
func encodeDaemonIP(daemon *models.Daemon) (string, error) {
	raw, err := json.Marshal(daemon.IP)
	if err != nil {
		return "", fmt.Errorf("%w: encode ip of daemon %s: %w", models.ErrSerializationFailure, daemon.ID, err)
	}

	return string(raw), nil
}

func decodeDaemonIP(id uuid.UUID, raw string) (netip.Addr, error) {
	var ip netip.Addr
	if err := json.Unmarshal([]byte(raw), &ip); err != nil {
		return netip.Addr{}, fmt.Errorf("%w: decode ip %q of daemon %s: %w", models.ErrSerializationFailure, raw, id, err)
	}

	return ip, nil
}

func scanCNPGDaemon(row pgx.Row) (*models.Daemon, error) {
	var (
		daemon       models.Daemon
		rawIP        string
		port         int32
		lastSeen     time.Time
		registeredAt time.Time
	)

	if err := row.Scan(
		&daemon.ID,
		&daemon.HostID,
		&rawIP,
		&port,
		&lastSeen,
		&registeredAt,
		&daemon.NetworkID,
		&daemon.APIKey,
	); err != nil {
		return nil, err
	}

	ip, err := decodeDaemonIP(daemon.ID, rawIP)
	if err != nil {
		return nil, err
	}

	if port <= 0 || port > math.MaxUint16 {
		return nil, fmt.Errorf("%w: daemon %s port %d: %w", models.ErrSerializationFailure, daemon.ID, port, errPortOutOfRange)
	}

	daemon.IP = ip
	daemon.Port = uint16(port)
	daemon.LastSeen = lastSeen.UTC()
	daemon.RegisteredAt = registeredAt.UTC()

	return &daemon, nil
}
