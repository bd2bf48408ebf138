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
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/hashutil"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// MemoryStore is an in-process Store for tests and single-node runs.
type MemoryStore struct {
	mu      sync.RWMutex
	daemons map[uuid.UUID]models.Daemon
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{daemons: make(map[uuid.UUID]models.Daemon)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, daemon *models.Daemon) error {
	if daemon == nil {
		return models.ErrDaemonNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.daemons[daemon.ID]; exists {
		return fmt.Errorf("%w: daemon %s already registered", models.ErrConflict, daemon.ID)
	}

	if err := s.checkUniqueLocked(daemon); err != nil {
		return err
	}

	s.daemons[daemon.ID] = *daemon

	return nil
}

// checkUniqueLocked rejects host_id or api_key values held by another daemon.
func (s *MemoryStore) checkUniqueLocked(daemon *models.Daemon) error {
	for id, existing := range s.daemons {
		if id == daemon.ID {
			continue
		}

		if existing.HostID == daemon.HostID {
			return fmt.Errorf("%w: host %s already has daemon %s", models.ErrConflict, daemon.HostID, id)
		}

		if hashutil.ConstantTimeEqual(existing.APIKey, daemon.APIKey) {
			return fmt.Errorf("%w: api key of daemon %s already in use", models.ErrConflict, daemon.ID)
		}
	}

	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Daemon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.daemons[id]
	if !ok {
		return nil, nil
	}

	return &d, nil
}

func (s *MemoryStore) GetByHostID(_ context.Context, hostID uuid.UUID) (*models.Daemon, error) {
	return s.find(func(d *models.Daemon) bool { return d.HostID == hostID }), nil
}

func (s *MemoryStore) GetByAPIKeyHash(_ context.Context, keyHash string) (*models.Daemon, error) {
	if keyHash == "" {
		return nil, nil
	}

	return s.find(func(d *models.Daemon) bool { return hashutil.ConstantTimeEqual(d.APIKey, keyHash) }), nil
}

func (s *MemoryStore) find(match func(*models.Daemon) bool) *models.Daemon {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.daemons {
		if match(&d) {
			found := d
			return &found
		}
	}

	return nil
}

func (s *MemoryStore) GetAll(_ context.Context, networkIDs []uuid.UUID) ([]*models.Daemon, error) {
	if len(networkIDs) == 0 {
		return []*models.Daemon{}, nil
	}

	wanted := make(map[uuid.UUID]struct{}, len(networkIDs))
	for _, id := range networkIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	out := make([]*models.Daemon, 0, len(s.daemons))

	for _, d := range s.daemons {
		if _, ok := wanted[d.NetworkID]; ok {
			copied := d
			out = append(out, &copied)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)

	return out, nil
}

// sortNewestFirst orders by RegisteredAt descending, then id for a stable result.
func sortNewestFirst(daemons []*models.Daemon) {
	sort.SliceStable(daemons, func(i, j int) bool {
		if !daemons[i].RegisteredAt.Equal(daemons[j].RegisteredAt) {
			return daemons[i].RegisteredAt.After(daemons[j].RegisteredAt)
		}

		return daemons[i].ID.String() < daemons[j].ID.String()
	})
}

func (s *MemoryStore) Update(_ context.Context, daemon *models.Daemon) error {
	if daemon == nil {
		return models.ErrDaemonNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.daemons[daemon.ID]
	if !ok {
		return fmt.Errorf("%w: daemon %s", models.ErrNotFound, daemon.ID)
	}

	if err := s.checkUniqueLocked(daemon); err != nil {
		return err
	}

	updated := *daemon
	updated.RegisteredAt = existing.RegisteredAt
	s.daemons[daemon.ID] = updated

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.daemons, id)
	s.mu.Unlock()

	return nil
}
