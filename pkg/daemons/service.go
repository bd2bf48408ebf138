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

// Package daemons owns the daemon fleet registry and outbound calls to daemons.
package daemons

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/clock"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// ServiceOption customises the behaviour of the Service.
type ServiceOption func(*Service)

// Service owns daemon lifecycle and is the only component that calls daemons.
type Service struct {
	store           Store
	client          HTTPClient
	clock           clock.Clock
	hashKey         APIKeyHasher
	dispatchTimeout time.Duration
	logger          logger.Logger
}

// NewService constructs a Service over store.
func NewService(store Store, log logger.Logger, opts ...ServiceOption) *Service {
	svc := &Service{
		store:           store,
		client:          &http.Client{},
		clock:           clock.Real(),
		hashKey:         PlaintextAPIKey,
		dispatchTimeout: models.DefaultDispatchTimeout,
		logger:          log,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}

	return svc
}

// WithHTTPClient overrides the client used for daemon calls.
func WithHTTPClient(client HTTPClient) ServiceOption {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithClock overrides the time source.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithAPIKeyHasher sets how API keys are kept at rest.
func WithAPIKeyHasher(h APIKeyHasher) ServiceOption {
	return func(s *Service) {
		if h != nil {
			s.hashKey = h
		}
	}
}

// WithDispatchTimeout bounds every outbound daemon call.
func WithDispatchTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.dispatchTimeout = timeout
		}
	}
}

// RegisterDaemon validates and stores a new daemon, returning the stored record.
func (s *Service) RegisterDaemon(ctx context.Context, daemon *models.Daemon) (*models.Daemon, error) {
	if err := daemon.Validate(); err != nil {
		return nil, err
	}

	record := *daemon
	now := s.clock.Now()

	if record.RegisteredAt.IsZero() {
		record.RegisteredAt = now
	}

	if record.LastSeen.IsZero() {
		record.LastSeen = record.RegisteredAt
	}

	record.APIKey = s.hashKey(daemon.APIKey)

	if err := s.store.Create(ctx, &record); err != nil {
		s.logger.Warn().Err(err).
			Str("daemon_id", record.ID.String()).
			Str("host_id", record.HostID.String()).
			Msg("daemon registration rejected")

		return nil, err
	}

	s.logger.Info().
		Str("daemon_id", record.ID.String()).
		Str("host_id", record.HostID.String()).
		Str("network_id", record.NetworkID.String()).
		Str("endpoint", record.Endpoint("")).
		Msg("daemon registered")

	return &record, nil
}

// GetDaemon returns the daemon with id, or (nil, nil) when unknown.
func (s *Service) GetDaemon(ctx context.Context, id uuid.UUID) (*models.Daemon, error) {
	return s.store.GetByID(ctx, id)
}

// GetDaemonByHost returns the daemon running on hostID, or (nil, nil).
func (s *Service) GetDaemonByHost(ctx context.Context, hostID uuid.UUID) (*models.Daemon, error) {
	return s.store.GetByHostID(ctx, hostID)
}

// GetDaemonByAPIKey resolves a presented API key, or returns (nil, nil).
func (s *Service) GetDaemonByAPIKey(ctx context.Context, apiKey string) (*models.Daemon, error) {
	if apiKey == "" {
		return nil, nil
	}

	return s.store.GetByAPIKeyHash(ctx, s.hashKey(apiKey))
}

// ListDaemons returns daemons in the given networks, newest first.
func (s *Service) ListDaemons(ctx context.Context, networkIDs []uuid.UUID) ([]*models.Daemon, error) {
	return s.store.GetAll(ctx, networkIDs)
}

// UpdateDaemon replaces the mutable fields of an existing daemon and returns
// the stored record. The API key must already be in its at-rest form.
func (s *Service) UpdateDaemon(ctx context.Context, daemon *models.Daemon) (*models.Daemon, error) {
	if err := daemon.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, daemon); err != nil {
		return nil, err
	}

	stored, err := s.store.GetByID(ctx, daemon.ID)
	if err != nil {
		return nil, err
	}

	if stored == nil {
		return nil, fmt.Errorf("%w: daemon %s", models.ErrNotFound, daemon.ID)
	}

	s.logger.Debug().Str("daemon_id", stored.ID.String()).Msg("daemon updated")

	return stored, nil
}

// DeleteDaemon removes a daemon. Deleting an unknown daemon is not an error.
// Sessions referencing the daemon are left alone.
func (s *Service) DeleteDaemon(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("daemon_id", id.String()).Msg("daemon deleted")

	return nil
}

// ReceiveHeartbeat records liveness. LastSeen never moves backwards.
func (s *Service) ReceiveHeartbeat(ctx context.Context, daemon *models.Daemon) (*models.Daemon, error) {
	if daemon == nil {
		return nil, models.ErrDaemonNil
	}

	record := *daemon

	if now := s.clock.Now(); now.After(record.LastSeen) {
		record.LastSeen = now
	}

	if err := s.store.Update(ctx, &record); err != nil {
		return nil, fmt.Errorf("heartbeat for daemon %s: %w", record.ID, err)
	}

	s.logger.Debug().
		Str("daemon_id", record.ID.String()).
		Time("last_seen", record.LastSeen).
		Msg("daemon heartbeat")

	return &record, nil
}
