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

package fleetapi

//go:generate mockgen -destination=mock_fleetapi.go -package=fleetapi github.com/carverauto/daemonfleet/pkg/fleetapi DaemonService,SessionManager

import (
	"context"

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/discovery"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// DaemonService is the registry surface the API exposes.
type DaemonService interface {
	RegisterDaemon(ctx context.Context, daemon *models.Daemon) (*models.Daemon, error)
	GetDaemon(ctx context.Context, id uuid.UUID) (*models.Daemon, error)
	GetDaemonByAPIKey(ctx context.Context, apiKey string) (*models.Daemon, error)
	ListDaemons(ctx context.Context, networkIDs []uuid.UUID) ([]*models.Daemon, error)
	DeleteDaemon(ctx context.Context, id uuid.UUID) error
	ReceiveHeartbeat(ctx context.Context, daemon *models.Daemon) (*models.Daemon, error)
}

// SessionManager is the discovery orchestration surface the API exposes.
type SessionManager interface {
	StartDiscovery(ctx context.Context, daemonID, sessionID uuid.UUID) (models.DiscoverySession, error)
	StartFleetDiscovery(ctx context.Context, daemonIDs []uuid.UUID) []discovery.DispatchResult
	ReportProgress(
		ctx context.Context, daemonID, sessionID uuid.UUID, update models.SessionUpdate) (models.DiscoverySession, bool, error)
	Cancel(ctx context.Context, sessionID uuid.UUID) (models.DiscoverySession, error)
	Get(sessionID uuid.UUID) (models.DiscoverySession, error)
	List() []models.DiscoverySession
	ListActive() []models.DiscoverySession
}
