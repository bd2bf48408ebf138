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
	"net/http"

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/models"
)

//go:generate mockgen -destination=mock_daemons.go -package=daemons github.com/carverauto/daemonfleet/pkg/daemons HTTPClient,Store

// Store persists daemon records. A lookup miss returns (nil, nil).
type Store interface {
	Create(ctx context.Context, daemon *models.Daemon) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Daemon, error)
	GetByHostID(ctx context.Context, hostID uuid.UUID) (*models.Daemon, error)
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*models.Daemon, error)
	// GetAll returns daemons in the given networks, newest registration first.
	GetAll(ctx context.Context, networkIDs []uuid.UUID) ([]*models.Daemon, error)
	Update(ctx context.Context, daemon *models.Daemon) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// HTTPClient defines the interface for making HTTP requests to daemons.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
