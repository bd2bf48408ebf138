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

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/models"
)

//go:generate mockgen -destination=mock_discovery.go -package=discovery github.com/carverauto/daemonfleet/pkg/discovery EventSink,Fleet

// Fleet is the part of the daemon service the session manager drives.
type Fleet interface {
	GetDaemon(ctx context.Context, id uuid.UUID) (*models.Daemon, error)
	DispatchDiscovery(ctx context.Context, daemon *models.Daemon, request models.DaemonDiscoveryRequest) error
	DispatchCancellation(ctx context.Context, daemon *models.Daemon, sessionID uuid.UUID) error
}

// EventSink receives every applied session transition.
type EventSink interface {
	PublishSessionTransition(ctx context.Context, transition models.SessionTransition) error
}
