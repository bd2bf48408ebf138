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

import (
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/models"
)

// RegisterDaemonRequest is the body of POST /api/daemons/register. When
// APIKey is empty the server generates one and returns it once.
type RegisterDaemonRequest struct {
	HostID    uuid.UUID  `json:"host_id"`
	IP        netip.Addr `json:"ip"`
	Port      uint16     `json:"port"`
	NetworkID uuid.UUID  `json:"network_id"`
	APIKey    string     `json:"api_key,omitempty"`
}

// RegisterDaemonResponse returns the stored daemon and its plaintext key.
type RegisterDaemonResponse struct {
	Daemon DaemonView `json:"daemon"`
	APIKey string     `json:"api_key"`
}

// DaemonView is a daemon as served to operators.
type DaemonView struct {
	ID           uuid.UUID  `json:"id"`
	HostID       uuid.UUID  `json:"host_id"`
	IP           netip.Addr `json:"ip"`
	Port         uint16     `json:"port"`
	NetworkID    uuid.UUID  `json:"network_id"`
	LastSeen     time.Time  `json:"last_seen"`
	RegisteredAt time.Time  `json:"registered_at"`
	Stale        bool       `json:"stale"`
}

// StartDiscoveryRequest optionally pins the session id.
type StartDiscoveryRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

// FleetDiscoveryRequest starts discovery on every daemon in the networks.
type FleetDiscoveryRequest struct {
	NetworkIDs []uuid.UUID `json:"network_ids"`
}

// FleetDiscoveryResult is one daemon's outcome within a fleet discovery.
type FleetDiscoveryResult struct {
	DaemonID uuid.UUID               `json:"daemon_id"`
	Session  models.DiscoverySession `json:"session"`
	Error    string                  `json:"error,omitempty"`
}

// SessionUpdateResponse reports whether a daemon update changed the session.
type SessionUpdateResponse struct {
	Session models.DiscoverySession `json:"session"`
	Applied bool                    `json:"applied"`
}

func newDaemonView(daemon *models.Daemon, now time.Time, staleAfter time.Duration) DaemonView {
	return DaemonView{
		ID:           daemon.ID,
		HostID:       daemon.HostID,
		IP:           daemon.IP,
		Port:         daemon.Port,
		NetworkID:    daemon.NetworkID,
		LastSeen:     daemon.LastSeen,
		RegisteredAt: daemon.RegisteredAt,
		Stale:        daemon.IsStale(now, staleAfter),
	}
}
