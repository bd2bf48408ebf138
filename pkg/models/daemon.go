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

package models

import (
	"fmt"
	"net/netip"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Daemon is a registered network-diagnostic agent running on a remote host.
type Daemon struct {
	ID           uuid.UUID  `json:"id"`
	HostID       uuid.UUID  `json:"host_id"`
	IP           netip.Addr `json:"ip"`
	Port         uint16     `json:"port"`
	NetworkID    uuid.UUID  `json:"network_id"`
	APIKey       string     `json:"-"`
	LastSeen     time.Time  `json:"last_seen"`
	RegisteredAt time.Time  `json:"registered_at"`
}

// Validate checks the fields a daemon record cannot be persisted without.
func (d *Daemon) Validate() error {
	if d == nil {
		return ErrDaemonNil
	}

	switch {
	case d.ID == uuid.Nil:
		return fmt.Errorf("%w: id is required", ErrInvalidDaemon)
	case d.HostID == uuid.Nil:
		return fmt.Errorf("%w: host_id is required (daemon %s)", ErrInvalidDaemon, d.ID)
	case !d.IP.IsValid():
		return fmt.Errorf("%w: ip is required (daemon %s)", ErrInvalidDaemon, d.ID)
	case d.Port == 0:
		return fmt.Errorf("%w: port is required (daemon %s)", ErrInvalidDaemon, d.ID)
	case d.APIKey == "":
		return fmt.Errorf("%w: api_key is required (daemon %s)", ErrInvalidDaemon, d.ID)
	}

	return nil
}

// Endpoint builds the HTTP URL of a daemon API path.
func (d *Daemon) Endpoint(path string) string {
	u := url.URL{
		Scheme: "http",
		Host:   netip.AddrPortFrom(d.IP, d.Port).String(),
		Path:   path,
	}

	return u.String()
}

// IsStale reports whether the daemon has not heartbeated within threshold.
// Staleness is a read-time view; nothing removes stale daemons.
func (d *Daemon) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(d.LastSeen) > threshold
}

// DaemonDiscoveryRequest is sent to /api/discovery/initiate.
type DaemonDiscoveryRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

// DaemonDiscoveryResponse is the data a daemon returns when it accepts a request.
type DaemonDiscoveryResponse struct {
	SessionID uuid.UUID `json:"session_id"`
}

// DaemonDiscoveryCancellationRequest is sent to /api/discovery/cancel.
type DaemonDiscoveryCancellationRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

// APIResponse is the envelope shared by the daemon API and the fleet API.
type APIResponse[T any] struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Data    *T      `json:"data"`
}

// ErrorMessage returns the envelope error or a placeholder.
func (r *APIResponse[T]) ErrorMessage() string {
	if r.Error == nil || *r.Error == "" {
		return "unknown error"
	}

	return *r.Error
}

// NewSuccessResponse wraps data in a successful envelope.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{Success: true, Data: &data}
}

// NewErrorResponse builds a failed envelope.
func NewErrorResponse(message string) APIResponse[struct{}] {
	return APIResponse[struct{}]{Success: false, Error: &message}
}
