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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/carverauto/daemonfleet/pkg/models"
)

const (
	discoveryInitiatePath = "/api/discovery/initiate"
	discoveryCancelPath   = "/api/discovery/cancel"

	maxErrorBodyBytes = 4096
)

// DispatchDiscovery asks a daemon to start a discovery session. The daemon must
// answer with a 2xx status and a successful envelope. There is no retry.
func (s *Service) DispatchDiscovery(ctx context.Context, daemon *models.Daemon, request models.DaemonDiscoveryRequest) error {
	if daemon == nil {
		return models.ErrDaemonNil
	}

	var resp models.APIResponse[models.DaemonDiscoveryResponse]

	if err := s.postToDaemon(ctx, daemon, discoveryInitiatePath, request.SessionID, request, &resp); err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("%w: daemon %s declined discovery session %s: %s",
			models.ErrRemoteRejected, daemon.ID, request.SessionID, resp.ErrorMessage())
	}

	s.logger.Info().
		Str("daemon_id", daemon.ID.String()).
		Str("session_id", request.SessionID.String()).
		Msg("discovery dispatched")

	return nil
}

// DispatchCancellation asks a daemon to stop a discovery session.
func (s *Service) DispatchCancellation(ctx context.Context, daemon *models.Daemon, sessionID uuid.UUID) error {
	if daemon == nil {
		return models.ErrDaemonNil
	}

	var resp models.APIResponse[json.RawMessage]

	request := models.DaemonDiscoveryCancellationRequest{SessionID: sessionID}

	if err := s.postToDaemon(ctx, daemon, discoveryCancelPath, sessionID, request, &resp); err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("%w: daemon %s declined cancellation of session %s: %s",
			models.ErrRemoteRejected, daemon.ID, sessionID, resp.ErrorMessage())
	}

	s.logger.Info().
		Str("daemon_id", daemon.ID.String()).
		Str("session_id", sessionID.String()).
		Msg("discovery cancellation dispatched")

	return nil
}

// postToDaemon sends body as JSON and decodes the response envelope into out.
// Connection failures wrap ErrTransportFailure, non-2xx statuses wrap
// ErrRemoteRejected and an unreadable envelope wraps ErrSerializationFailure.
func (s *Service) postToDaemon(
	ctx context.Context, daemon *models.Daemon, path string, sessionID uuid.UUID, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request for daemon %s session %s: %w",
			models.ErrSerializationFailure, daemon.ID, sessionID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	endpoint := daemon.Endpoint(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request to daemon %s session %s: %w",
			models.ErrTransportFailure, daemon.ID, sessionID, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s for daemon %s session %s: %w",
			models.ErrTransportFailure, endpoint, daemon.ID, sessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return fmt.Errorf("%w: daemon %s session %s: %w: %d, response: %s",
			models.ErrRemoteRejected, daemon.ID, sessionID, errUnexpectedStatusCode,
			resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response from daemon %s session %s: %w",
			models.ErrSerializationFailure, daemon.ID, sessionID, err)
	}

	return nil
}
