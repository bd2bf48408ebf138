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
	"net/http"

	"github.com/google/uuid"

	fleethttp "github.com/carverauto/daemonfleet/pkg/http"
	"github.com/carverauto/daemonfleet/pkg/models"
)

func (s *Server) registerDaemon(w http.ResponseWriter, r *http.Request) {
	var req RegisterDaemonRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		generated, err := s.newAPIKey()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		apiKey = generated
	}

	daemon, err := s.daemons.RegisterDaemon(r.Context(), &models.Daemon{
		ID:        uuid.New(),
		HostID:    req.HostID,
		IP:        req.IP,
		Port:      req.Port,
		NetworkID: req.NetworkID,
		APIKey:    apiKey,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fleethttp.WriteSuccess(w, http.StatusCreated, RegisterDaemonResponse{
		Daemon: newDaemonView(daemon, s.clock.Now(), s.staleThreshold),
		APIKey: apiKey,
	})
}

func (s *Server) heartbeat(w http.ResponseWriter, r *http.Request) {
	daemon, ok := fleethttp.DaemonFromContext(r.Context())
	if !ok {
		s.writeError(w, r, errMissingDaemonCtx)
		return
	}

	updated, err := s.daemons.ReceiveHeartbeat(r.Context(), daemon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fleethttp.WriteSuccess(w, http.StatusOK, newDaemonView(updated, s.clock.Now(), s.staleThreshold))
}

func (s *Server) listDaemons(w http.ResponseWriter, r *http.Request) {
	networkIDs, err := parseNetworkIDs(r.URL.Query()["network_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	daemons, err := s.daemons.ListDaemons(r.Context(), networkIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.clock.Now()
	views := make([]DaemonView, 0, len(daemons))

	for _, daemon := range daemons {
		views = append(views, newDaemonView(daemon, now, s.staleThreshold))
	}

	fleethttp.WriteSuccess(w, http.StatusOK, views)
}

func (s *Server) getDaemon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	daemon, err := s.daemons.GetDaemon(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if daemon == nil {
		fleethttp.WriteError(w, http.StatusNotFound, "daemon "+id.String()+" not found")
		return
	}

	fleethttp.WriteSuccess(w, http.StatusOK, newDaemonView(daemon, s.clock.Now(), s.staleThreshold))
}

func (s *Server) deleteDaemon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.daemons.DeleteDaemon(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	fleethttp.WriteSuccess(w, http.StatusOK, struct{}{})
}

func (s *Server) startDiscovery(w http.ResponseWriter, r *http.Request) {
	daemonID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req StartDiscoveryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.sessions.StartDiscovery(r.Context(), daemonID, req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fleethttp.WriteSuccess(w, http.StatusAccepted, session)
}

func (s *Server) startFleetDiscovery(w http.ResponseWriter, r *http.Request) {
	var req FleetDiscoveryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if len(req.NetworkIDs) == 0 {
		s.writeError(w, r, errNetworkRequired)
		return
	}

	daemons, err := s.daemons.ListDaemons(r.Context(), req.NetworkIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	daemonIDs := make([]uuid.UUID, 0, len(daemons))
	for _, daemon := range daemons {
		daemonIDs = append(daemonIDs, daemon.ID)
	}

	results := s.sessions.StartFleetDiscovery(r.Context(), daemonIDs)
	out := make([]FleetDiscoveryResult, 0, len(results))

	for _, result := range results {
		entry := FleetDiscoveryResult{DaemonID: result.DaemonID, Session: result.Session}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}

		out = append(out, entry)
	}

	fleethttp.WriteSuccess(w, http.StatusAccepted, out)
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	daemon, ok := fleethttp.DaemonFromContext(r.Context())
	if !ok {
		s.writeError(w, r, errMissingDaemonCtx)
		return
	}

	sessionID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var update models.SessionUpdate
	if err := decodeBody(r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}

	if !update.State.IsValid() {
		s.writeError(w, r, errInvalidState)
		return
	}

	session, applied, err := s.sessions.ReportProgress(r.Context(), daemon.ID, sessionID, update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fleethttp.WriteSuccess(w, http.StatusOK, SessionUpdateResponse{Session: session, Applied: applied})
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.sessions.Cancel(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fleethttp.WriteSuccess(w, http.StatusOK, session)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []models.DiscoverySession

	if r.URL.Query().Get("active") == "true" {
		sessions = s.sessions.ListActive()
	} else {
		sessions = s.sessions.List()
	}

	if sessions == nil {
		sessions = []models.DiscoverySession{}
	}

	fleethttp.WriteSuccess(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fleethttp.WriteSuccess(w, http.StatusOK, session)
}
