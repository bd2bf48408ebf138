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

// Package fleetapi serves the daemon-facing and operator-facing fleet HTTP API.
package fleetapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/carverauto/daemonfleet/pkg/clock"
	fleethttp "github.com/carverauto/daemonfleet/pkg/http"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	maxRequestBodyBytes = 1 << 20
)

var (
	errInvalidID        = errors.New("invalid id")
	errNetworkRequired  = errors.New("at least one network_id is required")
	errInvalidState     = errors.New("unknown session state")
	errInvalidBody      = errors.New("invalid request body")
	errGenerateAPIKey   = errors.New("failed to generate api key")
	errMissingDaemonCtx = errors.New("authenticated daemon missing from request")
)

// ServerOption customises the behaviour of the Server.
type ServerOption func(*Server)

// Server routes fleet API requests to the daemon service and session manager.
type Server struct {
	router         *mux.Router
	daemons        DaemonService
	sessions       SessionManager
	clock          clock.Clock
	staleThreshold time.Duration
	newAPIKey      func() (string, error)
	logger         logger.Logger
}

// NewServer builds the router over daemons and sessions.
func NewServer(daemons DaemonService, sessions SessionManager, log logger.Logger, opts ...ServerOption) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		daemons:        daemons,
		sessions:       sessions,
		clock:          clock.Real(),
		staleThreshold: models.DefaultStaleThreshold,
		newAPIKey:      generateAPIKey,
		logger:         log,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.setupRoutes()

	return s
}

// WithClock overrides the time source used for staleness.
func WithClock(c clock.Clock) ServerOption {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithStaleThreshold sets how long without a heartbeat marks a daemon stale.
func WithStaleThreshold(threshold time.Duration) ServerOption {
	return func(s *Server) {
		if threshold > 0 {
			s.staleThreshold = threshold
		}
	}
}

func (s *Server) setupRoutes() {
	daemonAuth := fleethttp.DaemonAuthMiddleware(s.daemons.GetDaemonByAPIKey, s.logger)

	s.router.Handle("/api/daemons/heartbeat", daemonAuth(http.HandlerFunc(s.heartbeat))).Methods(http.MethodPost)
	s.router.Handle("/api/discovery/sessions/{id}/update",
		daemonAuth(http.HandlerFunc(s.updateSession))).Methods(http.MethodPost)

	s.router.HandleFunc("/api/daemons/register", s.registerDaemon).Methods(http.MethodPost)
	s.router.HandleFunc("/api/daemons", s.listDaemons).Methods(http.MethodGet)
	s.router.HandleFunc("/api/daemons/{id}", s.getDaemon).Methods(http.MethodGet)
	s.router.HandleFunc("/api/daemons/{id}", s.deleteDaemon).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/daemons/{id}/discovery", s.startDiscovery).Methods(http.MethodPost)

	s.router.HandleFunc("/api/discovery/fleet", s.startFleetDiscovery).Methods(http.MethodPost)
	s.router.HandleFunc("/api/discovery/sessions", s.listSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/api/discovery/sessions/{id}", s.getSession).Methods(http.MethodGet)
	s.router.HandleFunc("/api/discovery/sessions/{id}/cancel", s.cancelSession).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fleethttp.WriteError(w, http.StatusNotFound, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fleethttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the routed handler wrapped in the common middleware.
func (s *Server) Handler() http.Handler {
	return fleethttp.CommonMiddleware(s.router, s.logger)
}

// HTTPServer returns an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

// statusForError maps the fleet error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidDaemon),
		errors.Is(err, models.ErrDaemonNil),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, errInvalidID),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidState),
		errors.Is(err, errNetworkRequired):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrTransportFailure),
		errors.Is(err, models.ErrRemoteRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	event := s.logger.Debug()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}

	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	fleethttp.WriteError(w, status, err.Error())
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w %q", errInvalidID, raw)
	}

	return id, nil
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	return fmt.Errorf("%w: %w", errInvalidBody, err)
}

// parseNetworkIDs accepts repeated or comma-separated network_id parameters.
func parseNetworkIDs(values []string) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: network_id %q", errInvalidID, raw)
			}

			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return nil, errNetworkRequired
	}

	return ids, nil
}

func generateAPIKey() (string, error) {
	key, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errGenerateAPIKey, err)
	}

	return strings.ReplaceAll(key.String(), "-", ""), nil
}
