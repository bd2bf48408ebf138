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

// Package http provides middleware and envelope helpers shared by HTTP handlers.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// APIKeyHeader carries a daemon's API key.
const APIKeyHeader = "X-API-Key"

type contextKey struct{}

// DaemonResolver maps a presented API key to its daemon. A nil daemon with a
// nil error means the key is unknown.
type DaemonResolver func(ctx context.Context, apiKey string) (*models.Daemon, error)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// CommonMiddleware sets CORS headers, answers preflight requests and logs
// every request at debug level.
func CommonMiddleware(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+APIKeyHeader)
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("handled request")
	})
}

// DaemonAuthMiddleware authenticates requests by the API key header and
// stores the resolved daemon in the request context.
func DaemonAuthMiddleware(resolve DaemonResolver, log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			daemon, err := resolve(r.Context(), apiKey)
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("API key lookup failed")
				WriteError(w, http.StatusInternalServerError, "authentication unavailable")

				return
			}

			if daemon == nil {
				log.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("unauthorized daemon API access attempt")
				WriteError(w, http.StatusUnauthorized, "invalid API key")

				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, daemon)))
		})
	}
}

// DaemonFromContext returns the daemon authenticated by DaemonAuthMiddleware.
func DaemonFromContext(ctx context.Context) (*models.Daemon, bool) {
	daemon, ok := ctx.Value(contextKey{}).(*models.Daemon)

	return daemon, ok && daemon != nil
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess wraps data in a successful envelope.
func WriteSuccess[T any](w http.ResponseWriter, status int, data T) {
	WriteJSON(w, status, models.NewSuccessResponse(data))
}

// WriteError writes a failed envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, models.NewErrorResponse(message))
}
