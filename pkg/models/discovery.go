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
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionState describes where a discovery session is in its lifecycle.
type SessionState string

const (
	SessionPending    SessionState = "pending"
	SessionDispatched SessionState = "dispatched"
	SessionRunning    SessionState = "running"
	SessionCompleted  SessionState = "completed"
	SessionFailed     SessionState = "failed"
	SessionCancelled  SessionState = "cancelled"
	SessionTimedOut   SessionState = "timed_out"
)

// AllSessionStates lists every state in lifecycle order.
var AllSessionStates = []SessionState{ //nolint:gochecknoglobals // read-only lookup table
	SessionPending,
	SessionDispatched,
	SessionRunning,
	SessionCompleted,
	SessionFailed,
	SessionCancelled,
	SessionTimedOut,
}

// IsTerminal reports whether no further transition may leave s.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionCancelled, SessionTimedOut:
		return true
	case SessionPending, SessionDispatched, SessionRunning:
		return false
	}

	return false
}

// IsValid reports whether s is a known state.
func (s SessionState) IsValid() bool {
	for _, known := range AllSessionStates {
		if s == known {
			return true
		}
	}

	return false
}

// CanTransitionTo applies the monotonic session rule:
//
//	pending            -> dispatched
//	dispatched|running -> running | completed
//	any non-terminal   -> failed | cancelled | timed_out
//
// Terminal states absorb everything.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	if s.IsTerminal() || !next.IsValid() {
		return false
	}

	switch next {
	case SessionFailed, SessionCancelled, SessionTimedOut:
		return true
	case SessionDispatched:
		return s == SessionPending
	case SessionRunning, SessionCompleted:
		return s == SessionDispatched || s == SessionRunning
	case SessionPending:
		return false
	}

	return false
}

// DiscoverySession tracks one request for a daemon to run a discovery scan.
type DiscoverySession struct {
	ID        uuid.UUID       `json:"session_id"`
	DaemonID  uuid.UUID       `json:"daemon_id"`
	State     SessionState    `json:"state"`
	Progress  uint8           `json:"progress"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SessionUpdate is a state change reported by a daemon, the manager, or the reclaimer.
// Payload is carried opaquely; its content is never interpreted here.
type SessionUpdate struct {
	State    SessionState    `json:"state"`
	Progress *uint8          `json:"progress,omitempty"`
	Error    string          `json:"error,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// SessionTransition describes an applied state change.
type SessionTransition struct {
	Session       DiscoverySession
	PreviousState SessionState
}
