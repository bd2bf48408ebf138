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

import "errors"

var (

	// Fleet error taxonomy. Callers match with errors.Is; every wrapped error
	// carries the daemon and/or session id for correlation.

	ErrConflict             = errors.New("conflict")
	ErrNotFound             = errors.New("not found")
	ErrTransportFailure     = errors.New("transport failure")
	ErrRemoteRejected       = errors.New("remote rejected request")
	ErrSerializationFailure = errors.New("serialization failure")
	ErrInvalidTransition    = errors.New("invalid session state transition")

	// Storage engine failures that are neither conflicts nor misses.

	ErrStorage = errors.New("storage failure")

	// Validation.

	ErrInvalidDaemon = errors.New("invalid daemon")
	ErrDaemonNil     = errors.New("daemon is nil")
)
