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
	"github.com/carverauto/daemonfleet/pkg/hashutil"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// APIKeyHasher maps a presented API key to the value kept at rest.
type APIKeyHasher func(key string) string

// NewAPIKeyHasher returns the hasher for a configured api_key_hashing mode.
// Unknown modes fall back to plaintext; configuration validation rejects them earlier.
func NewAPIKeyHasher(mode string) APIKeyHasher {
	if mode == models.APIKeyHashingSHA256 {
		return hashutil.SHA256Hex
	}

	return PlaintextAPIKey
}

// PlaintextAPIKey stores keys as presented.
func PlaintextAPIKey(key string) string {
	return key
}
