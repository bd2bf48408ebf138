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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// EnvPrefix prefixes every environment variable the fleet reads.
const EnvPrefix = "FLEET_"

// ErrUnsupportedConfigTarget is returned when the env overlay is given
// something other than a *models.FleetConfig.
var ErrUnsupportedConfigTarget = errors.New("env overlay requires *models.FleetConfig")

// EnvConfigLoader overlays configuration from environment variables.
// <prefix>CONFIG_JSON is decoded over the existing values, so only the keys
// it names change. Individual variables for secrets and endpoints then win.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// Load implements ConfigLoader.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	cfg, ok := dst.(*models.FleetConfig)
	if !ok || cfg == nil {
		return ErrUnsupportedConfigTarget
	}

	if jsonConfig := os.Getenv(e.prefix + "CONFIG_JSON"); jsonConfig != "" {
		if err := json.Unmarshal([]byte(jsonConfig), cfg); err != nil {
			return fmt.Errorf("failed to unmarshal %sCONFIG_JSON: %w", e.prefix, err)
		}

		e.logger.Info().Msgf("Applied %sCONFIG_JSON overlay", e.prefix)
	}

	e.applyString("LISTEN_ADDR", &cfg.ListenAddr)
	e.applyString("STORAGE", &cfg.Storage)

	if cfg.CNPG != nil {
		e.applyString("CNPG_HOST", &cfg.CNPG.Host)
		e.applyString("CNPG_PASSWORD", &cfg.CNPG.Password)
	}

	if cfg.NATS != nil {
		e.applyString("NATS_URL", &cfg.NATS.URL)
	}

	return nil
}

func (e *EnvConfigLoader) applyString(name string, dst *string) {
	envName := e.prefix + name

	value := os.Getenv(envName)
	if value == "" {
		return
	}

	*dst = value

	e.logger.Debug().Str("env", envName).Str("value", "[set]").Msg("Loaded value from environment variable")
}
