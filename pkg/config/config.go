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

// Package config loads the fleet process configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

var errLoadConfigFailed = errors.New("failed to load configuration")

// ConfigLoader reads configuration from one source into dst.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Config holds the configuration loading dependencies.
type Config struct {
	loaders []ConfigLoader
	logger  logger.Logger
}

// NewConfig returns a Config that reads the JSON file and then applies the
// environment overlay. A nil logger is replaced by a warn-level stderr logger.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = createBasicLogger()
	}

	return &Config{
		loaders: []ConfigLoader{
			&FileConfigLoader{logger: log},
			NewEnvConfigLoader(log, EnvPrefix),
		},
		logger: log,
	}
}

// LoadAndValidate runs every loader in order, applies defaults and validates.
func (c *Config) LoadAndValidate(ctx context.Context, path string) (*models.FleetConfig, error) {
	cfg := &models.FleetConfig{}

	for _, loader := range c.loaders {
		if err := loader.Load(ctx, path, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", errLoadConfigFailed, err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c.logger.Debug().
		Str("path", path).
		Str("storage", cfg.Storage).
		Str("listen_addr", cfg.ListenAddr).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadAndValidate loads path with the default loaders.
func LoadAndValidate(ctx context.Context, path string, log logger.Logger) (*models.FleetConfig, error) {
	return NewConfig(log).LoadAndValidate(ctx, path)
}

// basicLogger is used before the configured logger exists.
type basicLogger struct {
	logger zerolog.Logger
}

func createBasicLogger() logger.Logger {
	zlog := zerolog.New(os.Stderr).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	return &basicLogger{logger: zlog}
}

func (b *basicLogger) Trace() *zerolog.Event { return b.logger.Trace() }
func (b *basicLogger) Debug() *zerolog.Event { return b.logger.Debug() }
func (b *basicLogger) Info() *zerolog.Event  { return b.logger.Info() }
func (b *basicLogger) Warn() *zerolog.Event  { return b.logger.Warn() }
func (b *basicLogger) Error() *zerolog.Event { return b.logger.Error() }
func (b *basicLogger) Fatal() *zerolog.Event { return b.logger.Fatal() }
func (b *basicLogger) With() zerolog.Context { return b.logger.With() }

func (b *basicLogger) WithComponent(component string) zerolog.Logger {
	return b.logger.With().Str("component", component).Logger()
}

func (b *basicLogger) SetLevel(level zerolog.Level) {
	b.logger = b.logger.Level(level)
}
