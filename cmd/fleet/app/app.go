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

// Package app wires the fleet control plane together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/daemonfleet/pkg/clock"
	"github.com/carverauto/daemonfleet/pkg/config"
	"github.com/carverauto/daemonfleet/pkg/daemons"
	"github.com/carverauto/daemonfleet/pkg/db"
	"github.com/carverauto/daemonfleet/pkg/discovery"
	"github.com/carverauto/daemonfleet/pkg/fleetapi"
	"github.com/carverauto/daemonfleet/pkg/lifecycle"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
	"github.com/carverauto/daemonfleet/pkg/natsutil"
	"github.com/carverauto/daemonfleet/pkg/version"
)

const shutdownTimeout = 10 * time.Second

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run loads the configuration and serves until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadAndValidate(ctx, opts.ConfigPath, nil)
	if err != nil {
		return err
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("fleet-main", cfg.Logging)
	if err != nil {
		return err
	}

	mainLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting daemon fleet control plane")

	if cfg.Metrics != nil && cfg.Metrics.ServiceVersion == "" {
		cfg.Metrics.ServiceVersion = version.GetVersion()
	}

	if _, err := logger.InitializeMetrics(ctx, cfg.Metrics); err != nil {
		if !errors.Is(err, logger.ErrOTelMetricsDisabled) {
			return err
		}
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := logger.ShutdownMetrics(shutdownCtx); err != nil {
				mainLogger.Error().Err(err).Msg("Error shutting down metrics provider")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, mainLogger)
}

func serve(ctx context.Context, cfg *models.FleetConfig, log logger.Logger) error {
	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.APIKeyHashing == models.APIKeyHashingNone {
		log.Warn().Msg("Daemon API keys are stored in plaintext; set api_key_hashing to \"sha256\" to hash them at rest")
	}

	svc := daemons.NewService(store, log,
		daemons.WithAPIKeyHasher(daemons.NewAPIKeyHasher(cfg.APIKeyHashing)),
		daemons.WithDispatchTimeout(time.Duration(cfg.Dispatch.Timeout)))

	realClock := clock.Real()
	table := discovery.NewSessionTable(realClock)

	var managerOpts []discovery.ManagerOption

	if cfg.Events != nil && cfg.Events.Enabled {
		nc, publisher, err := buildEventPublisher(ctx, cfg, log)
		if err != nil {
			return err
		}

		defer func() {
			if err := nc.Drain(); err != nil {
				log.Warn().Err(err).Msg("Failed to drain NATS connection")
			}
		}()

		managerOpts = append(managerOpts, discovery.WithEventSink(publisher))
	}

	manager, err := discovery.NewManager(table, svc, log, managerOpts...)
	if err != nil {
		return err
	}

	reclaimer := discovery.NewReclaimer(table, realClock, discovery.ReclaimerConfigFrom(cfg.Reclaimer), log,
		discovery.WithTimeoutHook(manager.NotifyTransitions))
	reclaimer.Start(ctx)
	defer reclaimer.Stop()

	apiServer := fleetapi.NewServer(svc, manager, log,
		fleetapi.WithStaleThreshold(time.Duration(cfg.StaleThreshold)))

	return runHTTPServer(ctx, apiServer.HTTPServer(cfg.ListenAddr), log)
}

func runHTTPServer(ctx context.Context, srv *http.Server, log logger.Logger) error {
	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("listen_addr", listener.Addr().String()).Msg("Starting fleet HTTP API server")

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP API server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down fleet HTTP API server")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildStore(ctx context.Context, cfg *models.FleetConfig, log logger.Logger) (daemons.Store, func(), error) {
	switch cfg.Storage {
	case models.StorageMemory:
		log.Warn().Msg("Using in-memory daemon store; registrations are lost on restart")

		return daemons.NewMemoryStore(), func() {}, nil
	case models.StorageCNPG:
		pool, err := db.NewCNPGPool(ctx, cfg.CNPG, log)
		if err != nil {
			return nil, nil, err
		}

		if err := db.RunCNPGMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, nil, err
		}

		store, err := daemons.NewCNPGStore(pool, log)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownStorage, cfg.Storage)
	}
}

var errUnknownStorage = errors.New("unknown storage backend")

func buildEventPublisher(
	ctx context.Context, cfg *models.FleetConfig, log logger.Logger) (*nats.Conn, *natsutil.EventPublisher, error) {
	nc, err := natsutil.ConnectWithSecurity(cfg.NATS.URL, cfg.NATS.TLS, log, nats.Name("serviceradar-fleet"))
	if err != nil {
		return nil, nil, err
	}

	publisher, err := natsutil.CreateEventPublisherWithDomain(
		ctx, nc, cfg.NATS.Domain, cfg.Events.StreamName, cfg.Events.Subjects, log)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	log.Info().
		Str("stream", cfg.Events.StreamName).
		Strs("subjects", cfg.Events.Subjects).
		Msg("Session events will be published to NATS JetStream")

	return nc, publisher, nil
}
