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

package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/daemonfleet/pkg/clock"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/models"
)

// ReclaimerConfig tunes the periodic sweeps.
type ReclaimerConfig struct {
	Interval       time.Duration
	RunningTimeout time.Duration
	Retention      time.Duration
	TimeoutSweep   bool
}

// DefaultReclaimerConfig returns the operational defaults.
func DefaultReclaimerConfig() ReclaimerConfig {
	return ReclaimerConfig{
		Interval:       models.DefaultReclaimInterval,
		RunningTimeout: models.DefaultRunningTimeout,
		Retention:      models.DefaultSessionRetention,
		TimeoutSweep:   true,
	}
}

// ReclaimerConfigFrom converts the file configuration.
func ReclaimerConfigFrom(cfg models.ReclaimerConfig) ReclaimerConfig {
	out := DefaultReclaimerConfig()

	if cfg.Interval > 0 {
		out.Interval = time.Duration(cfg.Interval)
	}

	if cfg.RunningTimeout > 0 {
		out.RunningTimeout = time.Duration(cfg.RunningTimeout)
	}

	if cfg.Retention > 0 {
		out.Retention = time.Duration(cfg.Retention)
	}

	out.TimeoutSweep = cfg.TimeoutSweepEnabled()

	return out
}

// SweepResult summarises one reclaimer tick.
type SweepResult struct {
	TimedOut []models.SessionTransition
	Evicted  []models.DiscoverySession
}

// ReclaimerOption customises the behaviour of the Reclaimer.
type ReclaimerOption func(*Reclaimer)

// WithTimeoutHook receives the transitions produced by each timeout sweep,
// after the table lock is released.
func WithTimeoutHook(hook func(context.Context, []models.SessionTransition)) ReclaimerOption {
	return func(r *Reclaimer) {
		r.onTimeout = hook
	}
}

// Reclaimer periodically times out overdue sessions and evicts old terminal
// ones. It never touches the daemon store or the network.
type Reclaimer struct {
	table     *SessionTable
	clock     clock.Clock
	config    ReclaimerConfig
	onTimeout func(context.Context, []models.SessionTransition)
	logger    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReclaimer builds a stopped Reclaimer. Unset durations take their defaults.
func NewReclaimer(table *SessionTable, c clock.Clock, config ReclaimerConfig, log logger.Logger, opts ...ReclaimerOption) *Reclaimer {
	if c == nil {
		c = clock.Real()
	}

	if config.Interval <= 0 {
		config.Interval = models.DefaultReclaimInterval
	}

	if config.RunningTimeout <= 0 {
		config.RunningTimeout = models.DefaultRunningTimeout
	}

	if config.Retention <= 0 {
		config.Retention = models.DefaultSessionRetention
	}

	r := &Reclaimer{
		table:  table,
		clock:  c,
		config: config,
		logger: log,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Start launches the sweep loop. Calling Start on a running reclaimer is a no-op.
func (r *Reclaimer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	ticker := r.clock.Ticker(r.config.Interval)

	r.logger.Info().
		Str("interval", r.config.Interval.String()).
		Str("running_timeout", r.config.RunningTimeout.String()).
		Str("retention", r.config.Retention.String()).
		Bool("timeout_sweep", r.config.TimeoutSweep).
		Msg("Starting discovery session reclaimer")

	go r.run(ctx, ticker, r.done)
}

func (r *Reclaimer) run(ctx context.Context, ticker clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Discovery session reclaimer stopping")
			return
		case now := <-ticker.Chan():
			r.sweep(ctx, now)
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (r *Reclaimer) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Sweep runs one tick synchronously at now.
func (r *Reclaimer) Sweep(now time.Time) SweepResult {
	return r.sweep(context.Background(), now)
}

func (r *Reclaimer) sweep(ctx context.Context, now time.Time) SweepResult {
	var result SweepResult

	if r.config.TimeoutSweep {
		result.TimedOut = r.table.ExpireOverdue(now, r.config.RunningTimeout)
	}

	result.Evicted = r.table.EvictTerminal(now, r.config.Retention)

	recordSessionsTimedOut(ctx, len(result.TimedOut))
	recordSessionsEvicted(ctx, len(result.Evicted))

	if len(result.TimedOut) > 0 {
		for _, t := range result.TimedOut {
			r.logger.Info().
				Str("session_id", t.Session.ID.String()).
				Str("daemon_id", t.Session.DaemonID.String()).
				Str("previous_state", string(t.PreviousState)).
				Msg("discovery session timed out")
		}

		if r.onTimeout != nil {
			r.onTimeout(ctx, result.TimedOut)
		}
	}

	if len(result.Evicted) > 0 {
		r.logger.Debug().
			Int("count", len(result.Evicted)).
			Int("remaining", r.table.Len()).
			Msg("evicted expired discovery sessions")
	}

	return result
}
