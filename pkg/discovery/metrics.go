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
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	sessionMeterName = "serviceradar.fleet.discovery"

	metricSessionsName          = "discovery_sessions"
	metricDispatchFailuresName  = "discovery_dispatch_failures_total"
	metricSessionsTimedOutName  = "discovery_sessions_timed_out_total"
	metricSessionsEvictedName   = "discovery_sessions_evicted_total"
	metricCancelDispatchErrName = "discovery_cancel_dispatch_failures_total"
)

var (
	//nolint:gochecknoglobals // metric instruments are shared singletons
	sessionMetricsOnce sync.Once
	//nolint:gochecknoglobals // the gauge callback reads the live table
	sessionMetricsTable atomic.Pointer[SessionTable]
	//nolint:gochecknoglobals // metric instruments are shared singletons
	sessionMetrics struct {
		sessions         metric.Int64ObservableGauge
		dispatchFailures metric.Int64Counter
		timedOut         metric.Int64Counter
		evicted          metric.Int64Counter
		cancelFailures   metric.Int64Counter
	}
	sessionMetricsRegistration metric.Registration //nolint:unused,gochecknoglobals // kept to retain callback
)

func initSessionMetrics() {
	meter := otel.Meter(sessionMeterName)

	var err error

	sessionMetrics.sessions, err = meter.Int64ObservableGauge(
		metricSessionsName,
		metric.WithDescription("Discovery sessions held in the session table, by state"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	sessionMetrics.dispatchFailures, err = meter.Int64Counter(
		metricDispatchFailuresName,
		metric.WithDescription("Discovery dispatches that failed in transport or were rejected by the daemon"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	sessionMetrics.timedOut, err = meter.Int64Counter(
		metricSessionsTimedOutName,
		metric.WithDescription("Sessions moved to timed_out by the reclaimer"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	sessionMetrics.evicted, err = meter.Int64Counter(
		metricSessionsEvictedName,
		metric.WithDescription("Terminal sessions evicted after the retention window"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	sessionMetrics.cancelFailures, err = meter.Int64Counter(
		metricCancelDispatchErrName,
		metric.WithDescription("Best-effort cancellation calls that failed"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		table := sessionMetricsTable.Load()
		if table == nil {
			return nil
		}

		for state, count := range table.CountByState() {
			observer.ObserveInt64(sessionMetrics.sessions, count,
				metric.WithAttributes(attribute.String("state", string(state))))
		}

		return nil
	}, sessionMetrics.sessions)
	if err != nil {
		otel.Handle(err)
		return
	}

	sessionMetricsRegistration = registration
}

// observeSessionTable makes table the source of the per-state gauge.
func observeSessionTable(table *SessionTable) {
	sessionMetricsOnce.Do(initSessionMetrics)
	sessionMetricsTable.Store(table)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, n int) {
	if counter == nil || n <= 0 {
		return
	}

	counter.Add(ctx, int64(n))
}

func recordDispatchFailure(ctx context.Context) {
	sessionMetricsOnce.Do(initSessionMetrics)
	addCounter(ctx, sessionMetrics.dispatchFailures, 1)
}

func recordCancelDispatchFailure(ctx context.Context) {
	sessionMetricsOnce.Do(initSessionMetrics)
	addCounter(ctx, sessionMetrics.cancelFailures, 1)
}

func recordSessionsTimedOut(ctx context.Context, n int) {
	sessionMetricsOnce.Do(initSessionMetrics)
	addCounter(ctx, sessionMetrics.timedOut, n)
}

func recordSessionsEvicted(ctx context.Context, n int) {
	sessionMetricsOnce.Do(initSessionMetrics)
	addCounter(ctx, sessionMetrics.evicted, n)
}
