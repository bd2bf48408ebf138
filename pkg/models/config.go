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
	"fmt"
	"time"

	"github.com/carverauto/daemonfleet/pkg/logger"
)

// Duration is a time.Duration that unmarshals from "5m" strings or nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

const (
	StorageCNPG   = "cnpg"
	StorageMemory = "memory"

	APIKeyHashingNone   = "none"
	APIKeyHashingSHA256 = "sha256"

	DefaultReclaimInterval  = 5 * time.Minute
	DefaultRunningTimeout   = 10 * time.Minute
	DefaultSessionRetention = 24 * time.Hour
	DefaultDispatchTimeout  = 10 * time.Second
	DefaultStaleThreshold   = 5 * time.Minute
	DefaultListenAddr       = ":8090"
	DefaultEventsStream     = "events"
	DefaultEventsSubject    = "events.discovery.session.*"
)

var (
	errInvalidDuration         = fmt.Errorf("invalid duration")
	errUnknownStorage          = fmt.Errorf("storage must be %q or %q", StorageCNPG, StorageMemory)
	errCNPGRequired            = fmt.Errorf("cnpg configuration is required when storage is %q", StorageCNPG)
	errCNPGHostRequired        = fmt.Errorf("cnpg.host is required")
	errCNPGDatabaseRequired    = fmt.Errorf("cnpg.database is required")
	errUnknownAPIKeyHashing    = fmt.Errorf("api_key_hashing must be %q or %q", APIKeyHashingNone, APIKeyHashingSHA256)
	errNATSRequired            = fmt.Errorf("nats configuration is required when events are enabled")
	errNATSURLRequired         = fmt.Errorf("nats url is required")
	errReclaimerIntervalNeg    = fmt.Errorf("reclaimer.interval must be positive")
	errReclaimerRetentionOrder = fmt.Errorf("reclaimer.retention must not be shorter than reclaimer.running_timeout")
)

// TLSConfig points at PEM files used for client TLS.
type TLSConfig struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	CAFile   string `json:"ca_file"`
}

// CNPGDatabase configures the PostgreSQL (CloudNativePG) connection.
type CNPGDatabase struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password"`
	SSLMode            string            `json:"ssl_mode"`
	ApplicationName    string            `json:"application_name"`
	CertDir            string            `json:"cert_dir"`
	TLS                *TLSConfig        `json:"tls,omitempty"`
	MaxConnections     int32             `json:"max_connections"`
	MinConnections     int32             `json:"min_connections"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime"`
	HealthCheckPeriod  Duration          `json:"health_check_period"`
	StatementTimeout   Duration          `json:"statement_timeout"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}

// NATSConfig configures the NATS connection used for session events.
type NATSConfig struct {
	URL    string     `json:"url"`
	Domain string     `json:"domain,omitempty"`
	TLS    *TLSConfig `json:"tls,omitempty"`
}

// EventsConfig configures session lifecycle event publishing.
type EventsConfig struct {
	Enabled    bool     `json:"enabled"`
	StreamName string   `json:"stream_name"`
	Subjects   []string `json:"subjects"`
}

// DispatchConfig tunes outbound calls to daemons.
type DispatchConfig struct {
	Timeout Duration `json:"timeout"`
}

// ReclaimerConfig tunes the session reclaimer.
type ReclaimerConfig struct {
	Interval       Duration `json:"interval"`
	RunningTimeout Duration `json:"running_timeout"`
	Retention      Duration `json:"retention"`
	TimeoutSweep   *bool    `json:"timeout_sweep,omitempty"`
}

// TimeoutSweepEnabled defaults to true when unset.
func (c ReclaimerConfig) TimeoutSweepEnabled() bool {
	return c.TimeoutSweep == nil || *c.TimeoutSweep
}

// FleetConfig is the configuration of the fleet control-plane process.
type FleetConfig struct {
	ListenAddr     string                `json:"listen_addr"`
	Storage        string                `json:"storage"`
	APIKeyHashing  string                `json:"api_key_hashing"`
	StaleThreshold Duration              `json:"stale_threshold"`
	Logging        *logger.Config        `json:"logging"`
	Metrics        *logger.MetricsConfig `json:"metrics,omitempty"`
	CNPG           *CNPGDatabase         `json:"cnpg,omitempty"`
	NATS           *NATSConfig           `json:"nats,omitempty"`
	Events         *EventsConfig         `json:"events,omitempty"`
	Dispatch       DispatchConfig        `json:"dispatch"`
	Reclaimer      ReclaimerConfig       `json:"reclaimer"`
}

// ApplyDefaults fills every unset field with its operational default.
func (c *FleetConfig) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	if c.Storage == "" {
		c.Storage = StorageCNPG
	}

	if c.APIKeyHashing == "" {
		c.APIKeyHashing = APIKeyHashingNone
	}

	if c.StaleThreshold == 0 {
		c.StaleThreshold = Duration(DefaultStaleThreshold)
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	if c.Dispatch.Timeout == 0 {
		c.Dispatch.Timeout = Duration(DefaultDispatchTimeout)
	}

	if c.Reclaimer.Interval == 0 {
		c.Reclaimer.Interval = Duration(DefaultReclaimInterval)
	}

	if c.Reclaimer.RunningTimeout == 0 {
		c.Reclaimer.RunningTimeout = Duration(DefaultRunningTimeout)
	}

	if c.Reclaimer.Retention == 0 {
		c.Reclaimer.Retention = Duration(DefaultSessionRetention)
	}

	if c.Events != nil && c.Events.Enabled {
		if c.Events.StreamName == "" {
			c.Events.StreamName = DefaultEventsStream
		}

		if len(c.Events.Subjects) == 0 {
			c.Events.Subjects = []string{DefaultEventsSubject}
		}
	}
}

// Validate checks a defaulted configuration.
func (c *FleetConfig) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageCNPG:
		if c.CNPG == nil {
			return errCNPGRequired
		}

		if c.CNPG.Host == "" {
			return errCNPGHostRequired
		}

		if c.CNPG.Database == "" {
			return errCNPGDatabaseRequired
		}
	default:
		return fmt.Errorf("%w, got %q", errUnknownStorage, c.Storage)
	}

	if c.APIKeyHashing != APIKeyHashingNone && c.APIKeyHashing != APIKeyHashingSHA256 {
		return fmt.Errorf("%w, got %q", errUnknownAPIKeyHashing, c.APIKeyHashing)
	}

	if c.Reclaimer.Interval < 0 {
		return errReclaimerIntervalNeg
	}

	if c.Reclaimer.Retention < c.Reclaimer.RunningTimeout {
		return errReclaimerRetentionOrder
	}

	if c.Events != nil && c.Events.Enabled {
		if c.NATS == nil {
			return errNATSRequired
		}

		if c.NATS.URL == "" {
			return errNATSURLRequired
		}
	}

	return nil
}
