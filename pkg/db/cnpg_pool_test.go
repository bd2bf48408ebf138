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

package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/daemonfleet/pkg/models"
)

func fleetTLSConfig() *models.TLSConfig {
	return &models.TLSConfig{
		CertFile: "client.crt",
		KeyFile:  "client.key",
		CAFile:   "ca.crt",
	}
}

func TestBuildCNPGConnURL_DefaultsSSLModeDisableWithoutTLS(t *testing.T) {
	t.Parallel()

	u, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:     "cnpg-rw",
		Database: "fleet",
		Username: "fleet",
		Password: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "cnpg-rw:5432", u.Host)
	assert.Equal(t, "/fleet", u.Path)

	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "secret", pass)
}

func TestBuildCNPGConnURL_DefaultsSSLModeVerifyFullWithTLS(t *testing.T) {
	t.Parallel()

	u, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:     "cnpg-rw",
		Port:     5433,
		Database: "fleet",
		TLS:      fleetTLSConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, "verify-full", u.Query().Get("sslmode"))
	assert.Equal(t, "cnpg-rw:5433", u.Host)
}

func TestBuildCNPGConnURL_RejectsTLSWithSSLModeDisable(t *testing.T) {
	t.Parallel()

	_, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:     "cnpg-rw",
		Database: "fleet",
		SSLMode:  "disable",
		TLS:      fleetTLSConfig(),
	})
	assert.True(t, errors.Is(err, ErrCNPGTLSDisabled), "error=%v", err)
}

func TestBuildCNPGConnURL_TLSPathsResolveViaCertDir(t *testing.T) {
	t.Parallel()

	u, err := buildCNPGConnURL(&models.CNPGDatabase{
		Host:            "cnpg-rw",
		Database:        "fleet",
		CertDir:         "/etc/serviceradar/cnpg",
		ApplicationName: "daemon-fleet",
		TLS:             fleetTLSConfig(),
	})
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "/etc/serviceradar/cnpg/client.crt", q.Get("sslcert"))
	assert.Equal(t, "/etc/serviceradar/cnpg/client.key", q.Get("sslkey"))
	assert.Equal(t, "/etc/serviceradar/cnpg/ca.crt", q.Get("sslrootcert"))
	assert.Equal(t, "daemon-fleet", q.Get("application_name"))
}

func TestResolveCNPGSSLMode_UsesRuntimeParamsFallback(t *testing.T) {
	t.Parallel()

	got, err := resolveCNPGSSLMode(&models.CNPGDatabase{
		ExtraRuntimeParams: map[string]string{"sslmode": "Verify-CA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "verify-ca", got)
}

func TestBuildCNPGTLSConfig_NilWithoutTLS(t *testing.T) {
	t.Parallel()

	cfg, err := buildCNPGTLSConfig(&models.CNPGDatabase{Host: "cnpg-rw"})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestBuildCNPGTLSConfig_RequiresAllFiles(t *testing.T) {
	t.Parallel()

	_, err := buildCNPGTLSConfig(&models.CNPGDatabase{
		Host: "cnpg-rw",
		TLS:  &models.TLSConfig{CertFile: "client.crt"},
	})
	assert.ErrorIs(t, err, ErrCNPGLackingTLSFiles)
}

func TestNewCNPGPool_NilConfig(t *testing.T) {
	t.Parallel()

	pool, err := NewCNPGPool(context.Background(), nil, nil)
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, ErrCNPGConfigMissing)
}
