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
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/daemonfleet/pkg/logger"
)

const cnpgMigrationsTable = "fleet_schema_migrations"

//go:embed migrations/*.up.sql
var cnpgMigrationsFS embed.FS

// RunCNPGMigrations applies every embedded migration not yet recorded.
func RunCNPGMigrations(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	if pool == nil {
		return nil
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("cnpg migrations: acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, cnpgMigrationsTable)); err != nil {
		return fmt.Errorf("cnpg migrations: create tracking table: %w", err)
	}

	applied := make(map[string]struct{})

	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version FROM %s`, cnpgMigrationsTable))
	if err != nil {
		return fmt.Errorf("cnpg migrations: list applied versions: %w", err)
	}

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("cnpg migrations: scan applied version: %w", err)
		}
		applied[version] = struct{}{}
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("cnpg migrations: iterate applied versions: %w", err)
	}

	filenames, err := migrationFilenames(cnpgMigrationsFS)
	if err != nil {
		return err
	}

	for _, name := range filenames {
		version := extractVersion(name)
		if _, ok := applied[version]; ok {
			continue
		}

		log.Info().Str("migration", name).Msg("applying CNPG migration")

		content, err := cnpgMigrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("cnpg migrations: read %s: %w", name, err)
		}

		// Without arguments pgx uses the simple protocol, which accepts a
		// multi-statement script in one round trip.
		if _, err := conn.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("cnpg migrations: %s failed: %w", name, err)
		}

		if _, err := conn.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, cnpgMigrationsTable), version); err != nil {
			return fmt.Errorf("cnpg migrations: record %s: %w", name, err)
		}

		log.Info().Str("migration", name).Msg("CNPG migration complete")
	}

	return nil
}

// migrationFilenames lists .up.sql files in apply order.
func migrationFilenames(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("cnpg migrations: read embedded migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	return filenames, nil
}

func extractVersion(filename string) string {
	version, _, _ := strings.Cut(filename, "_")

	return version
}
