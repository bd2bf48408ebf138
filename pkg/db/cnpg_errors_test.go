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
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "daemons_api_key_key"})

	constraint, ok := IsUniqueViolation(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "daemons_api_key_key", constraint)

	_, ok = IsUniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = IsUniqueViolation(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsInvalidTextRepresentation(t *testing.T) {
	assert.True(t, IsInvalidTextRepresentation(fmt.Errorf("scan: %w", &pgconn.PgError{Code: "22P02"})))
	assert.False(t, IsInvalidTextRepresentation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsInvalidTextRepresentation(nil))
}
