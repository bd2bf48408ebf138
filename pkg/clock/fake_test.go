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

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeAdvanceFiresTicker(t *testing.T) {
	start := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	ticker := fake.Ticker(time.Minute)
	defer ticker.Stop()

	fake.Advance(30 * time.Second)
	select {
	case <-ticker.Chan():
		t.Fatal("ticker fired before its period elapsed")
	default:
	}

	fake.Advance(30 * time.Second)
	select {
	case tick := <-ticker.Chan():
		assert.Equal(t, start.Add(time.Minute), tick)
	default:
		t.Fatal("ticker did not fire after its period elapsed")
	}

	assert.Equal(t, start.Add(time.Minute), fake.Now())
}

func TestFakeStopRemovesTicker(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))

	ticker := fake.Ticker(time.Second)
	require.Equal(t, 1, fake.TickerCount())

	ticker.Stop()
	assert.Equal(t, 0, fake.TickerCount())
}
