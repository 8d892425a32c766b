// Copyright 2025 go-multicore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 4, cfg.CoreCount)
	require.Equal(t, 99, cfg.MatrixSize)
	require.Equal(t, uint64(50_000_000), cfg.ClockHz)
	require.Equal(t, WaitBlock, cfg.Wait)
	require.Equal(t, RemainderTruncate, cfg.Remainder)
	require.NoError(t, cfg.Validate())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MC_CORE_COUNT", "2")
	t.Setenv("MC_MATRIX_SIZE", "4")
	t.Setenv("MC_CLOCK_HZ", "1000")
	t.Setenv("MC_NO_PIN", "1")
	cfg, err := ConfigFromEnv(DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 2, cfg.CoreCount)
	require.Equal(t, 4, cfg.MatrixSize)
	require.Equal(t, uint64(1000), cfg.ClockHz)
	require.False(t, cfg.Pin)

	t.Setenv("MC_CORE_COUNT", "two")
	_, err = ConfigFromEnv(DefaultConfig())
	require.ErrorContains(t, err, "MC_CORE_COUNT")
}

func TestValidate(t *testing.T) {
	base := DefaultConfig()
	testCases := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"zero cores", func(c *Config) { c.CoreCount = 0 }, "CoreCount"},
		{"zero size", func(c *Config) { c.MatrixSize = 0 }, "MatrixSize"},
		{"zero clock", func(c *Config) { c.ClockHz = 0 }, "ClockHz"},
		{"bounded without timeout", func(c *Config) { c.Wait = WaitBounded }, "Timeout"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.modify(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.errMsg)
		})
	}

	cfg := base
	cfg.Wait, cfg.Timeout = WaitBounded, time.Second
	require.NoError(t, cfg.Validate())
}

func TestSecondaries(t *testing.T) {
	cfg := Config{CoreCount: 4}
	require.Equal(t, []CoreID{1, 2, 3}, cfg.Secondaries())
	cfg.CoreCount = 1
	require.Empty(t, cfg.Secondaries())
}

func TestParseFlags(t *testing.T) {
	for _, m := range []WaitMode{WaitBlock, WaitPoll, WaitBounded} {
		got, err := ParseWaitMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
	_, err := ParseWaitMode("spin")
	require.Error(t, err)

	for _, r := range []Remainder{RemainderTruncate, RemainderSpread} {
		got, err := ParseRemainder(r.String())
		require.NoError(t, err)
		require.Equal(t, r, got)
	}
	_, err = ParseRemainder("round")
	require.Error(t, err)
}

func TestRoles(t *testing.T) {
	require.Equal(t, RolePrimary, RoleOf(Primary))
	require.Equal(t, RoleSecondary, RoleOf(3))
	require.Equal(t, "core 3", CoreID(3).String())
}

func TestPlatformName(t *testing.T) {
	require.NotEmpty(t, VectorName())
	require.Contains(t, PlatformName(), VectorName())
}
