// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLegacyConfigFlags(t *testing.T) {
	config := &LegacyConfig{}
	err := ParseConfig(config, []string{
		"--speed-limit", "1000",
		"--initial-backlog", "5000",
		"--export-csv",
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1000), config.SpeedLimit)
	require.Equal(t, uint64(5000), config.InitialBacklog)
	require.True(t, config.ShouldExportCSV())
}

func TestParseConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"speed-limit": 2000, "surge-gas": 42}`), 0600))

	config := &LegacyConfig{}
	err := ParseConfig(config, []string{
		"--config-file", path,
		"--speed-limit", "3000", // flags override the file
	})
	require.NoError(t, err)
	require.Equal(t, uint64(3000), config.SpeedLimit)
	require.Equal(t, uint64(42), config.SurgeDemand)
}

func TestConstraintsConfigValidation(t *testing.T) {
	config := &ConstraintsConfig{
		CommonConfig: CommonConfig{SurgeRamp: 10, SurgeDuration: 30},
		Targets:      []int64{100, 200},
		Windows:      []int64{60},
	}
	require.ErrorContains(t, config.Validate(), "mismatch number of targets")

	config.Windows = []int64{60, 120}
	require.NoError(t, config.Validate())

	config.Backlogs = []int64{1, 2, 3}
	require.ErrorContains(t, config.Validate(), "too many initial backlogs")
}

func TestConstraintsConversion(t *testing.T) {
	config := &ConstraintsConfig{
		Targets:  []int64{100, 200},
		Windows:  []int64{60, 120},
		Backlogs: []int64{500},
	}
	params := config.Constraints()
	require.Len(t, params, 2)
	require.Equal(t, uint64(100), params[0].TargetPerSec)
	require.Equal(t, uint64(500), params[0].Backlog)
	require.Equal(t, uint64(120), params[1].AdjustmentWindowSecs)
	require.Equal(t, uint64(0), params[1].Backlog)
	require.Equal(t, computationResourceId, params[0].Resources[0].Resource)
}

func TestDemandSchedule(t *testing.T) {
	config := &CommonConfig{SurgeDemand: 100, SurgeDuration: 30, SurgeRamp: 10}
	require.Equal(t, uint64(0), demandAt(0, config))
	require.Equal(t, uint64(50), demandAt(5, config))
	require.Equal(t, uint64(100), demandAt(10, config))
	require.Equal(t, uint64(100), demandAt(39, config))
	require.Equal(t, uint64(50), demandAt(45, config))
	require.Equal(t, uint64(0), demandAt(50, config))
	require.Equal(t, uint64(0), demandAt(1000, config))
}
