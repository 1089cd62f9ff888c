// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
	"github.com/offchainlabs/gaspricer/pricer"
)

func TestApplyGasDelta(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint64(50), applyGasDelta(100, 50))
	require.Equal(t, uint64(0), applyGasDelta(100, 200))
	require.Equal(t, uint64(150), applyGasDelta(100, -50))
	require.Equal(t, uint64(math.MaxUint64), applyGasDelta(math.MaxUint64-10, -50))
}

func TestLegacyModelUpdate(t *testing.T) {
	t.Parallel()

	ps := openTestState(t)
	require.NoError(t, ps.SetSpeedLimitPerSecond(1000))
	require.NoError(t, ps.SetPricingInertia(10))
	require.NoError(t, ps.SetBacklogTolerance(2))

	// usage is charged as negative gas
	require.NoError(t, ps.AddToGasPool(-5000))
	backlog, err := ps.GasBacklog()
	require.NoError(t, err)
	require.Equal(t, uint64(5000), backlog)

	// one second pays off the speed limit and reprices
	ps.UpdatePricingModel(1)
	backlog, err = ps.GasBacklog()
	require.NoError(t, err)
	require.Equal(t, uint64(4000), backlog)

	// backlog above tolerance*speedLimit prices above the floor
	baseFee, err := ps.BaseFeeWei()
	require.NoError(t, err)
	minBaseFee, err := ps.MinBaseFeeWei()
	require.NoError(t, err)
	require.True(t, arbmath.BigGreaterThan(baseFee, minBaseFee))

	// draining below the tolerance returns the fee to the floor
	ps.UpdatePricingModel(10)
	baseFee, err = ps.BaseFeeWei()
	require.NoError(t, err)
	require.Equal(t, minBaseFee, baseFee)
}

func TestSingleConstraintModelUpdate(t *testing.T) {
	t.Parallel()

	ps := openTestState(t)
	require.NoError(t, ps.AddGasConstraint(100, 60, 0))

	// 2x-target demand for one window
	for i := 0; i < 60; i++ {
		require.NoError(t, ps.AddToGasPool(-200))
		ps.UpdatePricingModel(1)
	}
	backlog, err := ps.OpenGasConstraintAt(0).Backlog()
	require.NoError(t, err)
	require.Equal(t, uint64(6000), backlog)

	baseFee, err := ps.BaseFeeWei()
	require.NoError(t, err)
	minBaseFee, err := ps.MinBaseFeeWei()
	require.NoError(t, err)
	expected := float64(minBaseFee.Int64()) * math.E
	require.InEpsilon(t, expected, float64(baseFee.Int64()), 0.01)

	// the legacy backlog is untouched while constraints are active
	legacyBacklog, err := ps.GasBacklog()
	require.NoError(t, err)
	require.Equal(t, uint64(0), legacyBacklog)
}

func TestMultiConstraintModelUpdate(t *testing.T) {
	t.Parallel()

	ps := openTestState(t)
	require.NoError(t, ps.SetMultiGasConstraints([]pricer.ConstraintParams{
		{
			Resources: []pricer.WeightedResource{
				{Resource: uint8(multigas.ResourceKindComputation), Weight: 1},
			},
			AdjustmentWindowSecs: 60,
			TargetPerSec:         100,
		},
		{
			Resources: []pricer.WeightedResource{
				{Resource: uint8(multigas.ResourceKindStorageAccess), Weight: 2},
			},
			AdjustmentWindowSecs: 60,
			TargetPerSec:         100,
		},
	}))

	// charge only computation at 2x target for one window
	for i := 0; i < 60; i++ {
		require.NoError(t, ps.ApplyMultiGasUsage(multigas.ComputationGas(200)))
		ps.UpdatePricingModel(1)
	}

	minBaseFee, err := ps.MinBaseFeeWei()
	require.NoError(t, err)

	computationFee, err := ps.MultiGasFees().GetNextBlockFee(multigas.ResourceKindComputation)
	require.NoError(t, err)
	expected := float64(minBaseFee.Int64()) * math.E
	require.InEpsilon(t, expected, float64(computationFee.Int64()), 0.01)

	// the storage constraint saw no usage so its resource stays at the floor
	storageFee, err := ps.MultiGasFees().GetNextBlockFee(multigas.ResourceKindStorageAccess)
	require.NoError(t, err)
	require.Equal(t, minBaseFee, storageFee)

	// current-block fees lag until the rotation
	currentFee, err := ps.MultiGasFees().GetCurrentBlockFee(multigas.ResourceKindComputation)
	require.NoError(t, err)
	require.Equal(t, int64(0), currentFee.Int64())

	require.NoError(t, ps.MultiGasFees().CommitNextToCurrent())
	currentFee, err = ps.MultiGasFees().GetCurrentBlockFee(multigas.ResourceKindComputation)
	require.NoError(t, err)
	require.Equal(t, computationFee, currentFee)
}

func TestMultiGasUsageCollapsesUnderLegacy(t *testing.T) {
	t.Parallel()

	ps := openTestState(t)
	require.NoError(t, ps.ApplyMultiGasUsage(multigas.MultiGasFromPairs(
		multigas.Pair{Kind: multigas.ResourceKindComputation, Amount: 70},
		multigas.Pair{Kind: multigas.ResourceKindStorageAccess, Amount: 30},
	)))
	backlog, err := ps.GasBacklog()
	require.NoError(t, err)
	require.Equal(t, uint64(100), backlog)
}

func TestGasPoolUpdateCost(t *testing.T) {
	t.Parallel()

	ps := openTestState(t)
	legacyCost := ps.GasPoolUpdateCost()
	require.NotZero(t, legacyCost)

	require.NoError(t, ps.SetMultiGasConstraints([]pricer.ConstraintParams{
		{
			Resources: []pricer.WeightedResource{
				{Resource: uint8(multigas.ResourceKindComputation), Weight: 1},
			},
			AdjustmentWindowSecs: 60,
			TargetPerSec:         100,
		},
	}))
	require.Greater(t, ps.GasPoolUpdateCost(), legacyCost)
}
