// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package pricer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
)

func computationConstraint(target, window, backlog uint64) ConstraintParams {
	return ConstraintParams{
		Resources:            []WeightedResource{{Resource: uint8(multigas.ResourceKindComputation), Weight: 1}},
		AdjustmentWindowSecs: window,
		TargetPerSec:         target,
		Backlog:              backlog,
	}
}

func TestReplaceSwapsWholeSet(t *testing.T) {
	t.Parallel()

	var set ConstraintSet
	require.True(t, set.Empty())

	first := []ConstraintParams{computationConstraint(100, 60, 0)}
	require.NoError(t, set.Replace(first))
	require.Equal(t, 1, set.Len())
	require.Equal(t, first, set.Params())

	second := []ConstraintParams{
		{
			Resources:            []WeightedResource{{Resource: uint8(multigas.ResourceKindStorageAccess), Weight: 2}},
			AdjustmentWindowSecs: 30,
			TargetPerSec:         50,
		},
		computationConstraint(200, 120, 500),
	}
	require.NoError(t, set.Replace(second))
	require.Equal(t, 2, set.Len())
	require.Equal(t, second, set.Params())

	require.NoError(t, set.Replace(nil))
	require.True(t, set.Empty())
}

func TestReplaceRejectsWholeSet(t *testing.T) {
	t.Parallel()

	var set ConstraintSet
	prior := []ConstraintParams{computationConstraint(100, 60, 0)}
	require.NoError(t, set.Replace(prior))

	// a single bad constraint rejects the whole submission
	err := set.Replace([]ConstraintParams{
		computationConstraint(50, 30, 0),
		computationConstraint(0, 60, 0),
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "target must be positive")
	require.Equal(t, prior, set.Params())
}

func TestReplaceRejectsTooManyConstraints(t *testing.T) {
	t.Parallel()

	params := make([]ConstraintParams, MaxConstraints+1)
	for i := range params {
		params[i] = computationConstraint(100, 60, 0)
	}
	var set ConstraintSet
	err := set.Replace(params)
	require.ErrorContains(t, err, "too many constraints")
	var invalid *InvalidConstraintError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, MaxConstraints, invalid.Index)

	require.NoError(t, set.Replace(params[:MaxConstraints]))
	require.Equal(t, MaxConstraints, set.Len())
}

func TestTotalExponentSumsConstraints(t *testing.T) {
	t.Parallel()

	var set ConstraintSet
	require.NoError(t, set.Replace([]ConstraintParams{
		computationConstraint(100, 60, 3000), // exponent 0.5
		{
			Resources:            []WeightedResource{{Resource: uint8(multigas.ResourceKindStorageAccess), Weight: 1}},
			AdjustmentWindowSecs: 10,
			TargetPerSec:         100,
			Backlog:              250, // exponent 0.25
		},
	}))
	require.Equal(t, arbmath.Bips(7500), set.TotalExponent())
}

func TestBaseFeeForResourceTakesMax(t *testing.T) {
	t.Parallel()

	minBaseFee := big.NewInt(100_000_000)
	var set ConstraintSet
	require.NoError(t, set.Replace([]ConstraintParams{
		{
			Resources: []WeightedResource{
				{Resource: uint8(multigas.ResourceKindComputation), Weight: 1},
				{Resource: uint8(multigas.ResourceKindStorageAccess), Weight: 1},
			},
			AdjustmentWindowSecs: 60,
			TargetPerSec:         100,
			Backlog:              3000,
		},
		{
			Resources:            []WeightedResource{{Resource: uint8(multigas.ResourceKindComputation), Weight: 1}},
			AdjustmentWindowSecs: 60,
			TargetPerSec:         100,
			Backlog:              6000,
		},
	}))

	computationFee := set.BaseFeeForResource(multigas.ResourceKindComputation, minBaseFee)
	storageFee := set.BaseFeeForResource(multigas.ResourceKindStorageAccess, minBaseFee)
	unreferencedFee := set.BaseFeeForResource(multigas.ResourceKindL2Calldata, minBaseFee)

	// the more congested constraint prices computation
	require.True(t, arbmath.BigGreaterThan(computationFee, storageFee))
	require.True(t, arbmath.BigGreaterThan(storageFee, minBaseFee))
	require.Equal(t, minBaseFee, unreferencedFee)

	fees := set.BaseFees(minBaseFee)
	require.Equal(t, computationFee, fees[multigas.ResourceKindComputation])
	require.Equal(t, storageFee, fees[multigas.ResourceKindStorageAccess])
	require.Equal(t, minBaseFee, fees[multigas.ResourceKindHistoryGrowth])
}

func TestBacklogAccountingAcrossSet(t *testing.T) {
	t.Parallel()

	var set ConstraintSet
	require.NoError(t, set.Replace([]ConstraintParams{
		computationConstraint(100, 60, 0),
		{
			Resources:            []WeightedResource{{Resource: uint8(multigas.ResourceKindStorageAccess), Weight: 3}},
			AdjustmentWindowSecs: 60,
			TargetPerSec:         50,
		},
	}))

	set.AddToBacklogs(multigas.MultiGasFromPairs(
		multigas.Pair{Kind: multigas.ResourceKindComputation, Amount: 200},
		multigas.Pair{Kind: multigas.ResourceKindStorageAccess, Amount: 100},
	))
	constraints := set.Current()
	require.Equal(t, uint64(200), constraints[0].Backlog)
	require.Equal(t, uint64(300), constraints[1].Backlog)

	set.RemoveFromBacklogs(1)
	constraints = set.Current()
	require.Equal(t, uint64(100), constraints[0].Backlog)
	require.Equal(t, uint64(250), constraints[1].Backlog)

	// draining past zero floors every backlog
	set.RemoveFromBacklogs(100)
	for _, constraint := range set.Current() {
		require.Equal(t, uint64(0), constraint.Backlog)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	t.Parallel()

	var set ConstraintSet
	require.NoError(t, set.Replace([]ConstraintParams{computationConstraint(100, 60, 0)}))

	snapshot := set.Current()
	snapshot[0].Backlog = 12345
	require.Equal(t, uint64(0), set.Current()[0].Backlog)
}
