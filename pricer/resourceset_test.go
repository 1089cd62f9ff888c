// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package pricer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/gaspricer/multigas"
)

func TestWeightedResourceSet(t *testing.T) {
	t.Parallel()

	set := NewWeightedResourceSet()
	require.True(t, set.Empty())
	require.False(t, set.HasResource(multigas.ResourceKindComputation))

	set = set.
		WithResource(multigas.ResourceKindComputation, 2).
		WithResource(multigas.ResourceKindL2Calldata, 5)
	require.False(t, set.Empty())
	require.True(t, set.HasResource(multigas.ResourceKindComputation))
	require.Equal(t, ResourceWeight(2), set.Weight(multigas.ResourceKindComputation))
	require.Equal(t, ResourceWeight(0), set.Weight(multigas.ResourceKindStorageAccess))

	// setting a weight back to zero excludes the resource again
	set = set.WithResource(multigas.ResourceKindL2Calldata, 0)
	require.False(t, set.HasResource(multigas.ResourceKindL2Calldata))
}

func TestWeightedResourceSetIteration(t *testing.T) {
	t.Parallel()

	set := NewWeightedResourceSet().
		WithResource(multigas.ResourceKindL2Calldata, 3).
		WithResource(multigas.ResourceKindComputation, 1)

	var kinds []multigas.ResourceKind
	var weights []ResourceWeight
	set.All()(func(kind multigas.ResourceKind, weight ResourceWeight) bool {
		kinds = append(kinds, kind)
		weights = append(weights, weight)
		return true
	})
	// iteration is in kind order regardless of insertion order
	require.Equal(t, []multigas.ResourceKind{
		multigas.ResourceKindComputation,
		multigas.ResourceKindL2Calldata,
	}, kinds)
	require.Equal(t, []ResourceWeight{1, 3}, weights)
}

func TestWeightedResourceSetValueSemantics(t *testing.T) {
	t.Parallel()

	a := NewWeightedResourceSet().WithResource(multigas.ResourceKindComputation, 1)
	b := a
	b = b.WithResource(multigas.ResourceKindComputation, 7)
	require.Equal(t, ResourceWeight(1), a.Weight(multigas.ResourceKindComputation))
	require.Equal(t, ResourceWeight(7), b.Weight(multigas.ResourceKindComputation))
}
