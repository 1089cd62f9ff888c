// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

// The pricer package tracks multi-dimensional gas usage to apply constraint-based pricing.
package pricer

import (
	"github.com/offchainlabs/gaspricer/multigas"
)

// ResourceWeight is the multiplier applied to a resource's gas usage when
// accumulating backlog for a constraint.
type ResourceWeight uint64

// WeightedResourceSet maps each resource kind to its weight within one constraint.
// A zero weight excludes the resource from the constraint's accounting.
// This type has value semantics so sets can be compared and copied freely.
type WeightedResourceSet struct {
	weights [multigas.NumResourceKind]ResourceWeight
}

func NewWeightedResourceSet() WeightedResourceSet {
	return WeightedResourceSet{}
}

// WithResource returns a copy of the set with the given resource's weight replaced.
func (s WeightedResourceSet) WithResource(kind multigas.ResourceKind, weight ResourceWeight) WeightedResourceSet {
	s.weights[kind] = weight
	return s
}

// HasResource reports whether the resource contributes to the constraint.
func (s WeightedResourceSet) HasResource(kind multigas.ResourceKind) bool {
	return s.weights[kind] != 0
}

func (s WeightedResourceSet) Weight(kind multigas.ResourceKind) ResourceWeight {
	return s.weights[kind]
}

// Empty reports whether no resource has a non-zero weight.
func (s WeightedResourceSet) Empty() bool {
	return s == WeightedResourceSet{}
}

// All iterates over the resources with non-zero weights in kind order.
func (s WeightedResourceSet) All() func(yield func(multigas.ResourceKind, ResourceWeight) bool) {
	return func(yield func(multigas.ResourceKind, ResourceWeight) bool) {
		for kind := multigas.ResourceKindUnknown; kind < multigas.NumResourceKind; kind++ {
			if s.weights[kind] == 0 {
				continue
			}
			if !yield(kind, s.weights[kind]) {
				return
			}
		}
	}
}
