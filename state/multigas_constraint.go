// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package state

import (
	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
	"github.com/offchainlabs/gaspricer/pricer"
	"github.com/offchainlabs/gaspricer/storage"
)

// Fixed flat layout for a multi-gas constraint:
// [0] target (uint64)
// [1] adjustmentWindow (uint64)
// [2] backlog (uint64)
// [3..3+NumResourceKind-1] weighted resources (uint64 each)

const (
	multiGasTargetOffset uint64 = iota
	multiGasAdjustmentWindowOffset
	multiGasBacklogOffset
	multiGasWeightsBaseOffset
)

// MultiGasConstraint stores a pricing constraint that combines several
// gas resource types, each with a corresponding weight (0 = unused).
type MultiGasConstraint struct {
	target           storage.StorageBackedUint64
	adjustmentWindow storage.StorageBackedUint64
	backlog          storage.StorageBackedUint64
	weights          [multigas.NumResourceKind]storage.StorageBackedUint64
}

// OpenMultiGasConstraint opens or initializes a constraint in the given storage subspace.
func OpenMultiGasConstraint(sto *storage.Storage) *MultiGasConstraint {
	c := &MultiGasConstraint{
		target:           sto.OpenStorageBackedUint64(multiGasTargetOffset),
		adjustmentWindow: sto.OpenStorageBackedUint64(multiGasAdjustmentWindowOffset),
		backlog:          sto.OpenStorageBackedUint64(multiGasBacklogOffset),
	}
	for i := uint64(0); i < uint64(multigas.NumResourceKind); i++ {
		c.weights[i] = sto.OpenStorageBackedUint64(multiGasWeightsBaseOffset + i)
	}
	return c
}

// Clear resets the constraint and all weighted resources.
func (c *MultiGasConstraint) Clear() error {
	if err := c.target.Clear(); err != nil {
		return err
	}
	if err := c.adjustmentWindow.Clear(); err != nil {
		return err
	}
	if err := c.backlog.Clear(); err != nil {
		return err
	}
	for i := 0; i < int(multigas.NumResourceKind); i++ {
		if err := c.weights[i].Clear(); err != nil {
			return err
		}
	}
	return nil
}

func (c *MultiGasConstraint) Target() (uint64, error) {
	return c.target.Get()
}

func (c *MultiGasConstraint) SetTarget(v uint64) error {
	return c.target.Set(v)
}

func (c *MultiGasConstraint) AdjustmentWindow() (uint64, error) {
	return c.adjustmentWindow.Get()
}

func (c *MultiGasConstraint) SetAdjustmentWindow(v uint64) error {
	return c.adjustmentWindow.Set(v)
}

func (c *MultiGasConstraint) Backlog() (uint64, error) {
	return c.backlog.Get()
}

func (c *MultiGasConstraint) SetBacklog(v uint64) error {
	return c.backlog.Set(v)
}

func (c *MultiGasConstraint) ResourceWeight(kind uint8) (uint64, error) {
	if _, err := multigas.CheckResourceKind(kind); err != nil {
		return 0, err
	}
	return c.weights[kind].Get()
}

func (c *MultiGasConstraint) SetResourceWeight(kind uint8, weight uint64) error {
	if _, err := multigas.CheckResourceKind(kind); err != nil {
		return err
	}
	return c.weights[kind].Set(weight)
}

// ResourcesWithWeights returns the non-zero weights by resource kind.
func (c *MultiGasConstraint) ResourcesWithWeights() (map[multigas.ResourceKind]uint64, error) {
	result := make(map[multigas.ResourceKind]uint64)
	for i := uint8(0); i < uint8(multigas.NumResourceKind); i++ {
		weight, err := c.weights[i].Get()
		if err != nil {
			return nil, err
		}
		if weight != 0 {
			result[multigas.ResourceKind(i)] = weight
		}
	}
	return result, nil
}

// AddToBacklog charges the constraint for the gas used, weighting each
// resource's usage by its configured weight.
func (c *MultiGasConstraint) AddToBacklog(gasUsed *multigas.MultiGas) error {
	backlog, err := c.backlog.Get()
	if err != nil {
		return err
	}
	for i := uint8(0); i < uint8(multigas.NumResourceKind); i++ {
		weight, err := c.weights[i].Get()
		if err != nil {
			return err
		}
		if weight == 0 {
			continue
		}
		weighted := arbmath.SaturatingUMul(weight, gasUsed.Get(multigas.ResourceKind(i)))
		backlog = arbmath.SaturatingUAdd(backlog, weighted)
	}
	return c.backlog.Set(backlog)
}

// ResourceWeightedBacklog returns the portion of the total backlog attributed
// to the given resource kind, proportional to its configured weight. A kind
// with zero weight contributes nothing.
func (c *MultiGasConstraint) ResourceWeightedBacklog(kind uint8) (uint64, error) {
	if _, err := multigas.CheckResourceKind(kind); err != nil {
		return 0, err
	}
	backlog, err := c.backlog.Get()
	if err != nil {
		return 0, err
	}
	if backlog == 0 {
		return 0, nil
	}
	weight, err := c.weights[kind].Get()
	if err != nil {
		return 0, err
	}
	if weight == 0 {
		return 0, nil
	}
	var totalWeight uint64
	for i := uint8(0); i < uint8(multigas.NumResourceKind); i++ {
		w, err := c.weights[i].Get()
		if err != nil {
			return 0, err
		}
		totalWeight = arbmath.SaturatingUAdd(totalWeight, w)
	}
	return arbmath.SaturatingUMul(backlog, weight) / totalWeight, nil
}

// ComputeExponent returns backlog / (target * adjustmentWindow) in bips.
func (c *MultiGasConstraint) ComputeExponent() (arbmath.Bips, error) {
	loaded, err := c.Load()
	if err != nil {
		return 0, err
	}
	return loaded.Exponent(), nil
}

// Load materializes the stored constraint as an in-memory value.
func (c *MultiGasConstraint) Load() (pricer.ResourceConstraint, error) {
	target, err := c.target.Get()
	if err != nil {
		return pricer.ResourceConstraint{}, err
	}
	adjustmentWindow, err := c.adjustmentWindow.Get()
	if err != nil {
		return pricer.ResourceConstraint{}, err
	}
	backlog, err := c.backlog.Get()
	if err != nil {
		return pricer.ResourceConstraint{}, err
	}
	resources := pricer.NewWeightedResourceSet()
	for i := uint8(0); i < uint8(multigas.NumResourceKind); i++ {
		weight, err := c.weights[i].Get()
		if err != nil {
			return pricer.ResourceConstraint{}, err
		}
		if weight != 0 {
			resources = resources.WithResource(multigas.ResourceKind(i), pricer.ResourceWeight(weight))
		}
	}
	return pricer.ResourceConstraint{
		Resources:            resources,
		TargetPerSec:         target,
		AdjustmentWindowSecs: adjustmentWindow,
		Backlog:              backlog,
	}, nil
}

// Store writes an in-memory constraint into storage.
func (c *MultiGasConstraint) Store(constraint pricer.ResourceConstraint) error {
	if err := c.target.Set(constraint.TargetPerSec); err != nil {
		return err
	}
	if err := c.adjustmentWindow.Set(constraint.AdjustmentWindowSecs); err != nil {
		return err
	}
	if err := c.backlog.Set(constraint.Backlog); err != nil {
		return err
	}
	for i := uint8(0); i < uint8(multigas.NumResourceKind); i++ {
		kind := multigas.ResourceKind(i)
		if err := c.weights[i].Set(uint64(constraint.Resources.Weight(kind))); err != nil {
			return err
		}
	}
	return nil
}
