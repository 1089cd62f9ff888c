// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package state

import (
	"fmt"
	"math/big"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
	"github.com/offchainlabs/gaspricer/pricer"
	"github.com/offchainlabs/gaspricer/storage"
)

// applyGasDelta grows the backlog if the gas is negative and pays off if the gas is positive.
func applyGasDelta(backlog uint64, gas int64) uint64 {
	if gas > 0 {
		return arbmath.SaturatingUSub(backlog, uint64(gas))
	} else {
		return arbmath.SaturatingUAdd(backlog, uint64(-gas))
	}
}

// AddToGasPool credits (positive) or charges (negative) gas against the
// backlog of whichever model is active.
func (ps *PricingState) AddToGasPool(gas int64) error {
	model, err := ps.GasModelToUse()
	if err != nil {
		return err
	}
	switch model {
	case GasModelMultiGasConstraints:
		// uniform usage across the aggregate; use ApplyMultiGasUsage for
		// per-resource charging
		return ps.addToGasPoolWithGasConstraints(gas, ps.multiGasConstraints, openMultiBacklog)
	case GasModelSingleGasConstraints:
		return ps.addToGasPoolWithGasConstraints(gas, ps.gasConstraints, openSingleBacklog)
	default:
		return ps.addToGasPoolLegacy(gas)
	}
}

func (ps *PricingState) addToGasPoolLegacy(gas int64) error {
	backlog, err := ps.GasBacklog()
	if err != nil {
		return err
	}
	backlog = applyGasDelta(backlog, gas)
	return ps.SetGasBacklog(backlog)
}

type backlogSlot interface {
	Backlog() (uint64, error)
	SetBacklog(uint64) error
}

func openSingleBacklog(sto *storage.Storage) backlogSlot {
	return OpenGasConstraint(sto)
}

func openMultiBacklog(sto *storage.Storage) backlogSlot {
	return OpenMultiGasConstraint(sto)
}

func (ps *PricingState) addToGasPoolWithGasConstraints(
	gas int64,
	vector *storage.SubStorageVector,
	open func(*storage.Storage) backlogSlot,
) error {
	length, err := vector.Length()
	if err != nil {
		return fmt.Errorf("failed to get number of constraints: %w", err)
	}
	for i := uint64(0); i < length; i++ {
		constraint := open(vector.At(i))
		backlog, err := constraint.Backlog()
		if err != nil {
			return fmt.Errorf("failed to get backlog of constraint %v: %w", i, err)
		}
		if err := constraint.SetBacklog(applyGasDelta(backlog, gas)); err != nil {
			return fmt.Errorf("failed to set backlog of constraint %v: %w", i, err)
		}
	}
	return nil
}

// ApplyMultiGasUsage charges per-resource gas usage against every active
// multi-gas constraint, weighting each resource per constraint. Under the
// other models the usage collapses to its total.
func (ps *PricingState) ApplyMultiGasUsage(usage *multigas.MultiGas) error {
	model, err := ps.GasModelToUse()
	if err != nil {
		return err
	}
	if model != GasModelMultiGasConstraints {
		return ps.AddToGasPool(-arbmath.SaturatingCast[int64](usage.Total()))
	}
	length, err := ps.MultiGasConstraintsLength()
	if err != nil {
		return err
	}
	for i := uint64(0); i < length; i++ {
		if err := ps.OpenMultiGasConstraintAt(i).AddToBacklog(usage); err != nil {
			return fmt.Errorf("failed to charge constraint %v: %w", i, err)
		}
	}
	return nil
}

// GasPoolUpdateCost estimates the storage gas needed by AddToGasPool, so
// callers can meter before mutating.
func (ps *PricingState) GasPoolUpdateCost() uint64 {
	var result uint64

	// two reads to pick the model
	result += 2 * storage.StorageReadCost

	model, _ := ps.GasModelToUse()
	switch model {
	case GasModelMultiGasConstraints:
		length, _ := ps.MultiGasConstraintsLength()
		result += storage.StorageReadCost + length*(storage.StorageReadCost+storage.StorageWriteCost)
	case GasModelSingleGasConstraints:
		length, _ := ps.GasConstraintsLength()
		result += storage.StorageReadCost + length*(storage.StorageReadCost+storage.StorageWriteCost)
	default:
		result += storage.StorageReadCost + storage.StorageWriteCost
	}
	return result
}

// UpdatePricingModel pays off the elapsed time and recomputes the base fees
// under whichever model is active.
func (ps *PricingState) UpdatePricingModel(timePassed uint64) {
	model, _ := ps.GasModelToUse()
	switch model {
	case GasModelMultiGasConstraints:
		ps.updatePricingModelMultiGasConstraints(timePassed)
	case GasModelSingleGasConstraints:
		ps.updatePricingModelGasConstraints(timePassed)
	default:
		ps.updatePricingModelLegacy(timePassed)
	}
}

func (ps *PricingState) updatePricingModelLegacy(timePassed uint64) {
	speedLimit, _ := ps.SpeedLimitPerSecond()
	_ = ps.addToGasPoolLegacy(arbmath.SaturatingCast[int64](arbmath.SaturatingUMul(timePassed, speedLimit)))
	inertia, _ := ps.PricingInertia()
	tolerance, _ := ps.BacklogTolerance()
	backlog, _ := ps.GasBacklog()
	minBaseFee, _ := ps.MinBaseFeeWei()
	baseFee := minBaseFee
	if backlog > tolerance*speedLimit {
		excess := arbmath.SaturatingCast[int64](backlog - tolerance*speedLimit)
		exponentBips := arbmath.NaturalToBips(excess) / arbmath.SaturatingCast[arbmath.Bips](arbmath.SaturatingUMul(inertia, speedLimit))
		baseFee = arbmath.BigMulByBips(minBaseFee, arbmath.ApproxExpBasisPoints(exponentBips, 4))
	}
	_ = ps.SetBaseFeeWei(baseFee)
}

func (ps *PricingState) updatePricingModelGasConstraints(timePassed uint64) {
	// Compute exponent used in the basefee formula
	totalExponent := arbmath.Bips(0)
	length, _ := ps.GasConstraintsLength()
	for i := uint64(0); i < length; i++ {
		constraint := ps.OpenGasConstraintAt(i)
		target, _ := constraint.Target()

		// Pay off backlog
		backlog, _ := constraint.Backlog()
		gas := arbmath.SaturatingCast[int64](arbmath.SaturatingUMul(timePassed, target))
		backlog = applyGasDelta(backlog, gas)
		_ = constraint.SetBacklog(backlog)

		// Calculate exponent with the formula backlog/divisor
		if backlog > 0 {
			adjustmentWindow, _ := constraint.AdjustmentWindow()
			divisor := arbmath.SaturatingCastToBips(arbmath.SaturatingUMul(adjustmentWindow, target))
			exponent := arbmath.NaturalToBips(arbmath.SaturatingCast[int64](backlog)) / divisor
			totalExponent = arbmath.SaturatingBipsAdd(totalExponent, exponent)
		}
	}

	// Compute base fee
	minBaseFee, _ := ps.MinBaseFeeWei()
	var baseFee *big.Int
	if totalExponent > 0 {
		baseFee = arbmath.BigMulByBips(minBaseFee, arbmath.ApproxExpBasisPoints(totalExponent, 4))
	} else {
		baseFee = minBaseFee
	}
	_ = ps.SetBaseFeeWei(baseFee)
}

func (ps *PricingState) updatePricingModelMultiGasConstraints(timePassed uint64) {
	length, _ := ps.MultiGasConstraintsLength()
	paidOff := make([]pricer.ResourceConstraint, 0, length)
	for i := uint64(0); i < length; i++ {
		stored := ps.OpenMultiGasConstraintAt(i)
		constraint, err := stored.Load()
		if err != nil {
			continue
		}
		constraint.RemoveFromBacklog(timePassed)
		_ = stored.SetBacklog(constraint.Backlog)
		paidOff = append(paidOff, constraint)
	}

	minBaseFee, _ := ps.MinBaseFeeWei()

	// Combined fee from the summed exponents
	totalExponent := arbmath.Bips(0)
	for i := range paidOff {
		totalExponent = arbmath.SaturatingBipsAdd(totalExponent, paidOff[i].Exponent())
	}
	var baseFee *big.Int
	if totalExponent > 0 {
		baseFee = arbmath.BigMulByBips(minBaseFee, arbmath.ApproxExpBasisPoints(totalExponent, 4))
	} else {
		baseFee = minBaseFee
	}
	_ = ps.SetBaseFeeWei(baseFee)

	// Per-resource fees: the most congested referencing constraint prices
	// each resource, floored at the minimum.
	for kind := multigas.ResourceKindUnknown; kind < multigas.NumResourceKind; kind++ {
		fee := new(big.Int).Set(minBaseFee)
		for i := range paidOff {
			if !paidOff[i].Resources.HasResource(kind) {
				continue
			}
			fee = arbmath.BigMax(fee, paidOff[i].BaseFee(minBaseFee))
		}
		_ = ps.multiGasFees.SetNextBlockFee(kind, fee)
	}
}
