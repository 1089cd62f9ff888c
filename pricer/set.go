// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package pricer

import (
	"math/big"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
)

// ConstraintSet is the active multi-dimensional pricing configuration.
// An empty set means the caller falls back to the legacy single-dimension model.
type ConstraintSet struct {
	constraints []ResourceConstraint
}

// Replace validates every submitted constraint and, only if all pass, swaps in
// the new set with the caller-provided starting backlogs. On failure the prior
// set remains untouched.
func (cs *ConstraintSet) Replace(params []ConstraintParams) error {
	if len(params) > MaxConstraints {
		return invalidConstraint(MaxConstraints, "too many constraints: %v > %v", len(params), MaxConstraints)
	}
	fresh := make([]ResourceConstraint, 0, len(params))
	for i, p := range params {
		constraint, err := newConstraintFromParams(i, p)
		if err != nil {
			return err
		}
		fresh = append(fresh, constraint)
	}
	cs.constraints = fresh
	return nil
}

// Empty reports whether the set holds no constraints.
func (cs *ConstraintSet) Empty() bool {
	return len(cs.constraints) == 0
}

func (cs *ConstraintSet) Len() int {
	return len(cs.constraints)
}

// Current returns a copy of the constraints so read callers never observe
// partial updates.
func (cs *ConstraintSet) Current() []ResourceConstraint {
	snapshot := make([]ResourceConstraint, len(cs.constraints))
	copy(snapshot, cs.constraints)
	return snapshot
}

// Params returns the caller-facing description of every constraint, in order.
func (cs *ConstraintSet) Params() []ConstraintParams {
	params := make([]ConstraintParams, 0, len(cs.constraints))
	for i := range cs.constraints {
		params = append(params, cs.constraints[i].Params())
	}
	return params
}

// AddToBacklogs charges every constraint for the gas used this tick.
func (cs *ConstraintSet) AddToBacklogs(gasUsed *multigas.MultiGas) {
	for i := range cs.constraints {
		cs.constraints[i].AddToBacklog(gasUsed)
	}
}

// RemoveFromBacklogs pays off every constraint for the elapsed time.
func (cs *ConstraintSet) RemoveFromBacklogs(elapsedSecs uint64) {
	for i := range cs.constraints {
		cs.constraints[i].RemoveFromBacklog(elapsedSecs)
	}
}

// TotalExponent sums the pricing exponents across all constraints, so several
// moderately congested dimensions compound the combined fee.
func (cs *ConstraintSet) TotalExponent() arbmath.Bips {
	total := arbmath.Bips(0)
	for i := range cs.constraints {
		total = arbmath.SaturatingBipsAdd(total, cs.constraints[i].Exponent())
	}
	return total
}

// BaseFee derives the combined base fee from the total exponent.
func (cs *ConstraintSet) BaseFee(minBaseFee *big.Int) *big.Int {
	totalExponent := cs.TotalExponent()
	if totalExponent == 0 {
		return new(big.Int).Set(minBaseFee)
	}
	return arbmath.BigMulByBips(minBaseFee, arbmath.ApproxExpBasisPoints(totalExponent, 4))
}

// BaseFeeForResource derives the fee for one resource kind: the maximum fee
// across all constraints that reference the kind with a non-zero weight, so
// the most congested dimension sets the price. Returns the floor fee if no
// constraint references the kind.
func (cs *ConstraintSet) BaseFeeForResource(kind multigas.ResourceKind, minBaseFee *big.Int) *big.Int {
	fee := new(big.Int).Set(minBaseFee)
	for i := range cs.constraints {
		constraint := &cs.constraints[i]
		if !constraint.Resources.HasResource(kind) {
			continue
		}
		fee = arbmath.BigMax(fee, constraint.BaseFee(minBaseFee))
	}
	return fee
}

// BaseFees derives the fee for every resource kind.
func (cs *ConstraintSet) BaseFees(minBaseFee *big.Int) map[multigas.ResourceKind]*big.Int {
	fees := make(map[multigas.ResourceKind]*big.Int, multigas.NumResourceKind)
	for kind := multigas.ResourceKindUnknown; kind < multigas.NumResourceKind; kind++ {
		fees[kind] = cs.BaseFeeForResource(kind, minBaseFee)
	}
	return fees
}
