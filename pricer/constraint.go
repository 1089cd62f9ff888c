// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package pricer

import (
	"math/big"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/multigas"
)

// MaxExponentBips caps the pricing exponent of a single constraint so the
// derived fee stays representable.
const MaxExponentBips = arbmath.Bips(85_000)

// MaxConstraints bounds the number of constraints in a set.
const MaxConstraints = 20

// ResourceConstraint tries to keep its weighted gas backlog under the target
// (per second) for the given adjustment window.
// TargetPerSec stands for weighted gas usage per second.
// AdjustmentWindowSecs is the time frame over which the price will rise by a
// factor of e if demand is 2x the target.
type ResourceConstraint struct {
	Resources            WeightedResourceSet
	TargetPerSec         uint64
	AdjustmentWindowSecs uint64
	Backlog              uint64
}

// AddToBacklog charges the constraint for the gas used, weighting each
// resource's usage by its configured weight. Arithmetic saturates so a
// wrapped backlog can never under-price congestion.
func (c *ResourceConstraint) AddToBacklog(gasUsed *multigas.MultiGas) {
	c.Resources.All()(func(kind multigas.ResourceKind, weight ResourceWeight) bool {
		weighted := arbmath.SaturatingUMul(uint64(weight), gasUsed.Get(kind))
		c.Backlog = arbmath.SaturatingUAdd(c.Backlog, weighted)
		return true
	})
}

// RemoveFromBacklog pays off the backlog for the elapsed time at the target
// rate, flooring at zero.
func (c *ResourceConstraint) RemoveFromBacklog(elapsedSecs uint64) {
	payoff := arbmath.SaturatingUMul(elapsedSecs, c.TargetPerSec)
	c.Backlog = arbmath.SaturatingUSub(c.Backlog, payoff)
}

// Exponent returns backlog / (target * adjustmentWindow) in bips, clamped to
// MaxExponentBips. The divisor is the constraint's equilibration amount: the
// backlog accumulated by 2x-target demand sustained for one window.
func (c *ResourceConstraint) Exponent() arbmath.Bips {
	if c.Backlog == 0 {
		return 0
	}
	divisor := arbmath.SaturatingCastToBips(
		arbmath.SaturatingUMul(c.AdjustmentWindowSecs, c.TargetPerSec))
	if divisor == 0 {
		return MaxExponentBips
	}
	exponent := arbmath.NaturalToBips(arbmath.SaturatingCast[int64](c.Backlog)) / divisor
	return arbmath.MinInt(exponent, MaxExponentBips)
}

// BaseFee derives the constraint's fee from its backlog:
// minBaseFee * e^(backlog / (target * adjustmentWindow)).
func (c *ResourceConstraint) BaseFee(minBaseFee *big.Int) *big.Int {
	exponent := c.Exponent()
	if exponent == 0 {
		return new(big.Int).Set(minBaseFee)
	}
	return arbmath.BigMulByBips(minBaseFee, arbmath.ApproxExpBasisPoints(exponent, 4))
}

// WeightedResource pairs a resource kind with its weight, as submitted by callers.
type WeightedResource struct {
	Resource uint8
	Weight   uint64
}

// ConstraintParams describes one pricing constraint as submitted by a caller.
type ConstraintParams struct {
	Resources            []WeightedResource
	AdjustmentWindowSecs uint64
	TargetPerSec         uint64
	Backlog              uint64
}

func newConstraintFromParams(index int, params ConstraintParams) (ResourceConstraint, error) {
	constraint := ResourceConstraint{
		TargetPerSec:         params.TargetPerSec,
		AdjustmentWindowSecs: params.AdjustmentWindowSecs,
		Backlog:              params.Backlog,
	}
	seen := [multigas.NumResourceKind]bool{}
	for _, wr := range params.Resources {
		kind, err := multigas.CheckResourceKind(wr.Resource)
		if err != nil {
			return ResourceConstraint{}, invalidConstraint(index, "%v", err)
		}
		if seen[kind] {
			return ResourceConstraint{}, invalidConstraint(index, "duplicate resource %v", kind)
		}
		seen[kind] = true
		constraint.Resources = constraint.Resources.WithResource(kind, ResourceWeight(wr.Weight))
	}
	if constraint.Resources.Empty() {
		return ResourceConstraint{}, invalidConstraint(index, "no weighted resources")
	}
	if constraint.TargetPerSec == 0 {
		return ResourceConstraint{}, invalidConstraint(index, "target must be positive")
	}
	if constraint.AdjustmentWindowSecs == 0 {
		return ResourceConstraint{}, invalidConstraint(index, "adjustment window must be positive")
	}
	if exponent := constraint.Exponent(); exponent >= MaxExponentBips {
		return ResourceConstraint{}, invalidConstraint(index,
			"pricing exponent %v bips exceeds maximum allowed %v bips", exponent, MaxExponentBips)
	}
	return constraint, nil
}

// Params returns the caller-facing description of the constraint, listing
// resources in kind order.
func (c *ResourceConstraint) Params() ConstraintParams {
	params := ConstraintParams{
		AdjustmentWindowSecs: c.AdjustmentWindowSecs,
		TargetPerSec:         c.TargetPerSec,
		Backlog:              c.Backlog,
	}
	c.Resources.All()(func(kind multigas.ResourceKind, weight ResourceWeight) bool {
		params.Resources = append(params.Resources, WeightedResource{
			Resource: uint8(kind),
			Weight:   uint64(weight),
		})
		return true
	})
	return params
}
