// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

// The state package persists the pricing configuration and backlogs in
// burner-metered storage, one slot per scalar.
package state

import (
	"fmt"
	"math/big"

	"github.com/offchainlabs/gaspricer/arbmath"
	"github.com/offchainlabs/gaspricer/pricer"
	"github.com/offchainlabs/gaspricer/storage"
)

// GasModel selects which pricing model drives the base fee.
type GasModel uint8

const (
	// GasModelLegacy prices a single aggregate backlog against the speed limit.
	GasModelLegacy GasModel = iota
	// GasModelSingleGasConstraints prices the aggregate backlog against a set
	// of single-dimension constraints.
	GasModelSingleGasConstraints
	// GasModelMultiGasConstraints prices per-resource weighted backlogs.
	GasModelMultiGasConstraints
)

func (m GasModel) String() string {
	switch m {
	case GasModelLegacy:
		return "legacy"
	case GasModelSingleGasConstraints:
		return "single-gas-constraints"
	case GasModelMultiGasConstraints:
		return "multi-gas-constraints"
	}
	return fmt.Sprintf("gas-model-%d", uint8(m))
}

type PricingState struct {
	storage             *storage.Storage
	speedLimitPerSecond storage.StorageBackedUint64
	perBlockGasLimit    storage.StorageBackedUint64
	baseFeeWei          storage.StorageBackedBigUint
	minBaseFeeWei       storage.StorageBackedBigUint
	gasBacklog          storage.StorageBackedUint64
	pricingInertia      storage.StorageBackedUint64
	backlogTolerance    storage.StorageBackedUint64
	perTxGasLimit       storage.StorageBackedUint64
	gasConstraints      *storage.SubStorageVector
	multiGasConstraints *storage.SubStorageVector
	multiGasFees        *MultiGasFees
}

const (
	speedLimitPerSecondOffset uint64 = iota
	perBlockGasLimitOffset
	baseFeeWeiOffset
	minBaseFeeWeiOffset
	gasBacklogOffset
	pricingInertiaOffset
	backlogToleranceOffset
	perTxGasLimitOffset
)

const InitialPerBlockGasLimit uint64 = 32 * 1_000_000
const InitialPerTxGasLimit uint64 = 32 * 1_000_000

var (
	gasConstraintsKey      = []byte{0}
	multiGasConstraintsKey = []byte{1}
	multiGasFeesKey        = []byte{2}
)

const gasConstraintsMaxNum = pricer.MaxConstraints

func InitializePricingState(sto *storage.Storage) error {
	_ = sto.SetUint64ByUint64(speedLimitPerSecondOffset, pricer.InitialSpeedLimitPerSecond)
	_ = sto.SetUint64ByUint64(perBlockGasLimitOffset, InitialPerBlockGasLimit)
	_ = sto.SetUint64ByUint64(perTxGasLimitOffset, InitialPerTxGasLimit)
	_ = sto.SetUint64ByUint64(baseFeeWeiOffset, pricer.InitialMinimumBaseFeeWei)
	_ = sto.SetUint64ByUint64(gasBacklogOffset, 0)
	_ = sto.SetUint64ByUint64(pricingInertiaOffset, pricer.InitialPricingInertia)
	_ = sto.SetUint64ByUint64(backlogToleranceOffset, pricer.InitialBacklogTolerance)
	return sto.SetUint64ByUint64(minBaseFeeWeiOffset, pricer.InitialMinimumBaseFeeWei)
}

func OpenPricingState(sto *storage.Storage) *PricingState {
	return &PricingState{
		storage:             sto,
		speedLimitPerSecond: sto.OpenStorageBackedUint64(speedLimitPerSecondOffset),
		perBlockGasLimit:    sto.OpenStorageBackedUint64(perBlockGasLimitOffset),
		baseFeeWei:          sto.OpenStorageBackedBigUint(baseFeeWeiOffset),
		minBaseFeeWei:       sto.OpenStorageBackedBigUint(minBaseFeeWeiOffset),
		gasBacklog:          sto.OpenStorageBackedUint64(gasBacklogOffset),
		pricingInertia:      sto.OpenStorageBackedUint64(pricingInertiaOffset),
		backlogTolerance:    sto.OpenStorageBackedUint64(backlogToleranceOffset),
		perTxGasLimit:       sto.OpenStorageBackedUint64(perTxGasLimitOffset),
		gasConstraints:      storage.OpenSubStorageVector(sto.OpenSubStorage(gasConstraintsKey)),
		multiGasConstraints: storage.OpenSubStorageVector(sto.OpenSubStorage(multiGasConstraintsKey)),
		multiGasFees:        OpenMultiGasFees(sto.OpenSubStorage(multiGasFeesKey)),
	}
}

func (ps *PricingState) BaseFeeWei() (*big.Int, error) {
	return ps.baseFeeWei.Get()
}

func (ps *PricingState) SetBaseFeeWei(val *big.Int) error {
	return ps.baseFeeWei.SetSaturatingWithWarning(val, "base fee")
}

func (ps *PricingState) MinBaseFeeWei() (*big.Int, error) {
	return ps.minBaseFeeWei.Get()
}

func (ps *PricingState) SetMinBaseFeeWei(val *big.Int) error {
	// This modifies the "minimum basefee" parameter, but doesn't modify the current basefee.
	// If this increases the minimum basefee, the basefee might sit below the minimum until
	// the next pricing update lifts it.
	return ps.minBaseFeeWei.SetChecked(val)
}

func (ps *PricingState) SpeedLimitPerSecond() (uint64, error) {
	return ps.speedLimitPerSecond.Get()
}

func (ps *PricingState) SetSpeedLimitPerSecond(limit uint64) error {
	return ps.speedLimitPerSecond.Set(limit)
}

func (ps *PricingState) PerBlockGasLimit() (uint64, error) {
	return ps.perBlockGasLimit.Get()
}

func (ps *PricingState) SetMaxPerBlockGasLimit(limit uint64) error {
	return ps.perBlockGasLimit.Set(limit)
}

func (ps *PricingState) PerTxGasLimit() (uint64, error) {
	return ps.perTxGasLimit.Get()
}

func (ps *PricingState) SetMaxPerTxGasLimit(limit uint64) error {
	return ps.perTxGasLimit.Set(limit)
}

func (ps *PricingState) GasBacklog() (uint64, error) {
	return ps.gasBacklog.Get()
}

func (ps *PricingState) SetGasBacklog(backlog uint64) error {
	return ps.gasBacklog.Set(backlog)
}

func (ps *PricingState) PricingInertia() (uint64, error) {
	return ps.pricingInertia.Get()
}

func (ps *PricingState) SetPricingInertia(val uint64) error {
	return ps.pricingInertia.Set(val)
}

func (ps *PricingState) BacklogTolerance() (uint64, error) {
	return ps.backlogTolerance.Get()
}

func (ps *PricingState) SetBacklogTolerance(val uint64) error {
	return ps.backlogTolerance.Set(val)
}

func (ps *PricingState) MultiGasFees() *MultiGasFees {
	return ps.multiGasFees
}

func (ps *PricingState) Restrict(err error) {
	ps.storage.Burner().Restrict(err)
}

// GasModelToUse decides which pricing model is active. Multi-gas constraints
// win over single-gas constraints; an empty set falls through to the next model.
func (ps *PricingState) GasModelToUse() (GasModel, error) {
	multiLength, err := ps.MultiGasConstraintsLength()
	if err != nil {
		return GasModelLegacy, err
	}
	if multiLength > 0 {
		return GasModelMultiGasConstraints, nil
	}
	singleLength, err := ps.GasConstraintsLength()
	if err != nil {
		return GasModelLegacy, err
	}
	if singleLength > 0 {
		return GasModelSingleGasConstraints, nil
	}
	return GasModelLegacy, nil
}

// SetGasConstraintsFromLegacy seeds a single constraint equivalent to the
// legacy parameters, so switching models does not reprice abruptly.
func (ps *PricingState) SetGasConstraintsFromLegacy() error {
	if err := ps.ClearGasConstraints(); err != nil {
		return err
	}
	target, err := ps.SpeedLimitPerSecond()
	if err != nil {
		return err
	}
	adjustmentWindow, err := ps.PricingInertia()
	if err != nil {
		return err
	}
	oldBacklog, err := ps.GasBacklog()
	if err != nil {
		return err
	}
	backlogTolerance, err := ps.BacklogTolerance()
	if err != nil {
		return err
	}
	backlog := arbmath.SaturatingUSub(oldBacklog, arbmath.SaturatingUMul(backlogTolerance, target))
	return ps.AddGasConstraint(target, adjustmentWindow, backlog)
}

// AddGasConstraint appends a single-dimension constraint.
func (ps *PricingState) AddGasConstraint(target uint64, adjustmentWindow uint64, backlog uint64) error {
	if target == 0 {
		return fmt.Errorf("target must be positive")
	}
	if adjustmentWindow == 0 {
		return fmt.Errorf("adjustment window must be positive")
	}
	length, err := ps.GasConstraintsLength()
	if err != nil {
		return err
	}
	if length >= gasConstraintsMaxNum {
		return fmt.Errorf("too many constraints: %v", length)
	}
	divisor := arbmath.SaturatingCastToBips(arbmath.SaturatingUMul(adjustmentWindow, target))
	if exponent := arbmath.NaturalToBips(arbmath.SaturatingCast[int64](backlog)) / divisor; exponent >= pricer.MaxExponentBips {
		return fmt.Errorf("pricing exponent %v bips exceeds maximum allowed %v bips", exponent, pricer.MaxExponentBips)
	}
	subStorage, err := ps.gasConstraints.Push()
	if err != nil {
		return fmt.Errorf("failed to push constraint: %w", err)
	}
	constraint := OpenGasConstraint(subStorage)
	if err := constraint.target.Set(target); err != nil {
		return fmt.Errorf("failed to set target: %w", err)
	}
	if err := constraint.adjustmentWindow.Set(adjustmentWindow); err != nil {
		return fmt.Errorf("failed to set adjustment window: %w", err)
	}
	if err := constraint.backlog.Set(backlog); err != nil {
		return fmt.Errorf("failed to set backlog: %w", err)
	}
	return nil
}

func (ps *PricingState) GasConstraintsLength() (uint64, error) {
	return ps.gasConstraints.Length()
}

func (ps *PricingState) OpenGasConstraintAt(i uint64) *GasConstraint {
	return OpenGasConstraint(ps.gasConstraints.At(i))
}

func (ps *PricingState) ClearGasConstraints() error {
	length, err := ps.GasConstraintsLength()
	if err != nil {
		return err
	}
	for i := uint64(0); i < length; i++ {
		subStorage, err := ps.gasConstraints.Pop()
		if err != nil {
			return err
		}
		if err := OpenGasConstraint(subStorage).Clear(); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PricingState) MultiGasConstraintsLength() (uint64, error) {
	return ps.multiGasConstraints.Length()
}

func (ps *PricingState) OpenMultiGasConstraintAt(i uint64) *MultiGasConstraint {
	return OpenMultiGasConstraint(ps.multiGasConstraints.At(i))
}

// SetMultiGasConstraints validates the whole submission and, only if every
// constraint passes, replaces the stored set. On failure the prior set stays
// untouched. An empty submission clears the set, falling back to the next model.
func (ps *PricingState) SetMultiGasConstraints(params []pricer.ConstraintParams) error {
	var scratch pricer.ConstraintSet
	if err := scratch.Replace(params); err != nil {
		return err
	}
	if err := ps.ClearMultiGasConstraints(); err != nil {
		return err
	}
	for _, constraint := range scratch.Current() {
		subStorage, err := ps.multiGasConstraints.Push()
		if err != nil {
			return fmt.Errorf("failed to push multi-gas constraint: %w", err)
		}
		if err := OpenMultiGasConstraint(subStorage).Store(constraint); err != nil {
			return fmt.Errorf("failed to store multi-gas constraint: %w", err)
		}
	}
	return nil
}

// GetMultiGasConstraints returns the stored set in insertion order.
func (ps *PricingState) GetMultiGasConstraints() ([]pricer.ConstraintParams, error) {
	length, err := ps.MultiGasConstraintsLength()
	if err != nil {
		return nil, err
	}
	params := make([]pricer.ConstraintParams, 0, length)
	for i := uint64(0); i < length; i++ {
		constraint, err := ps.OpenMultiGasConstraintAt(i).Load()
		if err != nil {
			return nil, err
		}
		params = append(params, constraint.Params())
	}
	return params, nil
}

func (ps *PricingState) ClearMultiGasConstraints() error {
	length, err := ps.MultiGasConstraintsLength()
	if err != nil {
		return err
	}
	for i := uint64(0); i < length; i++ {
		subStorage, err := ps.multiGasConstraints.Pop()
		if err != nil {
			return err
		}
		if err := OpenMultiGasConstraint(subStorage).Clear(); err != nil {
			return err
		}
	}
	return nil
}
