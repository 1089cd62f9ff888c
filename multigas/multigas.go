// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

// The multigas package defines the resource dimensions for multi-dimensional gas accounting.
package multigas

import (
	"fmt"

	"github.com/offchainlabs/gaspricer/arbmath"
)

// ResourceKind represents a dimension for the multi-dimensional gas.
//
// The ordinals are part of the wire contract with the reference enumeration used by the
// on-chain interfaces, so kinds must only ever be appended before NumResourceKind.
type ResourceKind uint8

const (
	ResourceKindUnknown ResourceKind = iota
	ResourceKindComputation
	ResourceKindHistoryGrowth
	ResourceKindStorageAccess
	ResourceKindStorageGrowth
	ResourceKindL1Calldata
	ResourceKindL2Calldata
	ResourceKindWasmComputation
	NumResourceKind
)

var resourceKindNames = [NumResourceKind]string{
	"unknown",
	"computation",
	"history-growth",
	"storage-access",
	"storage-growth",
	"l1-calldata",
	"l2-calldata",
	"wasm-computation",
}

// CheckResourceKind validates a raw resource id coming from an external caller.
func CheckResourceKind(id uint8) (ResourceKind, error) {
	if id == uint8(ResourceKindUnknown) || id >= uint8(NumResourceKind) {
		return ResourceKindUnknown, fmt.Errorf("invalid resource kind: %v", id)
	}
	return ResourceKind(id), nil
}

func (kind ResourceKind) String() string {
	if kind >= NumResourceKind {
		return fmt.Sprintf("resource-kind-%d", uint8(kind))
	}
	return resourceKindNames[kind]
}

// MultiGas tracks gas for each resource separately.
type MultiGas struct {
	gas [NumResourceKind]uint64
}

// Pair is a resource kind with its gas amount, used to build MultiGas values.
type Pair struct {
	Kind   ResourceKind
	Amount uint64
}

func ZeroGas() *MultiGas {
	return &MultiGas{}
}

func NewMultiGas(kind ResourceKind, amount uint64) *MultiGas {
	mg := ZeroGas()
	mg.gas[kind] = amount
	return mg
}

// MultiGasFromPairs builds a MultiGas from the given kind-amount pairs.
func MultiGasFromPairs(pairs ...Pair) *MultiGas {
	mg := ZeroGas()
	for _, pair := range pairs {
		mg.gas[pair.Kind] = pair.Amount
	}
	return mg
}

func ComputationGas(amount uint64) *MultiGas {
	return NewMultiGas(ResourceKindComputation, amount)
}

func HistoryGrowthGas(amount uint64) *MultiGas {
	return NewMultiGas(ResourceKindHistoryGrowth, amount)
}

func StorageAccessGas(amount uint64) *MultiGas {
	return NewMultiGas(ResourceKindStorageAccess, amount)
}

func StorageGrowthGas(amount uint64) *MultiGas {
	return NewMultiGas(ResourceKindStorageGrowth, amount)
}

func (z *MultiGas) Get(kind ResourceKind) uint64 {
	return z.gas[kind]
}

func (z *MultiGas) Set(kind ResourceKind, amount uint64) {
	z.gas[kind] = amount
}

// SaturatingAdd sets z to the sum x+y, saturating each dimension, and returns z.
func (z *MultiGas) SaturatingAdd(x *MultiGas, y *MultiGas) *MultiGas {
	for i := ResourceKindUnknown; i < NumResourceKind; i++ {
		z.gas[i] = arbmath.SaturatingUAdd(x.gas[i], y.gas[i])
	}
	return z
}

// SaturatingIncrement adds the amount to the given kind, saturating on overflow.
func (z *MultiGas) SaturatingIncrement(kind ResourceKind, amount uint64) *MultiGas {
	z.gas[kind] = arbmath.SaturatingUAdd(z.gas[kind], amount)
	return z
}

// Total returns the saturating sum of the gas across all dimensions.
func (z *MultiGas) Total() uint64 {
	var total uint64
	for i := ResourceKindUnknown; i < NumResourceKind; i++ {
		total = arbmath.SaturatingUAdd(total, z.gas[i])
	}
	return total
}
