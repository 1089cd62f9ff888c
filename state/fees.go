// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package state

import (
	"math/big"

	"github.com/offchainlabs/gaspricer/multigas"
	"github.com/offchainlabs/gaspricer/storage"
)

const (
	nextBlockFeesOffset uint64 = iota * uint64(multigas.NumResourceKind)
	currentBlockFeesOffset
)

// MultiGasFees tracks per-resource-kind base fees.
// The next fees are recomputed alongside the combined base fee whenever the
// pricing model updates; the current fees are what the block being built
// actually charges, rotated in by CommitNextToCurrent at the block boundary.
type MultiGasFees struct {
	next    [multigas.NumResourceKind]storage.StorageBackedBigUint
	current [multigas.NumResourceKind]storage.StorageBackedBigUint
}

// OpenMultiGasFees opens or initializes base fees in the given storage subspace.
func OpenMultiGasFees(sto *storage.Storage) *MultiGasFees {
	fees := &MultiGasFees{}
	for offset := uint64(0); offset < uint64(multigas.NumResourceKind); offset++ {
		fees.next[offset] = sto.OpenStorageBackedBigUint(nextBlockFeesOffset + offset)
		fees.current[offset] = sto.OpenStorageBackedBigUint(currentBlockFeesOffset + offset)
	}
	return fees
}

// GetCurrentBlockFee returns the current-block base fee for the given resource kind.
func (bf *MultiGasFees) GetCurrentBlockFee(kind multigas.ResourceKind) (*big.Int, error) {
	return bf.current[kind].Get()
}

// GetNextBlockFee returns the next-block base fee for the given resource kind.
func (bf *MultiGasFees) GetNextBlockFee(kind multigas.ResourceKind) (*big.Int, error) {
	return bf.next[kind].Get()
}

// SetNextBlockFee sets the next-block base fee for the given resource kind.
func (bf *MultiGasFees) SetNextBlockFee(kind multigas.ResourceKind, fee *big.Int) error {
	return bf.next[kind].SetChecked(fee)
}

// CommitNextToCurrent rotates next-block fees into current-block fees.
func (bf *MultiGasFees) CommitNextToCurrent() error {
	for i := 0; i < int(multigas.NumResourceKind); i++ {
		next, err := bf.next[i].Get()
		if err != nil {
			return err
		}
		if err := bf.current[i].SetChecked(next); err != nil {
			return err
		}
	}
	return nil
}
