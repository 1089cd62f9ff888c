// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package storage

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"

	"github.com/offchainlabs/gaspricer/burn"
)

const StorageReadCost = params.SloadGasEIP2200
const StorageWriteCost = params.SstoreSetGasEIP2200
const StorageWriteZeroCost = params.SstoreResetGasEIP2200

var ErrWriteProtection = errors.New("write to storage with read-only burner")

// Backing is the flat key-value store holding the contents of every storage space,
// with 256-bit keys and values and all uninitialized keys reading as zero.
type Backing interface {
	Get(key common.Hash) common.Hash
	Set(key common.Hash, value common.Hash)
}

// MemoryBacking is a map-based Backing for tests and simulations.
type MemoryBacking struct {
	contents map[common.Hash]common.Hash
}

func NewMemoryBacking() *MemoryBacking {
	return &MemoryBacking{contents: make(map[common.Hash]common.Hash)}
}

func (mem *MemoryBacking) Get(key common.Hash) common.Hash {
	return mem.contents[key]
}

func (mem *MemoryBacking) Set(key common.Hash, value common.Hash) {
	if value == (common.Hash{}) {
		delete(mem.contents, key)
		return
	}
	mem.contents[key] = value
}

// Storage is a logical tree of storage spaces that can be nested hierarchically,
// each holding a key-value store with 256-bit keys and values.
//
// A storage space has a byte-slice storageKey distinguishing it from other spaces;
// the root space has the empty storageKey, and the storageKey of a child is
// keccak256(parent.storageKey, name). The contents of key within a space are kept
// at location mapAddress(storageKey, key) of the flat backing store. Two slots
// cannot occupy the same location because that would imply a keccak256 collision.
//
// Every access is metered through the space's burner, so a constrained caller runs
// out of gas rather than reading or writing state it cannot pay for.
type Storage struct {
	backing    Backing
	burner     burn.Burner
	storageKey []byte
}

func New(backing Backing, burner burn.Burner) *Storage {
	return &Storage{
		backing:    backing,
		burner:     burner,
		storageKey: []byte{},
	}
}

// NewMemoryBacked creates a storage tree over a fresh in-memory backing.
func NewMemoryBacked(burner burn.Burner) *Storage {
	return New(NewMemoryBacking(), burner)
}

// We map addresses using "pages" of 256 storage slots. We hash over the page number
// but not the offset within a page, to preserve contiguity within a page.
func mapAddress(storageKey []byte, key common.Hash) common.Hash {
	keyBytes := key.Bytes()
	boundary := common.HashLength - 1
	return common.BytesToHash(
		append(
			crypto.Keccak256(storageKey, keyBytes[:boundary])[:boundary],
			keyBytes[boundary],
		),
	)
}

func writeCost(value common.Hash) uint64 {
	if value == (common.Hash{}) {
		return StorageWriteZeroCost
	}
	return StorageWriteCost
}

func (s *Storage) Burner() burn.Burner {
	return s.burner
}

func (s *Storage) Get(key common.Hash) (common.Hash, error) {
	if err := s.burner.Burn(StorageReadCost); err != nil {
		return common.Hash{}, err
	}
	return s.backing.Get(mapAddress(s.storageKey, key)), nil
}

func (s *Storage) GetUint64(key common.Hash) (uint64, error) {
	value, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	return value.Big().Uint64(), nil
}

func (s *Storage) GetByUint64(key uint64) (common.Hash, error) {
	return s.Get(common.BigToHash(new(big.Int).SetUint64(key)))
}

func (s *Storage) GetUint64ByUint64(key uint64) (uint64, error) {
	value, err := s.GetByUint64(key)
	if err != nil {
		return 0, err
	}
	return value.Big().Uint64(), nil
}

func (s *Storage) Set(key common.Hash, value common.Hash) error {
	if s.burner.ReadOnly() {
		log.Error("Read-only burner attempted to mutate state", "key", key, "value", value)
		return ErrWriteProtection
	}
	if err := s.burner.Burn(writeCost(value)); err != nil {
		return err
	}
	s.backing.Set(mapAddress(s.storageKey, key), value)
	return nil
}

func (s *Storage) SetByUint64(key uint64, value common.Hash) error {
	return s.Set(common.BigToHash(new(big.Int).SetUint64(key)), value)
}

func (s *Storage) SetUint64ByUint64(key uint64, value uint64) error {
	return s.SetByUint64(key, common.BigToHash(new(big.Int).SetUint64(value)))
}

func (s *Storage) Clear(key common.Hash) error {
	return s.Set(key, common.Hash{})
}

func (s *Storage) ClearByUint64(key uint64) error {
	return s.SetByUint64(key, common.Hash{})
}

func (s *Storage) OpenSubStorage(id []byte) *Storage {
	return &Storage{
		s.backing,
		s.burner,
		crypto.Keccak256(s.storageKey, id),
	}
}

// StorageSlot is a handle to a single slot within a storage space.
type StorageSlot struct {
	backing Backing
	burner  burn.Burner
	slot    common.Hash
}

func (s *Storage) NewSlot(offset uint64) StorageSlot {
	return StorageSlot{
		s.backing,
		s.burner,
		mapAddress(s.storageKey, common.BigToHash(new(big.Int).SetUint64(offset))),
	}
}

func (ss *StorageSlot) Get() (common.Hash, error) {
	if err := ss.burner.Burn(StorageReadCost); err != nil {
		return common.Hash{}, err
	}
	return ss.backing.Get(ss.slot), nil
}

func (ss *StorageSlot) Set(value common.Hash) error {
	if ss.burner.ReadOnly() {
		log.Error("Read-only burner attempted to mutate state", "slot", ss.slot, "value", value)
		return ErrWriteProtection
	}
	if err := ss.burner.Burn(writeCost(value)); err != nil {
		return err
	}
	ss.backing.Set(ss.slot, value)
	return nil
}

// StorageBackedUint64 is a uint64 stored in one slot of a storage space.
type StorageBackedUint64 struct {
	StorageSlot
}

func (s *Storage) OpenStorageBackedUint64(offset uint64) StorageBackedUint64 {
	return StorageBackedUint64{s.NewSlot(offset)}
}

func (sbu *StorageBackedUint64) Get() (uint64, error) {
	raw, err := sbu.StorageSlot.Get()
	if err != nil {
		return 0, err
	}
	return raw.Big().Uint64(), nil
}

func (sbu *StorageBackedUint64) Set(value uint64) error {
	return sbu.StorageSlot.Set(common.BigToHash(new(big.Int).SetUint64(value)))
}

func (sbu *StorageBackedUint64) Clear() error {
	return sbu.Set(0)
}

var twoToThe256MinusOne = new(big.Int).Sub(new(big.Int).Lsh(common.Big1, 256), common.Big1)

// StorageBackedBigUint is a nonnegative big integer stored in one slot.
type StorageBackedBigUint struct {
	StorageSlot
}

func (s *Storage) OpenStorageBackedBigUint(offset uint64) StorageBackedBigUint {
	return StorageBackedBigUint{s.NewSlot(offset)}
}

func (sbbu *StorageBackedBigUint) Get() (*big.Int, error) {
	raw, err := sbbu.StorageSlot.Get()
	if err != nil {
		return nil, err
	}
	return raw.Big(), nil
}

// SetChecked stores the value, returning an error if it is negative or doesn't fit a slot.
func (sbbu *StorageBackedBigUint) SetChecked(value *big.Int) error {
	if value.Sign() < 0 {
		return errors.New("refusing to store negative value in StorageBackedBigUint")
	}
	if value.BitLen() > 256 {
		return errors.New("refusing to store value exceeding 256 bits in StorageBackedBigUint")
	}
	return sbbu.StorageSlot.Set(common.BigToHash(value))
}

// SetSaturatingWithWarning clamps the value to the representable range, logging when it does.
func (sbbu *StorageBackedBigUint) SetSaturatingWithWarning(value *big.Int, name string) error {
	if value.Sign() < 0 {
		log.Warn("saturating storage set", "name", name, "value", value, "to", 0)
		value = common.Big0
	} else if value.BitLen() > 256 {
		log.Warn("saturating storage set", "name", name, "value", value, "to", twoToThe256MinusOne)
		value = twoToThe256MinusOne
	}
	return sbbu.StorageSlot.Set(common.BigToHash(value))
}

func (sbbu *StorageBackedBigUint) Clear() error {
	return sbbu.StorageSlot.Set(common.Hash{})
}
