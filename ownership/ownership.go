// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

// The ownership package tracks which addresses may change pricing parameters.
package ownership

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/gaspricer/storage"
)

// AddressSet is a storage-backed set of addresses.
// The size lives at offset 0, members sequentially from 1 onward, and a
// reverse index from address to member slot in a substorage.
type AddressSet struct {
	backingStorage *storage.Storage
	size           storage.StorageBackedUint64
	byAddress      *storage.Storage
}

func Initialize(sto *storage.Storage) error {
	return sto.SetUint64ByUint64(0, 0)
}

func OpenAddressSet(sto *storage.Storage) *AddressSet {
	return &AddressSet{
		backingStorage: sto,
		size:           sto.OpenStorageBackedUint64(0),
		byAddress:      sto.OpenSubStorage([]byte{0}),
	}
}

func (as *AddressSet) Size() (uint64, error) {
	return as.size.Get()
}

func (as *AddressSet) IsMember(addr common.Address) (bool, error) {
	value, err := as.byAddress.Get(common.BytesToHash(addr.Bytes()))
	return value != (common.Hash{}), err
}

func (as *AddressSet) AllMembers() ([]common.Address, error) {
	size, err := as.size.Get()
	if err != nil {
		return nil, err
	}
	members := make([]common.Address, size)
	for i := range members {
		value, err := as.backingStorage.GetByUint64(uint64(i + 1))
		if err != nil {
			return nil, err
		}
		members[i] = common.BytesToAddress(value.Bytes())
	}
	return members, nil
}

func (as *AddressSet) Add(addr common.Address) error {
	present, err := as.IsMember(addr)
	if present || err != nil {
		return err
	}
	size, err := as.size.Get()
	if err != nil {
		return err
	}
	slot := common.BigToHash(new(big.Int).SetUint64(1 + size))
	addrAsHash := common.BytesToHash(addr.Bytes())
	if err := as.byAddress.Set(addrAsHash, slot); err != nil {
		return err
	}
	if err := as.backingStorage.Set(slot, addrAsHash); err != nil {
		return err
	}
	return as.size.Set(size + 1)
}

func (as *AddressSet) Remove(addr common.Address) error {
	addrAsHash := common.BytesToHash(addr.Bytes())
	slotHash, err := as.byAddress.Get(addrAsHash)
	if err != nil {
		return err
	}
	slot := slotHash.Big().Uint64()
	if slot == 0 {
		return nil
	}
	if err := as.byAddress.Clear(addrAsHash); err != nil {
		return err
	}
	size, err := as.size.Get()
	if err != nil {
		return err
	}
	if slot < size {
		// move the last member into the vacated slot
		last, err := as.backingStorage.GetByUint64(size)
		if err != nil {
			return err
		}
		if err := as.backingStorage.SetByUint64(slot, last); err != nil {
			return err
		}
		if err := as.byAddress.Set(last, common.BigToHash(new(big.Int).SetUint64(slot))); err != nil {
			return err
		}
	}
	if err := as.backingStorage.ClearByUint64(size); err != nil {
		return err
	}
	return as.size.Set(size - 1)
}

// Authorizer adapts an AddressSet into an access check, denying on storage
// errors so metering failures never grant access.
type Authorizer struct {
	members *AddressSet
}

func NewAuthorizer(members *AddressSet) *Authorizer {
	return &Authorizer{members: members}
}

func (a *Authorizer) IsAuthorized(principal common.Address) bool {
	member, err := a.members.IsMember(principal)
	if err != nil {
		log.Warn("authorization check failed", "principal", principal, "err", err)
		return false
	}
	return member
}
