// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package ownership

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/gaspricer/burn"
	"github.com/offchainlabs/gaspricer/storage"
)

func openTestSet(t *testing.T) *AddressSet {
	t.Helper()
	sto := storage.NewMemoryBacked(burn.NewSystemBurner(false))
	require.NoError(t, Initialize(sto))
	return OpenAddressSet(sto)
}

func TestAddressSetMembership(t *testing.T) {
	t.Parallel()

	set := openTestSet(t)
	alice := common.HexToAddress("0x0001")
	bob := common.HexToAddress("0x0002")

	member, err := set.IsMember(alice)
	require.NoError(t, err)
	require.False(t, member)

	require.NoError(t, set.Add(alice))
	require.NoError(t, set.Add(bob))

	// adding twice is a no-op
	require.NoError(t, set.Add(alice))

	size, err := set.Size()
	require.NoError(t, err)
	require.Equal(t, uint64(2), size)

	member, err = set.IsMember(alice)
	require.NoError(t, err)
	require.True(t, member)

	members, err := set.AllMembers()
	require.NoError(t, err)
	require.ElementsMatch(t, []common.Address{alice, bob}, members)
}

func TestAddressSetRemove(t *testing.T) {
	t.Parallel()

	set := openTestSet(t)
	addresses := []common.Address{
		common.HexToAddress("0x0001"),
		common.HexToAddress("0x0002"),
		common.HexToAddress("0x0003"),
	}
	for _, addr := range addresses {
		require.NoError(t, set.Add(addr))
	}

	// removing a middle member compacts the set
	require.NoError(t, set.Remove(addresses[1]))
	size, err := set.Size()
	require.NoError(t, err)
	require.Equal(t, uint64(2), size)

	member, err := set.IsMember(addresses[1])
	require.NoError(t, err)
	require.False(t, member)

	members, err := set.AllMembers()
	require.NoError(t, err)
	require.ElementsMatch(t, []common.Address{addresses[0], addresses[2]}, members)

	// removing a non-member is a no-op
	require.NoError(t, set.Remove(common.HexToAddress("0x00ff")))
	size, err = set.Size()
	require.NoError(t, err)
	require.Equal(t, uint64(2), size)
}

func TestAuthorizerFailsClosed(t *testing.T) {
	t.Parallel()

	set := openTestSet(t)
	owner := common.HexToAddress("0x0001")
	require.NoError(t, set.Add(owner))

	auth := NewAuthorizer(set)
	require.True(t, auth.IsAuthorized(owner))
	require.False(t, auth.IsAuthorized(common.HexToAddress("0x0002")))
}

type brokeBurner struct {
	*burn.SystemBurner
}

func (b *brokeBurner) Burn(amount uint64) error {
	return errors.New("out of gas")
}

func TestAuthorizerDeniesOnStorageError(t *testing.T) {
	t.Parallel()

	backing := storage.NewMemoryBacking()
	healthy := storage.New(backing, burn.NewSystemBurner(false))
	require.NoError(t, Initialize(healthy))
	owner := common.HexToAddress("0x0001")
	require.NoError(t, OpenAddressSet(healthy).Add(owner))

	// a metering failure must never grant access, even to a real member
	broken := storage.New(backing, &brokeBurner{burn.NewSystemBurner(false)})
	auth := NewAuthorizer(OpenAddressSet(broken))
	require.False(t, auth.IsAuthorized(owner))
}
