// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package burn

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// Burner accounts for the gas cost of state access and gates writes in read-only contexts.
type Burner interface {
	Burn(amount uint64) error
	Burned() uint64
	Restrict(err error)
	HandleError(err error) error
	ReadOnly() bool
}

// SystemBurner meters state access made on the system's own behalf, where
// running out of gas is not a possibility.
type SystemBurner struct {
	gasBurnt uint64
	readOnly bool
}

func NewSystemBurner(readOnly bool) *SystemBurner {
	return &SystemBurner{
		readOnly: readOnly,
	}
}

func (burner *SystemBurner) Burn(amount uint64) error {
	burner.gasBurnt += amount
	return nil
}

func (burner *SystemBurner) Burned() uint64 {
	return burner.gasBurnt
}

func (burner *SystemBurner) Restrict(err error) {
	if err != nil {
		log.Error("Restrict() received an error", "err", err)
	}
}

func (burner *SystemBurner) HandleError(err error) error {
	panic(fmt.Sprintf("fatal error in system burner: %v", err))
}

func (burner *SystemBurner) ReadOnly() bool {
	return burner.readOnly
}
