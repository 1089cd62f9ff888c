// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package arbmath

import "math/big"

// Bips is a fixed-point fraction denominated in basis points (1/10000).
type Bips int64

const OneInBips Bips = 10000

func NaturalToBips(natural int64) Bips {
	return SaturatingMul(Bips(natural), OneInBips)
}

func PercentToBips(percentage int64) Bips {
	return SaturatingMul(Bips(percentage), 100)
}

func BigMulByBips(value *big.Int, bips Bips) *big.Int {
	return BigMulByFrac(value, int64(bips), int64(OneInBips))
}

func SaturatingCastToBips(value uint64) Bips {
	return Bips(SaturatingCast[int64](value))
}

func SaturatingBipsAdd(a, b Bips) Bips {
	return Bips(SaturatingAdd(int64(a), int64(b)))
}
