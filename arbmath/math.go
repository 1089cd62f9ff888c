// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

// The arbmath package provides saturating integer arithmetic and the fixed-point
// exponential used by the pricing models.
package arbmath

import (
	"math"
	"math/big"
	"unsafe"
)

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

type Integer interface {
	Signed | Unsigned
}

// MinInt the minimum of two ints
func MinInt[T Integer](value, ceiling T) T {
	if value > ceiling {
		return ceiling
	}
	return value
}

// MaxInt the maximum of one or more ints
func MaxInt[T Integer](values ...T) T {
	max := values[0]
	for i := 1; i < len(values); i++ {
		value := values[i]
		if value > max {
			max = value
		}
	}
	return max
}

// Checks if two ints are sufficiently close to one another
func Within[T Unsigned](a, b, bound T) bool {
	min := MinInt(a, b)
	max := MaxInt(a, b)
	return max-min <= bound
}

// UintToBig casts an int to a huge
func UintToBig(value uint64) *big.Int {
	return new(big.Int).SetUint64(value)
}

// BigToUintSaturating casts a huge to a uint, saturating if out of bounds
func BigToUintSaturating(value *big.Int) uint64 {
	if value.Sign() < 0 {
		return 0
	}
	if !value.IsUint64() {
		return math.MaxUint64
	}
	return value.Uint64()
}

// BigEquals check huge equality
func BigEquals(first, second *big.Int) bool {
	return first.Cmp(second) == 0
}

// BigLessThan check if a huge is less than another
func BigLessThan(first, second *big.Int) bool {
	return first.Cmp(second) < 0
}

// BigGreaterThan check if a huge is greater than another
func BigGreaterThan(first, second *big.Int) bool {
	return first.Cmp(second) > 0
}

// BigMin returns a clone of the minimum of two big integers
func BigMin(first, second *big.Int) *big.Int {
	if BigLessThan(first, second) {
		return new(big.Int).Set(first)
	}
	return new(big.Int).Set(second)
}

// BigMax returns a clone of the maximum of two big integers
func BigMax(first, second *big.Int) *big.Int {
	if BigGreaterThan(first, second) {
		return new(big.Int).Set(first)
	}
	return new(big.Int).Set(second)
}

// BigMulByFrac multiply a huge by a rational
func BigMulByFrac(value *big.Int, numerator, denominator int64) *big.Int {
	value = new(big.Int).Set(value)
	value.Mul(value, big.NewInt(numerator))
	value.Div(value, big.NewInt(denominator))
	return value
}

// BigMulByUint multiply a huge by an unsigned integer
func BigMulByUint(multiplicand *big.Int, multiplier uint64) *big.Int {
	return new(big.Int).Mul(multiplicand, new(big.Int).SetUint64(multiplier))
}

// BigDivByUint divide a huge by an unsigned integer
func BigDivByUint(dividend *big.Int, divisor uint64) *big.Int {
	return new(big.Int).Div(dividend, UintToBig(divisor))
}

func MaxSignedValue[T Signed]() T {
	return T((uint64(1) << (8*unsafe.Sizeof(T(0)) - 1)) - 1)
}

func MinSignedValue[T Signed]() T {
	return T(uint64(1) << ((8 * unsafe.Sizeof(T(0))) - 1))
}

// SaturatingAdd add two integers without overflow
func SaturatingAdd[T Signed](a, b T) T {
	sum := a + b
	if b > 0 && sum < a {
		sum = MaxSignedValue[T]()
	}
	if b < 0 && sum > a {
		sum = MinSignedValue[T]()
	}
	return sum
}

// SaturatingUAdd add two integers without overflow
func SaturatingUAdd[T Unsigned](a, b T) T {
	sum := a + b
	if sum < a || sum < b {
		sum = ^T(0)
	}
	return sum
}

// SaturatingUSub subtract an integer from another without underflow
func SaturatingUSub[T Unsigned](a, b T) T {
	if b >= a {
		return 0
	}
	return a - b
}

// SaturatingUMul multiply two integers without over/underflow
func SaturatingUMul[T Unsigned](a, b T) T {
	product := a * b
	if b != 0 && product/b != a {
		product = ^T(0)
	}
	return product
}

// SaturatingMul multiply two integers without over/underflow
func SaturatingMul[T Signed](a, b T) T {
	product := a * b
	if b != 0 && product/b != a {
		if (a > 0 && b > 0) || (a < 0 && b < 0) {
			product = MaxSignedValue[T]()
		} else {
			product = MinSignedValue[T]()
		}
	}
	return product
}

// SaturatingCast cast an unsigned integer to a signed one, clipping to [0, S::MAX]
func SaturatingCast[S Signed, T Unsigned](value T) S {
	tBig := unsafe.Sizeof(T(0)) >= unsafe.Sizeof(S(0))
	bits := uint64(8 * unsafe.Sizeof(S(0)))
	sMax := T(1<<bits-1) >> 1
	if tBig && value > sMax {
		return S(sMax)
	}
	return S(value)
}

// SaturatingUCast cast a signed integer to an unsigned one, clipping to [0, T::MAX]
func SaturatingUCast[T Unsigned, S Signed](value S) T {
	if value <= 0 {
		return 0
	}
	tSmall := unsafe.Sizeof(T(0)) < unsafe.Sizeof(S(0))
	if tSmall && value >= S(^T(0)) {
		return ^T(0)
	}
	return T(value)
}

// ApproxExpBasisPoints return the Maclaurin series approximation of e^x, where x is denominated in basis points.
// The quartic polynomial will underestimate e^x by about 5% as x approaches 20000 bips.
func ApproxExpBasisPoints(value Bips, degree uint64) Bips {
	input := value
	negative := value < 0
	if negative {
		input = -value
	}
	x := uint64(input)
	bips := uint64(OneInBips)

	res := bips + x/degree
	for i := uint64(1); i < degree; i++ {
		res = bips + SaturatingUMul(res, x)/((degree-i)*bips)
	}

	if negative {
		return Bips(SaturatingCast[int64](bips * bips / res))
	}
	return Bips(SaturatingCast[int64](res))
}
