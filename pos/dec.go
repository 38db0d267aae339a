// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Dec is a fixed point decimal with 18 digits of precision, used for rates.
type Dec = sdkmath.LegacyDec

var (
	zeroDec = sdkmath.LegacyZeroDec()
	oneDec  = sdkmath.LegacyOneDec()
)

// ZeroDec returns a zero rate.
func ZeroDec() Dec { return zeroDec.Clone() }

// OneDec returns a rate of 1.
func OneDec() Dec { return oneDec.Clone() }

// MustParseDec parses a decimal string, panics on error.
func MustParseDec(s string) Dec { return sdkmath.LegacyMustNewDecFromStr(s) }

// ParseDec parses a decimal string.
func ParseDec(s string) (Dec, error) { return sdkmath.LegacyNewDecFromStr(s) }

// DecFromBig converts an integer amount into a decimal.
func DecFromBig(i *big.Int) Dec { return sdkmath.LegacyNewDecFromBigInt(i) }

// DecFromInt converts an int64 into a decimal.
func DecFromInt(i int64) Dec { return sdkmath.LegacyNewDec(i) }

// MulCeil returns ceil(rate * amount).
func MulCeil(rate Dec, amount *big.Int) *big.Int {
	return rate.MulInt(sdkmath.NewIntFromBigInt(amount)).Ceil().TruncateInt().BigInt()
}

// MinDec returns the smaller of two decimals.
func MinDec(a, b Dec) Dec { return sdkmath.LegacyMinDec(a, b) }

// MaxDec returns the larger of two decimals.
func MaxDec(a, b Dec) Dec { return sdkmath.LegacyMaxDec(a, b) }

// RawDec returns the scaled integer representation of a decimal for encoding.
func RawDec(d Dec) *big.Int {
	if d.IsNil() {
		return new(big.Int)
	}
	return d.BigInt()
}

// DecFromRaw is the inverse of RawDec.
func DecFromRaw(i *big.Int) Dec {
	if i == nil {
		return ZeroDec()
	}
	return sdkmath.LegacyNewDecFromBigIntWithPrec(i, sdkmath.LegacyPrecision)
}
