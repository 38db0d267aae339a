// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"math/big"
	"sort"

	"github.com/vechain/posledger/pos"
)

var cubicFactor = pos.DecFromInt(9)

// CubicRate returns min(1, 9*f^2) where f is the implicated voting power
// fraction, capped at 1.
func CubicRate(fraction pos.Dec) pos.Dec {
	f := pos.MinDec(fraction, pos.OneDec())
	return pos.MinDec(cubicFactor.Mul(f).Mul(f), pos.OneDec())
}

// VotingPowerFraction returns count*stake/total, zero when total is zero.
func VotingPowerFraction(count int, stake, total *big.Int) pos.Dec {
	if total.Sign() == 0 {
		return pos.ZeroDec()
	}
	return pos.DecFromInt(int64(count)).Mul(pos.DecFromBig(stake)).Quo(pos.DecFromBig(total))
}

// SlashRate is the rate a processed slash is recorded with.
func SlashRate(params *pos.Params, t pos.SlashType, cubic pos.Dec) pos.Dec {
	return pos.MaxDec(params.MinSlashRate(t), cubic)
}

// EffectiveRate combines the slashes of one validator processed together, capped at 1.
func EffectiveRate(params *pos.Params, slashes []*pos.Slash, cubic pos.Dec) pos.Dec {
	rate := pos.ZeroDec()
	for _, s := range slashes {
		rate = pos.MinDec(pos.OneDec(), rate.Add(SlashRate(params, s.Type, cubic)))
	}
	return rate
}

// SortByEpoch orders slashes by infraction epoch, keeping the order of equal epochs.
func SortByEpoch(slashes []*pos.Slash) {
	sort.SliceStable(slashes, func(i, j int) bool {
		return slashes[i].Epoch < slashes[j].Epoch
	})
}

// ApplySlashesToAmount returns what is left of amount after the slashes, which
// must be sorted by epoch. A slash only applies to what earlier slashes,
// already processed at its infraction epoch, left over.
func ApplySlashesToAmount(params *pos.Params, slashes []*pos.Slash, amount *big.Int) *big.Int {
	offset := params.SlashProcessingEpochOffset()
	result := new(big.Int).Set(amount)
	computed := make(map[pos.Epoch]*big.Int, len(slashes))
	var epochs []pos.Epoch

	for _, s := range slashes {
		base := new(big.Int).Set(amount)
		for _, e := range epochs {
			if e.Add(offset) <= s.Epoch {
				base.Sub(base, computed[e])
				if base.Sign() < 0 {
					base.SetInt64(0)
				}
			}
		}
		slashed := pos.MulCeil(s.Rate, base)

		result.Sub(result, slashed)
		if result.Sign() < 0 {
			result.SetInt64(0)
		}
		if _, ok := computed[s.Epoch]; !ok {
			epochs = append(epochs, s.Epoch)
		}
		computed[s.Epoch] = slashed
	}
	return result
}
