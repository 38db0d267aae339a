// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"crypto/ecdsa"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vechain/posledger/pos"
)

// DevAccount account for development.
type DevAccount struct {
	Address    pos.Address
	PrivateKey *ecdsa.PrivateKey
}

var devAccounts atomic.Value

// DevAccounts returns the pre-funded accounts of the dev network.
func DevAccounts() []DevAccount {
	if accs := devAccounts.Load(); accs != nil {
		return accs.([]DevAccount)
	}

	var accs []DevAccount
	privKeys := []string{
		"dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65",
		"321d6443bc6177273b5abf54210fe806d451d6b7973bccc2384ef78bbcd0bf51",
		"2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2",
		"593537225b037191d322c3b1df585fb1e5100811b71a6f7fc7e29cca1333483e",
		"ca7b25fc980c759df5f3ce17a3d881d6e19a38e651fc4315fc08917edab41058",
		"88d2d80b12b92feaa0da6d62309463d20408157723f2d7e799b6a74ead9a673b",
	}
	for _, str := range privKeys {
		pk, err := crypto.HexToECDSA(str)
		if err != nil {
			panic(err)
		}
		accs = append(accs, DevAccount{pos.Address(crypto.PubkeyToAddress(pk.PublicKey)), pk})
	}
	devAccounts.Store(accs)
	return accs
}

// devValidators is the number of dev accounts starting as validators.
const devValidators = 3

// NewDevnet creates the dev network genesis. The first dev accounts are
// validators with decreasing stake, every dev account is funded.
func NewDevnet() *Genesis {
	builder := new(Builder).Name("devnet").Params(pos.DefaultParams())

	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	for i, acc := range DevAccounts() {
		if i < devValidators {
			key := crypto.CompressPubkey(&acc.PrivateKey.PublicKey)
			builder.Validator(pos.GenesisValidator{
				Address:                 acc.Address,
				Tokens:                  new(big.Int).Mul(big.NewInt(int64(1000*(devValidators-i))), unit),
				ConsensusKey:            key,
				EthColdKey:              key,
				EthHotKey:               key,
				CommissionRate:          pos.MustParseDec("0.05"),
				MaxCommissionRateChange: pos.MustParseDec("0.01"),
			})
			continue
		}
		builder.Account(acc.Address, new(big.Int).Mul(big.NewInt(1_000_000), unit))
	}

	gen, err := builder.Build()
	if err != nil {
		panic(err)
	}
	return gen
}
