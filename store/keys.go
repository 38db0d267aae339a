// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"encoding/binary"
	"math/big"
)

// AmountKeyLength is the length of an encoded amount key part.
const AmountKeyLength = 32

// Key concatenates key parts. All parts of one keyspace must have fixed
// lengths so that prefix iteration is unambiguous.
func Key(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	k := make([]byte, 0, n)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

// Uint64Key encodes v big-endian.
func Uint64Key(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// AmountKey encodes a non-negative amount as 32 bytes big-endian, which keeps keys ordered by amount.
func AmountKey(v *big.Int) []byte {
	if v.Sign() < 0 || v.BitLen() > 256 {
		panic("amount key out of range")
	}
	var b [AmountKeyLength]byte
	v.FillBytes(b[:])
	return b[:]
}

// AmountFromKey decodes an amount key part.
func AmountFromKey(b []byte) *big.Int {
	return new(big.Int).SetBytes(b[:AmountKeyLength])
}

// Uint64FromKey decodes a big-endian uint64 key part.
func Uint64FromKey(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[:8])
}
