// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"encoding/binary"
	"strconv"
)

// Epoch is the index of a staking epoch.
type Epoch uint64

// Next returns the following epoch.
func (e Epoch) Next() Epoch { return e + 1 }

// Prev returns the previous epoch, saturating at zero.
func (e Epoch) Prev() Epoch { return e.SubSat(1) }

// Add returns e + n.
func (e Epoch) Add(n uint64) Epoch { return e + Epoch(n) }

// SubSat returns e - n, saturating at zero.
func (e Epoch) SubSat(n uint64) Epoch {
	if uint64(e) < n {
		return 0
	}
	return e - Epoch(n)
}

// Bytes returns the big-endian encoding, which keeps storage keys ordered by epoch.
func (e Epoch) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(e))
	return b[:]
}

func (e Epoch) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// EpochFromBytes decodes a big-endian encoded epoch.
func EpochFromBytes(b []byte) Epoch {
	return Epoch(binary.BigEndian.Uint64(b))
}

// Range returns epochs in [e, e+n).
func (e Epoch) Range(n uint64) []Epoch {
	out := make([]Epoch, 0, n)
	for i := uint64(0); i < n; i++ {
		out = append(out, e.Add(i))
	}
	return out
}
