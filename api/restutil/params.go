// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restutil

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/vechain/posledger/pos"
)

// ParseAddress parses a path or query address.
func ParseAddress(s string) (pos.Address, error) {
	addr, err := pos.ParseAddress(s)
	if err != nil {
		return pos.Address{}, BadRequest(errors.WithMessage(err, "address"))
	}
	return addr, nil
}

// ParseEpoch parses an epoch number. An empty string or "current" yields current.
func ParseEpoch(s string, current pos.Epoch) (pos.Epoch, error) {
	if s == "" || s == "current" {
		return current, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, "epoch"))
	}
	return pos.Epoch(n), nil
}
