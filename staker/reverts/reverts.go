// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the errors that reject a staking transaction.
// A rejected transaction must be reverted as a whole by the caller.
package reverts

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace of staking errors.
const Codespace = "pos"

var (
	ErrNotAValidator             = errorsmod.Register(Codespace, 2, "not a validator")
	ErrInvalidBondSource         = errorsmod.Register(Codespace, 3, "bond source is a validator")
	ErrInsufficientBond          = errorsmod.Register(Codespace, 4, "insufficient bond")
	ErrValidatorFrozen           = errorsmod.Register(Codespace, 5, "validator is frozen")
	ErrValidatorJailed           = errorsmod.Register(Codespace, 6, "validator is jailed")
	ErrChainedRedelegation       = errorsmod.Register(Codespace, 7, "chained redelegation")
	ErrEpochOutOfRange           = errorsmod.Register(Codespace, 8, "epoch out of range")
	ErrNotEligibleForMisbehavior = errorsmod.Register(Codespace, 9, "validator not eligible for misbehavior")
	ErrOverflow                  = errorsmod.Register(Codespace, 10, "arithmetic overflow")
	ErrUnderflow                 = errorsmod.Register(Codespace, 11, "arithmetic underflow")
	ErrValidatorAlreadyExists    = errorsmod.Register(Codespace, 12, "validator already exists")
	ErrConsensusKeyInUse         = errorsmod.Register(Codespace, 13, "consensus key already in use")
	ErrInvalidCommissionRate     = errorsmod.Register(Codespace, 14, "invalid commission rate")
	ErrCommissionChangeTooLarge  = errorsmod.Register(Codespace, 15, "commission rate change too large")
	ErrRedelegationSrcEqDest     = errorsmod.Register(Codespace, 16, "redelegation source equals destination")
	ErrRedelegationOfSelfBond    = errorsmod.Register(Codespace, 17, "self-bond cannot be redelegated")
	ErrValidatorNotJailed        = errorsmod.Register(Codespace, 18, "validator is not jailed")
	ErrValidatorInactive         = errorsmod.Register(Codespace, 19, "validator is inactive")
	ErrValidatorNotInactive      = errorsmod.Register(Codespace, 20, "validator is not inactive")
	ErrInsufficientBalance       = errorsmod.Register(Codespace, 21, "insufficient balance")
)

// IsRevertErr reports whether err rejects a transaction, as opposed to a storage fault.
func IsRevertErr(err error) bool {
	if err == nil {
		return false
	}
	codespace, _, _ := errorsmod.ABCIInfo(err, false)
	return codespace == Codespace
}

// Code returns the registered code of a revert error, 0 otherwise.
func Code(err error) uint32 {
	if !IsRevertErr(err) {
		return 0
	}
	_, code, _ := errorsmod.ABCIInfo(err, false)
	return code
}
