// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wire

import (
	"math"

	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/runtime"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/tx"
)

// unboundedSteps is passed as the step budget for the "Execute" family
// (TransactionExecuteFrom*), which carries no step-count field of its own —
// unlike the "Step" family, it means to run to a terminal status (or the
// driver's own StepsLastIterationMax deferral) in one call.
const unboundedSteps = math.MaxUint64

// ErrNotTransactionTag is returned by Router methods when called with a tag
// outside the TransactionExecute*/TransactionStep*/Cancel family.
var ErrNotTransactionTag = errors.New("wire: tag is not a transaction-execution instruction")

// Router dispatches the transaction-execution family of instruction tags
// (§6 "0x32"-"0x37") onto a runtime.Driver. It owns no account I/O itself:
// callers resolve "Accounts (positional)" from the surrounding instruction
// (the already-parsed Transaction for the *FromAccount tags, the persisted
// Holder, the tx hash) and pass them in already-resolved, the same way
// runtime.Driver's own methods expect them.
type Router struct {
	Driver *runtime.Driver
}

// HandleTransactionExecuteFromInstruction implements tag 0x32: the payload
// carries the transaction bytes directly, so the tx hash is derived from
// them rather than supplied separately.
func (r *Router) HandleTransactionExecuteFromInstruction(payload []byte) (*runtime.Result, error) {
	treasuryIndex, txBytes, err := DecodeTransactionExecuteFromInstruction(payload)
	if err != nil {
		return nil, err
	}
	r.Driver.TreasuryIndex = treasuryIndex
	txHash := thor.Keccak256(txBytes)
	return r.Driver.BeginFromInstruction(txBytes, txHash, unboundedSteps)
}

// HandleTransactionExecuteFromAccount implements tag 0x33: the transaction
// itself was previously written into a Holder account by a HolderWrite/
// HolderCreate instruction this package does not parse Solana accounts for,
// so the caller supplies the already-decoded transaction, its hash, and the
// existing Holder (nil for a fresh one).
func (r *Router) HandleTransactionExecuteFromAccount(payload []byte, transaction *tx.Transaction, txHash thor.Bytes32, existing *runtime.Holder) (*runtime.Result, error) {
	treasuryIndex, err := DecodeTransactionExecuteFromAccount(payload)
	if err != nil {
		return nil, err
	}
	r.Driver.TreasuryIndex = treasuryIndex
	return r.Driver.BeginFromAccount(transaction, txHash, unboundedSteps, existing)
}

// HandleTransactionStepFromInstruction implements tag 0x34.
func (r *Router) HandleTransactionStepFromInstruction(payload []byte) (*runtime.Result, error) {
	treasuryIndex, stepCount, txBytes, err := DecodeTransactionStepFromInstruction(payload)
	if err != nil {
		return nil, err
	}
	r.Driver.TreasuryIndex = treasuryIndex
	txHash := thor.Keccak256(txBytes)
	return r.Driver.BeginFromInstruction(txBytes, txHash, uint64(stepCount))
}

// HandleTransactionStepFromAccount implements both tag 0x35 and tag 0x36
// (TransactionStepFromAccountNoChainId), whose payloads are identical (§6:
// "as 0x35") — the chain-id handling difference lives in how the caller
// resolved the Holder being continued, not in this instruction's own
// payload.
func (r *Router) HandleTransactionStepFromAccount(payload []byte, existing *runtime.Holder) (*runtime.Result, error) {
	treasuryIndex, stepCount, err := DecodeTransactionStepFromAccount(payload)
	if err != nil {
		return nil, err
	}
	r.Driver.TreasuryIndex = treasuryIndex
	return r.Driver.Continue(existing, uint64(stepCount))
}

// HandleCancel implements tag 0x37, rejecting a mismatched tx hash rather
// than silently cancelling the wrong Holder.
func (r *Router) HandleCancel(payload []byte, existing *runtime.Holder) (*runtime.Result, error) {
	txHash, err := DecodeCancel(payload)
	if err != nil {
		return nil, err
	}
	if existing.TxHash != txHash {
		return nil, errors.New("wire: cancel tx hash does not match holder")
	}
	return r.Driver.Cancel(existing)
}

// Handle dispatches tag to the matching Handle* method for every tag in
// Tag.IsTransaction(); extra carries whatever account-resolved inputs that
// tag's handler needs beyond the payload (see each Handle* method). It
// returns ErrNotTransactionTag for every other tag — those require Solana
// account I/O this package does not implement (see DESIGN.md).
func (r *Router) Handle(tag Tag, payload []byte, extra TransactionExtras) (*runtime.Result, error) {
	switch tag {
	case TagTransactionExecuteFromInstruction:
		return r.HandleTransactionExecuteFromInstruction(payload)
	case TagTransactionExecuteFromAccount:
		return r.HandleTransactionExecuteFromAccount(payload, extra.Transaction, extra.TxHash, extra.Holder)
	case TagTransactionStepFromInstruction:
		return r.HandleTransactionStepFromInstruction(payload)
	case TagTransactionStepFromAccount, TagTransactionStepFromAccountNoChainID:
		return r.HandleTransactionStepFromAccount(payload, extra.Holder)
	case TagCancel:
		return r.HandleCancel(payload, extra.Holder)
	default:
		return nil, ErrNotTransactionTag
	}
}

// TransactionExtras carries the account-resolved inputs a *FromAccount/Cancel
// handler needs beyond its instruction payload, since this package parses
// instruction bytes only and never Solana account data itself.
type TransactionExtras struct {
	Transaction *tx.Transaction
	TxHash      thor.Bytes32
	Holder      *runtime.Holder
}
