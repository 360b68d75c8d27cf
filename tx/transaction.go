// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tx implements Transaction (component D): parsing from canonical
// RLP with EIP-2718 type-envelope awareness, secp256k1 sender recovery, and
// the validation rules spec.md §4.D requires before a transaction may be
// executed.
package tx

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/thor"
)

// Type tags an EIP-2718 transaction envelope. Scheduled is engine-specific
// and has no EIP-2718 counterpart; it is assigned an unused type byte in the
// experimental range (0x00-0x7f is reserved by EIP-2718 for future standard
// types, so 0x7f is picked to sit at the far edge of that range farthest
// from any type the Ethereum ecosystem has assigned so far).
type Type byte

const (
	TypeLegacy     Type = 0x00
	TypeAccessList Type = 0x01
	TypeDynamicFee Type = 0x02
	TypeScheduled  Type = 0x7f
)

// Transaction is a parsed, immutable-for-the-lifetime-of-execution
// transaction together with its lazily recovered sender (spec.md §3
// "Transaction").
type Transaction struct {
	inner  txData
	sender *thor.Address // nil until Origin() recovers it
}

// txData is the per-variant payload; the fields every variant exposes are
// exactly the ones spec.md §3 lists as "present across all variants".
type txData struct {
	txType Type

	chainID   *uint256.Int // nil for legacy pre-EIP-155
	nonce     uint64
	gasPrice  *uint256.Int // legacy/access-list
	gasTipCap *uint256.Int // dynamic-fee
	gasFeeCap *uint256.Int // dynamic-fee
	gasLimit  uint256.Int
	target    *thor.Address // nil = CREATE
	value     uint256.Int
	data      []byte

	accessList AccessList

	// payer/index are Scheduled-only (engine-specific, authorized by the
	// Solana instruction that created the schedule entry rather than by an
	// ECDSA signature of their own).
	payer thor.Address
	index uint64

	v, r, s uint256.Int
}

// AccessTuple is a single address and the storage slots a transaction
// declares it will touch (EIP-2930).
type AccessTuple struct {
	Address     thor.Address
	StorageKeys []thor.Bytes32
}

// AccessList is the list of addresses/slots an AccessList or DynamicFee
// transaction pre-declares.
type AccessList []AccessTuple

// Type reports which EIP-2718 envelope (or Scheduled) tx was parsed from.
func (tx *Transaction) Type() Type { return tx.inner.txType }

// ChainID returns the transaction's chain id, or nil if it is a pre-EIP-155
// legacy transaction carrying none.
func (tx *Transaction) ChainID() *uint256.Int { return tx.inner.chainID }

// Nonce returns the sender-declared nonce.
func (tx *Transaction) Nonce() uint64 { return tx.inner.nonce }

// GasPrice returns the effective gas price: GasPrice for legacy/access-list,
// GasFeeCap for dynamic-fee (the engine has no base-fee market, so the fee
// cap is charged in full — see DESIGN.md's Open Question on EIP-1559).
func (tx *Transaction) GasPrice() *uint256.Int {
	if tx.inner.txType == TypeDynamicFee {
		return tx.inner.gasFeeCap
	}
	return tx.inner.gasPrice
}

// GasLimit returns the transaction's gas limit.
func (tx *Transaction) GasLimit() *uint256.Int { return &tx.inner.gasLimit }

// Target returns the call target, or nil for a CREATE transaction.
func (tx *Transaction) Target() *thor.Address { return tx.inner.target }

// Value returns the wei value transferred alongside the call/create.
func (tx *Transaction) Value() *uint256.Int { return &tx.inner.value }

// Data returns the call data (or init code, for CREATE).
func (tx *Transaction) Data() []byte { return tx.inner.data }

// AccessList returns the pre-declared access list, nil for legacy/Scheduled.
func (tx *Transaction) AccessList() AccessList { return tx.inner.accessList }

// IsCreate reports whether this transaction deploys a new contract.
func (tx *Transaction) IsCreate() bool { return tx.inner.target == nil }

// Payer returns the fee payer for a Scheduled transaction; meaningless for
// other types.
func (tx *Transaction) Payer() thor.Address { return tx.inner.payer }

// Index returns a Scheduled transaction's position in its schedule tree.
func (tx *Transaction) Index() uint64 { return tx.inner.index }

// RequiredBalance returns value + gas_limit*gas_price, the up-front balance
// a sender must hold for this transaction to validate (spec.md §4.D).
func (tx *Transaction) RequiredBalance() *uint256.Int {
	gasCost := new(uint256.Int).Mul(&tx.inner.gasLimit, tx.GasPrice())
	return new(uint256.Int).Add(gasCost, &tx.inner.value)
}

// SenderAccounts is the minimal read surface Validate needs from the
// account store — satisfied structurally by state.ExecutorState without
// this package importing package state.
type SenderAccounts interface {
	Nonce(addr thor.Address, chainID uint64) uint64
	Balance(addr thor.Address, chainID uint64) *uint256.Int
	CodeSize(addr thor.Address) int
}

// ValidationError marks a transaction as rejected before any state change
// occurred, per spec.md §7 "ValidationError".
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation error: " + e.Reason }

// Validate checks that chain_id matches chainID when the transaction
// carries one (pre-155 legacy transactions carry none and skip the check),
// that sender's nonce matches, that sender has no code, and that sender
// balance covers value+gas. It does not check a Scheduled transaction's
// payer authorization.
func Validate(tx *Transaction, sender thor.Address, chainID uint64, accounts SenderAccounts) error {
	if tx.inner.chainID != nil {
		if !tx.inner.chainID.IsUint64() || tx.inner.chainID.Uint64() != chainID {
			return &ValidationError{Reason: "chain id mismatch"}
		}
	}

	if accounts.Nonce(sender, chainID) != tx.inner.nonce {
		return &ValidationError{Reason: "nonce mismatch"}
	}

	if accounts.CodeSize(sender) != 0 {
		return &ValidationError{Reason: "sender account has code"}
	}

	required := tx.RequiredBalance()
	if accounts.Balance(sender, chainID).Lt(required) {
		return &ValidationError{Reason: "insufficient balance for gas + value"}
	}

	return nil
}

func deriveLegacyChainID(v *uint256.Int) *uint256.Int {
	// EIP-155: v = chain_id*2 + 35/36 for a signed legacy tx; v in {27,28}
	// (or their pre-EIP-155 unsigned equivalents 0/1) means no chain id.
	if v == nil {
		return nil
	}
	big27 := uint256.NewInt(27)
	big28 := uint256.NewInt(28)
	if v.Eq(big27) || v.Eq(big28) {
		return nil
	}
	vv := new(big.Int).SetBytes(v.Bytes())
	vv.Sub(vv, big.NewInt(35))
	chainID := new(big.Int).Rsh(vv, 1)
	if chainID.Sign() < 0 {
		return nil
	}
	out, _ := uint256.FromBig(chainID)
	return out
}

func copyAccessList(al AccessList) AccessList {
	if al == nil {
		return nil
	}
	cp := make(AccessList, len(al))
	copy(cp, al)
	return cp
}

var errNilTransaction = errors.New("nil transaction")
