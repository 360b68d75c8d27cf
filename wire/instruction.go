// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package wire implements §6's external program interface: the
// instruction-tag byte every invocation is dispatched on, and the payload
// layouts carried behind it. Tag values and field orders here MUST be
// preserved bit-exact — they are the on-chain wire format, not an internal
// convenience encoding.
//
// Only the transaction-execution family (Tag.IsTransaction()) is wired to a
// runtime.Driver: those tags carry everything their handler needs inside the
// instruction payload itself. The remaining tags (Holder account
// create/delete/write, CreateMainTreasury, AccountCreateBalance, Deposit, and
// the Config query range) name operations against durable Solana accounts
// this port has no SDK to parse — see DESIGN.md. Their tag constants and
// payload decoders are still implemented here (decode is pure and needs no
// account access), so a host integration only has to supply account I/O, not
// rediscover the wire format.
package wire

import "github.com/pkg/errors"

// Tag is the first byte of every instruction's data, selecting which
// operation the program performs (§6 "Instruction tags").
type Tag byte

const (
	TagCollectTreasure Tag = 0x1e

	TagHolderCreate Tag = 0x24
	TagHolderDelete Tag = 0x25
	TagHolderWrite  Tag = 0x26

	TagCreateMainTreasury Tag = 0x29

	TagAccountCreateBalance Tag = 0x30
	TagDeposit              Tag = 0x31

	TagTransactionExecuteFromInstruction   Tag = 0x32
	TagTransactionExecuteFromAccount       Tag = 0x33
	TagTransactionStepFromInstruction      Tag = 0x34
	TagTransactionStepFromAccount          Tag = 0x35
	TagTransactionStepFromAccountNoChainID Tag = 0x36
	TagCancel                              Tag = 0x37

	// TagConfigQueryMin and TagConfigQueryMax bound the 0xA0-0xA7 range of
	// read-only configuration queries (§6 "Config queries").
	TagConfigQueryMin Tag = 0xA0
	TagConfigQueryMax Tag = 0xA7
)

// errShortInstruction is returned by every decoder when the payload is
// shorter than its fixed-size fields require.
var errShortInstruction = errors.New("wire: instruction payload too short")

// IsTransaction reports whether tag belongs to the Begin/Continue/Cancel
// family runtime.Driver implements directly.
func (t Tag) IsTransaction() bool {
	switch t {
	case TagTransactionExecuteFromInstruction,
		TagTransactionExecuteFromAccount,
		TagTransactionStepFromInstruction,
		TagTransactionStepFromAccount,
		TagTransactionStepFromAccountNoChainID,
		TagCancel:
		return true
	default:
		return false
	}
}

// IsConfigQuery reports whether tag falls in the 0xA0-0xA7 read-only range.
func (t Tag) IsConfigQuery() bool {
	return t >= TagConfigQueryMin && t <= TagConfigQueryMax
}

func (t Tag) String() string {
	switch t {
	case TagCollectTreasure:
		return "CollectTreasure"
	case TagHolderCreate:
		return "HolderCreate"
	case TagHolderDelete:
		return "HolderDelete"
	case TagHolderWrite:
		return "HolderWrite"
	case TagCreateMainTreasury:
		return "CreateMainTreasury"
	case TagAccountCreateBalance:
		return "AccountCreateBalance"
	case TagDeposit:
		return "Deposit"
	case TagTransactionExecuteFromInstruction:
		return "TransactionExecuteFromInstruction"
	case TagTransactionExecuteFromAccount:
		return "TransactionExecuteFromAccount"
	case TagTransactionStepFromInstruction:
		return "TransactionStepFromInstruction"
	case TagTransactionStepFromAccount:
		return "TransactionStepFromAccount"
	case TagTransactionStepFromAccountNoChainID:
		return "TransactionStepFromAccountNoChainId"
	case TagCancel:
		return "Cancel"
	default:
		if t.IsConfigQuery() {
			return "ConfigQuery"
		}
		return "Unknown"
	}
}

// ParseInstruction splits a raw instruction's data into its tag byte and
// trailing payload.
func ParseInstruction(data []byte) (Tag, []byte, error) {
	if len(data) < 1 {
		return 0, nil, errShortInstruction
	}
	return Tag(data[0]), data[1:], nil
}
