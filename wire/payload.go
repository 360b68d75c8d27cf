// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wire

import (
	"encoding/binary"

	"github.com/nodeseeker/evmcore/thor"
)

// No example repo in this port's reference pack depends on a Solana SDK or a
// borsh-style codec, so these LE field layouts are decoded directly with
// encoding/binary rather than through a third-party wire library — there is
// nothing in the pack to ground one on (see DESIGN.md).

// DecodeCollectTreasure reads CollectTreasure's `u32 LE treasury index`.
func DecodeCollectTreasure(payload []byte) (treasuryIndex uint32, err error) {
	if len(payload) < 4 {
		return 0, errShortInstruction
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// DecodeHolderCreate reads HolderCreate's `u64 LE seed_len` followed by that
// many seed bytes.
func DecodeHolderCreate(payload []byte) (seed []byte, err error) {
	if len(payload) < 8 {
		return nil, errShortInstruction
	}
	seedLen := binary.LittleEndian.Uint64(payload)
	rest := payload[8:]
	if uint64(len(rest)) < seedLen {
		return nil, errShortInstruction
	}
	return rest[:seedLen], nil
}

// DecodeHolderWrite reads HolderWrite's `32-byte tx hash, u64 LE offset, tx
// bytes`.
func DecodeHolderWrite(payload []byte) (txHash thor.Bytes32, offset uint64, data []byte, err error) {
	if len(payload) < 40 {
		return thor.Bytes32{}, 0, nil, errShortInstruction
	}
	copy(txHash[:], payload[:32])
	offset = binary.LittleEndian.Uint64(payload[32:40])
	return txHash, offset, payload[40:], nil
}

// DecodeAddressChainID reads a `20-byte address, u64 LE chain_id` pair, the
// shared payload shape of AccountCreateBalance and Deposit.
func DecodeAddressChainID(payload []byte) (addr thor.Address, chainID uint64, err error) {
	if len(payload) < 28 {
		return thor.Address{}, 0, errShortInstruction
	}
	addr = thor.BytesToAddress(payload[:20])
	chainID = binary.LittleEndian.Uint64(payload[20:28])
	return addr, chainID, nil
}

// DecodeTransactionExecuteFromInstruction reads `u32 LE treasury index, tx
// bytes`.
func DecodeTransactionExecuteFromInstruction(payload []byte) (treasuryIndex uint32, txBytes []byte, err error) {
	if len(payload) < 4 {
		return 0, nil, errShortInstruction
	}
	return binary.LittleEndian.Uint32(payload), payload[4:], nil
}

// DecodeTransactionExecuteFromAccount reads `u32 LE treasury index`.
func DecodeTransactionExecuteFromAccount(payload []byte) (treasuryIndex uint32, err error) {
	if len(payload) < 4 {
		return 0, errShortInstruction
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// DecodeTransactionStepFromInstruction reads `u32 LE treasury index, u32 LE
// step count, tx bytes`.
func DecodeTransactionStepFromInstruction(payload []byte) (treasuryIndex uint32, stepCount uint32, txBytes []byte, err error) {
	if len(payload) < 8 {
		return 0, 0, nil, errShortInstruction
	}
	treasuryIndex = binary.LittleEndian.Uint32(payload[0:4])
	stepCount = binary.LittleEndian.Uint32(payload[4:8])
	return treasuryIndex, stepCount, payload[8:], nil
}

// DecodeTransactionStepFromAccount reads `u32 LE treasury index, u32 LE step
// count`; it also covers TransactionStepFromAccountNoChainId, whose payload
// is identical (§6: "as 0x35").
func DecodeTransactionStepFromAccount(payload []byte) (treasuryIndex uint32, stepCount uint32, err error) {
	if len(payload) < 8 {
		return 0, 0, errShortInstruction
	}
	return binary.LittleEndian.Uint32(payload[0:4]), binary.LittleEndian.Uint32(payload[4:8]), nil
}

// DecodeCancel reads Cancel's `32-byte tx hash`.
func DecodeCancel(payload []byte) (txHash thor.Bytes32, err error) {
	if len(payload) < 32 {
		return thor.Bytes32{}, errShortInstruction
	}
	copy(txHash[:], payload[:32])
	return txHash, nil
}
