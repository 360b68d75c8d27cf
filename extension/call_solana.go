// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package extension

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/vm"
)

// Call-Solana method selectors, grounded on call_solana.rs's own comment
// block. Only the CPI-dispatch and address-derivation selectors are
// implemented here; createResource/getResourceAddress/getSolanaPDA/
// getExtAuthority/getPayer manage engine-owned PDA bookkeeping this port's
// SPEC_FULL.md scope has no durable representation for yet (see DESIGN.md).
var (
	selExecute         = [4]byte{0xc5, 0x49, 0xa7, 0xaf} // execute(uint64,bytes)
	selExecuteWithSeed = [4]byte{0x32, 0x60, 0x74, 0x50} // executeWithSeed(uint64,bytes32,bytes)
	selGetNeonAddress  = [4]byte{0x15, 0x4d, 0x4a, 0xa5} // getNeonAddress(address)
)

func callSolana(es *state.ExecutorState, ctx *vm.Context, input []byte, isStatic bool) ([]byte, error) {
	if !ctx.Value.IsZero() {
		return nil, errors.New("extension: call-solana value must be zero")
	}

	id, args := selector(input)
	switch id {
	case selExecute:
		return execute(es, ctx, args)
	case selExecuteWithSeed:
		return executeWithSeed(es, ctx, args)
	case selGetNeonAddress:
		return getNeonAddress(es, args)
	default:
		return nil, errUnknownSelector
	}
}

func execute(es *state.ExecutorState, ctx *vm.Context, args []byte) ([]byte, error) {
	requiredLamports, err := readUint64Word(args, 0)
	if err != nil {
		return nil, errors.Wrap(err, "required lamports")
	}
	instruction, err := readDynamicBytes(args, 32)
	if err != nil {
		return nil, errors.Wrap(err, "instruction")
	}

	_, bump := es.ContractPubkey(ctx.Caller)
	seeds := [][]byte{{accountSeedVersion}, ctx.Caller.Bytes(), {bump}}

	return nil, es.QueueExternalInstruction(seeds, instruction, requiredLamports)
}

func executeWithSeed(es *state.ExecutorState, ctx *vm.Context, args []byte) ([]byte, error) {
	requiredLamports, err := readUint64Word(args, 0)
	if err != nil {
		return nil, errors.Wrap(err, "required lamports")
	}
	if len(args) < 64 {
		return nil, errors.New("extension: executeWithSeed input too short")
	}
	salt := args[32:64]
	instruction, err := readDynamicBytes(args, 64)
	if err != nil {
		return nil, errors.Wrap(err, "instruction")
	}

	_, bump := es.ContractPubkey(ctx.Caller)
	seeds := [][]byte{{accountSeedVersion}, []byte("AUTH"), ctx.Caller.Bytes(), salt, {bump}}

	return nil, es.QueueExternalInstruction(seeds, instruction, requiredLamports)
}

func getNeonAddress(es *state.ExecutorState, args []byte) ([]byte, error) {
	if len(args) < 32 {
		return nil, errors.New("extension: getNeonAddress input too short")
	}
	addr := thor.BytesToAddress(args[12:32])
	pubkey, _ := es.ContractPubkey(addr)
	out := make([]byte, 32)
	copy(out[12:], pubkey.Bytes())
	return out, nil
}

func readUint64Word(args []byte, at int) (uint64, error) {
	if len(args) < at+32 {
		return 0, errors.New("extension: word out of bounds")
	}
	v := new(uint256.Int).SetBytes(args[at : at+32])
	if !v.IsUint64() {
		return 0, errors.New("extension: value exceeds uint64")
	}
	return v.Uint64(), nil
}

func readDynamicBytes(args []byte, offsetAt int) ([]byte, error) {
	offset, err := readUint64Word(args, offsetAt)
	if err != nil {
		return nil, err
	}
	length, err := readUint64Word(args, int(offset))
	if err != nil {
		return nil, err
	}
	start := int(offset) + 32
	end := start + int(length)
	if end < start || end > len(args) {
		return nil, errors.New("extension: dynamic bytes out of bounds")
	}
	return args[start:end], nil
}
