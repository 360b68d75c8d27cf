// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package extension implements component K's extension precompiles — Neon
// withdraw and Call-Solana — dispatched through state.ExecutorState's
// PrecompileExtension seam rather than through vm's fixed 0x01-0x09 set,
// because both mutate durable state and enqueue external instructions
// instead of computing a pure function of their input. Grounded on
// evm_loader/program/src/executor/precompile_extension/{neon_token,
// call_solana}.rs.
package extension

import (
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/vm"
)

// accountSeedVersion prefixes every program-derived-address seed list, as
// ACCOUNT_SEED_VERSION does in the original source (its numeric value lives
// in a config module outside this port's source pack; any fixed byte serves
// the same purpose here, since nothing in this port re-derives Solana PDAs
// independently — seeds are only ever threaded opaquely through to
// QueueExternalInstruction).
const accountSeedVersion = 1

// NeonTokenAddress and CallSolanaAddress are the engine-assigned extension
// precompile addresses (§4.K "extension addresses fixed by the engine"),
// placed outside the fixed-address range 0x01-0x09 vm.RunBuiltinPrecompile
// reserves for the Ethereum precompile set.
var (
	NeonTokenAddress  = thor.Address{19: 0xFF}
	CallSolanaAddress = thor.Address{18: 0x01, 19: 0x00}
)

var errUnknownSelector = errors.New("extension: unknown method selector")

// New returns a state.PrecompileExtensionFunc dispatching NeonTokenAddress
// to the withdraw handler and CallSolanaAddress to the Call-Solana selector set;
// any other address is reported unhandled (ok=false) so the caller falls
// through to ordinary bytecode execution.
func New() state.PrecompileExtensionFunc {
	return func(es *state.ExecutorState, ctx *vm.Context, addr thor.Address, input []byte, isStatic bool) (bool, []byte, error) {
		switch addr {
		case NeonTokenAddress:
			out, err := neonToken(es, ctx, input, isStatic)
			return true, out, err
		case CallSolanaAddress:
			out, err := callSolana(es, ctx, input, isStatic)
			return true, out, err
		default:
			return false, nil, nil
		}
	}
}

func selector(input []byte) ([4]byte, []byte) {
	var id [4]byte
	if len(input) < 4 {
		return id, nil
	}
	copy(id[:], input[:4])
	return id, input[4:]
}

func boolReturn(v bool) []byte {
	out := make([]byte, 32)
	if v {
		out[31] = 1
	}
	return out
}
