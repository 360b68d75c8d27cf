// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/thor"
)

// Database is the capability surface the interpreter requires from its
// environment (component E / §4.E). ExecutorState (package state)
// implements it as a snapshotting overlay over an AccountStorage; the
// off-chain emulator may implement it directly over RPC with a blocking
// adapter — either way the interpreter only ever sees this synchronous
// interface, never an async one (see DESIGN.md's note on async-free core).
type Database interface {
	// Identity / environment.
	ProgramID() thor.Address
	Operator() thor.Address
	ChainIDToToken(chainID uint64) thor.Address
	DefaultChainID() uint64
	IsValidChainID(chainID uint64) bool
	BlockNumber() uint64
	BlockTimestamp() uint64
	BlockHash(number uint64) thor.Bytes32

	// Account reads.
	Nonce(addr thor.Address, chainID uint64) uint64
	Balance(addr thor.Address, chainID uint64) *uint256.Int
	Code(addr thor.Address) buffer.Buffer
	CodeSize(addr thor.Address) int
	Storage(addr thor.Address, index *uint256.Int) thor.Bytes32
	ContractChainID(addr thor.Address) (uint64, bool)
	ContractPubkey(addr thor.Address) (thor.Address, byte)

	// Account writes.
	IncrementNonce(addr thor.Address, chainID uint64) error
	Transfer(from, to thor.Address, chainID uint64, value *uint256.Int) error
	Burn(addr thor.Address, chainID uint64, value *uint256.Int) error
	SetCode(addr thor.Address, chainID uint64, code []byte) error
	SetStorage(addr thor.Address, index *uint256.Int, value thor.Bytes32) error
	SelfDestruct(addr thor.Address) error
	EmitLog(addr thor.Address, topics []thor.Bytes32, data []byte) error

	// Snapshots. Calls nest strictly: each Snapshot is matched by exactly
	// one of RevertSnapshot/CommitSnapshot at the same depth.
	Snapshot() int
	RevertSnapshot()
	CommitSnapshot()

	// External execution.
	PrecompileExtension(ctx *Context, addr thor.Address, input []byte, isStatic bool) (handled bool, output []byte, err error)
	QueueExternalInstruction(seeds [][]byte, data []byte, feeLamports uint64) error
	MapSolanaAccount(key thor.Address, fn func(data []byte) buffer.Buffer) buffer.Buffer
}
