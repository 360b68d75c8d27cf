// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/thor"
)

// AccountStorage is the read-only view of durable state ExecutorState falls
// through to once its in-memory journal (stackedmap) has no entry for a key
// (component J). It is the seam between the engine core and whatever holds
// the actual account bytes — Solana account data in production, a plain
// in-memory fixture in tests.
type AccountStorage interface {
	Nonce(addr thor.Address, chainID uint64) uint64
	Balance(addr thor.Address, chainID uint64) *uint256.Int
	Code(addr thor.Address) []byte
	Storage(addr thor.Address, index *uint256.Int) thor.Bytes32
	BlockHash(number uint64) thor.Bytes32
	BlockNumber() uint64
	BlockTimestamp() uint64

	// ContractChainID reports the chain a deployed contract was created
	// under, ok=false if addr has no contract account yet.
	ContractChainID(addr thor.Address) (uint64, bool)

	// ContractPubkey derives the Solana account key and bump seed backing
	// a contract's storage, independent of whether it has been created yet.
	ContractPubkey(addr thor.Address) (thor.Address, byte)

	// Revision reports addr's current durable-storage revision counter, used
	// by the iterative driver's RevisionChanged check (§3 "Iteration state",
	// §4.H "Revision check"): an account is touched the moment any of the
	// methods above or AccountWriter's writes reference it, and the driver
	// records this value at first touch, re-checking it on every later
	// iteration of the same transaction.
	Revision(addr thor.Address) uint64

	ProgramID() thor.Address
	Operator() thor.Address
	ChainIDToToken(chainID uint64) thor.Address
	DefaultChainID() uint64
	IsValidChainID(chainID uint64) bool

	// Treasury resolves one of the program's configured treasury accounts
	// by index, the destination of the iterative driver's per-iteration fee
	// (§6 "CollectTreasure", §4.H "Finalization").
	Treasury(index uint32) thor.Address
}
