// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/thor"
)

// StaticStorageLimit is the number of 32-byte entries a contract account
// holds inline before writes route to an out-of-line storage cell
// (component I / spec.md §3 "Storage cell", §4.I Step 3).
const StaticStorageLimit = 256

// AllocateResult reports whether every account an action list touches is
// already sized to receive its writes, per spec.md §4.I Step 1.
type AllocateResult uint8

const (
	// AllocateReady means every touched account has enough space; Apply may
	// proceed.
	AllocateReady AllocateResult = iota
	// AllocateNeedMore means at least one contract account needs more space
	// than this invocation is allowed to grow it by; the caller (the
	// iterative driver) must schedule another allocation-only iteration.
	AllocateNeedMore
)

// AccountWriter is the durable-store write surface the applier drives
// (component I's counterpart to AccountStorage's read surface). It is
// deliberately narrower than AccountStorage: only the operations an Action
// can produce.
type AccountWriter interface {
	// AllocateContract ensures addr's contract account has room for code of
	// the given length (plus the fixed StaticStorageLimit*32-byte region),
	// growing it incrementally if the platform caps a single invocation's
	// size increase. Ready if no further growth is needed.
	AllocateContract(addr thor.Address, codeLen int) (AllocateResult, error)

	CreateBalanceAccount(addr thor.Address, chainID uint64) error
	Transfer(from, to thor.Address, chainID uint64, value *uint256.Int) error
	Burn(addr thor.Address, chainID uint64, value *uint256.Int) error
	IncrementNonce(addr thor.Address, chainID uint64) error
	SetCode(addr thor.Address, chainID uint64, code []byte) error

	// SetStaticStorage writes index<StaticStorageLimit directly into the
	// contract account's inline region.
	SetStaticStorage(addr thor.Address, index uint8, value thor.Bytes32) error

	// SetCellStorage writes a group of index>=StaticStorageLimit entries
	// sharing the same cellIndex (index &^ 0xFF) into the out-of-line
	// storage cell at (addr, cellIndex), keyed within by subindex
	// (index & 0xFF).
	SetCellStorage(addr thor.Address, cellIndex uint256.Int, entries map[uint8]thor.Bytes32) error

	// InvokeExternal issues the signed cross-program call an
	// ExternalInstruction action queued.
	InvokeExternal(seeds [][]byte, data []byte, feeLamports uint64) error
}

// Allocate performs spec.md §4.I Step 1: ensure every EvmSetCode target in
// actions has enough space before Apply writes to it.
func Allocate(w AccountWriter, actions []Action) (AllocateResult, error) {
	result := AllocateReady
	for _, a := range actions {
		if a.Kind != ActionSetCode {
			continue
		}
		r, err := w.AllocateContract(a.Address, len(a.Code))
		if err != nil {
			return AllocateReady, errors.Wrapf(err, "allocate contract %x", a.Address)
		}
		if r == AllocateNeedMore {
			result = AllocateNeedMore
		}
	}
	return result, nil
}

// Apply replays actions against w in order (spec.md §4.I Step 2), buffering
// EvmSetStorage writes and flushing them last (Step 3), grouped by
// out-of-line storage cell. Ordering matches the applier's own rationale:
// later Transfers may depend on balances earlier Transfers created, while
// storage writes are commutative within an address and safe to defer.
func Apply(w AccountWriter, actions []Action) error {
	storage := make(map[thor.Address]map[uint256.Int]thor.Bytes32, 16)

	for _, a := range actions {
		switch a.Kind {
		case ActionTransfer:
			if err := w.CreateBalanceAccount(a.Target, a.ChainID); err != nil {
				return errors.Wrapf(err, "create target balance %x", a.Target)
			}
			if err := w.Transfer(a.Address, a.Target, a.ChainID, &a.Value); err != nil {
				return errors.Wrapf(err, "transfer %x -> %x", a.Address, a.Target)
			}

		case ActionBurn:
			if err := w.Burn(a.Address, a.ChainID, &a.Value); err != nil {
				return errors.Wrapf(err, "burn %x", a.Address)
			}

		case ActionIncrementNonce:
			if err := w.IncrementNonce(a.Address, a.ChainID); err != nil {
				return errors.Wrapf(err, "increment nonce %x", a.Address)
			}

		case ActionSetCode:
			if err := w.SetCode(a.Address, a.ChainID, a.Code); err != nil {
				return errors.Wrapf(err, "set code %x", a.Address)
			}

		case ActionSetStorage:
			m, ok := storage[a.Address]
			if !ok {
				m = make(map[uint256.Int]thor.Bytes32, 64)
				storage[a.Address] = m
			}
			m[a.Index] = a.Slot

		case ActionSelfDestruct:
			// Nothing is applied for SELFDESTRUCT: the interpreter already
			// emitted the Transfer/Burn that moved the balance out. This
			// holds for a contract created in the same transaction too: its
			// code and storage are not reset and no generation counter is
			// advanced here.

		case ActionExternalInstruction:
			if err := w.InvokeExternal(a.Seeds, a.Data, a.FeeLamports); err != nil {
				return errors.Wrap(err, "invoke external instruction")
			}

		case ActionEmitLog:
			// Logs have no durable-account representation; they are
			// surfaced to the caller via program return data / a log sink
			// outside AccountWriter's scope.
		}
	}

	return applyStorage(w, storage)
}

func applyStorage(w AccountWriter, storage map[thor.Address]map[uint256.Int]thor.Bytes32) error {
	limit := uint256.NewInt(StaticStorageLimit)

	for addr, entries := range storage {
		cells := make(map[uint256.Int]map[uint8]thor.Bytes32, len(entries))

		for index, value := range entries {
			idx := index
			if idx.Lt(limit) {
				if err := w.SetStaticStorage(addr, uint8(idx.Uint64()), value); err != nil {
					return errors.Wrapf(err, "set static storage %x[%s]", addr, idx.Hex())
				}
				continue
			}

			subindex := uint8(idx.Uint64() & 0xFF)
			cellIndex := new(uint256.Int).And(&idx, new(uint256.Int).Not(uint256.NewInt(0xFF)))

			m, ok := cells[*cellIndex]
			if !ok {
				m = make(map[uint8]thor.Bytes32, 32)
				cells[*cellIndex] = m
			}
			m[subindex] = value
		}

		for cellIndex, values := range cells {
			if err := w.SetCellStorage(addr, cellIndex, values); err != nil {
				return errors.Wrapf(err, "set cell storage %x[%s]", addr, cellIndex.Hex())
			}
		}
	}

	return nil
}
