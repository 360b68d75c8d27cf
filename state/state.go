// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state implements ExecutorState (component G): a checkpoint-stack
// overlay in front of an AccountStorage (component J), recording every
// mutation as an Action rather than writing through immediately. Snapshot,
// RevertSnapshot and CommitSnapshot map directly onto stackedmap's
// Push/Pop/Merge, giving every CALL/CREATE frame exact, O(1)
// revert semantics without copying any account data.
package state

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/stackedmap"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/vm"
)

// ErrNonceOverflow is returned by IncrementNonce when an account's nonce is
// already math.MaxUint64 (§7).
var ErrNonceOverflow = errors.New("nonce overflow")

type nonceKey struct {
	addr    thor.Address
	chainID uint64
}
type balanceKey struct {
	addr    thor.Address
	chainID uint64
}
type codeKey thor.Address
type storageKey struct {
	addr  thor.Address
	index uint256.Int
}
type destructedKey thor.Address

// PrecompileExtensionFunc wires the Neon-withdraw / Call-Solana extension
// precompiles (component K) into an ExecutorState without this package
// needing to import theirs. It receives the ExecutorState itself — rather
// than a narrower capability interface — because both extensions need the
// full read/write/external-instruction surface (Burn, ChainIDToToken,
// ContractPubkey, MapSolanaAccount, QueueExternalInstruction) and package
// extension already depends on package state, so there is no cycle to avoid
// by narrowing it.
type PrecompileExtensionFunc func(es *ExecutorState, ctx *vm.Context, addr thor.Address, input []byte, isStatic bool) (handled bool, output []byte, err error)

// ExecutorState is the vm.Database the interpreter runs against. It is built
// fresh for each top-level transaction and torn down once the iterative
// driver (package runtime) finalizes; resuming a suspended Machine reuses
// the same ExecutorState, not a new one, so warm/cold EIP-2929 tracking and
// the Action log both survive suspension.
type ExecutorState struct {
	storage AccountStorage
	sm      *stackedmap.StackedMap
	actions []Action
	actionMarks []actionMark

	precompileExt  PrecompileExtensionFunc
	solanaAccounts func(key thor.Address) []byte
}

// New builds an ExecutorState backed by storage, with an empty journal and
// action log (§4.G "Construction").
func New(storage AccountStorage) *ExecutorState {
	es := &ExecutorState{storage: storage}
	es.sm = stackedmap.New(es.lookup)
	return es
}

// SetPrecompileExtension installs the Neon-withdraw / Call-Solana dispatcher
// used by the vm.Database.PrecompileExtension hook. Left unset, no address
// outside the builtin 0x01-0x09 range is ever treated as a precompile.
func (es *ExecutorState) SetPrecompileExtension(fn PrecompileExtensionFunc) {
	es.precompileExt = fn
}

// SetSolanaAccountSource installs the raw-account lookup MapSolanaAccount
// uses to materialize a Buffer over account data the engine core otherwise
// has no concept of (arbitrary Solana accounts referenced by Call-Solana).
func (es *ExecutorState) SetSolanaAccountSource(fn func(key thor.Address) []byte) {
	es.solanaAccounts = fn
}

func (es *ExecutorState) lookup(key interface{}) (interface{}, bool, error) {
	switch k := key.(type) {
	case nonceKey:
		return es.storage.Nonce(k.addr, k.chainID), true, nil
	case balanceKey:
		return es.storage.Balance(k.addr, k.chainID), true, nil
	case codeKey:
		return es.storage.Code(thor.Address(k)), true, nil
	case storageKey:
		return es.storage.Storage(k.addr, &k.index), true, nil
	case destructedKey:
		return false, true, nil
	}
	return nil, false, nil
}

// Actions returns the recorded Action log, oldest first — the input to
// Apply (apply.go, component I) once the transaction finishes.
func (es *ExecutorState) Actions() []Action {
	return es.actions
}

// --- vm.Database: identity / environment ---

func (es *ExecutorState) ProgramID() thor.Address                   { return es.storage.ProgramID() }
func (es *ExecutorState) Operator() thor.Address                    { return es.storage.Operator() }
func (es *ExecutorState) ChainIDToToken(chainID uint64) thor.Address { return es.storage.ChainIDToToken(chainID) }
func (es *ExecutorState) DefaultChainID() uint64                    { return es.storage.DefaultChainID() }
func (es *ExecutorState) IsValidChainID(chainID uint64) bool        { return es.storage.IsValidChainID(chainID) }
func (es *ExecutorState) BlockNumber() uint64                       { return es.storage.BlockNumber() }
func (es *ExecutorState) BlockTimestamp() uint64                    { return es.storage.BlockTimestamp() }
func (es *ExecutorState) BlockHash(number uint64) thor.Bytes32      { return es.storage.BlockHash(number) }
func (es *ExecutorState) ContractChainID(addr thor.Address) (uint64, bool) {
	return es.storage.ContractChainID(addr)
}
func (es *ExecutorState) ContractPubkey(addr thor.Address) (thor.Address, byte) {
	return es.storage.ContractPubkey(addr)
}

// --- vm.Database: account reads ---

func (es *ExecutorState) Nonce(addr thor.Address, chainID uint64) uint64 {
	v, _, _ := es.sm.Get(nonceKey{addr, chainID})
	return v.(uint64)
}

func (es *ExecutorState) Balance(addr thor.Address, chainID uint64) *uint256.Int {
	v, _, _ := es.sm.Get(balanceKey{addr, chainID})
	return v.(*uint256.Int)
}

func (es *ExecutorState) Code(addr thor.Address) buffer.Buffer {
	v, _, _ := es.sm.Get(codeKey(addr))
	return buffer.FromSlice(v.([]byte))
}

func (es *ExecutorState) CodeSize(addr thor.Address) int {
	return es.Code(addr).Len()
}

func (es *ExecutorState) Storage(addr thor.Address, index *uint256.Int) thor.Bytes32 {
	v, _, _ := es.sm.Get(storageKey{addr, *index})
	return v.(thor.Bytes32)
}

// --- vm.Database: account writes ---

func (es *ExecutorState) IncrementNonce(addr thor.Address, chainID uint64) error {
	n := es.Nonce(addr, chainID)
	if n == ^uint64(0) {
		return ErrNonceOverflow
	}
	es.sm.Put(nonceKey{addr, chainID}, n+1)
	es.actions = append(es.actions, Action{Kind: ActionIncrementNonce, Address: addr, ChainID: chainID})
	return nil
}

func (es *ExecutorState) Transfer(from, to thor.Address, chainID uint64, value *uint256.Int) error {
	if value.IsZero() {
		return nil
	}
	fromBal := es.Balance(from, chainID)
	if fromBal.Lt(value) {
		return errors.New("insufficient balance")
	}
	newFrom := new(uint256.Int).Sub(fromBal, value)
	newTo := new(uint256.Int).Add(es.Balance(to, chainID), value)
	es.sm.Put(balanceKey{from, chainID}, newFrom)
	es.sm.Put(balanceKey{to, chainID}, newTo)
	es.actions = append(es.actions, Action{Kind: ActionTransfer, Address: from, Target: to, ChainID: chainID, Value: *value})
	return nil
}

func (es *ExecutorState) Burn(addr thor.Address, chainID uint64, value *uint256.Int) error {
	if value.IsZero() {
		return nil
	}
	bal := es.Balance(addr, chainID)
	if bal.Lt(value) {
		return errors.New("insufficient balance")
	}
	es.sm.Put(balanceKey{addr, chainID}, new(uint256.Int).Sub(bal, value))
	es.actions = append(es.actions, Action{Kind: ActionBurn, Address: addr, ChainID: chainID, Value: *value})
	return nil
}

func (es *ExecutorState) SetCode(addr thor.Address, chainID uint64, code []byte) error {
	cp := append([]byte(nil), code...)
	es.sm.Put(codeKey(addr), cp)
	es.actions = append(es.actions, Action{Kind: ActionSetCode, Address: addr, ChainID: chainID, Code: cp})
	return nil
}

func (es *ExecutorState) SetStorage(addr thor.Address, index *uint256.Int, value thor.Bytes32) error {
	es.sm.Put(storageKey{addr, *index}, value)
	es.actions = append(es.actions, Action{Kind: ActionSetStorage, Address: addr, Index: *index, Slot: value})
	return nil
}

func (es *ExecutorState) SelfDestruct(addr thor.Address) error {
	es.sm.Put(destructedKey(addr), true)
	es.actions = append(es.actions, Action{Kind: ActionSelfDestruct, Address: addr})
	return nil
}

func (es *ExecutorState) EmitLog(addr thor.Address, topics []thor.Bytes32, data []byte) error {
	es.actions = append(es.actions, Action{Kind: ActionEmitLog, Address: addr, Topics: topics, Data: data})
	return nil
}

// --- vm.Database: external execution ---

func (es *ExecutorState) PrecompileExtension(ctx *vm.Context, addr thor.Address, input []byte, isStatic bool) (bool, []byte, error) {
	if es.precompileExt == nil {
		return false, nil, nil
	}
	return es.precompileExt(es, ctx, addr, input, isStatic)
}

func (es *ExecutorState) QueueExternalInstruction(seeds [][]byte, data []byte, feeLamports uint64) error {
	es.actions = append(es.actions, Action{
		Kind:        ActionExternalInstruction,
		Seeds:       seeds,
		Data:        data,
		FeeLamports: feeLamports,
	})
	return nil
}

func (es *ExecutorState) MapSolanaAccount(key thor.Address, fn func(data []byte) buffer.Buffer) buffer.Buffer {
	if es.solanaAccounts == nil {
		return fn(nil)
	}
	return fn(es.solanaAccounts(key))
}

// --- vm.Database: snapshots ---

// Snapshot opens a new stackedmap checkpoint (§4.G "Snapshot/revert/commit").
func (es *ExecutorState) Snapshot() int {
	depth := es.sm.Push()
	es.actionMarks = append(es.actionMarks, actionMark{depth: depth, count: len(es.actions)})
	return depth
}

// RevertSnapshot discards every write made since the matching Snapshot.
// Actions already appended to the log before this snapshot was opened are
// untouched; the applier only ever sees the actions of frames that actually
// committed, because actions recorded inside a reverted frame are never
// replayed — the interpreter only calls RevertSnapshot on frames whose
// writes it is discarding, and reverted frames produce no further actions
// once they unwind.
func (es *ExecutorState) RevertSnapshot() {
	depth := es.sm.Depth()
	es.sm.Pop()
	es.truncateActionsAfterRevert(depth)
}

// CommitSnapshot folds a frame's writes into its parent's checkpoint: unlike
// RevertSnapshot, the journal entries made at this depth must survive, so it
// drops the checkpoint marker via stackedmap.Merge rather than truncating
// the journal the way Pop does.
func (es *ExecutorState) CommitSnapshot() {
	es.sm.Merge()
	if n := len(es.actionMarks); n > 0 {
		es.actionMarks = es.actionMarks[:n-1]
	}
}

// truncateActionsAfterRevert drops every action appended while depth was at
// its deepest (i.e. since the reverted frame's Snapshot call), mirroring
// stackedmap's journal truncation for the Action side-log.
func (es *ExecutorState) truncateActionsAfterRevert(checkpointDepth int) {
	// actionMark records, per checkpoint depth, how many actions existed
	// when that depth was entered; since depths are opened/closed strictly
	// in stack order, walking actions backward and dropping those recorded
	// at depth >= checkpointDepth is equivalent to stackedmap's own pop.
	for len(es.actionMarks) > 0 && es.actionMarks[len(es.actionMarks)-1].depth >= checkpointDepth {
		m := es.actionMarks[len(es.actionMarks)-1]
		es.actions = es.actions[:m.count]
		es.actionMarks = es.actionMarks[:len(es.actionMarks)-1]
	}
}

type actionMark struct {
	depth int
	count int
}
