// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/thor"
)

// WriteKind tags one journal entry of a Snapshot, letting Import replay it
// without going through ExecutorState's validating public methods (the
// write already passed validation once, the first time it happened).
type WriteKind uint8

const (
	WriteNonce WriteKind = iota
	WriteBalance
	WriteCode
	WriteStorage
	WriteDestructed
)

// Write is one journal entry: the overlay's key/value pair plus enough of
// the original key's fields to reconstruct it, since stackedmap itself only
// deals in opaque interface{} keys.
type Write struct {
	Kind WriteKind

	Address thor.Address
	ChainID uint64
	Index   uint256.Int

	NonceValue   uint64
	BalanceValue *uint256.Int
	CodeValue    []byte
	StorageValue thor.Bytes32
	Destructed   bool
}

// Mark records where, in the flat Writes/Actions slices, a checkpoint was
// opened — the serializable form of ExecutorState's internal actionMarks,
// which already carries exactly this bookkeeping.
type Mark struct {
	Depth       int
	WriteCount  int
	ActionCount int
}

// Snapshot is the serializable projection of an ExecutorState: the flat
// write journal and action log, plus the checkpoint boundaries needed to
// replay both in the original nested order (§4.H "Serialization" — the
// overlay is exactly as resumable as the Machine it backs).
type Snapshot struct {
	Writes  []Write
	Actions []Action
	Marks   []Mark
}

// Export captures es's entire overlay — every write ever made (including
// ones later folded into a parent checkpoint by CommitSnapshot, which never
// truncates the journal) and the still-open checkpoint stack. A suspended
// iteration always exports at checkpoint depth 1 (every frame that ran
// during this iteration either committed or reverted before Execute
// returned StepLimit), so Marks is normally empty; it is still captured for
// robustness and because a future caller may suspend mid-nested-call.
func (es *ExecutorState) Export() Snapshot {
	var writes []Write
	es.sm.Journal(func(k, v interface{}) bool {
		writes = append(writes, exportWrite(k, v))
		return true
	})

	// es.actionMarks is pushed/popped in lockstep with sm's own checkpoint
	// stack (every Snapshot/RevertSnapshot/CommitSnapshot touches both), so
	// checkpoints[i+1] (checkpoints[0] is the permanent base) is exactly the
	// write-journal length at the moment actionMarks[i] was recorded.
	checkpoints := es.sm.Checkpoints()
	marks := make([]Mark, len(es.actionMarks))
	for i, m := range es.actionMarks {
		marks[i] = Mark{Depth: m.depth, WriteCount: checkpoints[i+1], ActionCount: m.count}
	}

	return Snapshot{
		Writes:  writes,
		Actions: append([]Action(nil), es.actions...),
		Marks:   marks,
	}
}

func exportWrite(k, v interface{}) Write {
	switch key := k.(type) {
	case nonceKey:
		return Write{Kind: WriteNonce, Address: key.addr, ChainID: key.chainID, NonceValue: v.(uint64)}
	case balanceKey:
		return Write{Kind: WriteBalance, Address: key.addr, ChainID: key.chainID, BalanceValue: v.(*uint256.Int)}
	case codeKey:
		return Write{Kind: WriteCode, Address: thor.Address(key), CodeValue: v.([]byte)}
	case storageKey:
		return Write{Kind: WriteStorage, Address: key.addr, Index: key.index, StorageValue: v.(thor.Bytes32)}
	case destructedKey:
		return Write{Kind: WriteDestructed, Address: thor.Address(key), Destructed: v.(bool)}
	default:
		panic("state: unknown journal key type in Export")
	}
}

// Import rebuilds an ExecutorState backed by storage from a Snapshot,
// replaying writes and re-opening checkpoints in their original interleaved
// order: stackedmap.Put always appends to one flat tail journal regardless
// of "current" depth, so pushing every checkpoint up front and replaying all
// writes afterwards would put every write after the last checkpoint and
// corrupt revert boundaries. Instead this walks Marks in order, replaying
// each depth's own slice of writes/actions before opening the next
// checkpoint, then replays whatever is left over (the innermost, still-open
// depth) without opening a further one.
func Import(storage AccountStorage, snap Snapshot) *ExecutorState {
	es := New(storage)

	writeIdx, actionIdx := 0, 0
	for _, m := range snap.Marks {
		for ; writeIdx < m.WriteCount; writeIdx++ {
			replayWrite(es, snap.Writes[writeIdx])
		}
		for ; actionIdx < m.ActionCount; actionIdx++ {
			es.actions = append(es.actions, snap.Actions[actionIdx])
		}
		depth := es.sm.Push()
		es.actionMarks = append(es.actionMarks, actionMark{depth: depth, count: len(es.actions)})
	}

	for ; writeIdx < len(snap.Writes); writeIdx++ {
		replayWrite(es, snap.Writes[writeIdx])
	}
	for ; actionIdx < len(snap.Actions); actionIdx++ {
		es.actions = append(es.actions, snap.Actions[actionIdx])
	}

	return es
}

func replayWrite(es *ExecutorState, w Write) {
	switch w.Kind {
	case WriteNonce:
		es.sm.Put(nonceKey{w.Address, w.ChainID}, w.NonceValue)
	case WriteBalance:
		es.sm.Put(balanceKey{w.Address, w.ChainID}, w.BalanceValue)
	case WriteCode:
		es.sm.Put(codeKey(w.Address), w.CodeValue)
	case WriteStorage:
		es.sm.Put(storageKey{w.Address, w.Index}, w.StorageValue)
	case WriteDestructed:
		es.sm.Put(destructedKey(w.Address), w.Destructed)
	}
}
