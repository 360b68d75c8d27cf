// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stackedmap implements a checkpoint-stack overlay map: a single
// flat key/value journal with Push/Pop checkpoints, falling through to a
// backing source function when a key has never been written in the
// journal. It is the primitive ExecutorState's Action log and revert
// semantics are built on (component G).
package stackedmap

// getter looks up a key that was never written into the stackedmap,
// reporting found=false when the backing source has no value either.
type getter func(key interface{}) (value interface{}, found bool, err error)

type kv struct {
	k, v interface{}
}

// StackedMap is a single append-only journal of key/value writes, sliced
// into checkpoints by Push/Pop so writes made after a checkpoint can be
// discarded in bulk (PopTo) without touching anything written before it.
type StackedMap struct {
	src     getter
	journal []kv
	// checkpoint[i] is the journal length at the moment depth reached i+1.
	checkpoints []int
}

// New creates a StackedMap with src as the fallback for keys it has never
// seen, and an initial depth of 1.
func New(src getter) *StackedMap {
	return &StackedMap{src: src, checkpoints: []int{0}}
}

// Push opens a new checkpoint, returning the new depth.
func (sm *StackedMap) Push() int {
	sm.checkpoints = append(sm.checkpoints, len(sm.journal))
	return sm.Depth()
}

// Pop discards every write made since the last Push, returning the new
// depth. Popping below depth 1 panics — the base checkpoint is never
// removed.
func (sm *StackedMap) Pop() int {
	if len(sm.checkpoints) <= 1 {
		panic("stackedmap: pop base checkpoint")
	}
	n := sm.checkpoints[len(sm.checkpoints)-1]
	sm.journal = sm.journal[:n]
	sm.checkpoints = sm.checkpoints[:len(sm.checkpoints)-1]
	return sm.Depth()
}

// Merge discards the current checkpoint marker without touching the
// journal, folding every write made at this depth into its parent's: unlike
// Pop, the writes stay visible to Get. This is what a committed (not
// reverted) frame needs — its writes must outlive the frame itself.
func (sm *StackedMap) Merge() int {
	if len(sm.checkpoints) <= 1 {
		panic("stackedmap: merge base checkpoint")
	}
	sm.checkpoints = sm.checkpoints[:len(sm.checkpoints)-1]
	return sm.Depth()
}

// PopTo pops checkpoints until the depth equals target.
func (sm *StackedMap) PopTo(target int) {
	for sm.Depth() > target {
		sm.Pop()
	}
}

// Depth reports the current checkpoint depth (1 immediately after New).
func (sm *StackedMap) Depth() int {
	return len(sm.checkpoints)
}

// Put appends a write to the journal at the current depth.
func (sm *StackedMap) Put(key, value interface{}) {
	sm.journal = append(sm.journal, kv{key, value})
}

// Get scans the journal from the most recent write backwards, returning
// the first match; if none is found it falls through to src.
func (sm *StackedMap) Get(key interface{}) (interface{}, bool, error) {
	for i := len(sm.journal) - 1; i >= 0; i-- {
		if sm.journal[i].k == key {
			return sm.journal[i].v, true, nil
		}
	}
	return sm.src(key)
}

// Checkpoints returns the journal length recorded at every Push, oldest
// first (index 0 is always the base checkpoint's 0). Used by package state
// to serialize the checkpoint stack alongside the journal (§4.H
// "Serialization").
func (sm *StackedMap) Checkpoints() []int {
	return append([]int(nil), sm.checkpoints...)
}

// Journal replays every write in insertion order, oldest first, calling fn
// for each; it stops early if fn returns false.
func (sm *StackedMap) Journal(fn func(k, v interface{}) bool) {
	for _, e := range sm.journal {
		if !fn(e.k, e.v) {
			return
		}
	}
}
