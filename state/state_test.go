// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/nodeseeker/evmcore/thor"
)

func TestExecutorStateReadsThroughToStorage(t *testing.T) {
	storage := newFakeStorage()
	addr := thor.BytesToAddress([]byte("account1"))
	storage.setBalance(addr, 42)

	es := New(storage)
	assert.Equal(t, uint256.NewInt(42), es.Balance(addr, 1))
	assert.Equal(t, uint64(0), es.Nonce(addr, 1))
}

func TestExecutorStateWritesRecordActionsAndShadowStorage(t *testing.T) {
	storage := newFakeStorage()
	addr := thor.BytesToAddress([]byte("account1"))

	es := New(storage)
	assert.NoError(t, es.IncrementNonce(addr, 1))
	assert.Equal(t, uint64(1), es.Nonce(addr, 1))
	assert.Equal(t, uint64(0), storage.Nonce(addr, 1), "storage is untouched until an applier replays the action log")

	assert.Len(t, es.Actions(), 1)
	assert.Equal(t, ActionIncrementNonce, es.Actions()[0].Kind)
}

func TestExecutorStateSnapshotRevertDiscardsWritesAndActions(t *testing.T) {
	storage := newFakeStorage()
	addr := thor.BytesToAddress([]byte("account1"))

	es := New(storage)
	assert.NoError(t, es.IncrementNonce(addr, 1))

	cp := es.Snapshot()
	assert.NoError(t, es.IncrementNonce(addr, 1))
	assert.Equal(t, uint64(2), es.Nonce(addr, 1))
	assert.Len(t, es.Actions(), 2)

	es.RevertSnapshot()
	assert.Equal(t, uint64(1), es.Nonce(addr, 1))
	assert.Len(t, es.Actions(), 1, "the reverted frame's action must not survive")
	assert.Equal(t, 1, cp-1, "sanity: snapshot opened one level above base")
}

func TestExecutorStateSnapshotCommitKeepsWritesAndActions(t *testing.T) {
	storage := newFakeStorage()
	addr := thor.BytesToAddress([]byte("account1"))

	es := New(storage)
	es.Snapshot()
	assert.NoError(t, es.IncrementNonce(addr, 1))
	es.CommitSnapshot()

	assert.Equal(t, uint64(1), es.Nonce(addr, 1))
	assert.Len(t, es.Actions(), 1)
}

func TestExecutorStateTransferMovesBalanceAndRecordsAction(t *testing.T) {
	storage := newFakeStorage()
	from := thor.BytesToAddress([]byte("from"))
	to := thor.BytesToAddress([]byte("to"))
	storage.setBalance(from, 100)

	es := New(storage)
	assert.NoError(t, es.Transfer(from, to, 1, uint256.NewInt(30)))
	assert.Equal(t, uint256.NewInt(70), es.Balance(from, 1))
	assert.Equal(t, uint256.NewInt(30), es.Balance(to, 1))

	assert.NoError(t, es.Transfer(from, to, 1, uint256.NewInt(0)), "zero-value transfer is a no-op, not recorded")
	assert.Len(t, es.Actions(), 1)
}

func TestExecutorStateTransferInsufficientBalanceFails(t *testing.T) {
	storage := newFakeStorage()
	from := thor.BytesToAddress([]byte("from"))
	to := thor.BytesToAddress([]byte("to"))

	es := New(storage)
	assert.Error(t, es.Transfer(from, to, 1, uint256.NewInt(1)))
}

func TestExecutorStateSetStorageRoundTrips(t *testing.T) {
	storage := newFakeStorage()
	addr := thor.BytesToAddress([]byte("account1"))
	index := uint256.NewInt(7)
	val := thor.BytesToBytes32([]byte("value"))

	es := New(storage)
	assert.NoError(t, es.SetStorage(addr, index, val))
	assert.Equal(t, val, es.Storage(addr, index))
}
