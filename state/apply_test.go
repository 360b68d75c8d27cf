// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeseeker/evmcore/thor"
)

type fakeWriter struct {
	balances     map[thor.Address]*uint256.Int
	nonces       map[thor.Address]uint64
	code         map[thor.Address][]byte
	staticSlots  map[thor.Address]map[uint8]thor.Bytes32
	cellWrites   []cellWrite
	externalCall bool
}

type cellWrite struct {
	addr      thor.Address
	cellIndex uint256.Int
	entries   map[uint8]thor.Bytes32
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		balances:    map[thor.Address]*uint256.Int{},
		nonces:      map[thor.Address]uint64{},
		code:        map[thor.Address][]byte{},
		staticSlots: map[thor.Address]map[uint8]thor.Bytes32{},
	}
}

func (w *fakeWriter) AllocateContract(addr thor.Address, codeLen int) (AllocateResult, error) {
	return AllocateReady, nil
}

func (w *fakeWriter) CreateBalanceAccount(addr thor.Address, chainID uint64) error {
	if _, ok := w.balances[addr]; !ok {
		w.balances[addr] = uint256.NewInt(0)
	}
	return nil
}

func (w *fakeWriter) Transfer(from, to thor.Address, chainID uint64, value *uint256.Int) error {
	w.balances[from] = new(uint256.Int).Sub(w.balances[from], value)
	if w.balances[to] == nil {
		w.balances[to] = uint256.NewInt(0)
	}
	w.balances[to] = new(uint256.Int).Add(w.balances[to], value)
	return nil
}

func (w *fakeWriter) Burn(addr thor.Address, chainID uint64, value *uint256.Int) error {
	w.balances[addr] = new(uint256.Int).Sub(w.balances[addr], value)
	return nil
}

func (w *fakeWriter) IncrementNonce(addr thor.Address, chainID uint64) error {
	w.nonces[addr]++
	return nil
}

func (w *fakeWriter) SetCode(addr thor.Address, chainID uint64, code []byte) error {
	w.code[addr] = code
	return nil
}

func (w *fakeWriter) SetStaticStorage(addr thor.Address, index uint8, value thor.Bytes32) error {
	m, ok := w.staticSlots[addr]
	if !ok {
		m = map[uint8]thor.Bytes32{}
		w.staticSlots[addr] = m
	}
	m[index] = value
	return nil
}

func (w *fakeWriter) SetCellStorage(addr thor.Address, cellIndex uint256.Int, entries map[uint8]thor.Bytes32) error {
	w.cellWrites = append(w.cellWrites, cellWrite{addr, cellIndex, entries})
	return nil
}

func (w *fakeWriter) InvokeExternal(seeds [][]byte, data []byte, feeLamports uint64) error {
	w.externalCall = true
	return nil
}

func TestApplyTransferAndNonce(t *testing.T) {
	w := newFakeWriter()
	from := thor.BytesToAddress([]byte("from"))
	to := thor.BytesToAddress([]byte("to"))
	w.balances[from] = uint256.NewInt(100)

	actions := []Action{
		{Kind: ActionTransfer, Address: from, Target: to, ChainID: 1, Value: *uint256.NewInt(40)},
		{Kind: ActionIncrementNonce, Address: from, ChainID: 1},
	}

	require.NoError(t, Apply(w, actions))
	assert.Equal(t, uint256.NewInt(60), w.balances[from])
	assert.Equal(t, uint256.NewInt(40), w.balances[to])
	assert.Equal(t, uint64(1), w.nonces[from])
}

func TestApplyStaticStorageRoutesBelowLimit(t *testing.T) {
	w := newFakeWriter()
	addr := thor.BytesToAddress([]byte("contract"))
	val := thor.BytesToBytes32([]byte("value"))

	actions := []Action{
		{Kind: ActionSetStorage, Address: addr, Index: *uint256.NewInt(5), Slot: val},
	}

	require.NoError(t, Apply(w, actions))
	assert.Equal(t, val, w.staticSlots[addr][5])
	assert.Empty(t, w.cellWrites)
}

func TestApplyStorageGroupsAboveLimitIntoCells(t *testing.T) {
	w := newFakeWriter()
	addr := thor.BytesToAddress([]byte("contract"))
	val1 := thor.BytesToBytes32([]byte("v1"))
	val2 := thor.BytesToBytes32([]byte("v2"))

	// 256 + 3 and 256 + 9 share cellIndex 256 (index &^ 0xFF), subindexes 3 and 9.
	actions := []Action{
		{Kind: ActionSetStorage, Address: addr, Index: *uint256.NewInt(256 + 3), Slot: val1},
		{Kind: ActionSetStorage, Address: addr, Index: *uint256.NewInt(256 + 9), Slot: val2},
	}

	require.NoError(t, Apply(w, actions))
	require.Len(t, w.cellWrites, 1)
	cw := w.cellWrites[0]
	assert.Equal(t, addr, cw.addr)
	assert.Equal(t, *uint256.NewInt(256), cw.cellIndex)
	assert.Equal(t, val1, cw.entries[3])
	assert.Equal(t, val2, cw.entries[9])
}

func TestApplySelfDestructIsNoOp(t *testing.T) {
	w := newFakeWriter()
	addr := thor.BytesToAddress([]byte("contract"))

	require.NoError(t, Apply(w, []Action{{Kind: ActionSelfDestruct, Address: addr}}))
	assert.Empty(t, w.code)
	assert.Empty(t, w.staticSlots)
}

func TestApplyExternalInstructionInvokesWriter(t *testing.T) {
	w := newFakeWriter()
	require.NoError(t, Apply(w, []Action{{
		Kind:        ActionExternalInstruction,
		Seeds:       [][]byte{[]byte("seed")},
		Data:        []byte("data"),
		FeeLamports: 5000,
	}}))
	assert.True(t, w.externalCall)
}

func TestAllocateReportsNeedMore(t *testing.T) {
	w := &needMoreWriter{}
	actions := []Action{{Kind: ActionSetCode, Address: thor.BytesToAddress([]byte("c")), Code: []byte{0x60, 0x00}}}
	result, err := Allocate(w, actions)
	require.NoError(t, err)
	assert.Equal(t, AllocateNeedMore, result)
}

type needMoreWriter struct{ fakeWriter }

func (w *needMoreWriter) AllocateContract(addr thor.Address, codeLen int) (AllocateResult, error) {
	return AllocateNeedMore, nil
}
