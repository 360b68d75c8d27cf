// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/thor"
)

// fakeDatabase is a minimal in-memory Database used only to exercise the
// interpreter's dispatch loop in isolation from the overlay (package state).
type fakeDatabase struct {
	code    map[thor.Address][]byte
	balance map[thor.Address]*uint256.Int
	nonce   map[thor.Address]uint64
	storage map[thor.Address]map[uint256.Int]thor.Bytes32
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		code:    map[thor.Address][]byte{},
		balance: map[thor.Address]*uint256.Int{},
		nonce:   map[thor.Address]uint64{},
		storage: map[thor.Address]map[uint256.Int]thor.Bytes32{},
	}
}

func (d *fakeDatabase) setCode(addr thor.Address, code []byte) { d.code[addr] = code }

func (d *fakeDatabase) ProgramID() thor.Address                   { return thor.Address{} }
func (d *fakeDatabase) Operator() thor.Address                    { return thor.Address{} }
func (d *fakeDatabase) ChainIDToToken(chainID uint64) thor.Address { return thor.Address{} }
func (d *fakeDatabase) DefaultChainID() uint64                    { return 1 }
func (d *fakeDatabase) IsValidChainID(chainID uint64) bool        { return true }
func (d *fakeDatabase) BlockNumber() uint64                       { return 1 }
func (d *fakeDatabase) BlockTimestamp() uint64                    { return 1 }
func (d *fakeDatabase) BlockHash(number uint64) thor.Bytes32      { return thor.Bytes32{} }

func (d *fakeDatabase) Nonce(addr thor.Address, chainID uint64) uint64 { return d.nonce[addr] }
func (d *fakeDatabase) Balance(addr thor.Address, chainID uint64) *uint256.Int {
	if v, ok := d.balance[addr]; ok {
		return v
	}
	return uint256.NewInt(0)
}
func (d *fakeDatabase) Code(addr thor.Address) buffer.Buffer { return buffer.FromSlice(d.code[addr]) }
func (d *fakeDatabase) CodeSize(addr thor.Address) int       { return len(d.code[addr]) }
func (d *fakeDatabase) Storage(addr thor.Address, index *uint256.Int) thor.Bytes32 {
	m, ok := d.storage[addr]
	if !ok {
		return thor.Bytes32{}
	}
	return m[*index]
}
func (d *fakeDatabase) ContractChainID(addr thor.Address) (uint64, bool) { return 1, true }
func (d *fakeDatabase) ContractPubkey(addr thor.Address) (thor.Address, byte) {
	return thor.Address{}, 0
}

func (d *fakeDatabase) IncrementNonce(addr thor.Address, chainID uint64) error {
	d.nonce[addr]++
	return nil
}
func (d *fakeDatabase) Transfer(from, to thor.Address, chainID uint64, value *uint256.Int) error {
	return nil
}
func (d *fakeDatabase) Burn(addr thor.Address, chainID uint64, value *uint256.Int) error { return nil }
func (d *fakeDatabase) SetCode(addr thor.Address, chainID uint64, code []byte) error {
	d.code[addr] = code
	return nil
}
func (d *fakeDatabase) SetStorage(addr thor.Address, index *uint256.Int, value thor.Bytes32) error {
	m, ok := d.storage[addr]
	if !ok {
		m = map[uint256.Int]thor.Bytes32{}
		d.storage[addr] = m
	}
	m[*index] = value
	return nil
}
func (d *fakeDatabase) SelfDestruct(addr thor.Address) error { return nil }
func (d *fakeDatabase) EmitLog(addr thor.Address, topics []thor.Bytes32, data []byte) error {
	return nil
}

func (d *fakeDatabase) Snapshot() int    { return 0 }
func (d *fakeDatabase) RevertSnapshot()  {}
func (d *fakeDatabase) CommitSnapshot()  {}

func (d *fakeDatabase) PrecompileExtension(ctx *Context, addr thor.Address, input []byte, isStatic bool) (bool, []byte, error) {
	return false, nil, nil
}
func (d *fakeDatabase) QueueExternalInstruction(seeds [][]byte, data []byte, feeLamports uint64) error {
	return nil
}
func (d *fakeDatabase) MapSolanaAccount(key thor.Address, fn func(data []byte) buffer.Buffer) buffer.Buffer {
	return buffer.Empty()
}
