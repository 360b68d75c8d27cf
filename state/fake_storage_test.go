// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/thor"
)

// fakeStorage is a minimal in-memory AccountStorage used only to exercise
// ExecutorState's overlay behavior in isolation from any real Solana-backed
// implementation.
type fakeStorage struct {
	nonce    map[thor.Address]uint64
	balance  map[thor.Address]*uint256.Int
	code     map[thor.Address][]byte
	storage  map[thor.Address]map[uint256.Int]thor.Bytes32
	revision map[thor.Address]uint64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		nonce:    map[thor.Address]uint64{},
		balance:  map[thor.Address]*uint256.Int{},
		code:     map[thor.Address][]byte{},
		storage:  map[thor.Address]map[uint256.Int]thor.Bytes32{},
		revision: map[thor.Address]uint64{},
	}
}

func (s *fakeStorage) setBalance(addr thor.Address, v uint64) { s.balance[addr] = uint256.NewInt(v) }

func (s *fakeStorage) Nonce(addr thor.Address, chainID uint64) uint64 { return s.nonce[addr] }
func (s *fakeStorage) Balance(addr thor.Address, chainID uint64) *uint256.Int {
	if v, ok := s.balance[addr]; ok {
		return v
	}
	return uint256.NewInt(0)
}
func (s *fakeStorage) Code(addr thor.Address) []byte { return s.code[addr] }
func (s *fakeStorage) Storage(addr thor.Address, index *uint256.Int) thor.Bytes32 {
	m, ok := s.storage[addr]
	if !ok {
		return thor.Bytes32{}
	}
	return m[*index]
}
func (s *fakeStorage) BlockHash(number uint64) thor.Bytes32 { return thor.Bytes32{} }
func (s *fakeStorage) BlockNumber() uint64                  { return 1 }
func (s *fakeStorage) BlockTimestamp() uint64                { return 1 }
func (s *fakeStorage) ContractChainID(addr thor.Address) (uint64, bool) { return 1, true }
func (s *fakeStorage) Revision(addr thor.Address) uint64                { return s.revision[addr] }
func (s *fakeStorage) bumpRevision(addr thor.Address)                   { s.revision[addr]++ }
func (s *fakeStorage) ContractPubkey(addr thor.Address) (thor.Address, byte) {
	return thor.Address{}, 0
}
func (s *fakeStorage) ProgramID() thor.Address                   { return thor.Address{} }
func (s *fakeStorage) Operator() thor.Address                    { return thor.Address{} }
func (s *fakeStorage) ChainIDToToken(chainID uint64) thor.Address { return thor.Address{} }
func (s *fakeStorage) DefaultChainID() uint64                    { return 1 }
func (s *fakeStorage) IsValidChainID(chainID uint64) bool        { return true }
func (s *fakeStorage) Treasury(index uint32) thor.Address        { return thor.Address{} }
