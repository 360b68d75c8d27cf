// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wire

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Persisted account tag bytes (§6 "Persisted account layout"), distinct
// from the instruction Tag range above — these prefix account data at rest,
// not an instruction's payload.
const (
	AccountTagBalance     byte = 0x60
	AccountTagContract    byte = 0x20
	AccountTagStorageCell byte = 0x42
)

// StorageSubindexCount is the fixed-size inline storage region every
// Contract account header carries (§3 "Contract account": fixed_storage
// [[u8;32];256]).
const StorageSubindexCount = 256

var errBadAccountTag = errors.New("wire: unexpected persisted account tag")

// BalanceAccount is the decoded form of a tag-0x60 persisted account.
type BalanceAccount struct {
	ChainID uint64
	Nonce   uint64
	Balance uint256.Int
}

// EncodeBalanceAccount writes a's tag byte and header in the exact field
// order and byte order (all LE) §6 specifies.
func EncodeBalanceAccount(a BalanceAccount) []byte {
	out := make([]byte, 1+8+8+32)
	out[0] = AccountTagBalance
	binary.LittleEndian.PutUint64(out[1:9], a.ChainID)
	binary.LittleEndian.PutUint64(out[9:17], a.Nonce)
	putUint256LE(out[17:49], &a.Balance)
	return out
}

// DecodeBalanceAccount is EncodeBalanceAccount's inverse.
func DecodeBalanceAccount(data []byte) (BalanceAccount, error) {
	if len(data) < 1+8+8+32 {
		return BalanceAccount{}, errShortInstruction
	}
	if data[0] != AccountTagBalance {
		return BalanceAccount{}, errBadAccountTag
	}
	var a BalanceAccount
	a.ChainID = binary.LittleEndian.Uint64(data[1:9])
	a.Nonce = binary.LittleEndian.Uint64(data[9:17])
	getUint256LE(&a.Balance, data[17:49])
	return a, nil
}

// ContractAccount is the decoded form of a tag-0x20 persisted account, minus
// its variable-length code (kept separate since callers typically stream it
// rather than hold the whole account in memory).
type ContractAccount struct {
	ChainID      uint64
	Generation   uint32
	FixedStorage [StorageSubindexCount][32]byte
	Code         []byte
}

// EncodeContractAccount writes c's tag byte, header, fixed-storage region,
// and trailing code.
func EncodeContractAccount(c ContractAccount) []byte {
	out := make([]byte, 0, 1+8+4+StorageSubindexCount*32+len(c.Code))
	out = append(out, AccountTagContract)

	var hdr [12]byte
	binary.LittleEndian.PutUint64(hdr[0:8], c.ChainID)
	binary.LittleEndian.PutUint32(hdr[8:12], c.Generation)
	out = append(out, hdr[:]...)

	for i := range c.FixedStorage {
		out = append(out, c.FixedStorage[i][:]...)
	}
	out = append(out, c.Code...)
	return out
}

// DecodeContractAccount is EncodeContractAccount's inverse. The returned
// Code slice aliases data's trailing region rather than copying it.
func DecodeContractAccount(data []byte) (ContractAccount, error) {
	const headerLen = 1 + 8 + 4 + StorageSubindexCount*32
	if len(data) < headerLen {
		return ContractAccount{}, errShortInstruction
	}
	if data[0] != AccountTagContract {
		return ContractAccount{}, errBadAccountTag
	}
	var c ContractAccount
	c.ChainID = binary.LittleEndian.Uint64(data[1:9])
	c.Generation = binary.LittleEndian.Uint32(data[9:13])
	cursor := 13
	for i := range c.FixedStorage {
		copy(c.FixedStorage[i][:], data[cursor:cursor+32])
		cursor += 32
	}
	c.Code = data[cursor:]
	return c, nil
}

// StorageCellEntry is one `{subindex, value}` pair within a tag-0x42
// storage-cell account — the overflow region for the 256 subindices that
// don't fit the Contract account's inline fixed_storage (§3 "Storage
// cell").
type StorageCellEntry struct {
	Subindex byte
	Value    [32]byte
}

// EncodeStorageCell writes the tag byte followed by every entry in order.
func EncodeStorageCell(entries []StorageCellEntry) []byte {
	out := make([]byte, 1, 1+len(entries)*33)
	out[0] = AccountTagStorageCell
	for _, e := range entries {
		out = append(out, e.Subindex)
		out = append(out, e.Value[:]...)
	}
	return out
}

// DecodeStorageCell is EncodeStorageCell's inverse.
func DecodeStorageCell(data []byte) ([]StorageCellEntry, error) {
	if len(data) < 1 {
		return nil, errShortInstruction
	}
	if data[0] != AccountTagStorageCell {
		return nil, errBadAccountTag
	}
	body := data[1:]
	if len(body)%33 != 0 {
		return nil, errors.New("wire: storage cell body is not a multiple of entry size")
	}
	entries := make([]StorageCellEntry, len(body)/33)
	for i := range entries {
		off := i * 33
		entries[i].Subindex = body[off]
		copy(entries[i].Value[:], body[off+1:off+33])
	}
	return entries, nil
}

// putUint256LE writes v into dst (exactly 32 bytes) little-endian; uint256
// only exposes big-endian encoding (SetBytes/Bytes32), so the byte order is
// reversed by hand rather than assuming an LE helper exists on every
// uint256 release.
func putUint256LE(dst []byte, v *uint256.Int) {
	be := v.Bytes32()
	for i := 0; i < 32; i++ {
		dst[i] = be[31-i]
	}
}

func getUint256LE(v *uint256.Int, src []byte) {
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[i] = src[31-i]
	}
	v.SetBytes(be[:])
}
