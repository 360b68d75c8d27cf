// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package thor holds the fundamental value types shared by every layer of
// the engine: 20-byte addresses, 32-byte hashes and the handful of
// conversions and derivations (CREATE/CREATE2, keccak) that the interpreter,
// the overlay and the applier all need.
package thor

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// AddressLength is the length in bytes of an Ethereum address.
const AddressLength = 20

// HashLength is the length in bytes of a 32-byte word/hash.
const HashLength = 32

// Address is a 20-byte Ethereum account address.
type Address [AddressLength]byte

// Bytes32 is a 32-byte value: a hash, a storage key or a storage value.
type Bytes32 [HashLength]byte

// BytesToAddress right-aligns b in a new Address, truncating from the left
// if b is longer than AddressLength.
func BytesToAddress(b []byte) (a Address) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// BytesToBytes32 right-aligns b in a new Bytes32.
func BytesToBytes32(b []byte) (h Bytes32) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// ParseAddress parses a hex encoded address, with or without the 0x prefix.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("invalid address %q: wrong length", s)
	}
	return BytesToAddress(b), nil
}

// MustParseAddress is like ParseAddress but panics on error; use only with
// trusted, known-good literals.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseBytes32 parses a hex encoded 32-byte value, with or without the 0x prefix.
func ParseBytes32(s string) (Bytes32, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Bytes32{}, fmt.Errorf("invalid bytes32 %q: %w", s, err)
	}
	if len(b) != HashLength {
		return Bytes32{}, fmt.Errorf("invalid bytes32 %q: wrong length", s)
	}
	return BytesToBytes32(b), nil
}

// MustParseBytes32 is like ParseBytes32 but panics on error.
func MustParseBytes32(s string) Bytes32 {
	h, err := ParseBytes32(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// IsZero reports whether the address is the all-zero address.
func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Bytes returns a copy of the hash as a byte slice.
func (h Bytes32) Bytes() []byte { return h[:] }

// IsZero reports whether the value is all-zero.
func (h Bytes32) IsZero() bool { return h == Bytes32{} }

func (h Bytes32) String() string { return "0x" + hex.EncodeToString(h[:]) }

// Keccak256 hashes the concatenation of data and returns the resulting
// Bytes32. Used for EVM's SHA3 opcode and for address derivation.
func Keccak256(data ...[]byte) Bytes32 {
	return Bytes32(crypto.Keccak256Hash(data...))
}

// CreateAddress derives the address of a contract created by sender at the
// given nonce: keccak256(rlp([sender, nonce]))[12:].
func CreateAddress(sender Address, nonce uint64) Address {
	data, _ := rlp.EncodeToBytes([]interface{}{sender[:], nonce})
	return BytesToAddress(Keccak256(data).Bytes())
}

// Create2Address derives the address of a contract created via CREATE2:
// keccak256(0xff || sender || salt || keccak256(initCode))[12:].
func Create2Address(sender Address, salt Bytes32, initCodeHash Bytes32) Address {
	buf := make([]byte, 0, 1+AddressLength+HashLength+HashLength)
	buf = append(buf, 0xff)
	buf = append(buf, sender[:]...)
	buf = append(buf, salt[:]...)
	buf = append(buf, initCodeHash[:]...)
	return BytesToAddress(Keccak256(buf).Bytes())
}

// AddressFromWord truncates a 256-bit stack word to its low 20 bytes, the
// convention every opcode that takes an address operand uses.
func AddressFromWord(w *uint256.Int) Address {
	b := w.Bytes20()
	return Address(b)
}

// WeiPerEther is 10^18, used when converting precompile withdraw amounts.
var WeiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
