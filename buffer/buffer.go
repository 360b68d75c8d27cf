// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package buffer implements the byte-region abstraction the interpreter uses
// for contract code, call data and return data: a region that may be owned,
// a borrowed slice, or a window into a durable account's bytes that must be
// rebound to a live account after deserialization.
package buffer

import (
	"github.com/nodeseeker/evmcore/thor"
)

// Kind distinguishes how a Buffer's bytes are backed.
type Kind uint8

const (
	// KindEmpty is the zero buffer: len() == 0, get_or_default returns 0 everywhere.
	KindEmpty Kind = iota
	// KindOwned holds its own byte slice.
	KindOwned
	// KindAccount is a window [Range.Lo, Range.Hi) into a durable account's
	// data. Data is nil until Rebind is called with the backing account.
	KindAccount
)

// Range is a half-open byte range within an account's data.
type Range struct {
	Lo, Hi int
}

func (r Range) Len() int { return r.Hi - r.Lo }

// Buffer is a possibly-account-backed, possibly-empty byte region.
//
// Serialized form (Snapshot/Restore) elides the bytes of an account-backed
// buffer, keeping only (account key, range); the caller must Rebind it to a
// live account after deserializing, mirroring how the interpreter's code and
// calldata buffers are reattached to Solana account memory between
// iterative-driver invocations.
type Buffer struct {
	kind Kind
	data []byte // valid for KindOwned, and for KindAccount once rebound
	key  thor.Address
	rng  Range
}

// Empty returns the zero-length buffer.
func Empty() Buffer { return Buffer{kind: KindEmpty} }

// FromSlice wraps data without copying. The caller must not mutate data
// afterwards.
func FromSlice(data []byte) Buffer {
	if len(data) == 0 {
		return Empty()
	}
	return Buffer{kind: KindOwned, data: data}
}

// FromVec is an alias of FromSlice kept for symmetry with the reference
// implementation's owned/borrowed split; Go has no such distinction.
func FromVec(data []byte) Buffer { return FromSlice(data) }

// FromAccount builds a buffer borrowing accountData[rng.Lo:rng.Hi], tagged
// with the account's key so it can be re-derived after a round trip through
// Snapshot/Restore.
func FromAccount(key thor.Address, accountData []byte, rng Range) Buffer {
	if rng.Lo < 0 || rng.Hi > len(accountData) || rng.Lo > rng.Hi {
		rng = Range{0, 0}
	}
	return Buffer{
		kind: KindAccount,
		data: accountData[rng.Lo:rng.Hi],
		key:  key,
		rng:  rng,
	}
}

// Len returns the number of bytes in the buffer.
func (b Buffer) Len() int {
	if b.kind == KindEmpty {
		return 0
	}
	return len(b.data)
}

// Bytes returns the backing bytes. An account-backed buffer that has not
// been rebound yet returns nil.
func (b Buffer) Bytes() []byte {
	if b.kind == KindEmpty {
		return nil
	}
	return b.data
}

// GetOrDefault returns the byte at i, or 0 if i is out of range — the EVM
// convention for reading past the end of code or calldata.
func (b Buffer) GetOrDefault(i int) byte {
	if i < 0 || i >= len(b.data) {
		return 0
	}
	return b.data[i]
}

// Snapshot is the serializable projection of a Buffer: for account-backed
// buffers it carries only the key and range, never the bytes.
type Snapshot struct {
	Kind  Kind
	Owned []byte
	Key   thor.Address
	Range Range
}

// Snapshot captures b for persistence.
func (b Buffer) Snapshot() Snapshot {
	switch b.kind {
	case KindOwned:
		return Snapshot{Kind: KindOwned, Owned: append([]byte(nil), b.data...)}
	case KindAccount:
		return Snapshot{Kind: KindAccount, Key: b.key, Range: b.rng}
	default:
		return Snapshot{Kind: KindEmpty}
	}
}

// Restore reconstructs a Buffer from a Snapshot. Account-backed snapshots
// come back in an unbound state (IsBound() == false, data == nil) and must
// go through Rebind before Bytes()/GetOrDefault() are safe to call.
func Restore(s Snapshot) Buffer {
	switch s.Kind {
	case KindOwned:
		return FromSlice(s.Owned)
	case KindAccount:
		return Buffer{kind: KindAccount, key: s.Key, rng: s.Range}
	default:
		return Empty()
	}
}

// IsBound reports whether an account-backed buffer has live bytes attached.
// Always true for KindEmpty/KindOwned.
func (b Buffer) IsBound() bool {
	return b.kind != KindAccount || b.data != nil
}

// UninitKey returns the account key an unbound account-backed buffer needs
// to be rebound against, and ok=true if rebinding is required.
func (b Buffer) UninitKey() (thor.Address, Range, bool) {
	if b.kind == KindAccount && b.data == nil {
		return b.key, b.rng, true
	}
	return thor.Address{}, Range{}, false
}

// Rebind attaches accountData to an unbound account-backed buffer, restoring
// Bytes()/GetOrDefault(). It is a no-op for already-bound buffers.
func (b Buffer) Rebind(accountData []byte) Buffer {
	if b.kind != KindAccount || b.data != nil {
		return b
	}
	rng := b.rng
	if rng.Lo < 0 || rng.Hi > len(accountData) || rng.Lo > rng.Hi {
		rng = Range{0, 0}
	}
	b.data = accountData[rng.Lo:rng.Hi]
	return b
}
