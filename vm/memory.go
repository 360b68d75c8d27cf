// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/holiman/uint256"
)

// Memory is the frame-local, byte-addressed, word-expanding execution
// memory. Size is always a multiple of 32.
type Memory struct {
	store []byte
}

// NewMemory returns an empty memory region.
func NewMemory() *Memory {
	return &Memory{}
}

// Len reports the current size in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Resize grows the memory to size bytes, rounding up to the next multiple of
// 32 is the caller's responsibility (MemoryGasCost already rounds). Shrinking
// is a no-op: EVM memory never shrinks within a frame.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		grown := make([]byte, size)
		copy(grown, m.store)
		m.store = grown
	}
}

// Set writes value into store[offset:offset+size]. Caller guarantees the
// region was already made available via Resize.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes val, big-endian, right-aligned into a 32-byte word at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	dst := m.store[offset : offset+32]
	for i := range dst {
		dst[i] = 0
	}
	val.WriteToSlice(dst)
}

// SetByte writes a single byte at offset.
func (m *Memory) SetByte(offset uint64, b byte) {
	m.store[offset] = b
}

// GetPtr returns a slice aliasing the underlying storage — mutations are
// visible to the memory. Used for zero-copy reads (e.g. SHA3 input, Load).
func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// GetCopy returns a freshly allocated copy of store[offset:offset+size].
func (m *Memory) GetCopy(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	cp := make([]byte, size)
	copy(cp, m.store[offset:offset+size])
	return cp
}

// Load reads a 32-byte word at offset as a big-endian uint256.
func (m *Memory) Load(offset uint64) *uint256.Int {
	v := new(uint256.Int)
	v.SetBytes(m.GetPtr(int64(offset), 32))
	return v
}

// Data exposes the raw backing slice — used by tracers.
func (m *Memory) Data() []byte { return m.store }

// Copy performs an in-memory copy, handling overlap like memmove.
func (m *Memory) Copy(dstOffset, srcOffset, length uint64) {
	if length == 0 {
		return
	}
	copy(m.store[dstOffset:dstOffset+length], m.store[srcOffset:srcOffset+length])
}

// CopyFrom copies length bytes from src[srcOffset:] into the memory at
// dstOffset, zero-filling where src runs short (the COPY-opcode convention
// for reading past the end of calldata/returndata/code).
func (m *Memory) CopyFrom(dstOffset uint64, src []byte, srcOffset, length uint64) {
	dst := m.store[dstOffset : dstOffset+length]
	if srcOffset >= uint64(len(src)) {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	n := copy(dst, src[srcOffset:])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// words rounds size up to the next whole 32-byte word count.
func words(size uint64) uint64 {
	return (size + 31) / 32
}

// MemSize rounds a byte size up to a multiple of 32 — the size memory is
// always resized to.
func MemSize(size uint64) uint64 {
	return words(size) * 32
}

// MemoryGasCost computes the cumulative quadratic memory-expansion cost (in
// gas) of a memory region sized newSize bytes, per the EVM yellow-paper
// formula: 3*words + words^2/512. Charged as a delta against the
// previously-charged cumulative cost each time memory grows.
func MemoryGasCost(newSize uint64) uint64 {
	if newSize == 0 {
		return 0
	}
	w := words(newSize)
	linear := 3 * w
	quadratic := (w * w) / 512
	return linear + quadratic
}
