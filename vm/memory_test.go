// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestMemorySetAndLoad(t *testing.T) {
	m := NewMemory()
	m.Resize(64)

	val := uint256.NewInt(0xdeadbeef)
	m.Set32(0, val)

	got := m.Load(0)
	assert.Equal(t, val, got)
}

func TestMemoryResizeRoundsToWord(t *testing.T) {
	assert.Equal(t, uint64(32), MemSize(1))
	assert.Equal(t, uint64(32), MemSize(32))
	assert.Equal(t, uint64(64), MemSize(33))
}

func TestMemoryGasCostQuadratic(t *testing.T) {
	small := MemoryGasCost(32)
	large := MemoryGasCost(32 * 1000)
	assert.Less(t, small, large)
}

func TestMemoryCopyFromZeroFillsPastSource(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	m.CopyFrom(0, []byte{1, 2, 3}, 0, 8)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, m.GetCopy(0, 8))
}
