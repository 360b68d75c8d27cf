// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestStackPushPop(t *testing.T) {
	stack := newstack()
	defer returnStack(stack)

	val := uint256.NewInt(42)
	stack.Push(val)

	assert.Equal(t, 1, stack.Len())
	assert.Equal(t, val, stack.Peek())

	popped := stack.Pop()
	assert.Equal(t, val, &popped)
	assert.Equal(t, 0, stack.Len())
}

func TestStackSwap(t *testing.T) {
	stack := newstack()
	defer returnStack(stack)

	first := uint256.NewInt(1)
	second := uint256.NewInt(2)
	stack.Push(first)
	stack.Push(second)

	stack.Swap(1)
	assert.Equal(t, first, stack.Peek())
}

func TestStackDup(t *testing.T) {
	stack := newstack()
	defer returnStack(stack)

	val := uint256.NewInt(42)
	stack.Push(val)
	stack.Dup(1)

	assert.Equal(t, 2, stack.Len())
	assert.Equal(t, val, stack.Peek())
}

func TestStackBack(t *testing.T) {
	stack := newstack()
	defer returnStack(stack)

	first := uint256.NewInt(1)
	second := uint256.NewInt(2)
	stack.Push(first)
	stack.Push(second)

	back := stack.Back(1)
	assert.Equal(t, first, back)
}

func TestStackOverflow(t *testing.T) {
	stack := newstack()
	defer returnStack(stack)

	for i := 0; i < StackLimit; i++ {
		assert.NoError(t, pushCheck(stack))
		stack.Push(uint256.NewInt(uint64(i)))
	}
	assert.Error(t, pushCheck(stack))
}
