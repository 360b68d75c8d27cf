// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"sync"

	"github.com/holiman/uint256"
)

// StackLimit is the maximum number of 256-bit words a single frame's stack
// may hold at once; pushing past it reverts the frame with StackOverflow.
const StackLimit = 1024

var stackPool = sync.Pool{
	New: func() interface{} {
		return &Stack{data: make([]uint256.Int, 0, 16)}
	},
}

// Stack is the interpreter's 256-bit-word operand stack. All indices passed
// to Peek/Dup/Swap are 1-based, counting from the top, matching EVM's
// DUPn/SWAPn numbering.
type Stack struct {
	data []uint256.Int
}

func newstack() *Stack {
	return stackPool.Get().(*Stack)
}

func returnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

// Len reports the current stack depth.
func (s *Stack) Len() int { return len(s.data) }

// Push pushes v onto the stack. The caller must check Len() < StackLimit
// first; pushCheck does so and returns ErrStackOverflow otherwise.
func (s *Stack) Push(v *uint256.Int) {
	s.data = append(s.data, *v)
}

// Pop removes and returns the top word. The caller must check Len() > 0
// first; popN does so and returns ErrStackUnderflow otherwise.
func (s *Stack) Pop() uint256.Int {
	n := len(s.data) - 1
	v := s.data[n]
	s.data = s.data[:n]
	return v
}

// Peek returns a pointer to the top word without removing it.
func (s *Stack) Peek() *uint256.Int {
	return &s.data[len(s.data)-1]
}

// Back returns a pointer to the n-th word from the top, 0-based (Back(0) ==
// Peek()).
func (s *Stack) Back(n int) *uint256.Int {
	return &s.data[len(s.data)-1-n]
}

// Dup duplicates the n-th word from the top (1-based) onto the top of the
// stack.
func (s *Stack) Dup(n int) {
	s.data = append(s.data, s.data[len(s.data)-n])
}

// Swap exchanges the top word with the word n positions below it (the
// (n+1)-th from the top), as SWAPn does.
func (s *Stack) Swap(n int) {
	top := len(s.data) - 1
	s.data[top], s.data[top-n] = s.data[top-n], s.data[top]
}

// Data exposes the underlying slice, top-of-stack last — used by tracers.
func (s *Stack) Data() []uint256.Int { return s.data }

// RestoreStack rebuilds a Stack from a previously captured Data() slice —
// used by package runtime to resume a suspended frame (§4.H "Serialization").
func RestoreStack(words []uint256.Int) *Stack {
	return &Stack{data: append([]uint256.Int(nil), words...)}
}
