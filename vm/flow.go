// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import "github.com/holiman/uint256"

// validJumpDest reports whether dest is a JUMPDEST opcode not embedded
// inside a PUSH's immediate-data window.
func validJumpDest(code interface {
	GetOrDefault(int) byte
	Len() int
}, dest uint64) bool {
	if dest >= uint64(code.Len()) {
		return false
	}
	if OpCode(code.GetOrDefault(int(dest))) != JUMPDEST {
		return false
	}
	// Walk from the start to confirm dest isn't inside push immediate data;
	// the jump-destination analysis is not cached across calls, matching
	// the reference engine's per-execution analysis (no persistent bitmap).
	pc := 0
	for pc < int(dest) {
		op := OpCode(code.GetOrDefault(pc))
		if op.IsPush() {
			pc += 1 + op.PushSize()
			continue
		}
		pc++
	}
	return pc == int(dest)
}

func opJump(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasMidStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	dest := f.Stack.Pop()
	d := dest.Uint64()
	if !validJumpDest(f.Code, d) {
		return opResult{}, ErrInvalidJump
	}
	return opResult{action: actJump, jumpTarget: d}, nil
}

func opJumpi(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasSlowStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	dest := f.Stack.Pop()
	cond := f.Stack.Pop()
	if cond.IsZero() {
		return opResult{action: actContinue}, nil
	}
	d := dest.Uint64()
	if !validJumpDest(f.Code, d) {
		return opResult{}, ErrInvalidJump
	}
	return opResult{action: actJump, jumpTarget: d}, nil
}

func opPC(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(f.PC))
	return opResult{action: actContinue}, nil
}

func opJumpdest(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, 1); err != nil {
		return opResult{}, err
	}
	return opResult{action: actContinue}, nil
}

func opStop(m *Machine, db Database) (opResult, error) {
	return opResult{action: actStop}, nil
}

func opUndefined(m *Machine, db Database) (opResult, error) {
	return opResult{}, ErrInvalidOpcode
}
