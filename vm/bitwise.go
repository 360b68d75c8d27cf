// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import "github.com/holiman/uint256"

func opAnd(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) { dst.And(x, y) })
}

func opOr(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) { dst.Or(x, y) })
}

func opXor(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) { dst.Xor(x, y) })
}

func opNot(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	x := f.Stack.Peek()
	x.Not(x)
	return opResult{action: actContinue}, nil
}

func opByte(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	i := f.Stack.Pop()
	x := f.Stack.Peek()
	b := x.Byte(&i)
	x.SetUint64(uint64(b))
	return opResult{action: actContinue}, nil
}

func opShl(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	shift := f.Stack.Pop()
	value := f.Stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return opResult{action: actContinue}, nil
}

func opShr(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	shift := f.Stack.Pop()
	value := f.Stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return opResult{action: actContinue}, nil
}

func opSar(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	shift := f.Stack.Pop()
	value := f.Stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return opResult{action: actContinue}, nil
	}
	n := uint(shift.Uint64())
	value.SRsh(value, n)
	return opResult{action: actContinue}, nil
}

func opSha3(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	offset := f.Stack.Pop()
	size := f.Stack.Pop()
	sz := size.Uint64()
	off := offset.Uint64()

	if err := chargeMemory(f, off, sz); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, sha3Gas(sz)); err != nil {
		return opResult{}, err
	}

	data := f.Memory.GetPtr(int64(off), int64(sz))
	h := Keccak256(data)
	res := new(uint256.Int).SetBytes(h[:])
	f.Stack.Push(res)
	return opResult{action: actContinue}, nil
}

// chargeMemory ensures memory covers [offset, offset+size) and charges the
// marginal quadratic expansion cost against f's gas budget.
func chargeMemory(f *Frame, offset, size uint64) error {
	if size == 0 {
		return nil
	}
	needed := MemSize(offset + size)
	if uint64(f.Memory.Len()) >= needed {
		return nil
	}
	before := MemoryGasCost(uint64(f.Memory.Len()))
	after := MemoryGasCost(needed)
	if err := gasCheck(f, after-before); err != nil {
		return err
	}
	f.Memory.Resize(needed)
	return nil
}
