// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import "github.com/holiman/uint256"

func opPop(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	f.Stack.Pop()
	return opResult{action: actContinue}, nil
}

func opMload(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	offWord := f.Stack.Peek()
	off := offWord.Uint64()
	if err := chargeMemory(f, off, 32); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	offWord.Set(f.Memory.Load(off))
	return opResult{action: actContinue}, nil
}

func opMstore(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	off := f.Stack.Pop()
	val := f.Stack.Pop()
	if err := chargeMemory(f, off.Uint64(), 32); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	f.Memory.Set32(off.Uint64(), &val)
	return opResult{action: actContinue}, nil
}

func opMstore8(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	off := f.Stack.Pop()
	val := f.Stack.Pop()
	if err := chargeMemory(f, off.Uint64(), 1); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	f.Memory.SetByte(off.Uint64(), byte(val.Uint64()))
	return opResult{action: actContinue}, nil
}

func opMsize(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(uint64(f.Memory.Len())))
	return opResult{action: actContinue}, nil
}

func opGas(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	remaining := f.GasLimit - f.GasUsed
	f.Stack.Push(uint256.NewInt(remaining))
	return opResult{action: actContinue}, nil
}
