// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import "github.com/holiman/uint256"

func opPush0(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(0))
	return opResult{action: actContinue}, nil
}

func makePush(n int) opFn {
	return func(m *Machine, db Database) (opResult, error) {
		f := m.current
		if err := gasCheck(f, GasFastestStep); err != nil {
			return opResult{}, err
		}
		if err := pushCheck(f.Stack); err != nil {
			return opResult{}, err
		}
		buf := make([]byte, n)
		for i := 0; i < n; i++ {
			buf[i] = f.Code.GetOrDefault(int(f.PC) + 1 + i)
		}
		v := new(uint256.Int).SetBytes(buf)
		f.Stack.Push(v)
		return opResult{action: actJump, jumpTarget: f.PC + uint64(n) + 1}, nil
	}
}

func makeDup(n int) opFn {
	return func(m *Machine, db Database) (opResult, error) {
		f := m.current
		if err := gasCheck(f, GasFastestStep); err != nil {
			return opResult{}, err
		}
		if err := popN(f.Stack, n); err != nil {
			return opResult{}, err
		}
		if err := pushCheck(f.Stack); err != nil {
			return opResult{}, err
		}
		f.Stack.Dup(n)
		return opResult{action: actContinue}, nil
	}
}

func makeSwap(n int) opFn {
	return func(m *Machine, db Database) (opResult, error) {
		f := m.current
		if err := gasCheck(f, GasFastestStep); err != nil {
			return opResult{}, err
		}
		if err := popN(f.Stack, n+1); err != nil {
			return opResult{}, err
		}
		f.Stack.Swap(n)
		return opResult{action: actContinue}, nil
	}
}
