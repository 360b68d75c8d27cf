// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import "github.com/holiman/uint256"

// gasCheck charges the static base cost of op against the frame's gas
// budget, returning ErrOutOfGas if it cannot be afforded. Dynamic costs are
// charged separately by the handlers that need them.
func gasCheck(f *Frame, cost uint64) error {
	if f.GasUsed+cost > f.GasLimit {
		return ErrOutOfGas
	}
	f.GasUsed += cost
	return nil
}

func popN(s *Stack, n int) error {
	if s.Len() < n {
		return ErrStackUnderflow
	}
	return nil
}

func pushCheck(s *Stack) error {
	if s.Len() >= StackLimit {
		return ErrStackOverflow
	}
	return nil
}

func binOp(m *Machine, db Database, cost uint64, fn func(dst, x, y *uint256.Int)) (opResult, error) {
	f := m.current
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	x := f.Stack.Pop()
	y := f.Stack.Peek()
	fn(y, &x, y)
	return opResult{action: actContinue}, nil
}

func opAdd(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) { dst.Add(x, y) })
}

func opMul(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastStep, func(dst, x, y *uint256.Int) { dst.Mul(x, y) })
}

func opSub(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) { dst.Sub(x, y) })
}

func opDiv(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastStep, func(dst, x, y *uint256.Int) { dst.Div(x, y) })
}

func opSdiv(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastStep, func(dst, x, y *uint256.Int) { dst.SDiv(x, y) })
}

func opMod(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastStep, func(dst, x, y *uint256.Int) { dst.Mod(x, y) })
}

func opSmod(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastStep, func(dst, x, y *uint256.Int) { dst.SMod(x, y) })
}

func opAddmod(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasMidStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 3); err != nil {
		return opResult{}, err
	}
	x := f.Stack.Pop()
	y := f.Stack.Pop()
	z := f.Stack.Peek()
	z.AddMod(&x, &y, z)
	return opResult{action: actContinue}, nil
}

func opMulmod(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasMidStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 3); err != nil {
		return opResult{}, err
	}
	x := f.Stack.Pop()
	y := f.Stack.Pop()
	z := f.Stack.Peek()
	z.MulMod(&x, &y, z)
	return opResult{action: actContinue}, nil
}

func opExp(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	exponent := f.Stack.Back(1)
	if err := gasCheck(f, expGas(exponent)); err != nil {
		return opResult{}, err
	}
	base := f.Stack.Pop()
	e := f.Stack.Peek()
	e.Exp(&base, e)
	return opResult{action: actContinue}, nil
}

func opSignExtend(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastStep, func(dst, back, num *uint256.Int) { dst.ExtendSign(num, back) })
}

func opLt(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) {
		if x.Lt(y) {
			dst.SetOne()
		} else {
			dst.Clear()
		}
	})
}

func opGt(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) {
		if x.Gt(y) {
			dst.SetOne()
		} else {
			dst.Clear()
		}
	})
}

func opSlt(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) {
		if x.Slt(y) {
			dst.SetOne()
		} else {
			dst.Clear()
		}
	})
}

func opSgt(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) {
		if x.Sgt(y) {
			dst.SetOne()
		} else {
			dst.Clear()
		}
	})
}

func opEq(m *Machine, db Database) (opResult, error) {
	return binOp(m, db, GasFastestStep, func(dst, x, y *uint256.Int) {
		if x.Eq(y) {
			dst.SetOne()
		} else {
			dst.Clear()
		}
	})
}

func opIszero(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	x := f.Stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return opResult{action: actContinue}, nil
}
