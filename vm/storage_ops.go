// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/thor"
)

func opSload(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	indexWord := f.Stack.Peek()
	cold := !m.isWarmSlot(f.Context.Contract, indexWord)
	cost := uint64(params_WarmStorageReadCostEIP2929)
	if cold {
		cost = params_ColdSloadCostEIP2929
	}
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}
	val := db.Storage(f.Context.Contract, indexWord)
	indexWord.SetBytes(val[:])
	return opResult{action: actContinue}, nil
}

func opSstore(m *Machine, db Database) (opResult, error) {
	f := m.current
	if f.Context.IsStatic {
		return opResult{}, ErrStaticModeViolation
	}
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	index := f.Stack.Pop()
	newValWord := f.Stack.Pop()

	cold := !m.isWarmSlot(f.Context.Contract, &index)

	currentBytes32 := db.Storage(f.Context.Contract, &index)
	var current, newVal uint256.Int
	current.SetBytes(currentBytes32[:])
	newVal.Set(&newValWord)

	// The original value passed to sstoreGas is the current value: neither
	// the interpreter nor the overlay records a slot's value at the start
	// of the transaction. For a slot not yet written in this transaction the
	// two agree; a slot already written is priced as if it were clean.
	original := current

	gas, refund := sstoreGas(cold, original, current, newVal)
	if err := gasCheck(f, gas); err != nil {
		return opResult{}, err
	}
	f.Refund += refund

	newBytes := thor.BytesToBytes32(newVal.Bytes())
	if err := db.SetStorage(f.Context.Contract, &index, newBytes); err != nil {
		return opResult{}, err
	}
	return opResult{action: actContinue}, nil
}
