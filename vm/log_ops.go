// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import "github.com/nodeseeker/evmcore/thor"

func makeLog(topicCount int) opFn {
	return func(m *Machine, db Database) (opResult, error) {
		f := m.current
		if f.Context.IsStatic {
			return opResult{}, ErrStaticModeViolation
		}
		if err := popN(f.Stack, 2+topicCount); err != nil {
			return opResult{}, err
		}
		memOff := f.Stack.Pop()
		size := f.Stack.Pop()
		sz := size.Uint64()

		topics := make([]thor.Bytes32, topicCount)
		for i := 0; i < topicCount; i++ {
			w := f.Stack.Pop()
			topics[i] = thor.BytesToBytes32(w.Bytes())
		}

		if err := chargeMemory(f, memOff.Uint64(), sz); err != nil {
			return opResult{}, err
		}
		if err := gasCheck(f, logGas(topicCount, sz)); err != nil {
			return opResult{}, err
		}

		data := f.Memory.GetCopy(int64(memOff.Uint64()), int64(sz))
		if err := db.EmitLog(f.Context.Contract, topics, data); err != nil {
			return opResult{}, err
		}
		return opResult{action: actContinue}, nil
	}
}
