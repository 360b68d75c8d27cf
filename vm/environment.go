// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/thor"
)

func pushAddr(s *Stack, addr thor.Address) {
	s.Push(new(uint256.Int).SetBytes(addr[:]))
}

func opAddress(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	pushAddr(f.Stack, f.Context.Contract)
	return opResult{action: actContinue}, nil
}

func opBalance(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	addrWord := f.Stack.Peek()
	addr := thor.AddressFromWord(addrWord)
	cold := !m.isWarmAddress(addr)
	cost := uint64(params_WarmStorageReadCostEIP2929)
	if cold {
		cost = params_ColdAccountAccessCostEIP2929
	}
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}
	chainID := f.Context.ContractChainID
	addrWord.Set(db.Balance(addr, chainID))
	return opResult{action: actContinue}, nil
}

func opOrigin(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	pushAddr(f.Stack, m.Origin)
	return opResult{action: actContinue}, nil
}

func opCaller(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	pushAddr(f.Stack, f.Context.Caller)
	return opResult{action: actContinue}, nil
}

func opCallValue(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	v := f.Context.Value
	f.Stack.Push(&v)
	return opResult{action: actContinue}, nil
}

func opCallDataLoad(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastestStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	offWord := f.Stack.Peek()
	off := offWord.Uint64()
	buf := make([]byte, 32)
	for i := 0; i < 32; i++ {
		buf[i] = f.CallData.GetOrDefault(int(off) + i)
	}
	offWord.SetBytes(buf)
	return opResult{action: actContinue}, nil
}

func opCallDataSize(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(uint64(f.CallData.Len())))
	return opResult{action: actContinue}, nil
}

func opCallDataCopy(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 3); err != nil {
		return opResult{}, err
	}
	memOff := f.Stack.Pop()
	dataOff := f.Stack.Pop()
	size := f.Stack.Pop()
	sz := size.Uint64()
	if err := chargeMemory(f, memOff.Uint64(), sz); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, copyGas(sz)); err != nil {
		return opResult{}, err
	}
	f.Memory.CopyFrom(memOff.Uint64(), f.CallData.Bytes(), dataOff.Uint64(), sz)
	return opResult{action: actContinue}, nil
}

func opCodeSize(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(uint64(f.Code.Len())))
	return opResult{action: actContinue}, nil
}

func opCodeCopy(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 3); err != nil {
		return opResult{}, err
	}
	memOff := f.Stack.Pop()
	codeOff := f.Stack.Pop()
	size := f.Stack.Pop()
	sz := size.Uint64()
	if err := chargeMemory(f, memOff.Uint64(), sz); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, copyGas(sz)); err != nil {
		return opResult{}, err
	}
	f.Memory.CopyFrom(memOff.Uint64(), f.Code.Bytes(), codeOff.Uint64(), sz)
	return opResult{action: actContinue}, nil
}

func opGasPrice(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	v := m.GasPrice
	f.Stack.Push(&v)
	return opResult{action: actContinue}, nil
}

func opExtCodeSize(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	addrWord := f.Stack.Peek()
	addr := thor.AddressFromWord(addrWord)
	cost := warmColdCost(m, addr)
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}
	addrWord.SetUint64(uint64(db.CodeSize(addr)))
	return opResult{action: actContinue}, nil
}

func opExtCodeCopy(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 4); err != nil {
		return opResult{}, err
	}
	addrWord := f.Stack.Pop()
	memOff := f.Stack.Pop()
	codeOff := f.Stack.Pop()
	size := f.Stack.Pop()
	sz := size.Uint64()
	addr := thor.AddressFromWord(&addrWord)

	if err := chargeMemory(f, memOff.Uint64(), sz); err != nil {
		return opResult{}, err
	}
	cost := warmColdCost(m, addr) + copyGas(sz)
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}
	code := db.Code(addr)
	f.Memory.CopyFrom(memOff.Uint64(), code.Bytes(), codeOff.Uint64(), sz)
	return opResult{action: actContinue}, nil
}

func opReturnDataSize(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(uint64(f.ReturnData.Len())))
	return opResult{action: actContinue}, nil
}

func opReturnDataCopy(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 3); err != nil {
		return opResult{}, err
	}
	memOff := f.Stack.Pop()
	dataOff := f.Stack.Pop()
	size := f.Stack.Pop()
	sz := size.Uint64()

	if dataOff.Uint64()+sz > uint64(f.ReturnData.Len()) {
		return opResult{}, ErrReturnDataOutOfBounds
	}
	if err := chargeMemory(f, memOff.Uint64(), sz); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, copyGas(sz)); err != nil {
		return opResult{}, err
	}
	f.Memory.CopyFrom(memOff.Uint64(), f.ReturnData.Bytes(), dataOff.Uint64(), sz)
	return opResult{action: actContinue}, nil
}

func opExtCodeHash(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	addrWord := f.Stack.Peek()
	addr := thor.AddressFromWord(addrWord)
	cost := warmColdCost(m, addr)
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}
	if db.CodeSize(addr) == 0 && db.Nonce(addr, f.Context.ContractChainID) == 0 && db.Balance(addr, f.Context.ContractChainID).IsZero() {
		addrWord.Clear()
		return opResult{action: actContinue}, nil
	}
	code := db.Code(addr)
	h := Keccak256(code.Bytes())
	addrWord.SetBytes(h[:])
	return opResult{action: actContinue}, nil
}

func opBlockHash(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasExtStep); err != nil {
		return opResult{}, err
	}
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	numWord := f.Stack.Peek()
	h := db.BlockHash(numWord.Uint64())
	numWord.SetBytes(h[:])
	return opResult{action: actContinue}, nil
}

func opCoinbase(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	pushAddr(f.Stack, db.Operator())
	return opResult{action: actContinue}, nil
}

func opTimestamp(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(db.BlockTimestamp()))
	return opResult{action: actContinue}, nil
}

func opNumber(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(db.BlockNumber()))
	return opResult{action: actContinue}, nil
}

// opDifficulty implements PREVRANDAO/DIFFICULTY: the engine has no PoW
// randomness beacon, so it always yields zero (§9 design notes).
func opDifficulty(m *Machine, db Database) (opResult, error) {
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

func opGasLimit(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(f.GasLimit))
	return opResult{action: actContinue}, nil
}

func opChainID(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasQuickStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(uint256.NewInt(f.Context.ContractChainID))
	return opResult{action: actContinue}, nil
}

func opSelfBalance(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := gasCheck(f, GasFastStep); err != nil {
		return opResult{}, err
	}
	if err := pushCheck(f.Stack); err != nil {
		return opResult{}, err
	}
	f.Stack.Push(db.Balance(f.Context.Contract, f.Context.ContractChainID))
	return opResult{action: actContinue}, nil
}

// opBaseFee always yields zero: the engine charges a fixed gas price, not
// an EIP-1559 base fee (Non-goal: full EIP-1559 priority fee).
func opBaseFee(m *Machine, db Database) (opResult, error) {
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

func warmColdCost(m *Machine, addr thor.Address) uint64 {
	if m.isWarmAddress(addr) {
		return params_WarmStorageReadCostEIP2929
	}
	return params_ColdAccountAccessCostEIP2929
}
