// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/thor"
)

func accountIsEmpty(db Database, addr thor.Address, chainID uint64) bool {
	return db.CodeSize(addr) == 0 && db.Nonce(addr, chainID) == 0 && db.Balance(addr, chainID).IsZero()
}

// callKind distinguishes the four CALL-family opcodes; each derives the
// child Context differently (§4.F "Context derivation per opcode").
type callKind int

const (
	callKindCall callKind = iota
	callKindCallCode
	callKindDelegateCall
	callKindStaticCall
)

func callCommon(m *Machine, db Database, kind callKind) (opResult, error) {
	f := m.current
	hasValue := kind == callKindCall || kind == callKindCallCode
	n := 6
	if hasValue {
		n = 7
	}
	if err := popN(f.Stack, n); err != nil {
		return opResult{}, err
	}

	gasReq := f.Stack.Pop()
	addrWord := f.Stack.Pop()
	target := thor.AddressFromWord(&addrWord)

	var value uint256.Int
	if hasValue {
		value = f.Stack.Pop()
	}
	argsOff := f.Stack.Pop()
	argsSize := f.Stack.Pop()
	retOff := f.Stack.Pop()
	retSize := f.Stack.Pop()

	if kind == callKindCall && f.Context.IsStatic && !value.IsZero() {
		return opResult{}, ErrStaticModeViolation
	}

	if err := chargeMemory(f, argsOff.Uint64(), argsSize.Uint64()); err != nil {
		return opResult{}, err
	}
	if err := chargeMemory(f, retOff.Uint64(), retSize.Uint64()); err != nil {
		return opResult{}, err
	}

	cold := !m.isWarmAddress(target)
	isNew := hasValue && !value.IsZero() && accountIsEmpty(db, target, f.Context.ContractChainID)
	cost, stipend := callGasCost(cold, hasValue && !value.IsZero(), isNew)
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}

	if m.Depth() >= MaxCallDepth {
		f.Stack.Push(uint256.NewInt(0))
		f.PC++
		return opResult{action: actNoop}, nil
	}

	available := f.GasLimit - f.GasUsed
	childGas := callGas(available, gasReq.Uint64()) + stipend

	var ctx Context
	switch kind {
	case callKindCall:
		ctx = Context{Caller: f.Context.Contract, Contract: target, CodeAddress: target, HasCodeAddress: true, Value: value, ContractChainID: f.Context.ContractChainID, IsStatic: f.Context.IsStatic}
	case callKindCallCode:
		ctx = Context{Caller: f.Context.Contract, Contract: f.Context.Contract, CodeAddress: target, HasCodeAddress: true, Value: value, ContractChainID: f.Context.ContractChainID, IsStatic: f.Context.IsStatic}
	case callKindDelegateCall:
		ctx = Context{Caller: f.Context.Caller, Contract: f.Context.Contract, CodeAddress: target, HasCodeAddress: true, Value: f.Context.Value, ContractChainID: f.Context.ContractChainID, IsStatic: f.Context.IsStatic}
	case callKindStaticCall:
		ctx = Context{Caller: f.Context.Contract, Contract: target, CodeAddress: target, HasCodeAddress: true, ContractChainID: f.Context.ContractChainID, IsStatic: true}
	}

	argData := f.Memory.GetCopy(int64(argsOff.Uint64()), int64(argsSize.Uint64()))

	db.Snapshot()
	if hasValue && !value.IsZero() {
		if err := db.Transfer(f.Context.Contract, target, f.Context.ContractChainID, &value); err != nil {
			db.RevertSnapshot()
			f.Stack.Push(uint256.NewInt(0))
			f.PC++
			return opResult{action: actNoop}, nil
		}
	}

	code := db.Code(target)

	child := &Frame{
		Context:  ctx,
		Reason:   ReasonCall,
		Code:     code,
		CallData: buffer.FromSlice(argData),
		Stack:    newstack(),
		Memory:   NewMemory(),
		GasLimit: childGas,
		Parent:   f,
	}

	f.ReturnDst = retOff.Uint64()
	f.ReturnLimit = retSize.Uint64()
	f.PC++
	m.current = child

	return opResult{action: actNoop}, nil
}

func opCall(m *Machine, db Database) (opResult, error)         { return callCommon(m, db, callKindCall) }
func opCallCode(m *Machine, db Database) (opResult, error)     { return callCommon(m, db, callKindCallCode) }
func opDelegateCall(m *Machine, db Database) (opResult, error) { return callCommon(m, db, callKindDelegateCall) }
func opStaticCall(m *Machine, db Database) (opResult, error)   { return callCommon(m, db, callKindStaticCall) }

func createCommon(m *Machine, db Database, isCreate2 bool) (opResult, error) {
	f := m.current
	if f.Context.IsStatic {
		return opResult{}, ErrStaticModeViolation
	}
	n := 3
	if isCreate2 {
		n = 4
	}
	if err := popN(f.Stack, n); err != nil {
		return opResult{}, err
	}

	value := f.Stack.Pop()
	offset := f.Stack.Pop()
	size := f.Stack.Pop()
	var salt uint256.Int
	if isCreate2 {
		salt = f.Stack.Pop()
	}

	if err := chargeMemory(f, offset.Uint64(), size.Uint64()); err != nil {
		return opResult{}, err
	}
	if err := gasCheck(f, createGas(size.Uint64(), isCreate2)); err != nil {
		return opResult{}, err
	}

	if m.Depth() >= MaxCallDepth {
		f.Stack.Push(uint256.NewInt(0))
		f.PC++
		return opResult{action: actNoop}, nil
	}

	initCode := f.Memory.GetCopy(int64(offset.Uint64()), int64(size.Uint64()))

	callerNonce := db.Nonce(f.Context.Contract, f.Context.ContractChainID)
	var target thor.Address
	if isCreate2 {
		initHash := Keccak256(initCode)
		target = thor.Create2Address(f.Context.Contract, thor.BytesToBytes32(salt.Bytes()), initHash)
	} else {
		target = thor.CreateAddress(f.Context.Contract, callerNonce)
	}

	if db.Nonce(target, f.Context.ContractChainID) != 0 || db.CodeSize(target) != 0 {
		f.Stack.Push(uint256.NewInt(0))
		f.PC++
		return opResult{action: actNoop}, nil
	}

	available := f.GasLimit - f.GasUsed
	childGas := available - available/64

	db.Snapshot()
	if err := db.IncrementNonce(f.Context.Contract, f.Context.ContractChainID); err != nil {
		db.RevertSnapshot()
		f.Stack.Push(uint256.NewInt(0))
		f.PC++
		return opResult{action: actNoop}, nil
	}
	if err := db.IncrementNonce(target, f.Context.ContractChainID); err != nil {
		db.RevertSnapshot()
		f.Stack.Push(uint256.NewInt(0))
		f.PC++
		return opResult{action: actNoop}, nil
	}
	if !value.IsZero() {
		if err := db.Transfer(f.Context.Contract, target, f.Context.ContractChainID, &value); err != nil {
			db.RevertSnapshot()
			f.Stack.Push(uint256.NewInt(0))
			f.PC++
			return opResult{action: actNoop}, nil
		}
	}

	child := &Frame{
		Context: Context{
			Caller: f.Context.Contract, Contract: target, Value: value,
			ContractChainID: f.Context.ContractChainID,
		},
		Reason:   ReasonCreate,
		Code:     buffer.FromSlice(initCode),
		CallData: buffer.Empty(),
		Stack:    newstack(),
		Memory:   NewMemory(),
		GasLimit: childGas,
		Parent:   f,
	}

	f.ReturnDst = 0
	f.ReturnLimit = 0
	f.PC++
	m.current = child

	return opResult{action: actNoop}, nil
}

func opCreate(m *Machine, db Database) (opResult, error)  { return createCommon(m, db, false) }
func opCreate2(m *Machine, db Database) (opResult, error) { return createCommon(m, db, true) }

func opReturn(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	off := f.Stack.Pop()
	size := f.Stack.Pop()
	if err := chargeMemory(f, off.Uint64(), size.Uint64()); err != nil {
		return opResult{}, err
	}
	data := f.Memory.GetCopy(int64(off.Uint64()), int64(size.Uint64()))
	return opResult{action: actReturn, data: data}, nil
}

func opRevert(m *Machine, db Database) (opResult, error) {
	f := m.current
	if err := popN(f.Stack, 2); err != nil {
		return opResult{}, err
	}
	off := f.Stack.Pop()
	size := f.Stack.Pop()
	if err := chargeMemory(f, off.Uint64(), size.Uint64()); err != nil {
		return opResult{}, err
	}
	data := f.Memory.GetCopy(int64(off.Uint64()), int64(size.Uint64()))
	return opResult{action: actRevert, data: data}, nil
}

// opSelfDestruct zeroes the acting contract's own balance into the
// beneficiary and marks it destroyed for the duration of this transaction.
// It handles every contract alike; it does not distinguish a contract
// created in this transaction from a pre-existing one.
func opSelfDestruct(m *Machine, db Database) (opResult, error) {
	f := m.current
	if f.Context.IsStatic {
		return opResult{}, ErrStaticModeViolation
	}
	if err := popN(f.Stack, 1); err != nil {
		return opResult{}, err
	}
	beneficiary := f.Stack.Pop()
	target := thor.AddressFromWord(&beneficiary)

	cold := !m.isWarmAddress(target)
	cost := uint64(params.SelfdestructGas)
	if cold {
		cost += params_ColdAccountAccessCostEIP2929
	}
	if err := gasCheck(f, cost); err != nil {
		return opResult{}, err
	}

	bal := db.Balance(f.Context.Contract, f.Context.ContractChainID)
	if !bal.IsZero() {
		if err := db.Transfer(f.Context.Contract, target, f.Context.ContractChainID, bal); err != nil {
			return opResult{}, err
		}
	}
	if err := db.SelfDestruct(f.Context.Contract); err != nil {
		return opResult{}, err
	}
	return opResult{action: actSuicide}, nil
}
