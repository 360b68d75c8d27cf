// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/thor"
)

// action is the per-opcode dispatch result (§4.F item 3): advance PC,
// take a validated jump, stop the frame in one of four ways, or do nothing
// because the handler already repositioned the interpreter itself (the
// CALL/CREATE family, which pushes a child frame instead of advancing PC).
type action int

const (
	actContinue action = iota
	actJump
	actNoop
	actStop
	actReturn
	actRevert
	actSuicide
)

type opResult struct {
	action     action
	jumpTarget uint64
	data       []byte
}

type opFn func(m *Machine, db Database) (opResult, error)

var jumpTable [256]opFn

func init() {
	jumpTable[STOP] = opStop
	jumpTable[ADD] = opAdd
	jumpTable[MUL] = opMul
	jumpTable[SUB] = opSub
	jumpTable[DIV] = opDiv
	jumpTable[SDIV] = opSdiv
	jumpTable[MOD] = opMod
	jumpTable[SMOD] = opSmod
	jumpTable[ADDMOD] = opAddmod
	jumpTable[MULMOD] = opMulmod
	jumpTable[EXP] = opExp
	jumpTable[SIGNEXTEND] = opSignExtend

	jumpTable[LT] = opLt
	jumpTable[GT] = opGt
	jumpTable[SLT] = opSlt
	jumpTable[SGT] = opSgt
	jumpTable[EQ] = opEq
	jumpTable[ISZERO] = opIszero
	jumpTable[AND] = opAnd
	jumpTable[OR] = opOr
	jumpTable[XOR] = opXor
	jumpTable[NOT] = opNot
	jumpTable[BYTE] = opByte
	jumpTable[SHL] = opShl
	jumpTable[SHR] = opShr
	jumpTable[SAR] = opSar

	jumpTable[SHA3] = opSha3

	jumpTable[ADDRESS] = opAddress
	jumpTable[BALANCE] = opBalance
	jumpTable[ORIGIN] = opOrigin
	jumpTable[CALLER] = opCaller
	jumpTable[CALLVALUE] = opCallValue
	jumpTable[CALLDATALOAD] = opCallDataLoad
	jumpTable[CALLDATASIZE] = opCallDataSize
	jumpTable[CALLDATACOPY] = opCallDataCopy
	jumpTable[CODESIZE] = opCodeSize
	jumpTable[CODECOPY] = opCodeCopy
	jumpTable[GASPRICE] = opGasPrice
	jumpTable[EXTCODESIZE] = opExtCodeSize
	jumpTable[EXTCODECOPY] = opExtCodeCopy
	jumpTable[RETURNDATASIZE] = opReturnDataSize
	jumpTable[RETURNDATACOPY] = opReturnDataCopy
	jumpTable[EXTCODEHASH] = opExtCodeHash
	jumpTable[BLOCKHASH] = opBlockHash
	jumpTable[COINBASE] = opCoinbase
	jumpTable[TIMESTAMP] = opTimestamp
	jumpTable[NUMBER] = opNumber
	jumpTable[DIFFICULTY] = opDifficulty
	jumpTable[GASLIMIT] = opGasLimit
	jumpTable[CHAINID] = opChainID
	jumpTable[SELFBALANCE] = opSelfBalance
	jumpTable[BASEFEE] = opBaseFee

	jumpTable[POP] = opPop
	jumpTable[MLOAD] = opMload
	jumpTable[MSTORE] = opMstore
	jumpTable[MSTORE8] = opMstore8
	jumpTable[SLOAD] = opSload
	jumpTable[SSTORE] = opSstore
	jumpTable[JUMP] = opJump
	jumpTable[JUMPI] = opJumpi
	jumpTable[PC] = opPC
	jumpTable[MSIZE] = opMsize
	jumpTable[GAS] = opGas
	jumpTable[JUMPDEST] = opJumpdest

	jumpTable[PUSH0] = opPush0
	for n := 1; n <= 32; n++ {
		jumpTable[PUSH(n)] = makePush(n)
	}
	for n := 1; n <= 16; n++ {
		jumpTable[DUP(n)] = makeDup(n)
	}
	for n := 1; n <= 16; n++ {
		jumpTable[SWAP(n)] = makeSwap(n)
	}
	for n := 0; n <= 4; n++ {
		jumpTable[LOG(n)] = makeLog(n)
	}

	jumpTable[CREATE] = opCreate
	jumpTable[CALL] = opCall
	jumpTable[CALLCODE] = opCallCode
	jumpTable[RETURN] = opReturn
	jumpTable[DELEGATECALL] = opDelegateCall
	jumpTable[CREATE2] = opCreate2
	jumpTable[STATICCALL] = opStaticCall
	jumpTable[REVERT] = opRevert
	jumpTable[SELFDESTRUCT] = opSelfDestruct

	for i := range jumpTable {
		if jumpTable[i] == nil {
			jumpTable[i] = opUndefined
		}
	}
	jumpTable[INVALID] = opUndefined
}

// buildRevertMessage constructs the engine's synthetic revert payload for
// internal errors: the Error(string) selector followed by ABI-encoded
// reason text (§6, §7 "engine-constructed revert reason").
func buildRevertMessage(reason string) []byte {
	selector := []byte{0x08, 0xc3, 0x79, 0xa0}
	offset := make([]byte, 32)
	offset[31] = 32
	length := make([]byte, 32)
	strBytes := []byte(reason)
	lenBig := uint256.NewInt(uint64(len(strBytes)))
	lenBig.WriteToSlice(length)
	padded := len(strBytes)
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}
	data := make([]byte, padded)
	copy(data, strBytes)

	out := make([]byte, 0, 4+32+32+padded)
	out = append(out, selector...)
	out = append(out, offset...)
	out = append(out, length...)
	out = append(out, data...)
	return out
}

// Execute runs the interpreter until the machine's cumulative opcode step
// count (StepsExecuted, carried over between calls) reaches stepLimit (§4.H
// "Step budget"); a caller granting n more steps passes StepsExecuted()+n.
// It returns ExitStepLimit, without mutating any durable
// state beyond what already-completed frames committed, when the budget is
// exhausted mid-execution; the caller (package runtime) re-serializes and
// resumes later at the same PC of the same frame (§5 "Suspension points").
func (m *Machine) Execute(stepLimit uint64, db Database) (ExitStatus, error) {
	for {
		f := m.current

		if handled, out, err := dispatchPrecompile(m, f, db); handled {
			if err != nil {
				status, terminal := m.finishFrame(ExitRevert, buildRevertMessage(err.Error()), db, true)
				if terminal {
					return status, nil
				}
				continue
			}
			status, terminal := m.finishFrame(ExitReturn, out, db, false)
			if terminal {
				return status, nil
			}
			continue
		}

		if m.steps >= stepLimit {
			return ExitStatus{Kind: ExitStepLimit}, nil
		}
		m.steps++

		op := OpCode(f.Code.GetOrDefault(int(f.PC)))
		res, err := jumpTable[op](m, db)
		if err != nil {
			status, terminal := m.finishFrame(ExitRevert, buildRevertMessage(err.Error()), db, true)
			if terminal {
				return status, nil
			}
			continue
		}

		switch res.action {
		case actContinue:
			f.PC++
		case actJump:
			f.PC = res.jumpTarget
		case actNoop:
			// handler already repositioned m.current (CALL/CREATE pushed a child).
		case actStop:
			status, terminal := m.finishFrame(ExitStop, nil, db, false)
			if terminal {
				return status, nil
			}
		case actReturn:
			status, terminal := m.finishFrame(ExitReturn, res.data, db, false)
			if terminal {
				return status, nil
			}
		case actRevert:
			status, terminal := m.finishFrame(ExitRevert, res.data, db, true)
			if terminal {
				return status, nil
			}
		case actSuicide:
			status, terminal := m.finishFrame(ExitSuicide, nil, db, false)
			if terminal {
				return status, nil
			}
		}
	}
}

// finishFrame commits or reverts the current frame's snapshot and either
// bubbles a terminal ExitStatus (root frame) or resumes the parent frame
// with the child's outcome reflected on its stack/memory/returndata
// (§4.F "Call-frame lifecycle" / "On frame termination").
func (m *Machine) finishFrame(kind ExitKind, data []byte, db Database, isRevert bool) (ExitStatus, bool) {
	f := m.current

	if !isRevert {
		if f.Reason == ReasonCreate && kind == ExitReturn {
			if err := validateDeployedCode(data); err != nil {
				return m.finishFrame(ExitRevert, buildRevertMessage(err.Error()), db, true)
			}
			_ = db.SetCode(f.Context.Contract, f.Context.ContractChainID, data)
		}
		db.CommitSnapshot()
	} else {
		db.RevertSnapshot()
	}

	returnStack(f.Stack)

	parent := f.Parent
	if parent == nil {
		return ExitStatus{Kind: kind, Data: data}, true
	}

	// Gas a child frame actually spent is never returned to the parent's
	// budget. The CALL/CREATE opcode's gasCheck charged the parent only its
	// own surcharges before the child was pushed; the child's spending is
	// charged here by folding it into the parent's own GasUsed so that
	// the root frame's GasUsed, once the whole invocation terminates, equals
	// the total gas consumed across every frame (§4.H finalization needs
	// this to compute the refund).
	parent.GasUsed += f.GasUsed

	m.current = parent

	switch {
	case isRevert:
		parent.ReturnData = bufferFromBytes(data)
		writeReturnWindow(parent, data)
		parent.Stack.Push(uint256.NewInt(0))
	case f.Reason == ReasonCreate:
		if kind == ExitSuicide || kind == ExitStop {
			parent.Stack.Push(new(uint256.Int).SetBytes(f.Context.Contract[:]))
		} else {
			addrWord := new(uint256.Int).SetBytes(f.Context.Contract[:])
			parent.Stack.Push(addrWord)
		}
		parent.ReturnData = bufferFromBytes(data)
	default:
		parent.ReturnData = bufferFromBytes(data)
		writeReturnWindow(parent, data)
		parent.Stack.Push(uint256.NewInt(1))
	}

	return ExitStatus{}, false
}

func writeReturnWindow(parent *Frame, data []byte) {
	if parent.ReturnLimit == 0 {
		return
	}
	n := parent.ReturnLimit
	if uint64(len(data)) < n {
		n = uint64(len(data))
	}
	parent.Memory.Resize(MemSize(parent.ReturnDst + n))
	parent.Memory.Set(parent.ReturnDst, n, data[:n])
}

func validateDeployedCode(code []byte) error {
	if len(code) > MaxCodeSize {
		return ErrContractCodeSize
	}
	if len(code) > 0 && code[0] == 0xEF {
		return ErrEVMObjectFormat
	}
	return nil
}

func isBuiltinPrecompileAddr(addr thor.Address) bool {
	for i := 0; i < 19; i++ {
		if addr[i] != 0 {
			return false
		}
	}
	return addr[19] >= 1 && addr[19] <= 9
}

func dispatchPrecompile(m *Machine, f *Frame, db Database) (handled bool, out []byte, err error) {
	if isBuiltinPrecompileAddr(f.Context.Contract) {
		out, err = RunBuiltinPrecompile(f.Context.Contract, f.CallData.Bytes())
		return true, out, err
	}

	if f.Context.Caller != f.Context.Contract {
		// callcode/delegatecall never reach an extension precompile (§4.K).
		return false, nil, nil
	}

	ctx := f.Context
	ok, data, perr := db.PrecompileExtension(&ctx, f.Context.Contract, f.CallData.Bytes(), f.Context.IsStatic)
	if !ok {
		return false, nil, nil
	}
	return true, data, perr
}

func (m *Machine) err(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
