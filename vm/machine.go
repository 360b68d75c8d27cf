// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package vm implements the EVM interpreter: opcode dispatch, the
// stack/memory/storage primitives opcodes operate on, call-frame lifecycle
// (CALL/DELEGATECALL/STATICCALL/CREATE/CREATE2), gas metering and precompile
// routing (component F of the design, plus A/B/C/K). It is grounded on
// go-ethereum's core/vm package (via vechain/thor's fork of it) for opcode
// structure and naming, and on the reference engine's evm/mod.rs for the
// frame lifecycle and exit-status taxonomy this port must reproduce exactly.
package vm

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/thor"
)

// MaxCallDepth is the maximum number of nested call frames (§3 invariant).
const MaxCallDepth = 1024

// MaxCodeSize is the maximum deployed contract code size (EIP-170).
const MaxCodeSize = 0x6000

// Reason records whether a frame was entered via a CALL-family opcode or a
// CREATE-family opcode; it changes how the frame terminates on success.
type Reason uint8

const (
	ReasonCall Reason = iota
	ReasonCreate
)

// Context is the immutable call context a frame executes under.
type Context struct {
	Caller           thor.Address
	Contract         thor.Address
	CodeAddress      thor.Address // zero for CREATE frames until the address is known
	HasCodeAddress   bool
	Value            uint256.Int
	ContractChainID  uint64
	IsStatic         bool
}

// ExitStatus is the terminal outcome of a completed top-level Machine
// invocation (§4.F "State machine" / exit-status taxonomy, wire-coded in
// §6 as 0x11/0x12/0x13/0xD0).
type ExitStatus struct {
	Kind ExitKind
	Data []byte
}

type ExitKind uint8

const (
	ExitStop ExitKind = iota
	ExitReturn
	ExitRevert
	ExitSuicide
	ExitStepLimit
)

// Frame is one activation record of EVM execution — one CALL or CREATE in
// progress (§3 "Execution frame"). Frames are linked via Parent rather than
// held in an external stack so that serialization (package runtime) is a
// straight recursive walk, per DESIGN NOTES "parent-frame linkage".
type Frame struct {
	Context Context
	Reason  Reason

	Code     buffer.Buffer
	CallData buffer.Buffer

	ReturnData  buffer.Buffer
	ReturnDst   uint64 // memory offset the caller asked the return data copied to
	ReturnLimit uint64 // max bytes the caller will accept

	Stack  *Stack
	Memory *Memory
	PC     uint64

	GasLimit uint64
	GasUsed  uint64
	Refund   int64

	Parent *Frame
}

// Machine is the interpreter: the currently-executing frame plus the
// invocation-wide parameters (origin, gas price) that never change across
// frames.
type Machine struct {
	Origin   thor.Address
	GasPrice uint256.Int

	current *Frame

	// accessed tracks EIP-2929 warm addresses/slots for the whole
	// invocation (shared by every frame, reset only when a fresh Machine
	// is built — never across iterative-driver resumptions within the
	// same transaction, since that would let a contract pay cold price
	// twice for the same slot).
	accessedAddrs map[thor.Address]bool
	accessedSlots map[accessKey]bool

	steps uint64
}

type accessKey struct {
	addr  thor.Address
	index uint256.Int
}

// AccessedSlot names one EIP-2929-warm storage slot, for serialization.
type AccessedSlot struct {
	Addr  thor.Address
	Index uint256.Int
}

// AccessedAddrs returns every address warmed so far in the invocation.
func (m *Machine) AccessedAddrs() []thor.Address {
	out := make([]thor.Address, 0, len(m.accessedAddrs))
	for a := range m.accessedAddrs {
		out = append(out, a)
	}
	return out
}

// AccessedSlots returns every (address, index) pair warmed so far.
func (m *Machine) AccessedSlots() []AccessedSlot {
	out := make([]AccessedSlot, 0, len(m.accessedSlots))
	for k := range m.accessedSlots {
		out = append(out, AccessedSlot{Addr: k.addr, Index: k.index})
	}
	return out
}

// Restore rebuilds a Machine around an already-reconstructed frame chain —
// used by package runtime to resume a suspended invocation across iterative-
// driver entry points (§4.H "Serialization").
func Restore(origin thor.Address, gasPrice *uint256.Int, current *Frame, steps uint64, addrs []thor.Address, slots []AccessedSlot) *Machine {
	accessedAddrs := make(map[thor.Address]bool, len(addrs))
	for _, a := range addrs {
		accessedAddrs[a] = true
	}
	accessedSlots := make(map[accessKey]bool, len(slots))
	for _, s := range slots {
		accessedSlots[accessKey{addr: s.Addr, index: s.Index}] = true
	}
	return &Machine{
		Origin:        origin,
		GasPrice:      *gasPrice,
		current:       current,
		accessedAddrs: accessedAddrs,
		accessedSlots: accessedSlots,
		steps:         steps,
	}
}

// NewCall builds the root CALL frame for a transaction whose target is set:
// it transfers value from origin to target inside a snapshot and sets the
// target's code as execution code (§4.F "Construction").
func NewCall(origin, target thor.Address, chainID uint64, value *uint256.Int, callData buffer.Buffer, gasLimit uint64, gasPrice *uint256.Int, db Database) (*Machine, error) {
	if err := db.IncrementNonce(origin, chainID); err != nil {
		return nil, err
	}
	db.Snapshot()

	if err := db.Transfer(origin, target, chainID, value); err != nil {
		db.RevertSnapshot()
		return nil, err
	}

	code := db.Code(target)

	frame := &Frame{
		Context: Context{
			Caller: origin, Contract: target, CodeAddress: target, HasCodeAddress: true,
			Value: *value, ContractChainID: chainID,
		},
		Reason:   ReasonCall,
		Code:     code,
		CallData: callData,
		Stack:    newstack(),
		Memory:   NewMemory(),
		GasLimit: gasLimit,
	}

	return &Machine{
		Origin: origin, GasPrice: *gasPrice, current: frame,
		accessedAddrs: map[thor.Address]bool{origin: true, target: true},
		accessedSlots: map[accessKey]bool{},
	}, nil
}

// NewCreate builds the root CREATE frame for a transaction with no target:
// the deployment address is derived via the CREATE rule, both origin's and
// the new account's nonces are incremented, and the transaction's call data
// becomes the init-code execution buffer (§4.F "Construction").
func NewCreate(origin thor.Address, nonce uint64, chainID uint64, value *uint256.Int, initCode buffer.Buffer, gasLimit uint64, gasPrice *uint256.Int, db Database) (*Machine, thor.Address, error) {
	target := thor.CreateAddress(origin, nonce)

	if db.Nonce(target, chainID) != 0 || db.CodeSize(target) != 0 {
		return nil, target, ErrDeployToExisting
	}

	if err := db.IncrementNonce(origin, chainID); err != nil {
		return nil, target, err
	}
	db.Snapshot()

	if err := db.IncrementNonce(target, chainID); err != nil {
		db.RevertSnapshot()
		return nil, target, err
	}
	if err := db.Transfer(origin, target, chainID, value); err != nil {
		db.RevertSnapshot()
		return nil, target, err
	}

	frame := &Frame{
		Context: Context{
			Caller: origin, Contract: target, Value: *value, ContractChainID: chainID,
		},
		Reason:   ReasonCreate,
		Code:     initCode,
		CallData: buffer.Empty(),
		Stack:    newstack(),
		Memory:   NewMemory(),
		GasLimit: gasLimit,
	}

	return &Machine{
		Origin: origin, GasPrice: *gasPrice, current: frame,
		accessedAddrs: map[thor.Address]bool{origin: true, target: true},
		accessedSlots: map[accessKey]bool{},
	}, target, nil
}

// CurrentFrame returns the frame currently executing, for serialization.
func (m *Machine) CurrentFrame() *Frame { return m.current }

// GasUsed returns the cumulative gas consumed across every frame of the
// invocation, valid whether or not execution has reached a terminal status:
// a frame's own GasUsed reflects opcodes it directly executed plus any
// child frame that has already finished and folded in via finishFrame,
// never a child still running, so summing the current frame and every
// ancestor always yields the true running total (package runtime's
// iterative driver reads this both mid-flight, to settle gas on
// cancellation or a revision-changed abort, and at termination; §4.H
// "Finalization").
func (m *Machine) GasUsed() uint64 {
	var total uint64
	for f := m.current; f != nil; f = f.Parent {
		total += f.GasUsed
	}
	return total
}

// Depth returns the current call-frame depth (1 for the root frame).
func (m *Machine) Depth() int {
	d := 0
	for f := m.current; f != nil; f = f.Parent {
		d++
	}
	return d
}

// StepsExecuted returns the cumulative opcode-step count across every
// Execute call made on this Machine (used by the driver to enforce
// EVM_STEPS_LAST_ITERATION_MAX).
func (m *Machine) StepsExecuted() uint64 { return m.steps }

func (m *Machine) isWarmAddress(addr thor.Address) bool {
	warm := m.accessedAddrs[addr]
	if !warm {
		m.accessedAddrs[addr] = true
	}
	return warm
}

func (m *Machine) isWarmSlot(addr thor.Address, index *uint256.Int) bool {
	k := accessKey{addr: addr, index: *index}
	warm := m.accessedSlots[k]
	if !warm {
		m.accessedSlots[k] = true
	}
	return warm
}
