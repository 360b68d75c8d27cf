// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import "errors"

// Sentinel errors returned by opcode handlers. The dispatch loop's catch-all
// arm converts every one of these (StaticModeViolation included) into a
// frame-local Revert; none of them ever unwind out of Execute. CallDepthLimit
// is the sole exception — it never reaches the catch-all because it is
// handled inline by the CALL*/CREATE* handlers as a "soft fail" (push 0,
// keep running), not a revert.
var (
	ErrStackOverflow        = errors.New("stack overflow")
	ErrStackUnderflow       = errors.New("stack underflow")
	ErrOutOfGas             = errors.New("out of gas")
	ErrInvalidJump          = errors.New("invalid jump destination")
	ErrStaticModeViolation  = errors.New("write in static context")
	ErrExecutionReverted    = errors.New("execution reverted")
	ErrInvalidOpcode        = errors.New("invalid opcode")
	ErrDeployToExisting     = errors.New("deploy to existing account")
	ErrContractCodeSize     = errors.New("contract code size exceeds limit")
	ErrEVMObjectFormat      = errors.New("EVM object format not supported")
	ErrNonceOverflow        = errors.New("nonce overflow")
	ErrExternalInstruction  = errors.New("external instruction failed")
	ErrReturnDataOutOfBounds = errors.New("return data out of bounds")
)

// ErrCallDepth names the condition of pushing a 1025th frame. The
// call/create handlers check the depth inline and do not return it: the
// caller's opcode "fails soft" (pushes 0) rather than reverting.
var ErrCallDepth = errors.New("max call depth exceeded")
