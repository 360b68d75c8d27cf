// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime implements the iterative driver (component H): the
// Begin/Continue/Cancel/Finalize state machine that lets a single EVM
// transaction execute across many bounded, resumable program invocations.
// Driver state persists in a Holder, the struct this file defines; packages
// vm (interpreter) and state (overlay) supply the pieces it serializes.
package runtime

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
)

// Phase tags a Holder's lifecycle stage (§3 "Holder / State / Finalized",
// GLOSSARY "Holder / State / Finalized").
type Phase uint8

const (
	// PhaseRunning means the Machine has not yet reached a terminal status;
	// Continue should resume execution.
	PhaseRunning Phase = iota
	// PhaseReadyToFinalize means the Machine reached a terminal, non-
	// StepLimit status but EVM_STEPS_LAST_ITERATION_MAX was exceeded in the
	// same iteration, so the driver deferred finalization to its own
	// iteration rather than risk running out of step budget mid-finalize.
	PhaseReadyToFinalize
	// PhaseFinalized means gas settlement and the exit-status write have
	// both completed; a second Begin against the same tx hash is rejected.
	PhaseFinalized
)

// ExitCode is the canonical wire-coded exit-status byte spec.md §6 requires
// be "preserved bit-exact" in program return data.
type ExitCode byte

const (
	ExitCodeStop    ExitCode = 0x11
	ExitCodeReturn  ExitCode = 0x12
	ExitCodeSuicide ExitCode = 0x13
	ExitCodeRevert  ExitCode = 0xD0
)

// Holder is the persisted tuple spec.md §3 "Iteration state (Holder)"
// describes: the parsed transaction's identity, the serialized interpreter
// and overlay, accumulated step/gas counters, and the per-account revision
// map the RevisionChanged check consults.
type Holder struct {
	Phase Phase

	TxHash  thor.Bytes32
	Origin  thor.Address
	ChainID uint64

	GasLimit uint64
	GasPrice uint256.Int

	StepsExecuted uint64
	GasUsed       uint64

	// Revisions maps every account the Machine has read or written (its
	// EIP-2929 warm set, a superset of every account actually touched) to
	// the revision counter AccountStorage reported the first time that
	// account was seen in this transaction (§4.H "Revision check").
	Revisions map[thor.Address]uint64

	Machine MachineSnapshot
	Overlay state.Snapshot

	// ExitStatus is set once the Machine reaches a terminal status; nil
	// while PhaseRunning.
	ExitStatus *TerminalStatus
}

// TerminalStatus is the serializable form of vm.ExitStatus, captured once
// the Machine stops running so PhaseReadyToFinalize iterations don't need
// to keep the Machine itself alive.
type TerminalStatus struct {
	Code ExitCode
	Data []byte
}
