// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/extension"
	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/tx"
	"github.com/nodeseeker/evmcore/vm"
)

// DefaultStepsLastIterationMax is the threshold §4.H "Step budget" names
// EVM_STEPS_LAST_ITERATION_MAX: once an iteration's cumulative step count
// exceeds it, a terminal (non-StepLimit) outcome is not finalized in the
// same iteration — it is deferred to a finalize-only iteration so
// settlement always has its own step budget to run in, however close to the
// limit execution itself finished. Driver.StepsLastIterationMax defaults to
// this when left at zero.
const DefaultStepsLastIterationMax = 900_000

// ErrRevisionChanged is returned by Continue when any account the Machine
// touched has a durable-storage revision counter different from the one
// recorded at Begin/the previous Continue (§3 "Iteration state", §4.H
// "Revision check"). It is terminal: the driver does not retry, it
// finalizes with no effects applied.
var ErrRevisionChanged = errors.New("runtime: account revision changed since last iteration")

// ErrAlreadyFinalized is returned by Begin when the supplied Holder is
// PhaseFinalized for the same transaction hash (§4.H "Finalization":
// "idempotent on the same hash").
var ErrAlreadyFinalized = errors.New("runtime: transaction already finalized")

// Ledger is the durable-write surface Driver uses for gas settlement —
// burning the up-front gas deposit at Begin and crediting refund/operator/
// treasury balances at Finalize. These are driver-level effects, charged
// unconditionally regardless of whether the EVM invocation itself reverted,
// so they bypass ExecutorState's overlay entirely and write straight
// through via the same AccountWriter component I's applier uses.
type Ledger interface {
	state.AccountWriter

	// Mint credits addr with newly created value with no corresponding
	// debit (the inverse of Burn) — used to refund unused gas to the
	// origin and to credit the operator for gas spent (§4.H
	// "Finalization").
	Mint(addr thor.Address, chainID uint64, value *uint256.Int) error
}

// Driver runs the Begin/Continue/Cancel/Finalize state machine (component
// H). One Driver is reused across every iteration of a transaction; it
// holds no per-transaction state itself, only the dependencies and tunables
// every iteration needs.
type Driver struct {
	Storage state.AccountStorage
	Ledger  Ledger

	// PrecompileExtension wires the Neon-withdraw / Call-Solana dispatcher
	// (component K) into every ExecutorState this Driver builds; nil (the
	// zero value) falls back to extension.New(), the concrete
	// implementation, rather than disabling extension precompiles outright
	// — callers that genuinely want none installed (e.g. a narrow
	// interpreter-only test) set it to a func that always returns
	// handled=false.
	PrecompileExtension state.PrecompileExtensionFunc

	// SolanaAccountSource resolves the raw bytes behind a Call-Solana
	// account reference; nil means MapSolanaAccount always sees nil data.
	SolanaAccountSource func(key thor.Address) []byte

	// TreasuryIndex selects which of the storage's configured treasuries
	// receives the per-iteration fee (§6 "CollectTreasure").
	TreasuryIndex uint32

	// TreasuryFeePerIteration is the fixed fee transferred from the
	// operator to the treasury at finalization, each time a transaction
	// finalizes (regardless of how many iterations it took).
	TreasuryFeePerIteration uint64

	// StepsLastIterationMax overrides DefaultStepsLastIterationMax when
	// non-zero.
	StepsLastIterationMax uint64
}

func (d *Driver) stepsLastIterationMax() uint64 {
	if d.StepsLastIterationMax != 0 {
		return d.StepsLastIterationMax
	}
	return DefaultStepsLastIterationMax
}

func (d *Driver) precompileExtension() state.PrecompileExtensionFunc {
	if d.PrecompileExtension != nil {
		return d.PrecompileExtension
	}
	return extension.New()
}

// Result reports the outcome of a single Begin/Continue/Cancel call: either
// an updated Holder to persist and resume later, or a finalized transaction.
type Result struct {
	Holder     *Holder
	Finalized  bool
	ExitStatus ExitCode // meaningful only if Finalized
}

// BeginFromInstruction parses raw as a canonical RLP/EIP-2718 transaction
// envelope and begins its execution (§4.H "BeginFromInstruction"): the
// instruction payload carries the transaction bytes directly, as opposed to
// BeginFromAccount where a Holder account already carries the parsed
// transaction.
func (d *Driver) BeginFromInstruction(raw []byte, txHash thor.Bytes32, stepCount uint64) (*Result, error) {
	transaction, err := tx.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}
	return d.begin(transaction, txHash, stepCount, nil)
}

// BeginFromAccount begins execution of an already-parsed transaction — the
// counterpart to BeginFromInstruction used when the transaction bytes were
// previously written into a Holder account by a separate "create schedule
// entry" instruction (§4.H "BeginFromAccount"; relevant to Scheduled
// transactions, component D).
func (d *Driver) BeginFromAccount(transaction *tx.Transaction, txHash thor.Bytes32, stepCount uint64, existing *Holder) (*Result, error) {
	return d.begin(transaction, txHash, stepCount, existing)
}

func (d *Driver) begin(transaction *tx.Transaction, txHash thor.Bytes32, stepCount uint64, existing *Holder) (*Result, error) {
	if existing != nil && existing.Phase == PhaseFinalized {
		if existing.TxHash == txHash {
			return nil, ErrAlreadyFinalized
		}
		// Different hash: the Holder slot is being reused for a new
		// transaction, so existing is discarded rather than consulted
		// further (§4.H "Finalization": "re-initialized on different hash").
	}

	sender, err := transaction.Origin()
	if err != nil {
		return nil, errors.Wrap(err, "recover sender")
	}

	chainID := d.Storage.DefaultChainID()
	if cid := transaction.ChainID(); cid != nil {
		if !cid.IsUint64() {
			return nil, errors.New("chain id overflow")
		}
		chainID = cid.Uint64()
	}

	if err := tx.Validate(transaction, sender, chainID, state.New(d.Storage)); err != nil {
		return nil, err
	}

	gasLimit := transaction.GasLimit()
	if !gasLimit.IsUint64() {
		return nil, errors.New("gas limit overflow")
	}
	gasPrice := transaction.GasPrice()

	gasDeposit := new(uint256.Int).Mul(gasLimit, gasPrice)
	if err := d.Ledger.Burn(sender, chainID, gasDeposit); err != nil {
		return nil, errors.Wrap(err, "burn gas deposit")
	}

	es := state.New(d.Storage)
	es.SetPrecompileExtension(d.precompileExtension())
	if d.SolanaAccountSource != nil {
		es.SetSolanaAccountSource(d.SolanaAccountSource)
	}

	callData := buffer.FromSlice(transaction.Data())

	var machine *vm.Machine
	if transaction.IsCreate() {
		machine, _, err = vm.NewCreate(sender, transaction.Nonce(), chainID, transaction.Value(), callData, gasLimit.Uint64(), gasPrice, es)
	} else {
		machine, err = vm.NewCall(sender, *transaction.Target(), chainID, transaction.Value(), callData, gasLimit.Uint64(), gasPrice, es)
	}
	if err != nil {
		return nil, errors.Wrap(err, "construct machine")
	}

	holder := &Holder{
		Phase:     PhaseRunning,
		TxHash:    txHash,
		Origin:    sender,
		ChainID:   chainID,
		GasLimit:  gasLimit.Uint64(),
		GasPrice:  *gasPrice,
		Revisions: map[thor.Address]uint64{},
	}

	return d.run(holder, machine, es, stepCount)
}

// Continue resumes a suspended transaction for up to stepCount further
// opcode steps (§4.H "Continue").
func (d *Driver) Continue(holder *Holder, stepCount uint64) (*Result, error) {
	if holder.Phase == PhaseFinalized {
		return nil, ErrAlreadyFinalized
	}

	if err := d.checkRevisions(holder); err != nil {
		return d.finalizeWithError(holder, err)
	}

	es := state.Import(d.Storage, holder.Overlay)
	es.SetPrecompileExtension(d.precompileExtension())
	if d.SolanaAccountSource != nil {
		es.SetSolanaAccountSource(d.SolanaAccountSource)
	}

	if holder.Phase == PhaseReadyToFinalize {
		return d.finalize(holder, es, holder.ExitStatus.Code, holder.ExitStatus.Data)
	}

	machine := restoreMachine(holder.Machine, es)
	return d.run(holder, machine, es, stepCount)
}

// Cancel marks holder Finalized without applying any pending effects, and
// refunds the entire unused portion of the gas deposit: (gas_limit -
// steps-settled gas_used) is never charged, only the gas already consumed
// by completed opcodes is (§4.H "Cancel"; §5 "Cancellation/timeout").
func (d *Driver) Cancel(holder *Holder) (*Result, error) {
	if holder.Phase == PhaseFinalized {
		return nil, ErrAlreadyFinalized
	}

	gasPrice := holder.GasPrice
	unused := new(uint256.Int).Mul(uint256.NewInt(holder.GasLimit-holder.GasUsed), &gasPrice)
	if err := d.Ledger.Mint(holder.Origin, holder.ChainID, unused); err != nil {
		return nil, errors.Wrap(err, "refund on cancel")
	}

	holder.Phase = PhaseFinalized
	return &Result{Holder: holder, Finalized: true, ExitStatus: ExitCodeRevert}, nil
}

// run executes machine for up to stepCount further steps (cumulative,
// matching Machine.Execute's absolute-target contract), then either
// suspends (persisting Machine+overlay) or finalizes.
func (d *Driver) run(holder *Holder, machine *vm.Machine, es *state.ExecutorState, stepCount uint64) (*Result, error) {
	target := machine.StepsExecuted() + stepCount
	status, err := machine.Execute(target, es)
	if err != nil {
		return nil, errors.Wrap(err, "execute")
	}

	d.recordRevisions(holder, machine)
	holder.StepsExecuted = machine.StepsExecuted()
	holder.GasUsed = machine.GasUsed()

	if status.Kind == vm.ExitStepLimit {
		holder.Machine = captureMachine(machine)
		holder.Overlay = es.Export()
		return &Result{Holder: holder}, nil
	}

	code := exitCode(status.Kind)

	if holder.StepsExecuted > d.stepsLastIterationMax() {
		holder.Phase = PhaseReadyToFinalize
		holder.Overlay = es.Export()
		holder.ExitStatus = &TerminalStatus{Code: code, Data: status.Data}
		return &Result{Holder: holder}, nil
	}

	return d.finalize(holder, es, code, status.Data)
}

func exitCode(kind vm.ExitKind) ExitCode {
	switch kind {
	case vm.ExitStop:
		return ExitCodeStop
	case vm.ExitReturn:
		return ExitCodeReturn
	case vm.ExitSuicide:
		return ExitCodeSuicide
	default:
		return ExitCodeRevert
	}
}

// finalize performs §4.H "Finalization": applies the recorded action log
// (unless the outcome was a revert, in which case there is nothing to
// apply), settles gas (refund to origin, mint to operator), pays the
// treasury, and marks holder Finalized.
func (d *Driver) finalize(holder *Holder, es *state.ExecutorState, code ExitCode, data []byte) (*Result, error) {
	if code != ExitCodeRevert {
		if _, err := state.Allocate(d.Ledger, es.Actions()); err != nil {
			return nil, errors.Wrap(err, "allocate")
		}
		if err := state.Apply(d.Ledger, es.Actions()); err != nil {
			return nil, errors.Wrap(err, "apply actions")
		}
	}

	if err := d.settleGas(holder); err != nil {
		return nil, err
	}

	holder.Phase = PhaseFinalized
	holder.ExitStatus = &TerminalStatus{Code: code, Data: data}
	return &Result{Holder: holder, Finalized: true, ExitStatus: code}, nil
}

// finalizeWithError finalizes with no effects applied and no gas refunded
// beyond the unused portion — used for RevisionChanged, which is terminal
// rather than retryable (§5 "Ordering guarantees").
func (d *Driver) finalizeWithError(holder *Holder, cause error) (*Result, error) {
	if err := d.settleGas(holder); err != nil {
		return nil, err
	}
	holder.Phase = PhaseFinalized
	holder.ExitStatus = &TerminalStatus{Code: ExitCodeRevert}
	return &Result{Holder: holder, Finalized: true, ExitStatus: ExitCodeRevert}, errors.Wrap(cause, "finalized with no effects applied")
}

func (d *Driver) settleGas(holder *Holder) error {
	gasPrice := holder.GasPrice
	spent := new(uint256.Int).Mul(uint256.NewInt(holder.GasUsed), &gasPrice)
	refund := new(uint256.Int).Mul(uint256.NewInt(holder.GasLimit-holder.GasUsed), &gasPrice)

	if err := d.Ledger.Mint(holder.Origin, holder.ChainID, refund); err != nil {
		return errors.Wrap(err, "refund unused gas")
	}

	operator := d.Storage.Operator()
	if err := d.Ledger.CreateBalanceAccount(operator, holder.ChainID); err != nil {
		return errors.Wrap(err, "create operator balance account")
	}
	if err := d.Ledger.Mint(operator, holder.ChainID, spent); err != nil {
		return errors.Wrap(err, "mint gas to operator")
	}

	if d.TreasuryFeePerIteration == 0 {
		return nil
	}
	treasury := d.Storage.Treasury(d.TreasuryIndex)
	fee := uint256.NewInt(d.TreasuryFeePerIteration)
	if err := d.Ledger.CreateBalanceAccount(treasury, holder.ChainID); err != nil {
		return errors.Wrap(err, "create treasury balance account")
	}
	if err := d.Ledger.Transfer(operator, treasury, holder.ChainID, fee); err != nil {
		return errors.Wrap(err, "pay treasury fee")
	}
	return nil
}

// checkRevisions re-reads the current revision of every account recorded in
// holder.Revisions and fails if any has moved (§3 "Iteration state", §4.H
// "Revision check").
func (d *Driver) checkRevisions(holder *Holder) error {
	for addr, rev := range holder.Revisions {
		if d.Storage.Revision(addr) != rev {
			return ErrRevisionChanged
		}
	}
	return nil
}

// recordRevisions extends holder.Revisions with every address machine has
// accessed so far that is not yet recorded, snapshotting each one's current
// revision the first time it is seen (§4.H "Revision check").
func (d *Driver) recordRevisions(holder *Holder, machine *vm.Machine) {
	for _, addr := range machine.AccessedAddrs() {
		if _, ok := holder.Revisions[addr]; !ok {
			holder.Revisions[addr] = d.Storage.Revision(addr)
		}
	}
}
