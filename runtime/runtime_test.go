// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime_test

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/nodeseeker/evmcore/runtime"
	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/tx"
	"github.com/nodeseeker/evmcore/vm"
)

// --- minimal legacy-transaction builder, grounded on tx/rlp.go's and
// tx/signer.go's own field layout so tx.Decode accepts the result without
// package runtime needing any access to tx's unexported txData. ---

type legacyTxRLP struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      *big.Int
	To       []byte
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

type legacySigningRLP struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      *big.Int
	To       []byte
	Value    *big.Int
	Data     []byte
}

func buildLegacyTx(t *testing.T, priv *ecdsa.PrivateKey, nonce uint64, to *thor.Address, value, gasPrice, gasLimit uint64, data []byte) *tx.Transaction {
	t.Helper()

	var toBytes []byte
	if to != nil {
		toBytes = to.Bytes()
	}

	payload, err := rlp.EncodeToBytes(legacySigningRLP{
		Nonce:    nonce,
		GasPrice: new(big.Int).SetUint64(gasPrice),
		Gas:      new(big.Int).SetUint64(gasLimit),
		To:       toBytes,
		Value:    new(big.Int).SetUint64(value),
		Data:     data,
	})
	require.NoError(t, err)
	hash := thor.Keccak256(payload)

	sig, err := crypto.Sign(hash.Bytes(), priv)
	require.NoError(t, err)
	recovery := uint64(sig[64])

	raw, err := rlp.EncodeToBytes(legacyTxRLP{
		Nonce:    nonce,
		GasPrice: new(big.Int).SetUint64(gasPrice),
		Gas:      new(big.Int).SetUint64(gasLimit),
		To:       toBytes,
		Value:    new(big.Int).SetUint64(value),
		Data:     data,
		V:        new(big.Int).SetUint64(27 + recovery),
		R:        new(big.Int).SetBytes(sig[0:32]),
		S:        new(big.Int).SetBytes(sig[32:64]),
	})
	require.NoError(t, err)

	transaction, err := tx.Decode(raw)
	require.NoError(t, err)
	return transaction
}

// --- fake chain: a single in-memory implementation of both
// state.AccountStorage (Driver.Storage) and runtime.Ledger (Driver.Ledger).
// Tests use a single chain id throughout, so maps key on address alone. ---

type fakeChain struct {
	balances map[thor.Address]*uint256.Int
	nonces   map[thor.Address]uint64
	code     map[thor.Address][]byte
	revision map[thor.Address]uint64
	operator thor.Address
	treasury thor.Address
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances: map[thor.Address]*uint256.Int{},
		nonces:   map[thor.Address]uint64{},
		code:     map[thor.Address][]byte{},
		revision: map[thor.Address]uint64{},
		operator: thor.BytesToAddress([]byte("operator")),
		treasury: thor.BytesToAddress([]byte("treasury")),
	}
}

func (c *fakeChain) balanceOf(addr thor.Address) *uint256.Int {
	if v, ok := c.balances[addr]; ok {
		return v
	}
	return uint256.NewInt(0)
}

func (c *fakeChain) fund(addr thor.Address, v uint64) { c.balances[addr] = uint256.NewInt(v) }

// AccountStorage

func (c *fakeChain) Nonce(addr thor.Address, chainID uint64) uint64            { return c.nonces[addr] }
func (c *fakeChain) Balance(addr thor.Address, chainID uint64) *uint256.Int    { return c.balanceOf(addr) }
func (c *fakeChain) Code(addr thor.Address) []byte                            { return c.code[addr] }
func (c *fakeChain) CodeSize(addr thor.Address) int                           { return len(c.code[addr]) }
func (c *fakeChain) Storage(addr thor.Address, index *uint256.Int) thor.Bytes32 { return thor.Bytes32{} }
func (c *fakeChain) BlockHash(number uint64) thor.Bytes32                      { return thor.Bytes32{} }
func (c *fakeChain) BlockNumber() uint64                                      { return 1 }
func (c *fakeChain) BlockTimestamp() uint64                                   { return 1 }
func (c *fakeChain) ContractChainID(addr thor.Address) (uint64, bool)         { return 1, len(c.code[addr]) > 0 }
func (c *fakeChain) ContractPubkey(addr thor.Address) (thor.Address, byte)    { return addr, 0 }
func (c *fakeChain) Revision(addr thor.Address) uint64                       { return c.revision[addr] }
func (c *fakeChain) ProgramID() thor.Address                                 { return thor.Address{} }
func (c *fakeChain) Operator() thor.Address                                  { return c.operator }
func (c *fakeChain) ChainIDToToken(chainID uint64) thor.Address              { return thor.Address{} }
func (c *fakeChain) DefaultChainID() uint64                                  { return 1 }
func (c *fakeChain) IsValidChainID(chainID uint64) bool                      { return chainID == 1 }
func (c *fakeChain) Treasury(index uint32) thor.Address                      { return c.treasury }

func (c *fakeChain) bumpRevision(addr thor.Address) { c.revision[addr]++ }

// runtime.Ledger (embeds state.AccountWriter, plus Mint)

func (c *fakeChain) AllocateContract(addr thor.Address, codeLen int) (state.AllocateResult, error) {
	return state.AllocateReady, nil
}

func (c *fakeChain) CreateBalanceAccount(addr thor.Address, chainID uint64) error {
	if _, ok := c.balances[addr]; !ok {
		c.balances[addr] = uint256.NewInt(0)
	}
	return nil
}

func (c *fakeChain) Transfer(from, to thor.Address, chainID uint64, value *uint256.Int) error {
	c.balances[from] = new(uint256.Int).Sub(c.balanceOf(from), value)
	c.balances[to] = new(uint256.Int).Add(c.balanceOf(to), value)
	return nil
}

func (c *fakeChain) Burn(addr thor.Address, chainID uint64, value *uint256.Int) error {
	c.balances[addr] = new(uint256.Int).Sub(c.balanceOf(addr), value)
	return nil
}

func (c *fakeChain) Mint(addr thor.Address, chainID uint64, value *uint256.Int) error {
	c.balances[addr] = new(uint256.Int).Add(c.balanceOf(addr), value)
	return nil
}

func (c *fakeChain) IncrementNonce(addr thor.Address, chainID uint64) error {
	c.nonces[addr]++
	return nil
}

func (c *fakeChain) SetCode(addr thor.Address, chainID uint64, code []byte) error {
	c.code[addr] = code
	return nil
}

func (c *fakeChain) SetStaticStorage(addr thor.Address, index uint8, value thor.Bytes32) error {
	return nil
}

func (c *fakeChain) SetCellStorage(addr thor.Address, cellIndex uint256.Int, entries map[uint8]thor.Bytes32) error {
	return nil
}

func (c *fakeChain) InvokeExternal(seeds [][]byte, data []byte, feeLamports uint64) error {
	return nil
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestBeginFinalizesSimpleTransferInOneIteration(t *testing.T) {
	chain := newFakeChain()
	priv := newKey(t)
	origin := thor.BytesToAddress(crypto.PubkeyToAddress(priv.PublicKey).Bytes())
	recipient := thor.BytesToAddress([]byte("recipient"))

	chain.fund(origin, 1_000_000)

	transaction := buildLegacyTx(t, priv, 0, &recipient, 1000, 1, 21000, nil)

	d := &runtime.Driver{Storage: chain, Ledger: chain}
	result, err := d.BeginFromInstruction(mustEncode(t, transaction), thor.Keccak256([]byte("tx1")), 1000)
	require.NoError(t, err)
	require.True(t, result.Finalized)
	require.Equal(t, runtime.ExitCodeStop, result.ExitStatus)

	require.Equal(t, uint256.NewInt(1000), chain.balanceOf(recipient))
	require.True(t, chain.balanceOf(chain.operator).Sign() > 0, "operator must be credited for gas spent")
}

func TestIterativeResumeMatchesStepBudgetScenario(t *testing.T) {
	chain := newFakeChain()
	priv := newKey(t)
	origin := thor.BytesToAddress(crypto.PubkeyToAddress(priv.PublicKey).Bytes())

	contract := thor.BytesToAddress([]byte("contract"))
	code := make([]byte, 112)
	for i := 0; i < 111; i++ {
		code[i] = byte(vm.JUMPDEST)
	}
	code[111] = byte(vm.STOP)
	chain.code[contract] = code

	chain.fund(origin, 1_000_000)

	transaction := buildLegacyTx(t, priv, 0, &contract, 0, 1, 100_000, nil)

	d := &runtime.Driver{Storage: chain, Ledger: chain}

	result, err := d.BeginFromInstruction(mustEncode(t, transaction), thor.Keccak256([]byte("tx2")), 50)
	require.NoError(t, err)
	require.False(t, result.Finalized)
	require.Equal(t, uint64(50), result.Holder.StepsExecuted)

	result, err = d.Continue(result.Holder, 50)
	require.NoError(t, err)
	require.False(t, result.Finalized)
	require.Equal(t, uint64(100), result.Holder.StepsExecuted)

	result, err = d.Continue(result.Holder, 20)
	require.NoError(t, err)
	require.True(t, result.Finalized)
	require.Equal(t, runtime.ExitCodeStop, result.ExitStatus)
	require.Equal(t, uint64(112), result.Holder.StepsExecuted)
}

func TestContinueRejectsRevisionChange(t *testing.T) {
	chain := newFakeChain()
	priv := newKey(t)
	origin := thor.BytesToAddress(crypto.PubkeyToAddress(priv.PublicKey).Bytes())

	contract := thor.BytesToAddress([]byte("contract"))
	code := make([]byte, 112)
	for i := 0; i < 111; i++ {
		code[i] = byte(vm.JUMPDEST)
	}
	code[111] = byte(vm.STOP)
	chain.code[contract] = code

	chain.fund(origin, 1_000_000)

	transaction := buildLegacyTx(t, priv, 0, &contract, 0, 1, 100_000, nil)

	d := &runtime.Driver{Storage: chain, Ledger: chain}

	result, err := d.BeginFromInstruction(mustEncode(t, transaction), thor.Keccak256([]byte("tx3")), 50)
	require.NoError(t, err)
	require.False(t, result.Finalized)

	chain.bumpRevision(contract)

	result, err = d.Continue(result.Holder, 50)
	require.Error(t, err)
	require.True(t, result.Finalized)
	require.Equal(t, runtime.ExitCodeRevert, result.ExitStatus)
	require.Equal(t, code, chain.code[contract], "contract code must be untouched by the aborted iteration")
}

func TestCancelRefundsUnusedGasWithNoEffectsApplied(t *testing.T) {
	chain := newFakeChain()
	priv := newKey(t)
	origin := thor.BytesToAddress(crypto.PubkeyToAddress(priv.PublicKey).Bytes())

	contract := thor.BytesToAddress([]byte("contract"))
	code := make([]byte, 112)
	for i := 0; i < 111; i++ {
		code[i] = byte(vm.JUMPDEST)
	}
	code[111] = byte(vm.STOP)
	chain.code[contract] = code

	chain.fund(origin, 1_000_000)

	transaction := buildLegacyTx(t, priv, 0, &contract, 0, 1, 100_000, nil)

	d := &runtime.Driver{Storage: chain, Ledger: chain}

	result, err := d.BeginFromInstruction(mustEncode(t, transaction), thor.Keccak256([]byte("tx4")), 50)
	require.NoError(t, err)
	require.False(t, result.Finalized)

	before := chain.balanceOf(origin)
	result, err = d.Cancel(result.Holder)
	require.NoError(t, err)
	require.True(t, result.Finalized)
	require.True(t, chain.balanceOf(origin).Gt(before), "cancelling must refund the unused portion of the gas deposit")
}

func mustEncode(t *testing.T, transaction *tx.Transaction) []byte {
	t.Helper()
	raw, err := transaction.Encode()
	require.NoError(t, err)
	return raw
}
