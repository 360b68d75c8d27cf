// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeseeker/evmcore/thor"
)

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func legacyTx(chainID *uint256.Int) *Transaction {
	to := thor.BytesToAddress([]byte{0x01})
	return &Transaction{inner: txData{
		txType:   TypeLegacy,
		chainID:  chainID,
		nonce:    7,
		gasPrice: uint256.NewInt(1_000_000_000),
		gasLimit: *uint256.NewInt(21_000),
		target:   &to,
		value:    *uint256.NewInt(42),
	}}
}

func dynamicFeeTx(chainID *uint256.Int) *Transaction {
	to := thor.BytesToAddress([]byte{0x02})
	return &Transaction{inner: txData{
		txType:    TypeDynamicFee,
		chainID:   chainID,
		nonce:     3,
		gasTipCap: uint256.NewInt(1),
		gasFeeCap: uint256.NewInt(1_000_000_000),
		gasLimit:  *uint256.NewInt(90_000),
		target:    &to,
		value:     *uint256.NewInt(0),
	}}
}

func TestSenderRecoveryRoundTripLegacyEIP155(t *testing.T) {
	key := mustKey(t)
	want := thor.BytesToAddress(crypto.PubkeyToAddress(key.PublicKey).Bytes())

	signed, err := Sign(legacyTx(uint256.NewInt(245_022_934)), key)
	require.NoError(t, err)

	got, err := signed.Origin()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSenderRecoveryRoundTripLegacyPreEIP155(t *testing.T) {
	key := mustKey(t)
	want := thor.BytesToAddress(crypto.PubkeyToAddress(key.PublicKey).Bytes())

	signed, err := Sign(legacyTx(nil), key)
	require.NoError(t, err)

	got, err := signed.Origin()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSenderRecoveryRoundTripDynamicFee(t *testing.T) {
	key := mustKey(t)
	want := thor.BytesToAddress(crypto.PubkeyToAddress(key.PublicKey).Bytes())

	signed, err := Sign(dynamicFeeTx(uint256.NewInt(245_022_934)), key)
	require.NoError(t, err)

	got, err := signed.Origin()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, signed.inner.gasFeeCap, signed.GasPrice())
}

func TestScheduledOriginIsPayer(t *testing.T) {
	payer := thor.BytesToAddress([]byte("payer"))
	stx := &Transaction{inner: txData{
		txType:   TypeScheduled,
		chainID:  uint256.NewInt(245_022_934),
		gasLimit: *uint256.NewInt(21_000),
		payer:    payer,
	}}

	got, err := stx.Origin()
	require.NoError(t, err)
	assert.Equal(t, payer, got)
}

func TestSignRejectsScheduled(t *testing.T) {
	key := mustKey(t)
	stx := &Transaction{inner: txData{txType: TypeScheduled}}
	_, err := Sign(stx, key)
	assert.Error(t, err)
}

type fakeAccounts struct {
	nonce   uint64
	balance *uint256.Int
	code    int
}

func (a fakeAccounts) Nonce(thor.Address, uint64) uint64            { return a.nonce }
func (a fakeAccounts) Balance(thor.Address, uint64) *uint256.Int     { return a.balance }
func (a fakeAccounts) CodeSize(thor.Address) int                    { return a.code }

func TestValidateAcceptsWellFormedTransaction(t *testing.T) {
	key := mustKey(t)
	signed, err := Sign(legacyTx(uint256.NewInt(245_022_934)), key)
	require.NoError(t, err)
	sender, err := signed.Origin()
	require.NoError(t, err)

	accounts := fakeAccounts{nonce: 7, balance: uint256.NewInt(1_000_000_000_000)}
	assert.NoError(t, Validate(signed, sender, 245_022_934, accounts))
}

func TestValidateRejectsNonceMismatch(t *testing.T) {
	key := mustKey(t)
	signed, err := Sign(legacyTx(uint256.NewInt(245_022_934)), key)
	require.NoError(t, err)
	sender, err := signed.Origin()
	require.NoError(t, err)

	accounts := fakeAccounts{nonce: 8, balance: uint256.NewInt(1_000_000_000_000)}
	err = Validate(signed, sender, 245_022_934, accounts)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestValidateRejectsChainIDMismatch(t *testing.T) {
	key := mustKey(t)
	signed, err := Sign(legacyTx(uint256.NewInt(245_022_934)), key)
	require.NoError(t, err)
	sender, err := signed.Origin()
	require.NoError(t, err)

	accounts := fakeAccounts{nonce: 7, balance: uint256.NewInt(1_000_000_000_000)}
	err = Validate(signed, sender, 1, accounts)
	assert.Error(t, err)
}

func TestValidateRejectsInsufficientBalance(t *testing.T) {
	key := mustKey(t)
	signed, err := Sign(legacyTx(uint256.NewInt(245_022_934)), key)
	require.NoError(t, err)
	sender, err := signed.Origin()
	require.NoError(t, err)

	accounts := fakeAccounts{nonce: 7, balance: uint256.NewInt(1)}
	assert.Error(t, Validate(signed, sender, 245_022_934, accounts))
}

func TestValidateRejectsSenderWithCode(t *testing.T) {
	key := mustKey(t)
	signed, err := Sign(legacyTx(uint256.NewInt(245_022_934)), key)
	require.NoError(t, err)
	sender, err := signed.Origin()
	require.NoError(t, err)

	accounts := fakeAccounts{nonce: 7, balance: uint256.NewInt(1_000_000_000_000), code: 10}
	assert.Error(t, Validate(signed, sender, 245_022_934, accounts))
}

func TestRequiredBalanceIsValuePlusGas(t *testing.T) {
	tx := legacyTx(uint256.NewInt(245_022_934))
	want := new(uint256.Int).Mul(uint256.NewInt(21_000), uint256.NewInt(1_000_000_000))
	want.Add(want, uint256.NewInt(42))
	assert.Equal(t, want, tx.RequiredBalance())
}

func TestIsCreateWhenTargetNil(t *testing.T) {
	tx := &Transaction{inner: txData{txType: TypeLegacy}}
	assert.True(t, tx.IsCreate())

	tx2 := legacyTx(nil)
	assert.False(t, tx2.IsCreate())
}
