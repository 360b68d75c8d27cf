// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wire_test

import (
	"crypto/ecdsa"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/nodeseeker/evmcore/runtime"
	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/wire"
)

func TestParseInstructionSplitsTagAndPayload(t *testing.T) {
	data := []byte{byte(wire.TagCancel), 0x01, 0x02, 0x03}
	tag, payload, err := wire.ParseInstruction(data)
	require.NoError(t, err)
	require.Equal(t, wire.TagCancel, tag)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, payload)
}

func TestParseInstructionRejectsEmptyData(t *testing.T) {
	_, _, err := wire.ParseInstruction(nil)
	require.Error(t, err)
}

func TestTagIsTransactionCoversOnlyTheExecuteStepCancelFamily(t *testing.T) {
	for _, tg := range []wire.Tag{
		wire.TagTransactionExecuteFromInstruction,
		wire.TagTransactionExecuteFromAccount,
		wire.TagTransactionStepFromInstruction,
		wire.TagTransactionStepFromAccount,
		wire.TagTransactionStepFromAccountNoChainID,
		wire.TagCancel,
	} {
		require.True(t, tg.IsTransaction(), tg.String())
	}
	for _, tg := range []wire.Tag{
		wire.TagCollectTreasure,
		wire.TagHolderCreate,
		wire.TagHolderDelete,
		wire.TagHolderWrite,
		wire.TagCreateMainTreasury,
		wire.TagAccountCreateBalance,
		wire.TagDeposit,
	} {
		require.False(t, tg.IsTransaction(), tg.String())
	}
	require.True(t, wire.Tag(0xA3).IsConfigQuery())
	require.False(t, wire.TagCancel.IsConfigQuery())
}

func TestDecodeTransactionStepFromInstructionMatchesFieldOrder(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], 7)
	binary.LittleEndian.PutUint32(payload[4:8], 42)
	payload = append(payload, 0xDE, 0xAD, 0xBE, 0xEF)

	treasuryIndex, stepCount, txBytes, err := wire.DecodeTransactionStepFromInstruction(payload)
	require.NoError(t, err)
	require.Equal(t, uint32(7), treasuryIndex)
	require.Equal(t, uint32(42), stepCount)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, txBytes)
}

func TestDecodeCancelRejectsShortPayload(t *testing.T) {
	_, err := wire.DecodeCancel([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestDecodeAddressChainIDMatchesAccountCreateBalanceShape(t *testing.T) {
	addr := thor.BytesToAddress([]byte("balance-account"))
	payload := make([]byte, 28)
	copy(payload[:20], addr.Bytes())
	binary.LittleEndian.PutUint64(payload[20:28], 99)

	got, chainID, err := wire.DecodeAddressChainID(payload)
	require.NoError(t, err)
	require.Equal(t, addr, got)
	require.Equal(t, uint64(99), chainID)
}

func TestBalanceAccountLayoutRoundTrips(t *testing.T) {
	original := wire.BalanceAccount{
		ChainID: 1,
		Nonce:   5,
		Balance: *uint256.NewInt(1_000_000_000_000),
	}
	encoded := wire.EncodeBalanceAccount(original)
	require.Equal(t, wire.AccountTagBalance, encoded[0])

	decoded, err := wire.DecodeBalanceAccount(encoded)
	require.NoError(t, err)
	require.Equal(t, original.ChainID, decoded.ChainID)
	require.Equal(t, original.Nonce, decoded.Nonce)
	require.True(t, original.Balance.Eq(&decoded.Balance))
}

func TestDecodeBalanceAccountRejectsWrongTag(t *testing.T) {
	encoded := wire.EncodeBalanceAccount(wire.BalanceAccount{})
	encoded[0] = wire.AccountTagContract
	_, err := wire.DecodeBalanceAccount(encoded)
	require.Error(t, err)
}

func TestContractAccountLayoutRoundTrips(t *testing.T) {
	var original wire.ContractAccount
	original.ChainID = 2
	original.Generation = 3
	original.FixedStorage[0] = [32]byte{0x11}
	original.FixedStorage[255] = [32]byte{0xFF}
	original.Code = []byte{0x60, 0x00, 0x60, 0x00}

	encoded := wire.EncodeContractAccount(original)
	decoded, err := wire.DecodeContractAccount(encoded)
	require.NoError(t, err)
	require.Equal(t, original.ChainID, decoded.ChainID)
	require.Equal(t, original.Generation, decoded.Generation)
	require.Equal(t, original.FixedStorage, decoded.FixedStorage)
	require.Equal(t, original.Code, decoded.Code)
}

func TestStorageCellLayoutRoundTrips(t *testing.T) {
	entries := []wire.StorageCellEntry{
		{Subindex: 3, Value: [32]byte{0x01}},
		{Subindex: 9, Value: [32]byte{0x02}},
	}
	encoded := wire.EncodeStorageCell(entries)
	require.Equal(t, wire.AccountTagStorageCell, encoded[0])

	decoded, err := wire.DecodeStorageCell(encoded)
	require.NoError(t, err)
	require.Equal(t, entries, decoded)
}

func TestDecodeStorageCellRejectsMisalignedBody(t *testing.T) {
	_, err := wire.DecodeStorageCell([]byte{wire.AccountTagStorageCell, 0x01, 0x02})
	require.Error(t, err)
}

// --- minimal fixture to exercise Router against a real runtime.Driver,
// grounded on runtime_test.go's own fakeChain/buildLegacyTx. ---

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

func buildLegacyTx(t *testing.T, priv *ecdsa.PrivateKey, nonce uint64, to *thor.Address, value, gasPrice, gasLimit uint64, data []byte) []byte {
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
	return raw
}

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

func (c *fakeChain) Nonce(addr thor.Address, chainID uint64) uint64         { return c.nonces[addr] }
func (c *fakeChain) Balance(addr thor.Address, chainID uint64) *uint256.Int { return c.balanceOf(addr) }
func (c *fakeChain) Code(addr thor.Address) []byte                         { return c.code[addr] }
func (c *fakeChain) CodeSize(addr thor.Address) int                        { return len(c.code[addr]) }
func (c *fakeChain) Storage(addr thor.Address, index *uint256.Int) thor.Bytes32 {
	return thor.Bytes32{}
}
func (c *fakeChain) BlockHash(number uint64) thor.Bytes32 { return thor.Bytes32{} }
func (c *fakeChain) BlockNumber() uint64                  { return 1 }
func (c *fakeChain) BlockTimestamp() uint64               { return 1 }
func (c *fakeChain) ContractChainID(addr thor.Address) (uint64, bool) {
	return 1, len(c.code[addr]) > 0
}
func (c *fakeChain) ContractPubkey(addr thor.Address) (thor.Address, byte) { return addr, 0 }
func (c *fakeChain) Revision(addr thor.Address) uint64                    { return c.revision[addr] }
func (c *fakeChain) ProgramID() thor.Address                              { return thor.Address{} }
func (c *fakeChain) Operator() thor.Address                               { return c.operator }
func (c *fakeChain) ChainIDToToken(chainID uint64) thor.Address           { return thor.Address{} }
func (c *fakeChain) DefaultChainID() uint64                               { return 1 }
func (c *fakeChain) IsValidChainID(chainID uint64) bool                   { return chainID == 1 }
func (c *fakeChain) Treasury(index uint32) thor.Address                  { return c.treasury }

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

func TestRouterHandleTransactionExecuteFromInstructionWiresDriver(t *testing.T) {
	chain := newFakeChain()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	origin := thor.BytesToAddress(crypto.PubkeyToAddress(priv.PublicKey).Bytes())
	recipient := thor.BytesToAddress([]byte("recipient"))
	chain.fund(origin, 1_000_000)

	txBytes := buildLegacyTx(t, priv, 0, &recipient, 1000, 1, 21000, nil)

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, 3)
	payload = append(payload, txBytes...)

	router := &wire.Router{Driver: &runtime.Driver{Storage: chain, Ledger: chain}}
	result, err := router.Handle(wire.TagTransactionExecuteFromInstruction, payload, wire.TransactionExtras{})
	require.NoError(t, err)
	require.True(t, result.Finalized)
	require.Equal(t, runtime.ExitCodeStop, result.ExitStatus)
	require.Equal(t, uint32(3), router.Driver.TreasuryIndex)
	require.Equal(t, uint256.NewInt(1000), chain.balanceOf(recipient))
}

func TestRouterHandleCancelRejectsMismatchedTxHash(t *testing.T) {
	router := &wire.Router{Driver: &runtime.Driver{}}
	holder := &runtime.Holder{TxHash: thor.Keccak256([]byte("real"))}
	payload := thor.Keccak256([]byte("other")).Bytes()

	_, err := router.Handle(wire.TagCancel, payload, wire.TransactionExtras{Holder: holder})
	require.Error(t, err)
}

func TestRouterHandleRejectsNonTransactionTag(t *testing.T) {
	router := &wire.Router{Driver: &runtime.Driver{}}
	_, err := router.Handle(wire.TagHolderCreate, nil, wire.TransactionExtras{})
	require.ErrorIs(t, err, wire.ErrNotTransactionTag)
}
