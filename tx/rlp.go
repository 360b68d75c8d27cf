// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/thor"
)

// accessTupleRLP mirrors AccessTuple's wire layout: [address, storage_keys].
type accessTupleRLP struct {
	Address     []byte
	StorageKeys [][]byte
}

// legacyTxRLP is the field order the Ethereum consensus spec fixes for a
// legacy transaction: [nonce, gasPrice, gasLimit, to, value, data, v, r, s].
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

// accessListTxRLP: [chainId, nonce, gasPrice, gasLimit, to, value, data,
// accessList, v, r, s] (EIP-2930, type 0x01).
type accessListTxRLP struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        *big.Int
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleRLP
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

// dynamicFeeTxRLP: [chainId, nonce, maxPriorityFeePerGas, maxFeePerGas,
// gasLimit, to, value, data, accessList, v, r, s] (EIP-1559, type 0x02).
type dynamicFeeTxRLP struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        *big.Int
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleRLP
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

// scheduledTxRLP carries the engine-specific Scheduled fields. It has no
// Ethereum consensus counterpart; the layout is this engine's own.
type scheduledTxRLP struct {
	ChainID   *big.Int
	Payer     []byte
	Index     uint64
	Nonce     uint64
	GasFeeCap *big.Int
	Gas       *big.Int
	To        []byte
	Value     *big.Int
	Data      []byte
}

// Decode parses a canonical EIP-2718 typed-envelope transaction, or a bare
// RLP list (legacy, no type byte) when raw begins with a list header byte
// (>= 0xc0). Any other first byte must be a known transaction type.
func Decode(raw []byte) (*Transaction, error) {
	if len(raw) == 0 {
		return nil, errNilTransaction
	}

	// A legacy transaction's RLP encoding always begins with a list header
	// byte >= 0xc0; EIP-2718 envelopes begin with a type byte in [0, 0x7f].
	if raw[0] >= 0xc0 {
		return decodeLegacy(raw)
	}

	switch Type(raw[0]) {
	case TypeAccessList:
		return decodeAccessList(raw[1:])
	case TypeDynamicFee:
		return decodeDynamicFee(raw[1:])
	case TypeScheduled:
		return decodeScheduled(raw[1:])
	default:
		return nil, errors.Errorf("tx: unknown transaction type 0x%x", raw[0])
	}
}

func decodeLegacy(raw []byte) (*Transaction, error) {
	var dec legacyTxRLP
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return nil, errors.Wrap(err, "decode legacy transaction")
	}
	gasLimit, err := uint256FromBig(dec.Gas)
	if err != nil {
		return nil, errors.Wrap(err, "gas limit")
	}
	value, err := uint256FromBig(dec.Value)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	v, err := uint256FromBig(dec.V)
	if err != nil {
		return nil, errors.Wrap(err, "v")
	}
	r, err := uint256FromBig(dec.R)
	if err != nil {
		return nil, errors.Wrap(err, "r")
	}
	s, err := uint256FromBig(dec.S)
	if err != nil {
		return nil, errors.Wrap(err, "s")
	}
	gasPrice, err := uint256FromBig(dec.GasPrice)
	if err != nil {
		return nil, errors.Wrap(err, "gas price")
	}

	return &Transaction{inner: txData{
		txType:   TypeLegacy,
		chainID:  deriveLegacyChainID(v),
		nonce:    dec.Nonce,
		gasPrice: gasPrice,
		gasLimit: *gasLimit,
		target:   decodeTarget(dec.To),
		value:    *value,
		data:     dec.Data,
		v:        *v,
		r:        *r,
		s:        *s,
	}}, nil
}

func decodeAccessList(raw []byte) (*Transaction, error) {
	var dec accessListTxRLP
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return nil, errors.Wrap(err, "decode access-list transaction")
	}
	chainID, err := uint256FromBig(dec.ChainID)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	gasLimit, err := uint256FromBig(dec.Gas)
	if err != nil {
		return nil, errors.Wrap(err, "gas limit")
	}
	value, err := uint256FromBig(dec.Value)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	v, err := uint256FromBig(dec.V)
	if err != nil {
		return nil, errors.Wrap(err, "v")
	}
	r, err := uint256FromBig(dec.R)
	if err != nil {
		return nil, errors.Wrap(err, "r")
	}
	s, err := uint256FromBig(dec.S)
	if err != nil {
		return nil, errors.Wrap(err, "s")
	}
	gasPrice, err := uint256FromBig(dec.GasPrice)
	if err != nil {
		return nil, errors.Wrap(err, "gas price")
	}

	return &Transaction{inner: txData{
		txType:     TypeAccessList,
		chainID:    chainID,
		nonce:      dec.Nonce,
		gasPrice:   gasPrice,
		gasLimit:   *gasLimit,
		target:     decodeTarget(dec.To),
		value:      *value,
		data:       dec.Data,
		accessList: copyAccessList(decodeAccessTuples(dec.AccessList)),
		v:          *v,
		r:          *r,
		s:          *s,
	}}, nil
}

func decodeDynamicFee(raw []byte) (*Transaction, error) {
	var dec dynamicFeeTxRLP
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return nil, errors.Wrap(err, "decode dynamic-fee transaction")
	}
	chainID, err := uint256FromBig(dec.ChainID)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	gasLimit, err := uint256FromBig(dec.Gas)
	if err != nil {
		return nil, errors.Wrap(err, "gas limit")
	}
	value, err := uint256FromBig(dec.Value)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	v, err := uint256FromBig(dec.V)
	if err != nil {
		return nil, errors.Wrap(err, "v")
	}
	r, err := uint256FromBig(dec.R)
	if err != nil {
		return nil, errors.Wrap(err, "r")
	}
	s, err := uint256FromBig(dec.S)
	if err != nil {
		return nil, errors.Wrap(err, "s")
	}
	gasTipCap, err := uint256FromBig(dec.GasTipCap)
	if err != nil {
		return nil, errors.Wrap(err, "gas tip cap")
	}
	gasFeeCap, err := uint256FromBig(dec.GasFeeCap)
	if err != nil {
		return nil, errors.Wrap(err, "gas fee cap")
	}

	return &Transaction{inner: txData{
		txType:     TypeDynamicFee,
		chainID:    chainID,
		nonce:      dec.Nonce,
		gasTipCap:  gasTipCap,
		gasFeeCap:  gasFeeCap,
		gasLimit:   *gasLimit,
		target:     decodeTarget(dec.To),
		value:      *value,
		data:       dec.Data,
		accessList: copyAccessList(decodeAccessTuples(dec.AccessList)),
		v:          *v,
		r:          *r,
		s:          *s,
	}}, nil
}

func decodeScheduled(raw []byte) (*Transaction, error) {
	var dec scheduledTxRLP
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return nil, errors.Wrap(err, "decode scheduled transaction")
	}
	chainID, err := uint256FromBig(dec.ChainID)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	gasLimit, err := uint256FromBig(dec.Gas)
	if err != nil {
		return nil, errors.Wrap(err, "gas limit")
	}
	value, err := uint256FromBig(dec.Value)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	gasFeeCap, err := uint256FromBig(dec.GasFeeCap)
	if err != nil {
		return nil, errors.Wrap(err, "gas fee cap")
	}
	if len(dec.Payer) != thor.AddressLength {
		return nil, errors.New("scheduled transaction: bad payer address length")
	}

	return &Transaction{inner: txData{
		txType:   TypeScheduled,
		chainID:  chainID,
		nonce:    dec.Nonce,
		gasFeeCap: gasFeeCap,
		gasLimit: *gasLimit,
		target:   decodeTarget(dec.To),
		value:    *value,
		data:     dec.Data,
		payer:    thor.BytesToAddress(dec.Payer),
		index:    dec.Index,
	}}, nil
}

// Encode serializes tx back to its canonical wire form: a bare RLP list for
// legacy, an EIP-2718 type-prefixed payload otherwise.
func (tx *Transaction) Encode() ([]byte, error) {
	switch tx.inner.txType {
	case TypeLegacy:
		return rlp.EncodeToBytes(legacyTxRLP{
			Nonce:    tx.inner.nonce,
			GasPrice: uintToBig(tx.inner.gasPrice),
			Gas:      uintToBig(&tx.inner.gasLimit),
			To:       addrBytes(tx.inner.target),
			Value:    uintToBig(&tx.inner.value),
			Data:     tx.inner.data,
			V:        uintToBig(&tx.inner.v),
			R:        uintToBig(&tx.inner.r),
			S:        uintToBig(&tx.inner.s),
		})

	case TypeAccessList:
		payload, err := rlp.EncodeToBytes(accessListTxRLP{
			ChainID:    uintToBig(tx.inner.chainID),
			Nonce:      tx.inner.nonce,
			GasPrice:   uintToBig(tx.inner.gasPrice),
			Gas:        uintToBig(&tx.inner.gasLimit),
			To:         addrBytes(tx.inner.target),
			Value:      uintToBig(&tx.inner.value),
			Data:       tx.inner.data,
			AccessList: encodeAccessTuples(tx.inner.accessList),
			V:          uintToBig(&tx.inner.v),
			R:          uintToBig(&tx.inner.r),
			S:          uintToBig(&tx.inner.s),
		})
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(TypeAccessList)}, payload...), nil

	case TypeDynamicFee:
		payload, err := rlp.EncodeToBytes(dynamicFeeTxRLP{
			ChainID:    uintToBig(tx.inner.chainID),
			Nonce:      tx.inner.nonce,
			GasTipCap:  uintToBig(tx.inner.gasTipCap),
			GasFeeCap:  uintToBig(tx.inner.gasFeeCap),
			Gas:        uintToBig(&tx.inner.gasLimit),
			To:         addrBytes(tx.inner.target),
			Value:      uintToBig(&tx.inner.value),
			Data:       tx.inner.data,
			AccessList: encodeAccessTuples(tx.inner.accessList),
			V:          uintToBig(&tx.inner.v),
			R:          uintToBig(&tx.inner.r),
			S:          uintToBig(&tx.inner.s),
		})
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(TypeDynamicFee)}, payload...), nil

	case TypeScheduled:
		payload, err := rlp.EncodeToBytes(scheduledTxRLP{
			ChainID:   uintToBig(tx.inner.chainID),
			Payer:     tx.inner.payer.Bytes(),
			Index:     tx.inner.index,
			Nonce:     tx.inner.nonce,
			GasFeeCap: uintToBig(tx.inner.gasFeeCap),
			Gas:       uintToBig(&tx.inner.gasLimit),
			To:        addrBytes(tx.inner.target),
			Value:     uintToBig(&tx.inner.value),
			Data:      tx.inner.data,
		})
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(TypeScheduled)}, payload...), nil
	}

	return nil, errors.Errorf("tx: cannot encode unknown type 0x%x", byte(tx.inner.txType))
}

func decodeTarget(to []byte) *thor.Address {
	if len(to) == 0 {
		return nil
	}
	addr := thor.BytesToAddress(to)
	return &addr
}

func decodeAccessTuples(in []accessTupleRLP) AccessList {
	if in == nil {
		return nil
	}
	out := make(AccessList, len(in))
	for i, t := range in {
		keys := make([]thor.Bytes32, len(t.StorageKeys))
		for j, k := range t.StorageKeys {
			keys[j] = thor.BytesToBytes32(k)
		}
		out[i] = AccessTuple{Address: thor.BytesToAddress(t.Address), StorageKeys: keys}
	}
	return out
}

func uint256FromBig(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return uint256.NewInt(0), nil
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, errors.New("value overflows 256 bits")
	}
	return v, nil
}
