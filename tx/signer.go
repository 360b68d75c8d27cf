// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/thor"
)

// SigningHash returns the hash a sender's secp256k1 key signs over
// (spec.md §4.D "Recover sender via secp256k1 using the signed hash"). It is
// the keccak256 of the RLP-encoded field list every variant fixes for
// signing, EIP-2718-prefixed by the type byte for typed envelopes.
func (tx *Transaction) SigningHash() thor.Bytes32 {
	switch tx.inner.txType {
	case TypeLegacy:
		if tx.inner.chainID == nil {
			return thor.Keccak256(rlpMust(legacySigningRLP{
				Nonce:    tx.inner.nonce,
				GasPrice: uintToBig(tx.inner.gasPrice),
				Gas:      uintToBig(&tx.inner.gasLimit),
				To:       addrBytes(tx.inner.target),
				Value:    uintToBig(&tx.inner.value),
				Data:     tx.inner.data,
			}))
		}
		return thor.Keccak256(rlpMust(legacyEIP155SigningRLP{
			Nonce:    tx.inner.nonce,
			GasPrice: uintToBig(tx.inner.gasPrice),
			Gas:      uintToBig(&tx.inner.gasLimit),
			To:       addrBytes(tx.inner.target),
			Value:    uintToBig(&tx.inner.value),
			Data:     tx.inner.data,
			ChainID:  uintToBig(tx.inner.chainID),
			Zero1:    big.NewInt(0),
			Zero2:    big.NewInt(0),
		}))

	case TypeAccessList:
		payload := rlpMust(accessListSigningRLP{
			ChainID:    uintToBig(tx.inner.chainID),
			Nonce:      tx.inner.nonce,
			GasPrice:   uintToBig(tx.inner.gasPrice),
			Gas:        uintToBig(&tx.inner.gasLimit),
			To:         addrBytes(tx.inner.target),
			Value:      uintToBig(&tx.inner.value),
			Data:       tx.inner.data,
			AccessList: encodeAccessTuples(tx.inner.accessList),
		})
		return thor.Keccak256(append([]byte{byte(TypeAccessList)}, payload...))

	case TypeDynamicFee:
		payload := rlpMust(dynamicFeeSigningRLP{
			ChainID:    uintToBig(tx.inner.chainID),
			Nonce:      tx.inner.nonce,
			GasTipCap:  uintToBig(tx.inner.gasTipCap),
			GasFeeCap:  uintToBig(tx.inner.gasFeeCap),
			Gas:        uintToBig(&tx.inner.gasLimit),
			To:         addrBytes(tx.inner.target),
			Value:      uintToBig(&tx.inner.value),
			Data:       tx.inner.data,
			AccessList: encodeAccessTuples(tx.inner.accessList),
		})
		return thor.Keccak256(append([]byte{byte(TypeDynamicFee)}, payload...))

	case TypeScheduled:
		// Scheduled transactions are authorized by the Solana instruction
		// signer that created them, not by a secp256k1 signature over this
		// hash; it still identifies the transaction uniquely for hashing
		// purposes (spec.md §4.D).
		payload := rlpMust(scheduledTxRLP{
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
		return thor.Keccak256(append([]byte{byte(TypeScheduled)}, payload...))
	}

	return thor.Bytes32{}
}

type legacySigningRLP struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      *big.Int
	To       []byte
	Value    *big.Int
	Data     []byte
}

type legacyEIP155SigningRLP struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      *big.Int
	To       []byte
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int
	Zero1    *big.Int
	Zero2    *big.Int
}

type accessListSigningRLP struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        *big.Int
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleRLP
}

type dynamicFeeSigningRLP struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        *big.Int
	To         []byte
	Value      *big.Int
	Data       []byte
	AccessList []accessTupleRLP
}

// Sign signs tx's signing hash with priv and returns a new Transaction
// carrying the resulting (v, r, s) and a cached, already-recovered sender.
// Scheduled transactions cannot be signed this way; use the Payer field
// instead (spec.md §4.D).
func Sign(tx *Transaction, priv *ecdsa.PrivateKey) (*Transaction, error) {
	if tx.inner.txType == TypeScheduled {
		return nil, errors.New("tx: Scheduled transactions are payer-authorized, not signed")
	}

	hash := tx.SigningHash()
	sig, err := crypto.Sign(hash.Bytes(), priv)
	if err != nil {
		return nil, errors.Wrap(err, "sign transaction")
	}

	r := new(uint256.Int).SetBytes(sig[0:32])
	s := new(uint256.Int).SetBytes(sig[32:64])
	recovery := uint64(sig[64])

	out := *tx
	out.inner.r = *r
	out.inner.s = *s

	switch tx.inner.txType {
	case TypeLegacy:
		if tx.inner.chainID == nil {
			out.inner.v = *uint256.NewInt(27 + recovery)
		} else {
			v := new(uint256.Int).Mul(tx.inner.chainID, uint256.NewInt(2))
			v.Add(v, uint256.NewInt(35+recovery))
			out.inner.v = *v
		}
	default:
		out.inner.v = *uint256.NewInt(recovery)
	}

	addr := crypto.PubkeyToAddress(priv.PublicKey)
	sender := thor.BytesToAddress(addr.Bytes())
	out.sender = &sender

	return &out, nil
}

// Origin recovers and caches tx's sender via secp256k1 public-key recovery
// over SigningHash (spec.md §4.D, testable property "Sender recovery
// round-trip"). For Scheduled transactions, the sender is defined to be the
// Payer: there is no ECDSA signature to recover from.
func (tx *Transaction) Origin() (thor.Address, error) {
	if tx.sender != nil {
		return *tx.sender, nil
	}

	if tx.inner.txType == TypeScheduled {
		tx.sender = &tx.inner.payer
		return tx.inner.payer, nil
	}

	sig := make([]byte, 65)
	copy(sig[0:32], padTo32(tx.inner.r.Bytes()))
	copy(sig[32:64], padTo32(tx.inner.s.Bytes()))

	recovery, err := recoveryID(tx)
	if err != nil {
		return thor.Address{}, err
	}
	sig[64] = recovery

	hash := tx.SigningHash()
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return thor.Address{}, errors.Wrap(err, "recover sender")
	}

	addr := thor.BytesToAddress(crypto.PubkeyToAddress(*pub).Bytes())
	tx.sender = &addr
	return addr, nil
}

func recoveryID(tx *Transaction) (byte, error) {
	if tx.inner.txType != TypeLegacy {
		if !tx.inner.v.IsUint64() || tx.inner.v.Uint64() > 1 {
			return 0, errors.New("tx: invalid recovery id")
		}
		return byte(tx.inner.v.Uint64()), nil
	}

	if tx.inner.chainID == nil {
		v := tx.inner.v.Uint64()
		if v != 27 && v != 28 {
			return 0, errors.New("tx: invalid legacy recovery id")
		}
		return byte(v - 27), nil
	}

	vv := new(big.Int).SetBytes(tx.inner.v.Bytes())
	vv.Sub(vv, big.NewInt(35))
	chainID2 := new(big.Int).Mul(uintToBig(tx.inner.chainID), big.NewInt(2))
	vv.Sub(vv, chainID2)
	if !vv.IsUint64() || vv.Uint64() > 1 {
		return 0, errors.New("tx: invalid EIP-155 recovery id")
	}
	return byte(vv.Uint64()), nil
}

func padTo32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func rlpMust(v interface{}) []byte {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		// Every signing-RLP struct here is a fixed, well-formed shape; a
		// failure means a caller built a Transaction with a nil pointer
		// field that should never be nil at signing time.
		panic(err)
	}
	return b
}

func uintToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v.ToBig()
}

func addrBytes(a *thor.Address) []byte {
	if a == nil {
		return nil
	}
	return a.Bytes()
}

func encodeAccessTuples(al AccessList) []accessTupleRLP {
	if al == nil {
		return nil
	}
	out := make([]accessTupleRLP, len(al))
	for i, t := range al {
		keys := make([][]byte, len(t.StorageKeys))
		for j, k := range t.StorageKeys {
			keys[j] = k.Bytes()
		}
		out[i] = accessTupleRLP{Address: t.Address.Bytes(), StorageKeys: keys}
	}
	return out
}
