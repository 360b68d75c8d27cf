// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"crypto/sha256"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/bn256"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // EVM precompile 0x03 requires this exact hash.

	"github.com/nodeseeker/evmcore/thor"
)

// RunBuiltinPrecompile dispatches to one of the fixed EVM precompiles
// 0x01-0x09 (component K, "fixed set"). The caller (dispatchPrecompile) has
// already established that addr's low byte is in [1, 9] and the other 19
// bytes are zero.
func RunBuiltinPrecompile(addr thor.Address, input []byte) ([]byte, error) {
	switch addr[19] {
	case 1:
		return precompileEcrecover(input)
	case 2:
		return precompileSha256(input)
	case 3:
		return precompileRipemd160(input)
	case 4:
		return precompileIdentity(input)
	case 5:
		return precompileModexp(input)
	case 6:
		return precompileBn256Add(input)
	case 7:
		return precompileBn256ScalarMul(input)
	case 8:
		return precompileBn256Pairing(input)
	case 9:
		return precompileBlake2F(input)
	}
	return nil, ErrInvalidOpcode
}

func padInput(input []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, input)
	return out
}

func precompileEcrecover(input []byte) ([]byte, error) {
	in := padInput(input, 128)
	hash := in[:32]
	v := in[63]
	r := in[64:96]
	s := in[96:128]

	if v != 27 && v != 28 {
		return nil, nil
	}
	sig := make([]byte, 65)
	copy(sig[0:32], r)
	copy(sig[32:64], s)
	sig[64] = v - 27

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, nil
	}
	out := make([]byte, 32)
	addr := crypto.PubkeyToAddress(*pub)
	copy(out[12:], addr[:])
	return out, nil
}

func precompileSha256(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

func precompileRipemd160(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	sum := h.Sum(nil)
	out := make([]byte, 32)
	copy(out[12:], sum)
	return out, nil
}

func precompileIdentity(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

func precompileModexp(input []byte) ([]byte, error) {
	in := padInput(input, 96)
	baseLen := new(big.Int).SetBytes(in[0:32]).Uint64()
	expLen := new(big.Int).SetBytes(in[32:64]).Uint64()
	modLen := new(big.Int).SetBytes(in[64:96]).Uint64()

	body := input
	if len(body) > 96 {
		body = body[96:]
	} else {
		body = nil
	}
	body = padInput(body, int(baseLen+expLen+modLen))

	base := new(big.Int).SetBytes(body[:baseLen])
	exp := new(big.Int).SetBytes(body[baseLen : baseLen+expLen])
	mod := new(big.Int).SetBytes(body[baseLen+expLen : baseLen+expLen+modLen])

	var result *big.Int
	if mod.Sign() == 0 {
		result = new(big.Int)
	} else {
		result = new(big.Int).Exp(base, exp, mod)
	}

	out := make([]byte, modLen)
	result.FillBytes(out)
	return out, nil
}

func precompileBn256Add(input []byte) ([]byte, error) {
	in := padInput(input, 128)
	x, err := newG1Point(in[0:64])
	if err != nil {
		return nil, err
	}
	y, err := newG1Point(in[64:128])
	if err != nil {
		return nil, err
	}
	res := new(bn256.G1).Add(x, y)
	return res.Marshal(), nil
}

func precompileBn256ScalarMul(input []byte) ([]byte, error) {
	in := padInput(input, 96)
	p, err := newG1Point(in[0:64])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(in[64:96])
	res := new(bn256.G1).ScalarMult(p, scalar)
	return res.Marshal(), nil
}

func newG1Point(in []byte) (*bn256.G1, error) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(in); err != nil {
		return nil, err
	}
	return p, nil
}

const bn256PairPointSize = 192

func precompileBn256Pairing(input []byte) ([]byte, error) {
	if len(input)%bn256PairPointSize != 0 {
		return nil, ErrInvalidOpcode
	}
	out := make([]byte, 32)
	if len(input) == 0 {
		out[31] = 1
		return out, nil
	}

	var g1s []*bn256.G1
	var g2s []*bn256.G2
	for i := 0; i < len(input); i += bn256PairPointSize {
		g1, err := newG1Point(input[i : i+64])
		if err != nil {
			return nil, err
		}
		g2 := new(bn256.G2)
		if _, err := g2.Unmarshal(input[i+64 : i+192]); err != nil {
			return nil, err
		}
		g1s = append(g1s, g1)
		g2s = append(g2s, g2)
	}

	ok := bn256.PairingCheck(g1s, g2s)
	if ok {
		out[31] = 1
	}
	return out, nil
}

func precompileBlake2F(input []byte) ([]byte, error) {
	if len(input) != 213 {
		return nil, ErrInvalidOpcode
	}
	rounds := uint32(input[0])<<24 | uint32(input[1])<<16 | uint32(input[2])<<8 | uint32(input[3])
	final := input[212] == 1
	if input[212] != 0 && input[212] != 1 {
		return nil, ErrInvalidOpcode
	}

	var h [8]uint64
	var m [16]uint64
	var t [2]uint64
	for i := 0; i < 8; i++ {
		h[i] = leUint64(input[4+i*8:])
	}
	for i := 0; i < 16; i++ {
		m[i] = leUint64(input[4+64+i*8:])
	}
	t[0] = leUint64(input[4+128:])
	t[1] = leUint64(input[4+136:])

	blake2b.F(&h, m, t, final, rounds)

	out := make([]byte, 64)
	for i := 0; i < 8; i++ {
		putLeUint64(out[i*8:], h[i])
	}
	return out, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func putLeUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
