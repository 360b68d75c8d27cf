// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package extension

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/vm"
)

// neonTokenWithdrawSelector is withdraw(bytes32)'s 4-byte method id.
var neonTokenWithdrawSelector = [4]byte{0x8e, 0x19, 0x89, 0x9e}

// splMintDecimalsOffset is the byte offset of the decimals field within an
// spl-token Mint account's data (COption<Pubkey> mint_authority [36 bytes]
// + supply u64 [8 bytes] = 44, then one decimals byte).
const splMintDecimalsOffset = 44

func neonToken(es *state.ExecutorState, ctx *vm.Context, input []byte, isStatic bool) ([]byte, error) {
	id, rest := selector(input)
	if id != neonTokenWithdrawSelector {
		return nil, errUnknownSelector
	}
	if isStatic {
		return nil, errors.New("extension: withdraw in static context")
	}
	if len(rest) < 32 {
		return nil, errors.New("extension: withdraw input too short")
	}

	destination := thor.BytesToAddress(rest[12:32])
	if err := withdraw(es, ctx.Contract, ctx.ContractChainID, destination, &ctx.Value); err != nil {
		return nil, err
	}
	return boolReturn(true), nil
}

// withdraw burns value from source's balance and queues the matching SPL
// transfer to destination's associated token account, grounded on
// neon_token.rs's withdraw(): value must be evenly divisible by
// 10^(18-mint_decimals), since EVM balances always carry 18 decimals while
// the underlying SPL mint may carry fewer.
func withdraw(es *state.ExecutorState, source thor.Address, chainID uint64, destination thor.Address, value *uint256.Int) error {
	if value.IsZero() {
		return errors.New("extension: withdraw value is zero")
	}

	mint := es.ChainIDToToken(chainID)

	var decimals byte
	es.MapSolanaAccount(mint, func(data []byte) buffer.Buffer {
		if len(data) > splMintDecimalsOffset {
			decimals = data[splMintDecimalsOffset]
		}
		return buffer.Empty()
	})
	if decimals >= 18 {
		return errors.New("extension: mint decimals must be below 18")
	}

	additionalDecimals := uint64(18 - decimals)
	minAmount := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(additionalDecimals))

	splAmount := new(uint256.Int).Div(value, minAmount)
	remainder := new(uint256.Int).Mod(value, minAmount)
	if !remainder.IsZero() {
		return errors.New("extension: withdraw value not divisible by mint decimal step")
	}
	if !splAmount.IsUint64() {
		return errors.New("extension: withdraw spl amount exceeds u64")
	}

	if err := es.Burn(source, chainID, value); err != nil {
		return errors.Wrap(err, "burn source balance")
	}

	seeds := [][]byte{{accountSeedVersion}, []byte("Deposit")}
	transferPayload := encodeSPLTransfer(mint, destination, splAmount.Uint64(), decimals)
	if err := es.QueueExternalInstruction(seeds, transferPayload, 0); err != nil {
		return errors.Wrap(err, "queue spl transfer")
	}
	return nil
}

// encodeSPLTransfer packs the fields a surrounding component needs to build
// the actual spl_token::transfer_checked instruction once this action is
// replayed outside the EVM core; this package only ever produces the opaque
// payload, it never submits a Solana instruction itself (component I's
// InvokeExternal treats every external instruction's body as opaque bytes).
func encodeSPLTransfer(mint, destination thor.Address, amount uint64, decimals byte) []byte {
	out := make([]byte, 0, 20+20+8+1)
	out = append(out, mint.Bytes()...)
	out = append(out, destination.Bytes()...)
	var amt [8]byte
	for i := 0; i < 8; i++ {
		amt[i] = byte(amount >> (8 * i))
	}
	out = append(out, amt[:]...)
	out = append(out, decimals)
	return out
}
