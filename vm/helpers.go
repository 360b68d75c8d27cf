// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm

import (
	"github.com/ethereum/go-ethereum/params"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/thor"
)

// Keccak256 hashes data for opcodes that need it (SHA3, EXTCODEHASH).
func Keccak256(data []byte) thor.Bytes32 {
	return thor.Keccak256(data)
}

// bufferFromBytes wraps data as an owned buffer — used to attach a child
// frame's return data to its parent.
func bufferFromBytes(data []byte) buffer.Buffer {
	return buffer.FromSlice(data)
}

const (
	params_WarmStorageReadCostEIP2929   = params.WarmStorageReadCostEIP2929
	params_ColdAccountAccessCostEIP2929 = params.ColdAccountAccessCostEIP2929
	params_ColdSloadCostEIP2929         = params.ColdSloadCostEIP2929
)
