// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/thor"
)

// ActionKind tags the variant of a recorded Action (component G's append-only
// log, §3 "Overlay/Action").
type ActionKind uint8

const (
	ActionTransfer ActionKind = iota
	ActionBurn
	ActionIncrementNonce
	ActionSetCode
	ActionSetStorage
	ActionSelfDestruct
	ActionEmitLog
	ActionExternalInstruction
)

// Action is one durable-state mutation recorded during execution but not yet
// applied; Apply (apply.go) replays the list in order once a transaction
// finishes (component I).
type Action struct {
	Kind ActionKind

	Address thor.Address
	Target  thor.Address // ActionTransfer only
	ChainID uint64
	Value   uint256.Int

	Index uint256.Int    // ActionSetStorage
	Slot  thor.Bytes32   // ActionSetStorage
	Code  []byte         // ActionSetCode
	Topics []thor.Bytes32 // ActionEmitLog
	Data   []byte         // ActionEmitLog / ActionExternalInstruction

	Seeds       [][]byte // ActionExternalInstruction
	FeeLamports uint64   // ActionExternalInstruction
}
