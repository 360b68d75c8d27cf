// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/buffer"
	"github.com/nodeseeker/evmcore/state"
	"github.com/nodeseeker/evmcore/thor"
	"github.com/nodeseeker/evmcore/vm"
)

// FrameSnapshot is the serializable projection of a vm.Frame (§4.H
// "Serialization": "the Machine's state is the linked chain of call frames
// plus whatever buffers each frame holds"). Frames are stored leaf (the
// currently-executing frame) first, root last, mirroring the Parent walk
// captureMachine performs.
type FrameSnapshot struct {
	Context vm.Context
	Reason  vm.Reason

	Code       buffer.Snapshot
	CallData   buffer.Snapshot
	ReturnData buffer.Snapshot

	ReturnDst   uint64
	ReturnLimit uint64

	Stack  []uint256.Int
	Memory []byte
	PC     uint64

	GasLimit uint64
	GasUsed  uint64
	Refund   int64
}

// MachineSnapshot is the serializable projection of a vm.Machine.
type MachineSnapshot struct {
	Origin   thor.Address
	GasPrice uint256.Int
	Steps    uint64

	AccessedAddrs []thor.Address
	AccessedSlots []vm.AccessedSlot

	// Frames holds the current frame and every ancestor, leaf first.
	Frames []FrameSnapshot
}

// captureMachine walks m's frame chain and every buffer.Snapshot it holds
// into a serializable MachineSnapshot.
func captureMachine(m *vm.Machine) MachineSnapshot {
	var frames []FrameSnapshot
	for f := m.CurrentFrame(); f != nil; f = f.Parent {
		frames = append(frames, FrameSnapshot{
			Context:     f.Context,
			Reason:      f.Reason,
			Code:        f.Code.Snapshot(),
			CallData:    f.CallData.Snapshot(),
			ReturnData:  f.ReturnData.Snapshot(),
			ReturnDst:   f.ReturnDst,
			ReturnLimit: f.ReturnLimit,
			Stack:       append([]uint256.Int(nil), f.Stack.Data()...),
			Memory:      append([]byte(nil), f.Memory.Data()...),
			PC:          f.PC,
			GasLimit:    f.GasLimit,
			GasUsed:     f.GasUsed,
			Refund:      f.Refund,
		})
	}

	return MachineSnapshot{
		Origin:        m.Origin,
		GasPrice:      m.GasPrice,
		Steps:         m.StepsExecuted(),
		AccessedAddrs: m.AccessedAddrs(),
		AccessedSlots: m.AccessedSlots(),
		Frames:        frames,
	}
}

// restoreMachine rebuilds a Machine from a MachineSnapshot, rebinding any
// account-backed buffer to live account data via es's MapSolanaAccount hook
// (§4.H "Serialization": "account-backed buffers ... must be rebound to a
// live account after deserialization").
func restoreMachine(snap MachineSnapshot, es *state.ExecutorState) *vm.Machine {
	var current *vm.Frame
	// snap.Frames is leaf-first; build root-first so each frame's Parent is
	// already constructed by the time it is linked.
	for i := len(snap.Frames) - 1; i >= 0; i-- {
		fs := snap.Frames[i]
		frame := &vm.Frame{
			Context:     fs.Context,
			Reason:      fs.Reason,
			Code:        rebindBuffer(es, fs.Code),
			CallData:    rebindBuffer(es, fs.CallData),
			ReturnData:  rebindBuffer(es, fs.ReturnData),
			ReturnDst:   fs.ReturnDst,
			ReturnLimit: fs.ReturnLimit,
			Stack:       vm.RestoreStack(fs.Stack),
			Memory:      vm.NewMemory(),
			PC:          fs.PC,
			GasLimit:    fs.GasLimit,
			GasUsed:     fs.GasUsed,
			Refund:      fs.Refund,
			Parent:      current,
		}
		if len(fs.Memory) > 0 {
			frame.Memory.Resize(vm.MemSize(uint64(len(fs.Memory))))
			frame.Memory.Set(0, uint64(len(fs.Memory)), fs.Memory)
		}
		current = frame
	}

	gasPrice := snap.GasPrice
	return vm.Restore(snap.Origin, &gasPrice, current, snap.Steps, snap.AccessedAddrs, snap.AccessedSlots)
}

func rebindBuffer(es *state.ExecutorState, snap buffer.Snapshot) buffer.Buffer {
	b := buffer.Restore(snap)
	key, _, needsRebind := b.UninitKey()
	if !needsRebind {
		return b
	}
	return es.MapSolanaAccount(key, func(data []byte) buffer.Buffer {
		return b.Rebind(data)
	})
}
