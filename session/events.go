// This file is part of Aether.
//
// Aether is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Aether is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Aether.  If not, see <https://www.gnu.org/licenses/>.

package session

import (
	"time"

	"github.com/aether-dbg/aether/disasm"
	"github.com/aether-dbg/aether/flash"
	"github.com/aether-dbg/aether/probe"
	"github.com/aether-dbg/aether/rtos"
	"github.com/aether-dbg/aether/stack"
	"github.com/aether-dbg/aether/svd"
	"github.com/aether-dbg/aether/target"
)

// Event is any broadcastable observation the worker loop produces. It is a
// closed union, matching the event taxonomy: every concrete event type
// below implements it via an unexported marker method.
type Event interface {
	isEvent()
}

type eventBase struct{}

func (eventBase) isEvent() {}

type Halted struct {
	eventBase
	PC     uint64
	Reason target.HaltReason
}

type Resumed struct{ eventBase }

type RegisterValue struct {
	eventBase
	Register uint32
	Value    uint64
}

type MemoryContent struct {
	eventBase
	Address uint64
	Data    []byte
}

type Disassembly struct {
	eventBase
	Instructions []disasm.Instruction
}

type Breakpoints struct {
	eventBase
	Addresses []uint64
}

// BreakpointLocation is one breakpoint address resolved back to source, for
// clients that display breakpoints by file/line rather than raw address.
type BreakpointLocation struct {
	Address uint64
	File    string
	Line    int
}

type BreakpointLocations struct {
	eventBase
	Locations []BreakpointLocation
}

type SvdLoaded struct{ eventBase }

type Peripherals struct {
	eventBase
	Names []string
}

type Registers struct {
	eventBase
	Registers []svd.RegisterInfo
}

type PeripheralValues struct {
	eventBase
	Peripheral string
	Values     []svd.RegisterValue
}

type SymbolsLoaded struct{ eventBase }

type SourceLocation struct {
	eventBase
	File string
	Line int
	PC   uint64
	Ok   bool
}

type RttAttached struct{ eventBase }

type RttData struct {
	eventBase
	Channel int
	Bytes   []byte
}

type Tasks struct {
	eventBase
	Tasks []rtos.TaskInfo
}

type Stack struct {
	eventBase
	Frames []stack.Frame
}

type FlashStatus struct {
	eventBase
	Status flash.Status
}

type FlashProgress struct {
	eventBase
	Progress float64
}

type FlashDone struct{ eventBase }

type SemihostingOutput struct {
	eventBase
	Text string
}

type ItmPacket struct {
	eventBase
	Bytes []byte
}

type TraceData struct {
	eventBase
	Tick  uint64
	Bytes []byte
}

type PlotData struct {
	eventBase
	Name      string
	Timestamp time.Time
	Value     float64
}

type Probes struct {
	eventBase
	Probes []probe.ProbeInfo
}

type Attached struct {
	eventBase
	Info target.Info
}

type StatusEvent struct {
	eventBase
	Halted bool
	PC     uint64
	Core   target.Status
}

type Error struct {
	eventBase
	Message string
}
