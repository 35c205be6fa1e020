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

import "github.com/aether-dbg/aether/probe"

// Command is any request the worker loop can drain from its queue. It is a
// closed union: every concrete command type implements it via an
// unexported marker method.
type Command interface {
	isCommand()
}

type commandBase struct{}

func (commandBase) isCommand() {}

type Halt struct{ commandBase }
type Resume struct{ commandBase }
type Step struct{ commandBase }
type StepOver struct{ commandBase }
type StepInto struct{ commandBase }
type StepOut struct{ commandBase }
type Reset struct{ commandBase }

type ReadRegister struct {
	commandBase
	Register uint32
}

type WriteRegister struct {
	commandBase
	Register uint32
	Value    uint64
}

type ReadMemory struct {
	commandBase
	Address uint64
	Length  int
}

type WriteMemory struct {
	commandBase
	Address uint64
	Data    []byte
}

type Disassemble struct {
	commandBase
	Address uint64
	Count   int
}

type SetBreakpoint struct {
	commandBase
	Address uint64
}

type ClearBreakpoint struct {
	commandBase
	Address uint64
}

type ListBreakpoints struct{ commandBase }

type LoadSymbols struct {
	commandBase
	Raw []byte
}

type LoadSvd struct {
	commandBase
	Raw []byte
}

type LookupSource struct {
	commandBase
	PC uint64
}

type ToggleBreakpointAtSource struct {
	commandBase
	File string
	Line int
}

type GetPeripherals struct{ commandBase }

type GetRegisters struct {
	commandBase
	Peripheral string
}

type ReadPeripheralValues struct {
	commandBase
	Peripheral string
}

type WritePeripheralField struct {
	commandBase
	Peripheral string
	Register   string
	Field      string
	Value      uint64
}

type RttAttach struct {
	commandBase
	ScanStart  uint64
	ScanLength uint64
}

type RttWrite struct {
	commandBase
	Channel int
	Bytes   []byte
}

type AddPlot struct {
	commandBase
	Name    string
	VarType string
}

type RemovePlot struct {
	commandBase
	Name string
}

type PollStatus struct{ commandBase }

type GetTasks struct{ commandBase }

type StartFlashing struct {
	commandBase
	Raw []byte
}

type EnableSemihosting struct{ commandBase }

type EnableItm struct {
	commandBase
	Baud     uint32
	FifoAddr uint64
}

type EnableTrace struct {
	commandBase
	Enabled      bool
	SamplePeriod uint32
}

type Attach struct {
	commandBase
	ProbeIndex int
	Chip       string
	Protocol   *probe.Protocol
	UnderReset bool
}

type ListProbes struct{ commandBase }

type Exit struct{ commandBase }
