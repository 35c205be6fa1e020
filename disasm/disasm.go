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

package disasm

import (
	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// Manager dispatches disassembly requests to the architecture-appropriate
// decoder, reading the target's code bytes through core.
type Manager struct {
	core target.Core
}

func New(core target.Core) *Manager {
	return &Manager{core: core}
}

// Disassemble reads a conservative upper bound on count instructions'
// worth of code starting at pc and decodes it.
func (m *Manager) Disassemble(arch target.Architecture, pc uint64, count int) ([]Instruction, error) {
	var readLen int
	switch arch {
	case target.Riscv32:
		readLen = 4 * count
	default:
		readLen = 2*count + 2
	}

	code, err := m.core.ReadMemory(pc, readLen)
	if err != nil {
		return nil, errkind.Wrap(errkind.ProbeReadFailed, err)
	}

	return Decode(arch, pc, code, count), nil
}

// Decode dispatches to the Thumb or RV32 decoder per the architecture, with
// ARM Thumb as the default fallback for any unrecognised architecture.
func Decode(arch target.Architecture, pc uint64, code []byte, count int) []Instruction {
	switch arch {
	case target.Riscv32:
		return DisassembleRV32(pc, code, count)
	case target.Armv6m, target.Armv7m, target.Armv7em, target.Armv8m:
		return DisassembleThumb(pc, code, count)
	default:
		return DisassembleThumb(pc, code, count)
	}
}
