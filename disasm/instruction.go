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

// Package disasm decodes raw target memory into instruction tuples. No
// third-party Go disassembler covers ARM Thumb or RV32 (the only ecosystem
// disassembler seen anywhere in the retrieval pack is x86-only), so both
// decoders here are hand-rolled opcode tables, in the style of
// IntuitionAmiga's per-CPU debug_disasm_*.go files.
package disasm

import "fmt"

// Instruction is one decoded instruction tuple, matching the session's
// Disassembly event payload and the RPC contract's formatted string
// ("0x{pc:08X}: {mnemonic} {op_str}").
type Instruction struct {
	Address uint64
	Mnemonic string
	OpStr    string
	Bytes    []byte
}

// String renders the instruction the way the RPC contract formats it.
func (i Instruction) String() string {
	if i.OpStr == "" {
		return fmt.Sprintf("0x%08X: %s", i.Address, i.Mnemonic)
	}
	return fmt.Sprintf("0x%08X: %s %s", i.Address, i.Mnemonic, i.OpStr)
}
