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
	"encoding/binary"
	"fmt"
)

// DisassembleRV32 decodes a stream of 32-bit RV32I instructions starting at
// pc. RV32 has no 16-bit compressed forms in this subset (C extension
// decoding is out of scope), so every instruction advances exactly 4 bytes.
func DisassembleRV32(pc uint64, code []byte, count int) []Instruction {
	var out []Instruction
	off := 0
	for len(out) < count && off+4 <= len(code) {
		word := binary.LittleEndian.Uint32(code[off:])
		mnem, ops := decodeRV32(word)
		out = append(out, Instruction{
			Address:  pc + uint64(off),
			Mnemonic: mnem,
			OpStr:    ops,
			Bytes:    append([]byte{}, code[off:off+4]...),
		})
		off += 4
	}
	return out
}

func decodeRV32(word uint32) (string, string) {
	opcode := word & 0x7F
	rd := (word >> 7) & 0x1F
	rs1 := (word >> 15) & 0x1F
	rs2 := (word >> 20) & 0x1F
	funct3 := (word >> 12) & 0x7
	funct7 := (word >> 25) & 0x7F

	switch opcode {
	case 0x13: // OP-IMM
		imm := signExtend(word>>20, 12)
		if word == 0x00000013 {
			return "nop", ""
		}
		switch funct3 {
		case 0x0:
			return "addi", fmt.Sprintf("x%d, x%d, %d", rd, rs1, imm)
		case 0x2:
			return "slti", fmt.Sprintf("x%d, x%d, %d", rd, rs1, imm)
		case 0x4:
			return "xori", fmt.Sprintf("x%d, x%d, %d", rd, rs1, imm)
		case 0x6:
			return "ori", fmt.Sprintf("x%d, x%d, %d", rd, rs1, imm)
		case 0x7:
			return "andi", fmt.Sprintf("x%d, x%d, %d", rd, rs1, imm)
		case 0x1:
			return "slli", fmt.Sprintf("x%d, x%d, %d", rd, rs1, rs2)
		case 0x5:
			if funct7&0x20 != 0 {
				return "srai", fmt.Sprintf("x%d, x%d, %d", rd, rs1, rs2)
			}
			return "srli", fmt.Sprintf("x%d, x%d, %d", rd, rs1, rs2)
		}
	case 0x33: // OP
		names := map[[2]uint32]string{
			{0x0, 0x00}: "add", {0x0, 0x20}: "sub",
			{0x1, 0x00}: "sll", {0x2, 0x00}: "slt",
			{0x3, 0x00}: "sltu", {0x4, 0x00}: "xor",
			{0x5, 0x00}: "srl", {0x5, 0x20}: "sra",
			{0x6, 0x00}: "or", {0x7, 0x00}: "and",
		}
		if n, ok := names[[2]uint32{funct3, funct7}]; ok {
			return n, fmt.Sprintf("x%d, x%d, x%d", rd, rs1, rs2)
		}
	case 0x03: // LOAD
		imm := signExtend(word>>20, 12)
		names := map[uint32]string{0x0: "lb", 0x1: "lh", 0x2: "lw", 0x4: "lbu", 0x5: "lhu"}
		if n, ok := names[funct3]; ok {
			return n, fmt.Sprintf("x%d, %d(x%d)", rd, imm, rs1)
		}
	case 0x23: // STORE
		immHi := (word >> 25) & 0x7F
		immLo := (word >> 7) & 0x1F
		imm := signExtend((immHi<<5)|immLo, 12)
		names := map[uint32]string{0x0: "sb", 0x1: "sh", 0x2: "sw"}
		if n, ok := names[funct3]; ok {
			return n, fmt.Sprintf("x%d, %d(x%d)", rs2, imm, rs1)
		}
	case 0x63: // BRANCH
		imm := branchImm(word)
		names := map[uint32]string{0x0: "beq", 0x1: "bne", 0x4: "blt", 0x5: "bge", 0x6: "bltu", 0x7: "bgeu"}
		if n, ok := names[funct3]; ok {
			return n, fmt.Sprintf("x%d, x%d, %+d", rs1, rs2, imm)
		}
	case 0x6F: // JAL
		imm := jalImm(word)
		return "jal", fmt.Sprintf("x%d, %+d", rd, imm)
	case 0x67: // JALR
		imm := signExtend(word>>20, 12)
		return "jalr", fmt.Sprintf("x%d, %d(x%d)", rd, imm, rs1)
	case 0x37: // LUI
		return "lui", fmt.Sprintf("x%d, %#x", rd, word>>12)
	case 0x17: // AUIPC
		return "auipc", fmt.Sprintf("x%d, %#x", rd, word>>12)
	case 0x73: // SYSTEM
		if word == 0x00000073 {
			return "ecall", ""
		}
		if word == 0x00100073 {
			return "ebreak", ""
		}
	}
	return "unknown", fmt.Sprintf("0x%08x", word)
}

func signExtend(v uint32, bits int) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func branchImm(word uint32) int32 {
	b12 := (word >> 31) & 1
	b11 := (word >> 7) & 1
	b10_5 := (word >> 25) & 0x3F
	b4_1 := (word >> 8) & 0xF
	imm := (b12 << 12) | (b11 << 11) | (b10_5 << 5) | (b4_1 << 1)
	return signExtend(imm, 13)
}

func jalImm(word uint32) int32 {
	b20 := (word >> 31) & 1
	b19_12 := (word >> 12) & 0xFF
	b11 := (word >> 20) & 1
	b10_1 := (word >> 21) & 0x3FF
	imm := (b20 << 20) | (b19_12 << 12) | (b11 << 11) | (b10_1 << 1)
	return signExtend(imm, 21)
}
