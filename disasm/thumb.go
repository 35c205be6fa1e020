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

// DisassembleThumb decodes a stream of Thumb (and 32-bit Thumb-2)
// instructions starting at pc. It stops after yielding count instructions or
// when the remaining bytes can't cover another halfword, whichever comes
// first -- a conservative, never-panicking subset covering the instruction
// classes seen most often in Cortex-M startup/runtime code.
func DisassembleThumb(pc uint64, code []byte, count int) []Instruction {
	var out []Instruction
	off := 0
	for len(out) < count && off+2 <= len(code) {
		hw := binary.LittleEndian.Uint16(code[off:])

		if isThumb2Prefix(hw) && off+4 <= len(code) {
			hw2 := binary.LittleEndian.Uint32(code[off:]) | uint32(binary.LittleEndian.Uint16(code[off+2:]))<<16
			_ = hw2
			mnem, ops := decodeThumb2(hw, binary.LittleEndian.Uint16(code[off+2:]))
			out = append(out, Instruction{
				Address:  pc + uint64(off),
				Mnemonic: mnem,
				OpStr:    ops,
				Bytes:    append([]byte{}, code[off:off+4]...),
			})
			off += 4
			continue
		}

		mnem, ops := decodeThumb16(hw)
		out = append(out, Instruction{
			Address:  pc + uint64(off),
			Mnemonic: mnem,
			OpStr:    ops,
			Bytes:    append([]byte{}, code[off:off+2]...),
		})
		off += 2
	}
	return out
}

func isThumb2Prefix(hw uint16) bool {
	top5 := hw >> 11
	return top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111
}

// decodeThumb16 covers the Thumb-1 instruction classes most common in
// Cortex-M code: shifts/add/sub, moves/compares, ALU ops, loads/stores,
// SP-relative and PC-relative forms, branches, and the hint-space NOP.
func decodeThumb16(hw uint16) (string, string) {
	switch {
	case hw == 0xBF00:
		return "nop", ""
	case hw&0xFF00 == 0xBF00:
		return hintInstruction(hw)
	case hw&0xF800 == 0x0000: // LSL (immediate), also covers MOV Rd,Rs when imm5==0
		rd, rm, imm5 := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x1F
		if imm5 == 0 {
			return "movs", fmt.Sprintf("r%d, r%d", rd, rm)
		}
		return "lsls", fmt.Sprintf("r%d, r%d, #%d", rd, rm, imm5)
	case hw&0xF800 == 0x0800: // LSR (immediate)
		rd, rm, imm5 := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x1F
		return "lsrs", fmt.Sprintf("r%d, r%d, #%d", rd, rm, imm5)
	case hw&0xF800 == 0x1000: // ASR (immediate)
		rd, rm, imm5 := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x1F
		return "asrs", fmt.Sprintf("r%d, r%d, #%d", rd, rm, imm5)
	case hw&0xFE00 == 0x1800: // ADD register
		rd, rn, rm := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x7
		return "adds", fmt.Sprintf("r%d, r%d, r%d", rd, rn, rm)
	case hw&0xFE00 == 0x1A00: // SUB register
		rd, rn, rm := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x7
		return "subs", fmt.Sprintf("r%d, r%d, r%d", rd, rn, rm)
	case hw&0xF800 == 0x2000: // MOV immediate
		rd, imm8 := (hw>>8)&0x7, hw&0xFF
		return "movs", fmt.Sprintf("r%d, #%d", rd, imm8)
	case hw&0xF800 == 0x2800: // CMP immediate
		rn, imm8 := (hw>>8)&0x7, hw&0xFF
		return "cmp", fmt.Sprintf("r%d, #%d", rn, imm8)
	case hw&0xF800 == 0x3000: // ADD immediate (8-bit)
		rd, imm8 := (hw>>8)&0x7, hw&0xFF
		return "adds", fmt.Sprintf("r%d, #%d", rd, imm8)
	case hw&0xF800 == 0x3800: // SUB immediate (8-bit)
		rd, imm8 := (hw>>8)&0x7, hw&0xFF
		return "subs", fmt.Sprintf("r%d, #%d", rd, imm8)
	case hw&0xFC00 == 0x4000: // ALU data-processing register
		return decodeThumbDataProcessing(hw)
	case hw&0xFF00 == 0x4400: // ADD high registers (hi regs, unpredictable combos elided)
		rdn, rm := (hw&0x7)|((hw>>4)&0x8), (hw>>3)&0xF
		return "add", fmt.Sprintf("r%d, r%d", rdn, rm)
	case hw&0xFF87 == 0x4700: // BX
		rm := (hw >> 3) & 0xF
		return "bx", fmt.Sprintf("r%d", rm)
	case hw&0xFF87 == 0x4780: // BLX register
		rm := (hw >> 3) & 0xF
		return "blx", fmt.Sprintf("r%d", rm)
	case hw&0xF800 == 0x4800: // LDR (PC-relative)
		rt, imm8 := (hw>>8)&0x7, hw&0xFF
		return "ldr", fmt.Sprintf("r%d, [pc, #%d]", rt, imm8*4)
	case hw&0xFE00 == 0x5000: // STR register offset
		return decodeThumbLoadStoreReg(hw, "str")
	case hw&0xFE00 == 0x5800: // LDR register offset
		return decodeThumbLoadStoreReg(hw, "ldr")
	case hw&0xE000 == 0x6000: // LDR/STR immediate offset (word)
		return decodeThumbLoadStoreImm(hw)
	case hw&0xF000 == 0x8000: // LDRH/STRH immediate
		return decodeThumbHalfwordImm(hw)
	case hw&0xF800 == 0x9000: // STR SP-relative
		rt, imm8 := (hw>>8)&0x7, hw&0xFF
		return "str", fmt.Sprintf("r%d, [sp, #%d]", rt, imm8*4)
	case hw&0xF800 == 0x9800: // LDR SP-relative
		rt, imm8 := (hw>>8)&0x7, hw&0xFF
		return "ldr", fmt.Sprintf("r%d, [sp, #%d]", rt, imm8*4)
	case hw&0xF000 == 0xA000: // ADR / ADD SP-relative
		rd, imm8 := (hw>>8)&0x7, hw&0xFF
		if hw&0x0800 == 0 {
			return "adr", fmt.Sprintf("r%d, #%d", rd, imm8*4)
		}
		return "add", fmt.Sprintf("r%d, sp, #%d", rd, imm8*4)
	case hw&0xFF80 == 0xB000: // ADD SP, #imm
		imm7 := hw & 0x7F
		return "add", fmt.Sprintf("sp, #%d", imm7*4)
	case hw&0xFF80 == 0xB080: // SUB SP, #imm
		imm7 := hw & 0x7F
		return "sub", fmt.Sprintf("sp, #%d", imm7*4)
	case hw&0xF600 == 0xB400: // PUSH / POP
		return decodeThumbPushPop(hw)
	case hw&0xF000 == 0xD000 && (hw>>8)&0xF != 0xF && (hw>>8)&0xF != 0xE: // conditional branch
		cond, imm8 := (hw>>8)&0xF, int8(hw&0xFF)
		return "b" + condSuffix(uint16(cond)), fmt.Sprintf("#%+d", int(imm8)*2)
	case hw&0xFF00 == 0xDF00: // SVC
		return "svc", fmt.Sprintf("#%d", hw&0xFF)
	case hw&0xF800 == 0xE000: // unconditional branch
		imm11 := hw & 0x7FF
		signed := int32(uint32(imm11)<<21) >> 21
		return "b", fmt.Sprintf("#%+d", signed*2)
	}
	return "unknown", fmt.Sprintf("0x%04x", hw)
}

func hintInstruction(hw uint16) (string, string) {
	switch hw & 0xFF {
	case 0x00:
		return "nop", ""
	case 0x10:
		return "yield", ""
	case 0x20:
		return "wfe", ""
	case 0x30:
		return "wfi", ""
	case 0x40:
		return "sev", ""
	default:
		return "hint", fmt.Sprintf("#%d", hw&0xFF)
	}
}

func decodeThumbDataProcessing(hw uint16) (string, string) {
	op, rm, rdn := (hw>>6)&0xF, (hw>>3)&0x7, hw&0x7
	ops := fmt.Sprintf("r%d, r%d", rdn, rm)
	names := map[uint16]string{
		0x0: "ands", 0x1: "eors", 0x2: "lsls", 0x3: "lsrs",
		0x4: "asrs", 0x5: "adcs", 0x6: "sbcs", 0x7: "rors",
		0x8: "tst", 0x9: "rsbs", 0xA: "cmp", 0xB: "cmn",
		0xC: "orrs", 0xD: "muls", 0xE: "bics", 0xF: "mvns",
	}
	if n, ok := names[op]; ok {
		return n, ops
	}
	return "unknown", fmt.Sprintf("0x%04x", hw)
}

func decodeThumbLoadStoreReg(hw uint16, base string) (string, string) {
	rt, rn, rm := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x7
	return base, fmt.Sprintf("r%d, [r%d, r%d]", rt, rn, rm)
}

func decodeThumbLoadStoreImm(hw uint16) (string, string) {
	rt, rn, imm5 := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x1F
	isLoad := hw&0x0800 != 0
	mnem := "str"
	if isLoad {
		mnem = "ldr"
	}
	return mnem, fmt.Sprintf("r%d, [r%d, #%d]", rt, rn, imm5*4)
}

func decodeThumbHalfwordImm(hw uint16) (string, string) {
	rt, rn, imm5 := hw&0x7, (hw>>3)&0x7, (hw>>6)&0x1F
	isLoad := hw&0x0800 != 0
	mnem := "strh"
	if isLoad {
		mnem = "ldrh"
	}
	return mnem, fmt.Sprintf("r%d, [r%d, #%d]", rt, rn, imm5*2)
}

func decodeThumbPushPop(hw uint16) (string, string) {
	isPop := hw&0x0800 != 0
	rlist := hw & 0xFF
	extra := ""
	if isPop && hw&0x0100 != 0 {
		extra = ", pc"
	} else if !isPop && hw&0x0100 != 0 {
		extra = ", lr"
	}
	var regs string
	for i := 0; i < 8; i++ {
		if rlist&(1<<i) != 0 {
			if regs != "" {
				regs += ", "
			}
			regs += fmt.Sprintf("r%d", i)
		}
	}
	mnem := "push"
	if isPop {
		mnem = "pop"
	}
	return mnem, "{" + regs + extra + "}"
}

func condSuffix(cond uint16) string {
	names := []string{"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc", "hi", "ls", "ge", "lt", "gt", "le"}
	if int(cond) < len(names) {
		return names[cond]
	}
	return ""
}

// decodeThumb2 handles the one 32-bit encoding worth naming explicitly for
// Cortex-M firmware disassembly: BL (unconditional branch with link). All
// other 32-bit Thumb-2 encodings fall back to "unknown32" -- a real decoder
// would cover the data-processing-(plain binary)/load-store-multiple/coproc
// classes, but none of those affect the control-flow-relevant instructions
// the stack unwinder and breakpoint tooling care about.
func decodeThumb2(hw1, hw2 uint16) (string, string) {
	if hw1&0xF800 == 0xF000 && hw2&0xD000 == 0xD000 {
		s := (hw1 >> 10) & 1
		j1 := (hw2 >> 13) & 1
		j2 := (hw2 >> 11) & 1
		imm10 := hw1 & 0x3FF
		imm11 := hw2 & 0x7FF
		i1 := (^(j1 ^ s)) & 1
		i2 := (^(j2 ^ s)) & 1
		imm32 := (uint32(s) << 24) | (uint32(i1) << 23) | (uint32(i2) << 22) | (uint32(imm10) << 12) | (uint32(imm11) << 1)
		signed := int32(imm32<<7) >> 7
		return "bl", fmt.Sprintf("#%+d", signed)
	}
	return "unknown32", fmt.Sprintf("0x%04x%04x", hw1, hw2)
}
