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

// Package stack walks the call stack of a live core using DWARF call-frame
// information. No third-party Go library exposes .debug_frame/.eh_frame
// decoding (debug/dwarf's standard library surface stops at line and type
// information), so the CIE/FDE interpreter in cfi.go is hand-rolled,
// following the Rust original's unwind_stack algorithm.
package stack

import (
	"encoding/binary"

	"github.com/aether-dbg/aether/symbols"
	"github.com/aether-dbg/aether/target"
)

const maxFrames = 20

const (
	regSP = 13
	regLR = 14
	regPC = 15
)

// Frame is one entry in an unwound call stack, frame 0 being innermost.
type Frame struct {
	ID           int
	FunctionName string
	SourceFile   string
	Line         int
	PC           uint64
	SP           uint64
}

// Unwind walks core's stack using sym's loaded symbols and CFI, frame 0 =
// innermost. Any parse or memory-read error along the way stops the walk
// and returns the frames gathered so far rather than failing outright.
func Unwind(core target.Core, sym *symbols.Manager) ([]Frame, error) {
	pc, err := core.ReadPC()
	if err != nil {
		return nil, err
	}
	sp, err := core.ReadRegister(regSP)
	if err != nil {
		return nil, err
	}
	lr, err := core.ReadRegister(regLR)
	if err != nil {
		return nil, err
	}

	frame0 := frameAt(0, pc, sp, sym)
	frames := []Frame{frame0}

	if sym == nil || sym.DWARF() == nil {
		return frames, nil
	}

	data, ok := sym.Section(".debug_frame")
	if !ok {
		data, ok = sym.Section(".eh_frame")
		if !ok {
			return frames, nil
		}
	}

	fdes, err := ParseDebugFrame(data)
	if err != nil || len(fdes) == 0 {
		return frames, nil
	}

	currentPC := pc
	currentSP := sp
	currentLR := lr

	for len(frames) < maxFrames {
		fde := findFDE(fdes, currentPC)
		if fde == nil {
			break
		}

		cfaRule, regs, err := EvaluateRow(fde, currentPC)
		if err != nil {
			break
		}

		cfaBase, err := core.ReadRegister(uint32(cfaRule.Reg))
		if err != nil {
			break
		}
		cfa := cfaBase + uint64(cfaRule.Offset)

		callerPC, err := resolveReturnAddress(core, regs[regLR], cfa, currentLR)
		if err != nil {
			break
		}

		if callerPC == 0 || callerPC == 0xFFFFFFFF || callerPC == currentPC {
			break
		}

		frames = append(frames, frameAt(len(frames), callerPC, cfa, sym))

		currentPC = callerPC
		currentSP = cfa
		_ = currentSP
		currentLR, _ = core.ReadRegister(regLR)
	}

	return frames, nil
}

func frameAt(id int, pc, sp uint64, sym *symbols.Manager) Frame {
	f := Frame{ID: id, PC: pc, SP: sp}
	if sym == nil {
		return f
	}
	if src, ok := sym.Lookup(pc); ok {
		f.SourceFile = src.File
		f.Line = src.Line
	}
	f.FunctionName = functionNameAt(sym, pc)
	return f
}

func functionNameAt(sym *symbols.Manager, pc uint64) string {
	if s, ok := sym.FunctionAt(pc); ok {
		return s.Name
	}
	return ""
}

func findFDE(fdes []*FDE, pc uint64) *FDE {
	for _, f := range fdes {
		if f.Covers(pc) {
			return f
		}
	}
	return nil
}

func resolveReturnAddress(core target.Core, lrRule Rule, cfa, liveLR uint64) (uint64, error) {
	switch lrRule.Kind {
	case RuleUndefined, RuleSameValue:
		return liveLR, nil
	case RuleOffset:
		addr := uint64(int64(cfa) + lrRule.Offset)
		b, err := core.ReadMemory(addr, 4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case RuleValOffset:
		return uint64(int64(cfa) + lrRule.Offset), nil
	case RuleRegister:
		return core.ReadRegister(uint32(lrRule.Reg))
	default:
		return liveLR, nil
	}
}
