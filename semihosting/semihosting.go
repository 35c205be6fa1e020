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

// Package semihosting detects and services ARM semihosting traps: BKPT
// 0xAB in Thumb and SVC 0x123456 in ARM state.
package semihosting

import (
	"github.com/aether-dbg/aether/target"
)

const (
	sysWrite0 = 0x04
	sysWritec = 0x05

	maxSysWrite0Len = 1024
)

// thumbTrap and armTrap are the exact byte encodings of the two semihosting
// trap instructions.
var (
	thumbTrap = [2]byte{0xBE, 0xAB}
	armTrap   = [4]byte{0x56, 0x34, 0x12, 0xEF}
)

// Trap describes a detected semihosting breakpoint: its instruction width,
// so the PC can be advanced past it correctly.
type Trap struct {
	Width uint64 // 2 for Thumb BKPT, 4 for ARM SVC
}

// Detect inspects the bytes at pc for a known semihosting trap encoding.
func Detect(pc uint64, thumbState bool, codeAt2, codeAt4 []byte) (Trap, bool) {
	if thumbState && len(codeAt2) >= 2 && codeAt2[0] == thumbTrap[0] && codeAt2[1] == thumbTrap[1] {
		return Trap{Width: 2}, true
	}
	if !thumbState && len(codeAt4) >= 4 &&
		codeAt4[0] == armTrap[0] && codeAt4[1] == armTrap[1] &&
		codeAt4[2] == armTrap[2] && codeAt4[3] == armTrap[3] {
		return Trap{Width: 4}, true
	}
	return Trap{}, false
}

// Output is the text or single character extracted from a serviced trap.
type Output struct {
	Text string
}

// Service reads R0 (operation) and R1 (parameter), performs the operation
// against core's memory, advances PC past the trap, and resumes. Unknown
// operations advance and resume silently without producing Output.
func Service(core target.Core, trap Trap) (Output, bool, error) {
	op, err := core.ReadRegister(0)
	if err != nil {
		return Output{}, false, err
	}
	param, err := core.ReadRegister(1)
	if err != nil {
		return Output{}, false, err
	}

	var out Output
	var produced bool

	switch op {
	case sysWrite0:
		s, err := readCString(core, param, maxSysWrite0Len)
		if err != nil {
			return Output{}, false, err
		}
		out, produced = Output{Text: s}, true
	case sysWritec:
		b, err := core.ReadMemory(param, 1)
		if err != nil {
			return Output{}, false, err
		}
		out, produced = Output{Text: string(b)}, true
	}

	pc, err := core.ReadPC()
	if err != nil {
		return Output{}, false, err
	}
	if err := core.WritePC(pc + trap.Width); err != nil {
		return Output{}, false, err
	}
	if err := core.Resume(); err != nil {
		return Output{}, false, err
	}

	return out, produced, nil
}

func readCString(core target.Core, addr uint64, maxLen int) (string, error) {
	buf := make([]byte, 0, 64)
	for i := 0; i < maxLen; i++ {
		b, err := core.ReadMemory(addr+uint64(i), 1)
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			break
		}
		buf = append(buf, b[0])
	}
	return string(buf), nil
}
