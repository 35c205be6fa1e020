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

package stack

import (
	"encoding/binary"
	"fmt"
)

// RuleKind is a DWARF CFI register rule kind.
type RuleKind int

const (
	RuleUndefined RuleKind = iota
	RuleSameValue
	RuleOffset
	RuleValOffset
	RuleRegister
	RuleRegisterAndOffset
)

// Rule is one register's unwind rule at a given PC.
type Rule struct {
	Kind   RuleKind
	Reg    uint64
	Offset int64
}

// CIE is a DWARF Common Information Entry.
type CIE struct {
	CodeAlignmentFactor uint64
	DataAlignmentFactor int64
	ReturnAddressReg    uint64
	InitialInstructions []byte
}

// FDE is a DWARF Frame Description Entry.
type FDE struct {
	CIE            *CIE
	InitialLoc     uint64
	AddressRange   uint64
	Instructions   []byte
}

func (f *FDE) Covers(pc uint64) bool {
	return pc >= f.InitialLoc && pc < f.InitialLoc+f.AddressRange
}

// ParseDebugFrame parses the CIE/FDE records of a .debug_frame section. Any
// malformed record stops parsing and returns what was successfully parsed
// so far, in keeping with the unwinder's "safe against partial CFI"
// requirement. A CIE is recognised by its 0xFFFFFFFF id and an FDE's CIE
// pointer is read as a section offset, so .eh_frame's zero-id CIEs and
// relative CIE pointers are not decoded.
func ParseDebugFrame(data []byte) ([]*FDE, error) {
	cies := make(map[int]*CIE)
	var fdes []*FDE

	off := 0
	for off+4 <= len(data) {
		start := off
		length := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if length == 0 {
			break
		}
		end := off + int(length)
		if end > len(data) {
			break
		}

		id := binary.LittleEndian.Uint32(data[off:])
		body := data[off+4 : end]

		if id == 0xFFFFFFFF {
			cie, err := parseCIE(body)
			if err != nil {
				break
			}
			cies[start] = cie
		} else {
			cieOffset := int(id)
			cie, ok := cies[cieOffset]
			if !ok {
				off = end
				continue
			}
			fde, err := parseFDE(body, cie)
			if err != nil {
				break
			}
			fdes = append(fdes, fde)
		}

		off = end
	}
	return fdes, nil
}

func parseCIE(body []byte) (*CIE, error) {
	r := &byteReader{data: body}
	_, err := r.u8() // version
	if err != nil {
		return nil, err
	}
	_, err = r.cstr() // augmentation string
	if err != nil {
		return nil, err
	}
	caf, err := r.uleb()
	if err != nil {
		return nil, err
	}
	daf, err := r.sleb()
	if err != nil {
		return nil, err
	}
	raReg, err := r.uleb()
	if err != nil {
		return nil, err
	}
	return &CIE{
		CodeAlignmentFactor: caf,
		DataAlignmentFactor: daf,
		ReturnAddressReg:    raReg,
		InitialInstructions: body[r.off:],
	}, nil
}

func parseFDE(body []byte, cie *CIE) (*FDE, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("fde too short")
	}
	loc := binary.LittleEndian.Uint32(body[0:4])
	rng := binary.LittleEndian.Uint32(body[4:8])
	return &FDE{
		CIE:          cie,
		InitialLoc:   uint64(loc),
		AddressRange: uint64(rng),
		Instructions: body[8:],
	}, nil
}

// EvaluateRow runs the CIE's initial instructions followed by the FDE's
// instructions up to pc, returning the CFA rule and the per-register rule
// table in effect at pc.
func EvaluateRow(fde *FDE, pc uint64) (Rule, map[uint64]Rule, error) {
	cfa := Rule{Kind: RuleRegisterAndOffset, Reg: 13}
	regs := make(map[uint64]Rule)
	loc := fde.InitialLoc

	run := func(instrs []byte) error {
		r := &byteReader{data: instrs}
		for r.off < len(r.data) {
			op, err := r.u8()
			if err != nil {
				return err
			}
			high := op & 0xC0
			low := op & 0x3F

			switch high {
			case 0x40: // DW_CFA_advance_loc
				loc += uint64(low) * fde.CIE.CodeAlignmentFactor
			case 0x80: // DW_CFA_offset
				off, err := r.uleb()
				if err != nil {
					return err
				}
				regs[uint64(low)] = Rule{Kind: RuleOffset, Offset: int64(off) * fde.CIE.DataAlignmentFactor}
			case 0xC0: // DW_CFA_restore
				delete(regs, uint64(low))
			default:
				switch op {
				case 0x00: // nop
				case 0x01: // set_loc
					addr, err := r.u32()
					if err != nil {
						return err
					}
					loc = uint64(addr)
				case 0x02: // advance_loc1
					d, err := r.u8()
					if err != nil {
						return err
					}
					loc += uint64(d) * fde.CIE.CodeAlignmentFactor
				case 0x03: // advance_loc2
					d, err := r.u16()
					if err != nil {
						return err
					}
					loc += uint64(d) * fde.CIE.CodeAlignmentFactor
				case 0x04: // advance_loc4
					d, err := r.u32()
					if err != nil {
						return err
					}
					loc += uint64(d) * fde.CIE.CodeAlignmentFactor
				case 0x05: // offset_extended
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					off, err := r.uleb()
					if err != nil {
						return err
					}
					regs[reg] = Rule{Kind: RuleOffset, Offset: int64(off) * fde.CIE.DataAlignmentFactor}
				case 0x06: // restore_extended
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					delete(regs, reg)
				case 0x07: // undefined
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					regs[reg] = Rule{Kind: RuleUndefined}
				case 0x08: // same_value
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					regs[reg] = Rule{Kind: RuleSameValue}
				case 0x09: // register
					reg1, err := r.uleb()
					if err != nil {
						return err
					}
					reg2, err := r.uleb()
					if err != nil {
						return err
					}
					regs[reg1] = Rule{Kind: RuleRegister, Reg: reg2}
				case 0x0c: // def_cfa
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					off, err := r.uleb()
					if err != nil {
						return err
					}
					cfa = Rule{Kind: RuleRegisterAndOffset, Reg: reg, Offset: int64(off)}
				case 0x0d: // def_cfa_register
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					cfa.Reg = reg
				case 0x0e: // def_cfa_offset
					off, err := r.uleb()
					if err != nil {
						return err
					}
					cfa.Offset = int64(off)
				case 0x12: // def_cfa_sf
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					off, err := r.sleb()
					if err != nil {
						return err
					}
					cfa = Rule{Kind: RuleRegisterAndOffset, Reg: reg, Offset: off * fde.CIE.DataAlignmentFactor}
				case 0x13: // def_cfa_offset_sf
					off, err := r.sleb()
					if err != nil {
						return err
					}
					cfa.Offset = off * fde.CIE.DataAlignmentFactor
				case 0x14: // val_offset
					reg, err := r.uleb()
					if err != nil {
						return err
					}
					off, err := r.uleb()
					if err != nil {
						return err
					}
					regs[reg] = Rule{Kind: RuleValOffset, Offset: int64(off) * fde.CIE.DataAlignmentFactor}
				default:
					// unrecognised opcode: stop interpreting rather than
					// misinterpret following bytes as something else
					return fmt.Errorf("unrecognised cfa opcode %#02x", op)
				}
			}

			// Every opcode -- compact or extended -- must reach this check
			// before the next instruction is read, so the row evaluation
			// stops exactly at current_pc rather than running through to
			// the function epilogue's restores.
			if loc > pc {
				return nil
			}
		}
		return nil
	}

	if err := run(fde.CIE.InitialInstructions); err != nil {
		return Rule{}, nil, err
	}
	if err := run(fde.Instructions); err != nil {
		// partial rows evaluated so far are still usable
		return cfa, regs, nil
	}
	return cfa, regs, nil
}

type byteReader struct {
	data []byte
	off  int
}

func (r *byteReader) u8() (uint8, error) {
	if r.off >= len(r.data) {
		return 0, fmt.Errorf("eof")
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.off+2 > len(r.data) {
		return 0, fmt.Errorf("eof")
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if r.off+4 > len(r.data) {
		return 0, fmt.Errorf("eof")
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *byteReader) cstr() (string, error) {
	start := r.off
	for r.off < len(r.data) && r.data[r.off] != 0 {
		r.off++
	}
	if r.off >= len(r.data) {
		return "", fmt.Errorf("eof")
	}
	s := string(r.data[start:r.off])
	r.off++
	return s, nil
}

func (r *byteReader) uleb() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, nil
}

func (r *byteReader) sleb() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.u8()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}
