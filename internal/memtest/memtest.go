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

// Package memtest provides a flat-memory, in-process implementation of
// target.Core so the RTOS walker, SVD engine, stack unwinder and breakpoint
// manager can be unit tested without a real probe, in the spirit of the
// teacher's tiny single-purpose test package and of the Rust original's
// embedded MockMemory fakes.
package memtest

import (
	"encoding/binary"
	"fmt"

	"github.com/aether-dbg/aether/target"
)

// Core is a flat address-space fake with 32 general registers.
type Core struct {
	info      target.Info
	mem       map[uint64][]byte // keyed by the 4KiB-aligned page base
	regs      [32]uint64
	status    target.Status
	reason    target.HaltReason
	bpSlots   int
	bpset     map[uint64]bool
	failReads map[uint64]bool
}

const pageSize = 4096

// New returns a Core with the given info and a default of 6 hardware
// breakpoint comparators, matching common Cortex-M FPB implementations.
func New(info target.Info) *Core {
	return &Core{
		info:    info,
		mem:     make(map[uint64][]byte),
		bpSlots: 6,
		bpset:   make(map[uint64]bool),
	}
}

// WriteSeed installs bytes at addr through WriteMemory, ignoring its error,
// for test setup.
func (c *Core) WriteSeed(addr uint64, data []byte) {
	_ = c.WriteMemory(addr, data)
}

// WriteSeed32 installs a little-endian u32 at addr for test setup.
func (c *Core) WriteSeed32(addr uint64, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	c.WriteSeed(addr, b[:])
}

// FailReadsAt makes subsequent reads covering addr return an error, to
// exercise "missing register marked absent" paths.
func (c *Core) FailReadsAt(addr uint64) {
	if c.failReads == nil {
		c.failReads = make(map[uint64]bool)
	}
	c.failReads[addr] = true
}

func pageOf(addr uint64) uint64 { return addr - addr%pageSize }

func (c *Core) page(base uint64) []byte {
	p, ok := c.mem[base]
	if !ok {
		p = make([]byte, pageSize)
		c.mem[base] = p
	}
	return p
}

func (c *Core) Info() target.Info { return c.info }

func (c *Core) Status() (target.Status, target.HaltReason) { return c.status, c.reason }

func (c *Core) Halt() error {
	c.status = target.Halted
	c.reason = target.HaltUserRequest
	return nil
}

func (c *Core) Resume() error {
	c.status = target.Running
	return nil
}

func (c *Core) Step() error {
	c.status = target.Halted
	c.reason = target.HaltStep
	return nil
}

func (c *Core) Reset() error {
	for i := range c.regs {
		c.regs[i] = 0
	}
	c.status = target.Running
	return nil
}

func (c *Core) ReadRegister(n uint32) (uint64, error) {
	if int(n) >= len(c.regs) {
		return 0, fmt.Errorf("register index %d out of range", n)
	}
	return c.regs[n], nil
}

func (c *Core) WriteRegister(n uint32, v uint64) error {
	if int(n) >= len(c.regs) {
		return fmt.Errorf("register index %d out of range", n)
	}
	c.regs[n] = v
	return nil
}

func (c *Core) ReadPC() (uint64, error) { return c.ReadRegister(15) }

func (c *Core) WritePC(pc uint64) error { return c.WriteRegister(15, pc) }

func (c *Core) ReadMemory(addr uint64, size int) ([]byte, error) {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		a := addr + uint64(i)
		if c.failReads[a] {
			return nil, fmt.Errorf("memtest: simulated read failure at %#08x", a)
		}
		base := pageOf(a)
		out[i] = c.page(base)[a-base]
	}
	return out, nil
}

func (c *Core) WriteMemory(addr uint64, data []byte) error {
	for i, b := range data {
		a := addr + uint64(i)
		base := pageOf(a)
		c.page(base)[a-base] = b
	}
	return nil
}

func (c *Core) SetHardwareBreakpoint(addr uint64) error {
	if len(c.bpset) >= c.bpSlots {
		return fmt.Errorf("hardware breakpoint slots exhausted")
	}
	c.bpset[addr] = true
	return nil
}

func (c *Core) ClearHardwareBreakpoint(addr uint64) error {
	delete(c.bpset, addr)
	return nil
}

func (c *Core) HardwareBreakpointSlots() int { return c.bpSlots }
