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

package semihosting_test

import (
	"testing"

	"github.com/aether-dbg/aether/internal/memtest"
	"github.com/aether-dbg/aether/semihosting"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

func TestDetectThumbBkpt(t *testing.T) {
	trap, ok := semihosting.Detect(0x1000, true, []byte{0xBE, 0xAB}, nil)
	test.Equate(t, ok, true)
	test.Equate(t, trap.Width, uint64(2))
}

func TestDetectArmSvc(t *testing.T) {
	trap, ok := semihosting.Detect(0x1000, false, nil, []byte{0x56, 0x34, 0x12, 0xEF})
	test.Equate(t, ok, true)
	test.Equate(t, trap.Width, uint64(4))
}

func TestDetectNoMatch(t *testing.T) {
	_, ok := semihosting.Detect(0x1000, true, []byte{0x00, 0x00}, nil)
	test.Equate(t, ok, false)
}

func TestServiceSysWrite0(t *testing.T) {
	core := memtest.New(target.Info{})
	msg := "hello\x00"
	core.WriteSeed(0x3000, []byte(msg))
	core.WriteRegister(0, 0x04) // SYS_WRITE0
	core.WriteRegister(1, 0x3000)
	core.WriteRegister(15, 0x1000) // PC at trap

	out, produced, err := semihosting.Service(core, semihosting.Trap{Width: 2})
	test.ExpectSuccess(t, err)
	test.Equate(t, produced, true)
	test.Equate(t, out.Text, "hello")

	pc, _ := core.ReadPC()
	test.Equate(t, pc, uint64(0x1002))

	status, _ := core.Status()
	test.Equate(t, status, target.Running)
}

func TestServiceSysWritec(t *testing.T) {
	core := memtest.New(target.Info{})
	core.WriteSeed(0x3000, []byte{'X'})
	core.WriteRegister(0, 0x05) // SYS_WRITEC
	core.WriteRegister(1, 0x3000)
	core.WriteRegister(15, 0x2000)

	out, produced, err := semihosting.Service(core, semihosting.Trap{Width: 4})
	test.ExpectSuccess(t, err)
	test.Equate(t, produced, true)
	test.Equate(t, out.Text, "X")

	pc, _ := core.ReadPC()
	test.Equate(t, pc, uint64(0x2004))
}

func TestServiceUnknownOpAdvancesSilently(t *testing.T) {
	core := memtest.New(target.Info{})
	core.WriteRegister(0, 0xFF) // unknown
	core.WriteRegister(15, 0x4000)

	out, produced, err := semihosting.Service(core, semihosting.Trap{Width: 2})
	test.ExpectSuccess(t, err)
	test.Equate(t, produced, false)
	test.Equate(t, out.Text, "")

	pc, _ := core.ReadPC()
	test.Equate(t, pc, uint64(0x4002))
}
