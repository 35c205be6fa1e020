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

package rpcapi

import (
	"testing"

	"github.com/aether-dbg/aether/internal/memtest"
	"github.com/aether-dbg/aether/session"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

func newTestDispatch() (*Dispatch, *memtest.Core) {
	core := memtest.New(target.Info{Name: "test", Architecture: target.Armv7em})
	w := session.New(core)
	go w.Run()
	return NewDispatch(w), core
}

func TestHaltThenGetStatusReflectsHalted(t *testing.T) {
	d, _ := newTestDispatch()
	test.ExpectSuccess(t, d.Halt())

	st, err := d.GetStatus()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, st.Halted, true)
}

func TestWriteThenReadRegisterRoundTrips(t *testing.T) {
	d, _ := newTestDispatch()
	test.ExpectSuccess(t, d.WriteRegister(WriteRegisterRequest{Register: 5, Value: 0xCAFE}))

	resp, err := d.ReadRegister(ReadRegisterRequest{Register: 5})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, resp.Value, uint64(0xCAFE))
}

func TestWriteThenReadMemoryRoundTrips(t *testing.T) {
	d, _ := newTestDispatch()
	test.ExpectSuccess(t, d.WriteMemory(WriteMemoryRequest{Address: 0x2000_0000, Data: []byte{0xAA, 0xBB}}))

	resp, err := d.ReadMemory(ReadMemoryRequest{Address: 0x2000_0000, Length: 2})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, resp.Data, []byte{0xAA, 0xBB})
}

func TestSetThenListBreakpoints(t *testing.T) {
	d, _ := newTestDispatch()
	_, err := d.SetBreakpoint(BreakpointRequest{Address: 0x1000})
	test.ExpectSuccess(t, err)

	addrs, err := d.ListBreakpoints()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, addrs, []uint64{0x1000})
}

func TestClearUnknownBreakpointFails(t *testing.T) {
	d, _ := newTestDispatch()
	_, err := d.ClearBreakpoint(BreakpointRequest{Address: 0x9999})
	test.ExpectFailure(t, err)
}
