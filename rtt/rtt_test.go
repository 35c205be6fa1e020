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

package rtt_test

import (
	"testing"

	"github.com/aether-dbg/aether/internal/memtest"
	"github.com/aether-dbg/aether/rtt"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

const (
	cbAddr   = 0x2000_0000
	bufAddr  = 0x2000_1000
	bufSize  = 16
)

func seedControlBlock(core *memtest.Core, writeOff, readOff uint32) {
	core.WriteSeed(cbAddr, append([]byte("SEGGER RTT"), make([]byte, 6)...))
	core.WriteSeed32(cbAddr+16, 1) // maxUpChannels
	core.WriteSeed32(cbAddr+20, 0) // maxDownChannels

	descAddr := uint64(cbAddr + 24)
	core.WriteSeed32(descAddr+4, bufAddr)
	core.WriteSeed32(descAddr+8, bufSize)
	core.WriteSeed32(descAddr+12, writeOff)
	core.WriteSeed32(descAddr+16, readOff)
}

func TestAttachFindsControlBlock(t *testing.T) {
	core := memtest.New(target.Info{})
	seedControlBlock(core, 0, 0)

	m, err := rtt.Attach(core, 0x2000_0000, 0x10000)
	test.ExpectSuccess(t, err)
	test.Equate(t, m.Attached(), true)
}

func TestPollReturnsNewBytesAndAdvancesReadOffset(t *testing.T) {
	core := memtest.New(target.Info{})
	seedControlBlock(core, 3, 0)
	core.WriteSeed(bufAddr, []byte{'a', 'b', 'c'})

	m, err := rtt.Attach(core, cbAddr, 0x1000)
	test.ExpectSuccess(t, err)

	data := m.Poll(core)
	test.Equate(t, len(data), 1)
	test.Equate(t, data[0].Bytes, []byte{'a', 'b', 'c'})

	test.Equate(t, len(m.Poll(core)), 0)
}

func TestAttachNotFoundReturnsError(t *testing.T) {
	core := memtest.New(target.Info{})
	_, err := rtt.Attach(core, 0, 0x1000)
	test.ExpectFailure(t, err)
}
