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

package itm_test

import (
	"testing"

	"github.com/aether-dbg/aether/internal/memtest"
	"github.com/aether-dbg/aether/itm"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

func TestEnableItmOnArmSucceeds(t *testing.T) {
	core := memtest.New(target.Info{Architecture: target.Armv7m})
	m := itm.New()
	test.ExpectSuccess(t, m.EnableItm(core, 115200))
	test.Equate(t, m.Enabled(), true)
}

func TestEnableItmOnRiscvFails(t *testing.T) {
	core := memtest.New(target.Info{Architecture: target.Riscv32})
	m := itm.New()
	test.ExpectFailure(t, m.EnableItm(core, 115200))
	test.Equate(t, m.Enabled(), false)
}

func TestDrainRequiresEnable(t *testing.T) {
	core := memtest.New(target.Info{Architecture: target.Armv7m})
	m := itm.New()
	_, err := m.Drain(core, 0x1000, 16)
	test.ExpectFailure(t, err)
}

func TestDrainReturnsBytes(t *testing.T) {
	core := memtest.New(target.Info{Architecture: target.Armv7m})
	core.WriteSeed(0x1000, []byte{0x01, 0x02, 0x03})

	m := itm.New()
	test.ExpectSuccess(t, m.EnableItm(core, 115200))

	pkt, err := m.Drain(core, 0x1000, 3)
	test.ExpectSuccess(t, err)
	test.Equate(t, pkt.Bytes, []byte{0x01, 0x02, 0x03})
}
