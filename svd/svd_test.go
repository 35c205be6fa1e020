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

package svd_test

import (
	"encoding/binary"
	"testing"

	"github.com/aether-dbg/aether/internal/memtest"
	"github.com/aether-dbg/aether/svd"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/test"
)

const testDeviceXML = `<?xml version="1.0" encoding="utf-8"?>
<device>
  <peripherals>
    <peripheral>
      <name>GPIOA</name>
      <baseAddress>0x40021000</baseAddress>
      <registers>
        <register>
          <name>MODER</name>
          <addressOffset>0x00</addressOffset>
          <size>32</size>
          <fields>
            <field>
              <name>MODE2</name>
              <bitOffset>4</bitOffset>
              <bitWidth>4</bitWidth>
            </field>
          </fields>
        </register>
      </registers>
    </peripheral>
  </peripherals>
</device>`

func loadTestManager(t *testing.T) *svd.Manager {
	t.Helper()
	m := svd.New()
	test.ExpectSuccess(t, m.LoadSVD([]byte(testDeviceXML)))
	return m
}

// TestFieldRMW reproduces the literal field-write scenario: peripheral base
// 0x4002_1000, register offset 0x00, size 32, field bit_offset 4 bit_width
// 4, preloaded memory 0xFFFF_FFAF, write field value 0x5 -> memory becomes
// 0xFFFF_FF5F.
func TestFieldRMW(t *testing.T) {
	m := loadTestManager(t)
	core := memtest.New(target.Info{})

	seed := make([]byte, 4)
	binary.LittleEndian.PutUint32(seed, 0xFFFFFFAF)
	core.WriteSeed(0x40021000, seed)

	test.ExpectSuccess(t, m.WritePeripheralField(core, "GPIOA", "MODER", "MODE2", 0x5))

	b, err := core.ReadMemory(0x40021000, 4)
	test.ExpectSuccess(t, err)
	test.Equate(t, binary.LittleEndian.Uint32(b), uint32(0xFFFFFF5F))

	vals, err := m.ReadPeripheralValues(core, "GPIOA")
	test.ExpectSuccess(t, err)
	test.Equate(t, len(vals), 1)
	test.Equate(t, vals[0].Absent, false)

	regs, err := m.GetRegistersInfo("GPIOA")
	test.ExpectSuccess(t, err)
	field := regs[0].Fields[0]
	test.Equate(t, field.Decode(vals[0].Value), uint64(0x5))
}

// TestFieldDecodeProperty checks FieldInfo.Decode((v<<off)&mask) == v for
// every v within the field's width.
func TestFieldDecodeProperty(t *testing.T) {
	f := svd.FieldInfo{BitOffset: 4, BitWidth: 4}
	mask := uint64(0xF) << f.BitOffset
	for v := uint64(0); v < 16; v++ {
		got := f.Decode((v << f.BitOffset) & mask)
		test.Equate(t, got, v)
	}
}

func TestListPeripherals(t *testing.T) {
	m := loadTestManager(t)
	names, err := m.ListPeripherals()
	test.ExpectSuccess(t, err)
	test.Equate(t, names, []string{"GPIOA"})
}

func TestReadPeripheralValuesMarksAbsentOnReadFailure(t *testing.T) {
	m := loadTestManager(t)
	core := memtest.New(target.Info{})
	core.FailReadsAt(0x40021000)

	vals, err := m.ReadPeripheralValues(core, "GPIOA")
	test.ExpectSuccess(t, err)
	test.Equate(t, len(vals), 1)
	test.Equate(t, vals[0].Absent, true)
}

func TestWritePeripheralFieldUnknownField(t *testing.T) {
	m := loadTestManager(t)
	core := memtest.New(target.Info{})
	test.ExpectFailure(t, m.WritePeripheralField(core, "GPIOA", "MODER", "NOPE", 1))
}

const testDevice64XML = `<?xml version="1.0" encoding="utf-8"?>
<device>
  <peripherals>
    <peripheral>
      <name>TIMER</name>
      <baseAddress>0x50000000</baseAddress>
      <registers>
        <register>
          <name>COUNT</name>
          <addressOffset>0x00</addressOffset>
          <size>64</size>
          <fields>
            <field>
              <name>LOW</name>
              <bitOffset>0</bitOffset>
              <bitWidth>32</bitWidth>
            </field>
          </fields>
        </register>
      </registers>
    </peripheral>
  </peripherals>
</device>`

func TestSixtyFourBitRegisterRoundTrips(t *testing.T) {
	m := svd.New()
	test.ExpectSuccess(t, m.LoadSVD([]byte(testDevice64XML)))
	core := memtest.New(target.Info{})

	seed := make([]byte, 8)
	binary.LittleEndian.PutUint64(seed, 0x1122334455667788)
	core.WriteSeed(0x50000000, seed)

	vals, err := m.ReadPeripheralValues(core, "TIMER")
	test.ExpectSuccess(t, err)
	test.Equate(t, len(vals), 1)
	test.Equate(t, vals[0].Absent, false)
	test.Equate(t, vals[0].Value, uint64(0x1122334455667788))

	test.ExpectSuccess(t, m.WritePeripheralField(core, "TIMER", "COUNT", "LOW", 0xCAFEBABE))

	b, err := core.ReadMemory(0x50000000, 8)
	test.ExpectSuccess(t, err)
	test.Equate(t, binary.LittleEndian.Uint64(b), uint64(0x11223344CAFEBABE))
}

func TestUnknownPeripheral(t *testing.T) {
	m := loadTestManager(t)
	_, err := m.GetRegistersInfo("NOPE")
	test.ExpectFailure(t, err)
}
