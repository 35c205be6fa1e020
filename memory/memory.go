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

// Package memory is a stateless facade over a live target.Core for the
// word-sized and block reads/writes the session worker issues on behalf of
// ReadMemory/WriteMemory commands.
package memory

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// Manager is a stateless facade; it holds no state of its own beyond the
// Core it was constructed with.
type Manager struct {
	core target.Core
}

func New(core target.Core) *Manager {
	return &Manager{core: core}
}

// ReadBlock pre-allocates the result buffer before probing, per spec.
func (m *Manager) ReadBlock(addr uint64, length int) ([]byte, error) {
	buf := make([]byte, length)
	data, err := m.core.ReadMemory(addr, length)
	if err != nil {
		return nil, errkind.Wrap(errkind.ProbeReadFailed, err)
	}
	copy(buf, data)
	return buf, nil
}

func (m *Manager) WriteBlock(addr uint64, data []byte) error {
	if err := m.core.WriteMemory(addr, data); err != nil {
		return errkind.Wrap(errkind.ProbeWriteFailed, err)
	}
	return nil
}

func (m *Manager) Read8(addr uint64) (uint8, error) {
	b, err := m.ReadBlock(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *Manager) Read16(addr uint64) (uint16, error) {
	b, err := m.ReadBlock(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *Manager) Read32(addr uint64) (uint32, error) {
	b, err := m.ReadBlock(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *Manager) Read64(addr uint64) (uint64, error) {
	b, err := m.ReadBlock(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *Manager) Write8(addr uint64, v uint8) error {
	return m.WriteBlock(addr, []byte{v})
}

func (m *Manager) Write32(addr uint64, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.WriteBlock(addr, b[:])
}

// FormatMemoryLine renders one classic hex-dump line: an 8-digit hex
// address, the bytes as space-separated hex pairs padded to 16 columns, and
// their ASCII rendering with non-printable bytes shown as '.'.
func FormatMemoryLine(addr uint64, data []byte) (address, hex, ascii string) {
	address = fmt.Sprintf("%08X", addr)

	var hb strings.Builder
	var ab strings.Builder
	for i := 0; i < 16; i++ {
		if i < len(data) {
			fmt.Fprintf(&hb, "%02X ", data[i])
			if data[i] >= 0x20 && data[i] < 0x7f {
				ab.WriteByte(data[i])
			} else {
				ab.WriteByte('.')
			}
		} else {
			hb.WriteString("   ")
		}
	}
	return address, hb.String(), ab.String()
}
