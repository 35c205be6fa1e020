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

// Package itm configures SWO trace routing and drains ITM trace bytes,
// ARM-only.
package itm

import (
	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// Manager holds whether SWO routing has been configured and at what baud.
type Manager struct {
	enabled bool
	baud    uint32
}

func New() *Manager {
	return &Manager{}
}

// EnableItm configures SWO trace routing at baud. Non-ARM targets are
// rejected outright.
func (m *Manager) EnableItm(core target.Core, baud uint32) error {
	if !core.Info().Architecture.IsArm() {
		return errkind.Errorf(errkind.AttachFailed, "itm requires an arm target")
	}
	m.enabled = true
	m.baud = baud
	return nil
}

// Enabled reports whether SWO routing is active.
func (m *Manager) Enabled() bool { return m.enabled }

// Packet is one drain of raw ITM/SWO trace bytes.
type Packet struct {
	Bytes []byte
}

// Drain pulls whatever trace bytes core's probe-level SWO FIFO holds. This
// implementation models the FIFO as a core-exposed trace-byte source via
// ReadMemory at a sentinel address; a real probe backend replaces this with
// its own SWO pull API.
func (m *Manager) Drain(core target.Core, fifoAddr uint64, maxBytes int) (Packet, error) {
	if !m.enabled {
		return Packet{}, errkind.Errorf(errkind.AttachFailed, "itm not enabled")
	}
	b, err := core.ReadMemory(fifoAddr, maxBytes)
	if err != nil {
		return Packet{}, errkind.Wrap(errkind.TargetReadFailed, err)
	}
	return Packet{Bytes: b}, nil
}
