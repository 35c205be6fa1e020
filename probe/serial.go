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

package probe

import (
	"time"

	goserial "github.com/daedaluz/goserial"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// SerialBridge drives a probe that exposes its debug protocol over a plain
// serial port rather than USB (e.g. a bootloader debug UART bridge).
type SerialBridge struct {
	DevicePath string
	port       *goserial.Port
}

func (s *SerialBridge) Open() error {
	opts := goserial.NewOptions().SetReadTimeout(500 * time.Millisecond)
	p, err := goserial.Open(s.DevicePath, opts)
	if err != nil {
		return err
	}
	s.port = p
	return nil
}

func (s *SerialBridge) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// SelectProtocol only accepts SWD: a serial bridge speaks a single
// vendor-defined debug protocol over the wire, not SWD/JTAG wire-format
// distinctions.
func (s *SerialBridge) SelectProtocol(p Protocol) error {
	if p != SWD {
		return errkind.Errorf(errkind.ProtocolSelectFailed, "serial bridge transport only supports swd")
	}
	return nil
}

// SetSpeed is a no-op: the bridge's own baud rate governs the wire, not the
// SWD clock requested by the attach negotiation.
func (s *SerialBridge) SetSpeed(hz uint32) error { return nil }

// TryAttach is not wired to a concrete target.Core: it is left as the
// transport seam a deployment supplies alongside its bridge protocol.
func (s *SerialBridge) TryAttach(chip string, underReset bool) (target.Core, target.Info, error) {
	if s.port == nil {
		return nil, target.Info{}, errkind.Errorf(errkind.ProbeOpenFailed, "serial bridge not open")
	}
	return nil, target.Info{}, errkind.Errorf(errkind.AttachFailed, "serial bridge target not connected")
}
