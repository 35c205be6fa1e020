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

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// SWDBitBang drives an SWD link by toggling two GPIO lines directly,
// for hosts (e.g. a Raspberry Pi, or an FTDI adapter exposed through
// periph.io's gpioreg) with no vendor probe driver available.
type SWDBitBang struct {
	Clk, DIO gpio.PinIO
	period   time.Duration
}

// Open asserts the idle SWD line state: clock low, data line high (driven).
func (s *SWDBitBang) Open() error {
	if err := s.Clk.Out(gpio.Low); err != nil {
		return err
	}
	return s.DIO.Out(gpio.High)
}

func (s *SWDBitBang) Close() error { return nil }

// SelectProtocol only accepts SWD: this transport has no JTAG TMS line.
func (s *SWDBitBang) SelectProtocol(p Protocol) error {
	if p != SWD {
		return errkind.Errorf(errkind.ProtocolSelectFailed, "bit-banged transport only supports swd")
	}
	return nil
}

// SetSpeed derives the half-clock-period delay from the requested
// frequency via physic.Frequency's Duration conversion.
func (s *SWDBitBang) SetSpeed(hz uint32) error {
	freq := physic.Frequency(hz) * physic.Hertz
	s.period = freq.Period() / 2
	return nil
}

func (s *SWDBitBang) clockBit(out gpio.Level) (gpio.Level, error) {
	if err := s.DIO.Out(out); err != nil {
		return gpio.Low, err
	}
	time.Sleep(s.period)
	if err := s.Clk.Out(gpio.High); err != nil {
		return gpio.Low, err
	}
	in := s.DIO.Read()
	time.Sleep(s.period)
	if err := s.Clk.Out(gpio.Low); err != nil {
		return gpio.Low, err
	}
	return in, nil
}

// TryAttach clocks a 56-cycle SWD line reset with the data line held high
// and then returns an error: no JTAG-to-SWD switch sequence is sent and the
// target's IDCODE is not read. This bit-banged path is not wired to a
// concrete target.Core implementation -- it is left as the transport seam a
// real deployment supplies.
func (s *SWDBitBang) TryAttach(chip string, underReset bool) (target.Core, target.Info, error) {
	for i := 0; i < 56; i++ {
		if _, err := s.clockBit(gpio.High); err != nil {
			return nil, target.Info{}, errkind.Wrap(errkind.AttachFailed, err)
		}
	}
	return nil, target.Info{}, errkind.Errorf(errkind.AttachFailed, "bit-banged swd target not connected")
}
