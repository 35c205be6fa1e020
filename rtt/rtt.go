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

// Package rtt scans target RAM for a Segger RTT control block, then polls
// its up-channels for data on each worker tick.
package rtt

import (
	"bytes"
	"encoding/binary"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

var signature = []byte("SEGGER RTT\000\000\000\000\000\000")

const (
	cbHeaderLen     = 24 // id[16] + maxUpChannels[4] + maxDownChannels[4]
	ringBufferDescLen = 24 // name_ptr, buf_ptr, size, write_off, read_off, flags
)

// ringBuffer describes one up- or down-channel's control-block fields.
type ringBuffer struct {
	bufAddr  uint64
	size     uint32
	writeOff uint32
	readOff  uint32
}

// Manager holds the discovered control-block address and channel layout
// once attached.
type Manager struct {
	cbAddr     uint64
	upChannels []ringBuffer
}

func New() *Manager {
	return &Manager{}
}

// Attached reports whether a control block has been found.
func (m *Manager) Attached() bool { return m.cbAddr != 0 }

// Attach scans [start, start+length) for the RTT control block signature,
// in 1024-byte windows, and records its up-channel layout on success. A
// signature that straddles two windows is not found.
func Attach(core target.Core, start uint64, length uint64) (*Manager, error) {
	const window = 1024
	for addr := start; addr < start+length; addr += window {
		size := window
		if rem := start + length - addr; rem < window {
			size = int(rem)
		}
		buf, err := core.ReadMemory(addr, size)
		if err != nil {
			continue
		}
		if idx := bytes.Index(buf, signature); idx >= 0 {
			cbAddr := addr + uint64(idx)
			m := &Manager{cbAddr: cbAddr}
			if err := m.loadChannels(core); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, errkind.Errorf(errkind.RttNotAttached)
}

func (m *Manager) loadChannels(core target.Core) error {
	header, err := core.ReadMemory(m.cbAddr, cbHeaderLen)
	if err != nil {
		return err
	}
	maxUp := binary.LittleEndian.Uint32(header[16:20])

	m.upChannels = make([]ringBuffer, 0, maxUp)
	base := m.cbAddr + cbHeaderLen
	for i := uint32(0); i < maxUp; i++ {
		addr := base + uint64(i)*ringBufferDescLen
		desc, err := core.ReadMemory(addr, ringBufferDescLen)
		if err != nil {
			return err
		}
		m.upChannels = append(m.upChannels, ringBuffer{
			bufAddr:  uint64(binary.LittleEndian.Uint32(desc[4:8])),
			size:     binary.LittleEndian.Uint32(desc[8:12]),
			writeOff: binary.LittleEndian.Uint32(desc[12:16]),
			readOff:  binary.LittleEndian.Uint32(desc[16:20]),
		})
	}
	return nil
}

// ChannelData is one non-empty read from an up-channel.
type ChannelData struct {
	Channel int
	Bytes   []byte
}

// Poll reads every up-channel once, emitting one ChannelData per channel
// that produced bytes. Read errors on an individual channel are dropped
// silently rather than failing the whole poll, to avoid event storms.
func (m *Manager) Poll(core target.Core) []ChannelData {
	var out []ChannelData
	for i := range m.upChannels {
		data, err := m.readChannel(core, i)
		if err != nil || len(data) == 0 {
			continue
		}
		out = append(out, ChannelData{Channel: i, Bytes: data})
	}
	return out
}

func (m *Manager) readChannel(core target.Core, ch int) ([]byte, error) {
	descAddr := m.cbAddr + cbHeaderLen + uint64(ch)*ringBufferDescLen
	desc, err := core.ReadMemory(descAddr, ringBufferDescLen)
	if err != nil {
		return nil, err
	}
	bufAddr := uint64(binary.LittleEndian.Uint32(desc[4:8]))
	size := binary.LittleEndian.Uint32(desc[8:12])
	writeOff := binary.LittleEndian.Uint32(desc[12:16])
	readOff := binary.LittleEndian.Uint32(desc[16:20])

	if size == 0 || writeOff == readOff {
		return nil, nil
	}

	var out []byte
	off := readOff
	for off != writeOff {
		b, err := core.ReadMemory(bufAddr+uint64(off), 1)
		if err != nil {
			return nil, err
		}
		out = append(out, b[0])
		off = (off + 1) % size
	}

	binary.LittleEndian.PutUint32(desc[16:20], writeOff)
	if err := core.WriteMemory(descAddr+16, desc[16:20]); err != nil {
		return nil, err
	}
	return out, nil
}

// Write writes data to down-channel ch, up to the channel's ring-buffer
// free space, returning the number of bytes actually written.
func (m *Manager) Write(core target.Core, ch int, data []byte) (int, error) {
	descAddr := m.cbAddr + cbHeaderLen + uint64(len(m.upChannels))*ringBufferDescLen + uint64(ch)*ringBufferDescLen
	desc, err := core.ReadMemory(descAddr, ringBufferDescLen)
	if err != nil {
		return 0, errkind.Wrap(errkind.TargetReadFailed, err)
	}
	bufAddr := uint64(binary.LittleEndian.Uint32(desc[4:8]))
	size := binary.LittleEndian.Uint32(desc[8:12])
	writeOff := binary.LittleEndian.Uint32(desc[12:16])
	readOff := binary.LittleEndian.Uint32(desc[16:20])

	if size == 0 {
		return 0, errkind.Errorf(errkind.ChannelIndexOutOfRange, ch)
	}

	free := size - 1 - (writeOff-readOff+size)%size
	n := uint32(len(data))
	if n > free {
		n = free
	}

	for i := uint32(0); i < n; i++ {
		off := (writeOff + i) % size
		if err := core.WriteMemory(bufAddr+uint64(off), data[i:i+1]); err != nil {
			return int(i), errkind.Wrap(errkind.TargetWriteFailed, err)
		}
	}

	newWriteOff := (writeOff + n) % size
	binary.LittleEndian.PutUint32(desc[12:16], newWriteOff)
	if err := core.WriteMemory(descAddr+12, desc[12:16]); err != nil {
		return int(n), errkind.Wrap(errkind.TargetWriteFailed, err)
	}
	return int(n), nil
}
