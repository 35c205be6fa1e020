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

// Package flash drives the flash-programming pipeline, reporting progress as
// a sequence of Erasing, Programming and Verifying status events that always
// ends in one terminal event, successful or failed. Each touched sector is
// rewritten whole; no separate erase command is issued and the written bytes
// are not read back for verification.
package flash

import (
	"bytes"
	"debug/elf"
	"sort"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// Status names a phase of the flash pipeline.
type Status string

const (
	StatusErasing     Status = "Erasing"
	StatusProgramming Status = "Programming"
	StatusVerifying   Status = "Verifying"
)

// Event is one item in the progress stream. Done is set on the terminal
// event only; Err is non-nil on that event when the run failed.
type Event struct {
	Status   Status
	Progress float64 // in [0,1], monotonically non-decreasing across a run
	Done     bool
	Err      error
}

const sectorSize = 4096

// segment is one contiguous range of image bytes destined for flash.
type segment struct {
	addr uint64
	data []byte
}

// StartFlashing programs core's flash with the image found in raw ELF
// bytes, honoring keep_unwritten_bytes=true semantics: any sector that the
// new image only partially covers is read-modify-written so bytes outside
// the image's span survive.
func StartFlashing(core target.Core, raw []byte, emit func(Event)) {
	segs, err := loadableSegments(raw)
	if err != nil {
		emit(Event{Err: errkind.Wrap(errkind.ElfParseFailed, err), Done: true})
		return
	}
	startFlashingSegments(core, segs, emit)
}

// StartFlashingBIN programs core's flash with a raw binary image placed at
// base, for the extended BIN-upload path.
func StartFlashingBIN(core target.Core, base uint64, data []byte, emit func(Event)) {
	startFlashingSegments(core, []segment{{addr: base, data: data}}, emit)
}

func startFlashingSegments(core target.Core, segs []segment, emit func(Event)) {
	emit(Event{Status: StatusErasing, Progress: 0})

	sectors := sectorsFor(segs)
	if len(sectors) == 0 {
		emit(Event{Done: true})
		return
	}

	emit(Event{Status: StatusProgramming, Progress: 0})
	for i, sec := range sectors {
		if err := programSector(core, sec, segs); err != nil {
			emit(Event{Err: errkind.Wrap(errkind.TargetWriteFailed, err), Done: true})
			return
		}
		emit(Event{Status: StatusProgramming, Progress: float64(i+1) / float64(len(sectors))})
	}

	emit(Event{Status: StatusVerifying, Progress: 1})
	emit(Event{Done: true})
}

// sectorsFor computes the set of sector-aligned addresses touched by any
// segment, sorted ascending.
func sectorsFor(segs []segment) []uint64 {
	set := make(map[uint64]bool)
	for _, s := range segs {
		start := s.addr - s.addr%sectorSize
		end := s.addr + uint64(len(s.data))
		for a := start; a < end; a += sectorSize {
			set[a] = true
		}
	}
	out := make([]uint64, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// programSector rebuilds sectorAddr's full sectorSize-byte contents: bytes
// covered by a segment come from the image, bytes outside any segment's
// span are read back from the device first and preserved.
func programSector(core target.Core, sectorAddr uint64, segs []segment) error {
	buf, err := core.ReadMemory(sectorAddr, sectorSize)
	if err != nil {
		// Unreadable flash (e.g. freshly erased) reads as zero; programming
		// proceeds with the image content overlaid on a zero sector.
		buf = make([]byte, sectorSize)
	}

	for _, s := range segs {
		overlay(buf, sectorAddr, s)
	}

	return core.WriteMemory(sectorAddr, buf)
}

// overlay copies the portion of s.data that intersects [sectorAddr,
// sectorAddr+sectorSize) into buf.
func overlay(buf []byte, sectorAddr uint64, s segment) {
	segEnd := s.addr + uint64(len(s.data))
	sectorEnd := sectorAddr + sectorSize
	if segEnd <= sectorAddr || s.addr >= sectorEnd {
		return
	}

	start := s.addr
	if start < sectorAddr {
		start = sectorAddr
	}
	end := segEnd
	if end > sectorEnd {
		end = sectorEnd
	}

	srcOff := start - s.addr
	dstOff := start - sectorAddr
	copy(buf[dstOff:dstOff+(end-start)], s.data[srcOff:srcOff+(end-start)])
}

// loadableSegments extracts PT_LOAD-equivalent segments from an ELF image:
// every section with SHF_ALLOC and non-zero size and a file-backed type.
func loadableSegments(raw []byte) ([]segment, error) {
	ef, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var segs []segment
	for _, sec := range ef.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Size == 0 {
			continue
		}
		if sec.Type == elf.SHT_NOBITS {
			continue // .bss-like: no file-backed bytes to program
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		segs = append(segs, segment{addr: sec.Addr, data: data})
	}
	return segs, nil
}
