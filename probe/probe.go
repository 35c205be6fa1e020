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

// Package probe enumerates debug probes and negotiates attachment to a
// target core across SWD/JTAG and a heuristic chip-ID fallback.
package probe

import (
	"github.com/google/gousb"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// ProbeType classifies a probe by the debug-link chipset it speaks, the way
// a connect() routine branches on vendor ID to pick a transport driver.
type ProbeType string

const (
	StLink   ProbeType = "st-link"
	JLink    ProbeType = "j-link"
	CmsisDap ProbeType = "cmsis-dap"
	Other    ProbeType = "other"
)

// stLinkVendorID, jLinkVendorID, and cmsisDapVendorID are the USB vendor IDs
// used to classify a probe's Kind once its (vendor, product) pair is known
// to Enumerate via knownProbes; 0x0D28 is NXP/ARM's CMSIS-DAP vendor ID,
// used by mbed-family and many Cortex-M eval boards' onboard debug probes.
const (
	stLinkVendorID   gousb.ID = 0x0483
	jLinkVendorID    gousb.ID = 0x1366
	cmsisDapVendorID gousb.ID = 0x0D28
)

// knownProbes maps the USB vendor/product IDs of common debug probes to a
// human-readable name, for Enumerate's ProbeInfo.Name.
var knownProbes = map[[2]gousb.ID]string{
	{stLinkVendorID, 0x3748}:   "ST-Link/V2",
	{stLinkVendorID, 0x374B}:   "ST-Link/V2-1",
	{stLinkVendorID, 0x3754}:   "ST-Link/V3",
	{jLinkVendorID, 0x0101}:    "J-Link",
	{jLinkVendorID, 0x1015}:    "J-Link",
	{cmsisDapVendorID, 0x0204}: "CMSIS-DAP",
}

// classify maps a probe's vendor ID to its ProbeType.
func classify(vendor gousb.ID) ProbeType {
	switch vendor {
	case stLinkVendorID:
		return StLink
	case jLinkVendorID:
		return JLink
	case cmsisDapVendorID:
		return CmsisDap
	default:
		return Other
	}
}

// ProbeInfo describes one enumerated USB debug probe.
type ProbeInfo struct {
	Index     int
	Name      string
	VendorID  uint16
	ProductID uint16
	Serial    *string
	Kind      ProbeType
}

// Enumerate lists USB-attached debug probes recognized from their
// vendor/product ID, in discovery order. A matched device is opened only
// long enough to read its serial-number string descriptor -- gousb exposes
// that through the opened Device, not the bare DeviceDesc.
func Enumerate() ([]ProbeInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var probes []ProbeInfo
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if name, ok := knownProbes[[2]gousb.ID{desc.Vendor, desc.Product}]; ok {
			probes = append(probes, ProbeInfo{
				Index:     len(probes),
				Name:      name,
				VendorID:  uint16(desc.Vendor),
				ProductID: uint16(desc.Product),
				Kind:      classify(desc.Vendor),
			})
			return true
		}
		return false
	})
	for i, d := range devs {
		if serial, serr := d.SerialNumber(); serr == nil && serial != "" {
			probes[i].Serial = &serial
		}
		d.Close()
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.UsbEnumerationFailed, err)
	}
	return probes, nil
}

// Protocol is a wire protocol a probe can speak to a target's debug port.
type Protocol string

const (
	SWD Protocol = "swd"
	JTAG Protocol = "jtag"
)

// heuristicChipIDs is the fixed fallback list tried under SWD normal attach
// when the caller leaves chip as "auto" and every protocol attempt fails.
var heuristicChipIDs = []string{"STM32L476RGTx", "STM32F407VGTx", "Cortex-M"}

// Driver is the narrow surface probe.Attach needs from a concrete probe
// backend: open/close the USB or serial link, select a wire protocol, set
// its clock speed, and attempt attachment to a named chip (or "auto").
type Driver interface {
	Open() error
	Close() error
	SelectProtocol(p Protocol) error
	SetSpeed(hz uint32) error
	TryAttach(chip string, underReset bool) (target.Core, target.Info, error)
}

// Attach performs the multi-stage discovery described for the Attach
// command: an explicit protocol tries a normal attach then (for chip=="auto")
// a reset-asserted retry; no protocol iterates [SWD, JTAG] the same way; and
// if every protocol attempt failed and chip=="auto", a fixed heuristic chip
// list is tried under SWD. The driver is reopened before each retry since a
// failed attach can leave it unusable.
func Attach(d Driver, chip string, protocol *Protocol, underReset bool) (target.Core, target.Info, error) {
	auto := chip == "auto" || chip == ""

	if protocol != nil {
		core, info, err := attemptAttach(d, *protocol, chip, underReset)
		if err == nil {
			return core, info, nil
		}
		if auto && !underReset {
			return attemptAttach(d, *protocol, chip, true)
		}
		return nil, target.Info{}, err
	}

	var lastErr error
	for _, p := range []Protocol{SWD, JTAG} {
		core, info, err := attemptAttachAtSpeed(d, p, chip, false)
		if err == nil {
			return core, info, nil
		}
		lastErr = err
		if auto {
			if core, info, err := attemptAttachAtSpeed(d, p, chip, true); err == nil {
				return core, info, nil
			} else {
				lastErr = err
			}
		}
	}

	if auto {
		for _, candidate := range heuristicChipIDs {
			core, info, err := attemptAttachAtSpeed(d, SWD, candidate, false)
			if err == nil {
				return core, info, nil
			}
			lastErr = err
		}
	}

	return nil, target.Info{}, errkind.Wrap(errkind.AttachFailed, lastErr)
}

func attemptAttach(d Driver, p Protocol, chip string, underReset bool) (target.Core, target.Info, error) {
	if err := d.Open(); err != nil {
		return nil, target.Info{}, errkind.Wrap(errkind.ProbeOpenFailed, err)
	}
	defer d.Close()

	if err := d.SelectProtocol(p); err != nil {
		return nil, target.Info{}, errkind.Wrap(errkind.ProtocolSelectFailed, err)
	}
	return d.TryAttach(chip, underReset)
}

const defaultAttachSpeedHz = 1_000_000

func attemptAttachAtSpeed(d Driver, p Protocol, chip string, underReset bool) (target.Core, target.Info, error) {
	if err := d.Open(); err != nil {
		return nil, target.Info{}, errkind.Wrap(errkind.ProbeOpenFailed, err)
	}
	defer d.Close()

	if err := d.SelectProtocol(p); err != nil {
		return nil, target.Info{}, errkind.Wrap(errkind.ProtocolSelectFailed, err)
	}
	if err := d.SetSpeed(defaultAttachSpeedHz); err != nil {
		return nil, target.Info{}, errkind.Wrap(errkind.SpeedSetFailed, err)
	}
	return d.TryAttach(chip, underReset)
}
