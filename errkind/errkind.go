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

// Package errkind classifies every error the session worker can produce into
// one of six kinds, so the command-dispatch boundary can wrap a manager's
// error into an Error(msg) event without inspecting message text. The kind
// taxonomy and the Errno/message split mirror the teacher's
// errors/categories.go + errors/messages.go pattern, adapted from the
// teacher's emulator categories (Debugger/CPU/Memory/...) to the six kinds
// named in the command/event contract (Transport/Protocol/Decode/
// InvariantViolation/Resource/Bounds).
package errkind

import (
	"fmt"
	"strings"
)

// Kind is one of the six error kinds in the command/event contract.
type Kind int

const (
	Transport Kind = iota
	Protocol
	Decode
	InvariantViolation
	Resource
	Bounds
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "Transport"
	case Protocol:
		return "Protocol"
	case Decode:
		return "Decode"
	case InvariantViolation:
		return "InvariantViolation"
	case Resource:
		return "Resource"
	case Bounds:
		return "Bounds"
	default:
		return "Unknown"
	}
}

// Errno enumerates the concrete error numbers that make up each Kind, listed
// under a commented section header per kind.
type Errno int

const (
	// Transport
	ProbeOpenFailed Errno = iota
	ProbeWriteFailed
	ProbeReadFailed
	UsbEnumerationFailed

	// Protocol
	AttachFailed
	ProtocolSelectFailed
	SpeedSetFailed
	NoProbesMatched

	// Decode
	ElfParseFailed
	DwarfParseFailed
	SvdParseFailed
	MalformedCfi

	// InvariantViolation
	SymbolNotFound
	PeripheralNotFound
	RegisterNotFound
	FieldNotFound
	NoRtosDetected
	SvdNotLoaded
	BreakpointNotFound

	// Resource
	BreakpointSetFull
	RttNotAttached
	FlashInProgress

	// Bounds
	HexParseError
	RegisterIndexOutOfRange
	ChannelIndexOutOfRange
	UnsupportedRegisterSize

	// Transport (continued -- target-level I/O through an attached core)
	TargetReadFailed
	TargetWriteFailed
)

var kindOf = map[Errno]Kind{
	ProbeOpenFailed:      Transport,
	ProbeWriteFailed:     Transport,
	ProbeReadFailed:      Transport,
	UsbEnumerationFailed: Transport,

	AttachFailed:         Protocol,
	ProtocolSelectFailed: Protocol,
	SpeedSetFailed:       Protocol,
	NoProbesMatched:      Protocol,

	ElfParseFailed:   Decode,
	DwarfParseFailed: Decode,
	SvdParseFailed:   Decode,
	MalformedCfi:     Decode,

	SymbolNotFound:     InvariantViolation,
	PeripheralNotFound: InvariantViolation,
	RegisterNotFound:   InvariantViolation,
	FieldNotFound:      InvariantViolation,
	NoRtosDetected:     InvariantViolation,
	SvdNotLoaded:       InvariantViolation,
	BreakpointNotFound: InvariantViolation,

	BreakpointSetFull: Resource,
	RttNotAttached:    Resource,
	FlashInProgress:   Resource,

	HexParseError:            Bounds,
	RegisterIndexOutOfRange:  Bounds,
	ChannelIndexOutOfRange:   Bounds,
	UnsupportedRegisterSize:  Bounds,

	TargetReadFailed:  Transport,
	TargetWriteFailed: Transport,
}

var messages = map[Errno]string{
	ProbeOpenFailed:      "probe open failed: %v",
	ProbeWriteFailed:      "probe write failed: %v",
	ProbeReadFailed:       "probe read failed: %v",
	UsbEnumerationFailed:  "usb enumeration failed: %v",

	AttachFailed:         "attach failed: %v",
	ProtocolSelectFailed: "protocol select failed: %v",
	SpeedSetFailed:       "speed set failed: %v",
	NoProbesMatched:      "no probe matched chip %q",

	ElfParseFailed:   "elf parse failed: %v",
	DwarfParseFailed: "dwarf parse failed: %v",
	SvdParseFailed:   "svd parse failed: %v",
	MalformedCfi:     "malformed call frame information: %v",

	SymbolNotFound:     "symbol not found: %v",
	PeripheralNotFound: "peripheral not found: %v",
	RegisterNotFound:   "register not found: %v",
	FieldNotFound:      "field not found: %v",
	NoRtosDetected:     "no rtos detected in loaded symbols",
	SvdNotLoaded:       "no svd device description loaded",
	BreakpointNotFound: "no breakpoint set at address %v",

	BreakpointSetFull: "hardware breakpoint slots exhausted",
	RttNotAttached:    "rtt not attached",
	FlashInProgress:   "a flash operation is already in progress",

	HexParseError:            "invalid hex value %q",
	RegisterIndexOutOfRange:  "register index %d out of range",
	ChannelIndexOutOfRange:   "channel index %d out of range",
	UnsupportedRegisterSize:  "unsupported register size %d",

	TargetReadFailed:  "target memory read failed: %v",
	TargetWriteFailed: "target memory write failed: %v",
}

// classified is the error implementation produced by Errorf.
type classified struct {
	errno Errno
	msg   string
}

func (c classified) Error() string { return c.msg }

// Kind reports the Kind of err, if it was produced by this package.
func (c classified) Kind() Kind { return kindOf[c.errno] }

// Errno reports the Errno of err, if it was produced by this package.
func (c classified) Errno() Errno { return c.errno }

// Errorf constructs an error classified under errno, formatting its
// registered message pattern with args.
func Errorf(errno Errno, args ...interface{}) error {
	pattern, ok := messages[errno]
	if !ok {
		pattern = "unclassified error"
	}
	return classified{errno: errno, msg: fmt.Sprintf(pattern, args...)}
}

// Wrap classifies an existing error under errno, prefixing its message.
func Wrap(errno Errno, err error) error {
	if err == nil {
		return nil
	}
	pattern, ok := messages[errno]
	if !ok {
		pattern = "unclassified error"
	}
	head := strings.SplitN(pattern, "%", 2)[0]
	return classified{errno: errno, msg: fmt.Sprintf("%s%v", head, err)}
}

// KindOf reports the Kind of err if it was produced by this package, and
// whether it was.
func KindOf(err error) (Kind, bool) {
	if c, ok := err.(classified); ok {
		return c.Kind(), true
	}
	return 0, false
}

// Is reports whether err was produced by this package with the given errno.
func Is(err error, errno Errno) bool {
	c, ok := err.(classified)
	return ok && c.errno == errno
}
