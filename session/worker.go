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

// Package session is the debug session engine: a single worker owns the
// probe/core connection and serializes every target interaction behind a
// command queue, broadcasting observations to any number of subscribers. It
// composes every subordinate manager package (memory, breakpoint, disasm,
// symbols, stack, rtos, svd, flash, rtt, itm, semihosting, trace).
package session

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aether-dbg/aether/assert"
	"github.com/aether-dbg/aether/breakpoint"
	"github.com/aether-dbg/aether/disasm"
	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/flash"
	"github.com/aether-dbg/aether/itm"
	"github.com/aether-dbg/aether/logger"
	"github.com/aether-dbg/aether/memory"
	"github.com/aether-dbg/aether/rtos"
	"github.com/aether-dbg/aether/rtt"
	"github.com/aether-dbg/aether/semihosting"
	"github.com/aether-dbg/aether/stack"
	"github.com/aether-dbg/aether/svd"
	"github.com/aether-dbg/aether/symbols"
	"github.com/aether-dbg/aether/target"
	"github.com/aether-dbg/aether/trace"
)

const tick = 10 * time.Millisecond
const plotSampleMinGap = 50 * time.Millisecond

// Plot is one named, typed periodic sample the client has requested. Address
// is resolved once at registration time, either by parsing Name as a hex
// literal or by looking it up as a symbol.
type Plot struct {
	Name    string
	Address uint64
	VarType string
}

// Worker owns the live core and every subordinate manager. It is
// constructed once a core is attached and run on its own goroutine; all
// target I/O happens only from that goroutine.
type Worker struct {
	core   target.Core
	sym    *symbols.Manager
	mem    *memory.Manager
	bp     *breakpoint.Manager
	dis    *disasm.Manager
	svdMgr *svd.Manager
	rttMgr *rtt.Manager
	itmMgr *itm.Manager
	trc    *trace.Manager

	commands chan Command
	bus      *Broadcaster

	plots           map[string]Plot
	lastPlotSample  time.Time
	semihostOn      bool
	flashInProgress bool
	tickCount       uint64
	itmFifoAddr     uint64

	ownerGoroutine uint64 // set on Run entry; every core access must stay on it
}

// New constructs a Worker around an already-attached core.
func New(core target.Core) *Worker {
	return &Worker{
		core:     core,
		sym:      symbols.New(),
		mem:      memory.New(core),
		bp:       breakpoint.New(core),
		dis:      disasm.New(core),
		svdMgr:   svd.New(),
		itmMgr:   itm.New(),
		trc:      trace.New(),
		commands: make(chan Command, 4096),
		bus:      NewBroadcaster(),
		plots:    make(map[string]Plot),
	}
}

// Subscribe returns a new independent event receiver. Subscribe before
// issuing a command whose outcome must be observed synchronously.
func (w *Worker) Subscribe() *Subscriber { return w.bus.Subscribe() }

// Submit enqueues cmd for the worker loop without blocking. A command that
// finds the queue full is dropped and logged; a command submitted after
// Exit has been processed is queued but never executed.
func (w *Worker) Submit(cmd Command) {
	select {
	case w.commands <- cmd:
	default:
		logger.Log("session", "command queue full, dropping command")
	}
}

// Run drains commands and performs periodic background work until Exit is
// received. It is meant to run on its own goroutine for the worker's
// lifetime.
func (w *Worker) Run() {
	w.ownerGoroutine = assert.GoroutineID()
	for {
		exit := w.drainCommands()
		if exit {
			return
		}
		w.periodicWork()
		time.Sleep(tick)
		w.tickCount++
	}
}

// drainCommands executes every command currently queued, in issue order,
// broadcasting every event each command generates before the next command
// begins. Reports whether Exit was received.
func (w *Worker) drainCommands() bool {
	for {
		select {
		case cmd := <-w.commands:
			if _, ok := cmd.(Exit); ok {
				return true
			}
			w.execute(cmd)
		default:
			return false
		}
	}
}

// execute runs a single command to completion, catching any manager error
// and broadcasting it as Error rather than letting it propagate, per the
// failure policy: per-command errors are non-fatal.
func (w *Worker) execute(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			w.bus.Send(Error{Message: "internal panic handling command"})
		}
	}()

	if !assert.OnGoroutine(w.ownerGoroutine) {
		panic("session: core access from outside the worker goroutine")
	}

	switch c := cmd.(type) {
	case Halt:
		if err := w.withTimeout(w.core.Halt, 100*time.Millisecond); err != nil {
			w.fail(err)
			return
		}
		pc, _ := w.core.ReadPC()
		_, reason := w.core.Status()
		w.bus.Send(Halted{PC: pc, Reason: reason})

	case Resume:
		if err := w.core.Resume(); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Resumed{})

	case Step, StepOver, StepInto, StepOut:
		if err := w.core.Step(); err != nil {
			w.fail(err)
			return
		}
		pc, _ := w.core.ReadPC()
		w.bus.Send(Halted{PC: pc, Reason: target.HaltStep})

	case Reset:
		if err := w.core.Reset(); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Resumed{})

	case ReadRegister:
		v, err := w.core.ReadRegister(c.Register)
		if err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(RegisterValue{Register: c.Register, Value: v})

	case WriteRegister:
		if err := w.core.WriteRegister(c.Register, c.Value); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(RegisterValue{Register: c.Register, Value: c.Value})

	case ReadMemory:
		data, err := w.mem.ReadBlock(c.Address, c.Length)
		if err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(MemoryContent{Address: c.Address, Data: data})

	case WriteMemory:
		if err := w.mem.WriteBlock(c.Address, c.Data); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(MemoryContent{Address: c.Address, Data: c.Data})

	case Disassemble:
		insns, err := w.dis.Disassemble(w.core.Info().Architecture, c.Address, c.Count)
		if err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Disassembly{Instructions: insns})

	case SetBreakpoint:
		if err := w.bp.Set(c.Address); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Breakpoints{Addresses: w.bp.List()})

	case ClearBreakpoint:
		if err := w.bp.Clear(c.Address); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Breakpoints{Addresses: w.bp.List()})

	case ListBreakpoints:
		w.bus.Send(Breakpoints{Addresses: w.bp.List()})

	case LoadSymbols:
		if err := w.sym.LoadSymbols(c.Raw); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(SymbolsLoaded{})

	case LoadSvd:
		if err := w.svdMgr.LoadSVD(c.Raw); err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(SvdLoaded{})

	case LookupSource:
		src, ok := w.sym.Lookup(c.PC)
		w.bus.Send(SourceLocation{File: src.File, Line: src.Line, PC: c.PC, Ok: ok})

	case ToggleBreakpointAtSource:
		addr, ok := w.sym.GetAddress(c.File, c.Line)
		if !ok {
			w.fail(errkind.Errorf(errkind.SymbolNotFound, c.File))
			return
		}
		if err := w.bp.Toggle(addr); err != nil {
			w.fail(err)
			return
		}
		addrs := w.bp.List()
		w.bus.Send(Breakpoints{Addresses: addrs})
		w.bus.Send(BreakpointLocations{Locations: w.resolveBreakpointLocations(addrs)})

	case GetTasks:
		tasks, err := rtos.GetTasks(w.core, w.sym)
		if err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Tasks{Tasks: tasks})

	case GetPeripherals:
		names, err := w.svdMgr.ListPeripherals()
		if err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Peripherals{Names: names})

	case GetRegisters:
		regs, err := w.svdMgr.GetRegistersInfo(c.Peripheral)
		if err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(Registers{Registers: regs})

	case ReadPeripheralValues:
		vals, err := w.svdMgr.ReadPeripheralValues(w.core, c.Peripheral)
		if err != nil {
			w.fail(err)
			return
		}
		w.bus.Send(PeripheralValues{Peripheral: c.Peripheral, Values: vals})

	case WritePeripheralField:
		if err := w.svdMgr.WritePeripheralField(w.core, c.Peripheral, c.Register, c.Field, c.Value); err != nil {
			w.fail(err)
			return
		}
		vals, err := w.svdMgr.ReadPeripheralValues(w.core, c.Peripheral)
		if err == nil {
			w.bus.Send(PeripheralValues{Peripheral: c.Peripheral, Values: vals})
		}

	case RttAttach:
		m, err := rtt.Attach(w.core, c.ScanStart, c.ScanLength)
		if err != nil {
			w.fail(err)
			return
		}
		w.rttMgr = m
		w.bus.Send(RttAttached{})

	case RttWrite:
		if w.rttMgr == nil {
			w.fail(errkind.Errorf(errkind.RttNotAttached))
			return
		}
		if _, err := w.rttMgr.Write(w.core, c.Channel, c.Bytes); err != nil {
			w.fail(err)
			return
		}

	case AddPlot:
		addr, ok := resolvePlotAddress(w.sym, c.Name)
		if !ok {
			w.fail(errkind.Errorf(errkind.SymbolNotFound, c.Name))
			return
		}
		w.plots[c.Name] = Plot{Name: c.Name, Address: addr, VarType: c.VarType}

	case RemovePlot:
		delete(w.plots, c.Name)

	case PollStatus:
		status, _ := w.core.Status()
		pc, _ := w.core.ReadPC()
		w.bus.Send(StatusEvent{Halted: status == target.Halted, PC: pc, Core: status})

	case StartFlashing:
		if w.flashInProgress {
			w.fail(errkind.Errorf(errkind.FlashInProgress))
			return
		}
		w.flashInProgress = true
		flash.StartFlashing(w.core, c.Raw, func(ev flash.Event) {
			w.emitFlashEvent(ev)
		})
		w.flashInProgress = false

	case EnableSemihosting:
		w.semihostOn = true

	case EnableItm:
		if err := w.itmMgr.EnableItm(w.core, c.Baud); err != nil {
			w.fail(err)
			return
		}
		w.itmFifoAddr = c.FifoAddr

	case EnableTrace:
		w.trc.Enable(trace.Config{Enabled: c.Enabled, SamplePeriod: c.SamplePeriod})

	case ListProbes, Attach:
		// Both precede a live core: ListProbes is answered directly against
		// the probe package, and a successful Attach is what produces the
		// core a Worker is constructed around. Neither is meaningful once a
		// Worker is already running.

	default:
		_ = c
	}
}

func (w *Worker) emitFlashEvent(ev flash.Event) {
	switch {
	case ev.Err != nil:
		w.bus.Send(Error{Message: ev.Err.Error()})
	case ev.Done:
		w.bus.Send(FlashDone{})
	case ev.Status != "":
		w.bus.Send(FlashStatus{Status: ev.Status})
		w.bus.Send(FlashProgress{Progress: ev.Progress})
	default:
		w.bus.Send(FlashProgress{Progress: ev.Progress})
	}
}

func (w *Worker) fail(err error) {
	w.bus.Send(Error{Message: err.Error()})
}

func (w *Worker) withTimeout(fn func() error, d time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		return errkind.Errorf(errkind.ProbeWriteFailed, "halt timed out")
	}
}

// periodicWork runs at most once per tick: RTT drain (if attached),
// semihosting trap servicing, and plot sampling gated by a minimum
// inter-invocation gap.
func (w *Worker) periodicWork() {
	if w.rttMgr != nil {
		for _, cd := range w.rttMgr.Poll(w.core) {
			w.bus.Send(RttData{Channel: cd.Channel, Bytes: cd.Bytes})
		}
	}

	if w.semihostOn {
		w.pollSemihosting()
	}

	w.sampleTrace()

	if time.Since(w.lastPlotSample) >= plotSampleMinGap && len(w.plots) > 0 {
		w.lastPlotSample = time.Now()
		for _, p := range w.plots {
			w.samplePlot(p)
		}
	}
}

// resolveBreakpointLocations resolves each breakpoint address back to a
// source file/line, for clients that display breakpoints by location
// rather than raw address.
func (w *Worker) resolveBreakpointLocations(addrs []uint64) []BreakpointLocation {
	locs := make([]BreakpointLocation, len(addrs))
	for i, addr := range addrs {
		locs[i] = BreakpointLocation{Address: addr}
		if src, ok := w.sym.Lookup(addr); ok {
			locs[i].File = src.File
			locs[i].Line = src.Line
		}
	}
	return locs
}

// resolvePlotAddress resolves a plot's requested name to a target address,
// either as a 0x-prefixed hex literal or as a symbol name looked up in the
// loaded ELF's symbol table.
func resolvePlotAddress(sym *symbols.Manager, name string) (uint64, bool) {
	if strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") {
		v, err := strconv.ParseUint(name[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	if s, ok := sym.LookupSymbol(name); ok {
		return s.Address, true
	}
	return 0, false
}

// plotVarTypeSize returns the byte width a plot's declared VarType reads,
// or 0 for an unrecognized type.
func plotVarTypeSize(varType string) int {
	switch varType {
	case "u8", "i8":
		return 1
	case "u16", "i16":
		return 2
	case "u32", "i32", "f32":
		return 4
	case "u64", "i64", "f64":
		return 8
	default:
		return 0
	}
}

// decodePlotValue interprets data as varType and returns it as a float64
// for uniform transport in a PlotData event.
func decodePlotValue(data []byte, varType string) (float64, error) {
	switch varType {
	case "u8":
		return float64(data[0]), nil
	case "i8":
		return float64(int8(data[0])), nil
	case "u16":
		return float64(binary.LittleEndian.Uint16(data)), nil
	case "i16":
		return float64(int16(binary.LittleEndian.Uint16(data))), nil
	case "u32":
		return float64(binary.LittleEndian.Uint32(data)), nil
	case "i32":
		return float64(int32(binary.LittleEndian.Uint32(data))), nil
	case "f32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
	case "u64":
		return float64(binary.LittleEndian.Uint64(data)), nil
	case "i64":
		return float64(int64(binary.LittleEndian.Uint64(data))), nil
	case "f64":
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
	default:
		return 0, fmt.Errorf("unsupported plot var type %q", varType)
	}
}

// samplePlot reads a plot's current value from the target and broadcasts a
// PlotData event. A read or decode failure is silently skipped for this
// tick rather than surfaced as an Error -- a transient read miss on one
// plot shouldn't spam the event stream every tick it recurs.
func (w *Worker) samplePlot(p Plot) {
	size := plotVarTypeSize(p.VarType)
	if size == 0 {
		return
	}
	data, err := w.core.ReadMemory(p.Address, size)
	if err != nil {
		return
	}
	v, err := decodePlotValue(data, p.VarType)
	if err != nil {
		return
	}
	w.bus.Send(PlotData{Name: p.Name, Timestamp: time.Now(), Value: v})
}

const itmDrainMaxBytes = 256

// sampleTrace drains ITM's SWO bytes every tick it is enabled, broadcasting
// them directly as ItmPacket, and additionally folds them into trace's
// own periodic sampling so a TraceData event follows once every
// SamplePeriod ticks while a trace configuration is also active.
func (w *Worker) sampleTrace() {
	if !w.itmMgr.Enabled() {
		return
	}
	pkt, err := w.itmMgr.Drain(w.core, w.itmFifoAddr, itmDrainMaxBytes)
	if err != nil || len(pkt.Bytes) == 0 {
		return
	}
	w.bus.Send(ItmPacket{Bytes: pkt.Bytes})

	if data, ok := w.trc.Sample(w.tickCount, true, pkt.Bytes); ok {
		w.bus.Send(TraceData{Tick: data.Tick, Bytes: data.Bytes})
	}
}

func (w *Worker) pollSemihosting() {
	status, _ := w.core.Status()
	if status != target.Halted {
		return
	}
	pc, err := w.core.ReadPC()
	if err != nil {
		return
	}
	two, _ := w.core.ReadMemory(pc, 2)
	four, _ := w.core.ReadMemory(pc, 4)

	trap, ok := semihosting.Detect(pc, true, two, four)
	if !ok {
		trap, ok = semihosting.Detect(pc, false, two, four)
		if !ok {
			return
		}
	}

	out, produced, err := semihosting.Service(w.core, trap)
	if err != nil {
		return
	}
	if produced {
		w.bus.Send(SemihostingOutput{Text: out.Text})
	}
}

// UnwindStack is a synchronous (non-command) helper: the stack walk has no
// meaningful async phasing of its own, so it runs directly against the
// worker's managers rather than through the command queue.
func (w *Worker) UnwindStack() ([]stack.Frame, error) {
	return stack.Unwind(w.core, w.sym)
}
