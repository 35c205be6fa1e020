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

// Package rpcapi defines the request/response contract a real transport
// (gRPC, a REPL, a GUI) would frame on the wire, and an in-process Dispatch
// that drives a session.Worker through it synchronously. No network
// framing is implemented here: that transport layer is an out-of-scope
// external collaborator, same as the GUI.
package rpcapi

import (
	"fmt"
	"time"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/rtos"
	"github.com/aether-dbg/aether/session"
	"github.com/aether-dbg/aether/stack"
	"github.com/aether-dbg/aether/svd"
	"github.com/aether-dbg/aether/target"
)

// defaultTimeout bounds how long Dispatch waits for a command's event
// before giving up and reporting a transport-kind error of its own.
const defaultTimeout = 2 * time.Second

type ReadRegisterRequest struct{ Register uint32 }
type ReadRegisterResponse struct{ Value uint64 }

type WriteRegisterRequest struct {
	Register uint32
	Value    uint64
}

type ReadMemoryRequest struct {
	Address uint64
	Length  int
}
type ReadMemoryResponse struct{ Data []byte }

type WriteMemoryRequest struct {
	Address uint64
	Data    []byte
}

type BreakpointRequest struct{ Address uint64 }

type GetStatusResponse struct {
	Halted bool
	PC     uint64
	Core   target.Status
}

type DisassembleRequest struct {
	Address uint64
	Count   int
}

type PeripheralFieldWriteRequest struct {
	Peripheral string
	Register   string
	Field      string
	Value      uint64
}

// Dispatch drives a session.Worker's command queue and matches each
// submitted command to the event(s) it produces, via a dedicated
// subscriber. It assumes a single caller issuing requests serially, which
// is what a request/response RPC facade needs: the worker's own ordering
// invariant (every event a command generates is broadcast before the next
// command begins) makes that safe.
type Dispatch struct {
	worker  *session.Worker
	sub     *session.Subscriber
	timeout time.Duration
}

// NewDispatch wraps worker with a dedicated event subscription.
func NewDispatch(worker *session.Worker) *Dispatch {
	return &Dispatch{worker: worker, sub: worker.Subscribe(), timeout: defaultTimeout}
}

// call submits cmd and returns the first event it produces, or a
// transport-kind timeout error if none arrives within the configured
// timeout.
func (d *Dispatch) call(cmd session.Command) (session.Event, error) {
	d.worker.Submit(cmd)
	select {
	case ev := <-d.sub.Recv():
		return ev, nil
	case <-time.After(d.timeout):
		return nil, errkind.Wrap(errkind.ProbeReadFailed, fmt.Errorf("rpc dispatch timed out waiting for a response"))
	}
}

func eventError(ev session.Event) error {
	if e, ok := ev.(session.Error); ok {
		return fmt.Errorf("%s", e.Message)
	}
	return nil
}

func (d *Dispatch) Halt() error {
	ev, err := d.call(session.Halt{})
	if err != nil {
		return err
	}
	return eventError(ev)
}

func (d *Dispatch) Resume() error {
	ev, err := d.call(session.Resume{})
	if err != nil {
		return err
	}
	return eventError(ev)
}

func (d *Dispatch) Step() error {
	ev, err := d.call(session.Step{})
	if err != nil {
		return err
	}
	return eventError(ev)
}

func (d *Dispatch) Reset() error {
	ev, err := d.call(session.Reset{})
	if err != nil {
		return err
	}
	return eventError(ev)
}

func (d *Dispatch) ReadRegister(req ReadRegisterRequest) (ReadRegisterResponse, error) {
	ev, err := d.call(session.ReadRegister{Register: req.Register})
	if err != nil {
		return ReadRegisterResponse{}, err
	}
	if err := eventError(ev); err != nil {
		return ReadRegisterResponse{}, err
	}
	rv, ok := ev.(session.RegisterValue)
	if !ok {
		return ReadRegisterResponse{}, fmt.Errorf("unexpected event %T for ReadRegister", ev)
	}
	return ReadRegisterResponse{Value: rv.Value}, nil
}

func (d *Dispatch) WriteRegister(req WriteRegisterRequest) error {
	ev, err := d.call(session.WriteRegister{Register: req.Register, Value: req.Value})
	if err != nil {
		return err
	}
	return eventError(ev)
}

func (d *Dispatch) ReadMemory(req ReadMemoryRequest) (ReadMemoryResponse, error) {
	ev, err := d.call(session.ReadMemory{Address: req.Address, Length: req.Length})
	if err != nil {
		return ReadMemoryResponse{}, err
	}
	if err := eventError(ev); err != nil {
		return ReadMemoryResponse{}, err
	}
	mc, ok := ev.(session.MemoryContent)
	if !ok {
		return ReadMemoryResponse{}, fmt.Errorf("unexpected event %T for ReadMemory", ev)
	}
	return ReadMemoryResponse{Data: mc.Data}, nil
}

func (d *Dispatch) WriteMemory(req WriteMemoryRequest) error {
	ev, err := d.call(session.WriteMemory{Address: req.Address, Data: req.Data})
	if err != nil {
		return err
	}
	return eventError(ev)
}

func (d *Dispatch) SetBreakpoint(req BreakpointRequest) ([]uint64, error) {
	ev, err := d.call(session.SetBreakpoint{Address: req.Address})
	if err != nil {
		return nil, err
	}
	if err := eventError(ev); err != nil {
		return nil, err
	}
	bp, ok := ev.(session.Breakpoints)
	if !ok {
		return nil, fmt.Errorf("unexpected event %T for SetBreakpoint", ev)
	}
	return bp.Addresses, nil
}

func (d *Dispatch) ClearBreakpoint(req BreakpointRequest) ([]uint64, error) {
	ev, err := d.call(session.ClearBreakpoint{Address: req.Address})
	if err != nil {
		return nil, err
	}
	if err := eventError(ev); err != nil {
		return nil, err
	}
	bp, ok := ev.(session.Breakpoints)
	if !ok {
		return nil, fmt.Errorf("unexpected event %T for ClearBreakpoint", ev)
	}
	return bp.Addresses, nil
}

func (d *Dispatch) ListBreakpoints() ([]uint64, error) {
	ev, err := d.call(session.ListBreakpoints{})
	if err != nil {
		return nil, err
	}
	if err := eventError(ev); err != nil {
		return nil, err
	}
	bp, ok := ev.(session.Breakpoints)
	if !ok {
		return nil, fmt.Errorf("unexpected event %T for ListBreakpoints", ev)
	}
	return bp.Addresses, nil
}

func (d *Dispatch) GetStatus() (GetStatusResponse, error) {
	ev, err := d.call(session.PollStatus{})
	if err != nil {
		return GetStatusResponse{}, err
	}
	if err := eventError(ev); err != nil {
		return GetStatusResponse{}, err
	}
	st, ok := ev.(session.StatusEvent)
	if !ok {
		return GetStatusResponse{}, fmt.Errorf("unexpected event %T for GetStatus", ev)
	}
	return GetStatusResponse{Halted: st.Halted, PC: st.PC, Core: st.Core}, nil
}

func (d *Dispatch) Disassemble(req DisassembleRequest) ([]session.Disassembly, error) {
	ev, err := d.call(session.Disassemble{Address: req.Address, Count: req.Count})
	if err != nil {
		return nil, err
	}
	if err := eventError(ev); err != nil {
		return nil, err
	}
	dis, ok := ev.(session.Disassembly)
	if !ok {
		return nil, fmt.Errorf("unexpected event %T for Disassemble", ev)
	}
	return []session.Disassembly{dis}, nil
}

func (d *Dispatch) GetTasks() ([]rtos.TaskInfo, error) {
	ev, err := d.call(session.GetTasks{})
	if err != nil {
		return nil, err
	}
	if err := eventError(ev); err != nil {
		return nil, err
	}
	tasks, ok := ev.(session.Tasks)
	if !ok {
		return nil, fmt.Errorf("unexpected event %T for GetTasks", ev)
	}
	return tasks.Tasks, nil
}

func (d *Dispatch) GetStack() ([]stack.Frame, error) {
	return d.worker.UnwindStack()
}

func (d *Dispatch) ReadPeripheralValues(peripheral string) ([]svd.RegisterValue, error) {
	ev, err := d.call(session.ReadPeripheralValues{Peripheral: peripheral})
	if err != nil {
		return nil, err
	}
	if err := eventError(ev); err != nil {
		return nil, err
	}
	pv, ok := ev.(session.PeripheralValues)
	if !ok {
		return nil, fmt.Errorf("unexpected event %T for ReadPeripheralValues", ev)
	}
	return pv.Values, nil
}

func (d *Dispatch) WritePeripheralField(req PeripheralFieldWriteRequest) error {
	ev, err := d.call(session.WritePeripheralField{
		Peripheral: req.Peripheral,
		Register:   req.Register,
		Field:      req.Field,
		Value:      req.Value,
	})
	if err != nil {
		return err
	}
	return eventError(ev)
}
