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

// Package breakpoint tracks the set of addresses installed as hardware
// breakpoints, refusing to grow past the probe's comparator count.
package breakpoint

import (
	"sort"
	"sync"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/target"
)

// Manager keeps the set of installed addresses in sync with the core's
// hardware comparators. It is the only actor that calls
// Set/ClearHardwareBreakpoint on the Core, so its in-memory set and the
// core's installed set never diverge.
type Manager struct {
	mu   sync.Mutex
	core target.Core
	set  map[uint64]bool
}

func New(core target.Core) *Manager {
	return &Manager{core: core, set: make(map[uint64]bool)}
}

// Set installs a breakpoint at addr. It refuses when the core's comparator
// count is already exhausted.
func (m *Manager) Set(addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.set[addr] {
		return nil
	}
	if len(m.set) >= m.core.HardwareBreakpointSlots() {
		return errkind.Errorf(errkind.BreakpointSetFull)
	}
	if err := m.core.SetHardwareBreakpoint(addr); err != nil {
		return errkind.Wrap(errkind.ProbeWriteFailed, err)
	}
	m.set[addr] = true
	return nil
}

// Clear removes the breakpoint at addr. Clearing an address with no
// breakpoint installed is an error, per spec.
func (m *Manager) Clear(addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.set[addr] {
		return errkind.Errorf(errkind.BreakpointNotFound, addr)
	}
	if err := m.core.ClearHardwareBreakpoint(addr); err != nil {
		return errkind.Wrap(errkind.ProbeWriteFailed, err)
	}
	delete(m.set, addr)
	return nil
}

// Toggle clears addr if present, otherwise sets it.
func (m *Manager) Toggle(addr uint64) error {
	m.mu.Lock()
	present := m.set[addr]
	m.mu.Unlock()

	if present {
		return m.Clear(addr)
	}
	return m.Set(addr)
}

// ClearAll clears every installed breakpoint, best-effort: a failure to
// clear one address is recorded but does not abort the sweep.
func (m *Manager) ClearAll() []error {
	var errs []error
	for _, addr := range m.List() {
		if err := m.Clear(addr); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// List returns every installed address, sorted ascending.
func (m *Manager) List() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]uint64, 0, len(m.set))
	for addr := range m.set {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
