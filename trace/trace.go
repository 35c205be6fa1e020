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

// Package trace holds the SWV/periodic-sample trace configuration surface.
// Full sample decoding and plot-series extraction are explicitly deferred,
// matching the narrow config-only footprint the trace configuration has in
// the original implementation: it records intent and defers to itm for
// actual SWO decode.
package trace

// Config controls whether periodic sampling is active and at what period.
type Config struct {
	Enabled      bool
	SamplePeriod uint32 // in worker ticks
}

// Default returns sampling disabled.
func Default() Config {
	return Config{Enabled: false, SamplePeriod: 100}
}

// Data is one periodic sample event, emitted only while both trace
// configuration and ITM are enabled.
type Data struct {
	Tick  uint64
	Bytes []byte
}

// Manager tracks trace configuration state; it never decodes SWO itself,
// deferring that to itm.Manager.
type Manager struct {
	cfg Config
}

func New() *Manager {
	return &Manager{cfg: Default()}
}

// Enable records cfg as the active configuration.
func (m *Manager) Enable(cfg Config) {
	m.cfg = cfg
}

// Config returns the active configuration.
func (m *Manager) Config() Config { return m.cfg }

// Sample produces a Data event from itmBytes at tick, but only when both
// trace sampling and ITM are enabled, and only on sample-period ticks.
func (m *Manager) Sample(tick uint64, itmEnabled bool, itmBytes []byte) (Data, bool) {
	if !m.cfg.Enabled || !itmEnabled {
		return Data{}, false
	}
	if m.cfg.SamplePeriod == 0 || tick%uint64(m.cfg.SamplePeriod) != 0 {
		return Data{}, false
	}
	return Data{Tick: tick, Bytes: itmBytes}, true
}
