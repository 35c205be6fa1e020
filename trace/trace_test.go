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

package trace

import "testing"

func TestDefaultIsDisabled(t *testing.T) {
	cfg := Default()
	if cfg.Enabled {
		t.Fatal("expected default trace config to be disabled")
	}
}

func TestSampleSkippedWhenDisabled(t *testing.T) {
	m := New()
	_, ok := m.Sample(100, true, []byte{1, 2, 3})
	if ok {
		t.Fatal("expected no sample while trace is disabled")
	}
}

func TestSampleSkippedWhenItmDisabled(t *testing.T) {
	m := New()
	m.Enable(Config{Enabled: true, SamplePeriod: 10})

	_, ok := m.Sample(10, false, []byte{1, 2, 3})
	if ok {
		t.Fatal("expected no sample when ITM itself is not enabled")
	}
}

func TestSampleOnlyFiresOnPeriodBoundary(t *testing.T) {
	m := New()
	m.Enable(Config{Enabled: true, SamplePeriod: 10})

	if _, ok := m.Sample(3, true, []byte{0xAA}); ok {
		t.Fatal("expected no sample off the period boundary")
	}

	data, ok := m.Sample(20, true, []byte{0xAA, 0xBB})
	if !ok {
		t.Fatal("expected a sample on the period boundary")
	}
	if data.Tick != 20 || len(data.Bytes) != 2 {
		t.Fatalf("unexpected sample data: %+v", data)
	}
}

func TestSampleZeroPeriodNeverFires(t *testing.T) {
	m := New()
	m.Enable(Config{Enabled: true, SamplePeriod: 0})

	if _, ok := m.Sample(0, true, []byte{0xAA}); ok {
		t.Fatal("expected a zero sample period to never fire, to avoid a div-by-zero on tick%%0")
	}
}
