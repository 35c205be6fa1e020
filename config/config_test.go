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

package config

import (
	"flag"
	"testing"
	"time"

	"github.com/aether-dbg/aether/test"
)

func TestDefaultsApplyWithNoFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Parse(fs, nil)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, cfg.ListenPort, 4242)
	test.ExpectEquality(t, cfg.TickInterval, 10*time.Millisecond)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Parse(fs, []string{"-listen-port=9000", "-probe-index=2", "-svd=device.svd"})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, cfg.ListenPort, 9000)
	test.ExpectEquality(t, cfg.ProbeIndex, 2)
	test.ExpectEquality(t, cfg.DefaultSVDPath, "device.svd")
}

func TestUnknownFlagIsAnError(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	_, err := Parse(fs, []string{"-not-a-flag"})
	test.ExpectFailure(t, err)
}
