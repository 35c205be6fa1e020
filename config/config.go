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

// Package config holds the session process's flag-driven configuration.
// There is no on-disk persistence: every run starts from these defaults and
// whatever flags were passed on its command line.
package config

import (
	"flag"
	"time"
)

// Config is the resolved process configuration for aether-agentd.
type Config struct {
	ListenHost string
	ListenPort int

	ProbeIndex int

	DefaultSVDPath string
	DefaultELFPath string

	TickInterval     time.Duration
	PlotSampleMinGap time.Duration
}

// Default returns the configuration every field falls back to when no flag
// overrides it.
func Default() Config {
	return Config{
		ListenHost:       "127.0.0.1",
		ListenPort:       4242,
		ProbeIndex:       0,
		TickInterval:     10 * time.Millisecond,
		PlotSampleMinGap: 50 * time.Millisecond,
	}
}

// Parse registers Config's flags on fs against Default's values and parses
// args. Passing flag.CommandLine as fs and os.Args[1:] as args gives normal
// process-flag behavior; a fresh flag.FlagSet is used in tests to avoid
// touching package-level flag state.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()

	fs.StringVar(&cfg.ListenHost, "listen-host", cfg.ListenHost, "RPC listen host")
	fs.IntVar(&cfg.ListenPort, "listen-port", cfg.ListenPort, "RPC listen port")
	fs.IntVar(&cfg.ProbeIndex, "probe-index", cfg.ProbeIndex, "index into probe.Enumerate() to attach")
	fs.StringVar(&cfg.DefaultSVDPath, "svd", cfg.DefaultSVDPath, "default CMSIS-SVD file to load at startup")
	fs.StringVar(&cfg.DefaultELFPath, "elf", cfg.DefaultELFPath, "default ELF image to load symbols from at startup")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "worker loop background-work tick interval")
	fs.DurationVar(&cfg.PlotSampleMinGap, "plot-sample-min-gap", cfg.PlotSampleMinGap, "minimum gap between plot samples")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
