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

// Command aether-agentd is the long-running session process: it attaches to
// a probe, runs the session worker for the rest of the process lifetime,
// and exposes it through rpcapi.Dispatch. No network listener is started
// here -- framing a real RPC server (gRPC or otherwise) around Dispatch is
// the out-of-scope transport layer; this entrypoint exists to show how the
// pieces wire together end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aether-dbg/aether/config"
	"github.com/aether-dbg/aether/logger"
	"github.com/aether-dbg/aether/probe"
	"github.com/aether-dbg/aether/rpcapi"
	"github.com/aether-dbg/aether/session"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	probes, err := probe.Enumerate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "probe enumeration failed:", err)
		os.Exit(1)
	}
	if cfg.ProbeIndex >= len(probes) {
		fmt.Fprintf(os.Stderr, "probe index %d out of range (%d probes found)\n", cfg.ProbeIndex, len(probes))
		os.Exit(1)
	}

	logger.Logf("agentd", "configured rpc address %s:%d (no listener started), probe index %d", cfg.ListenHost, cfg.ListenPort, cfg.ProbeIndex)

	drv := &probe.SerialBridge{}
	core, info, err := probe.Attach(drv, "auto", nil, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "attach failed:", err)
		os.Exit(1)
	}
	logger.Logf("agentd", "attached to %s", info.Name)

	worker := session.New(core)
	go worker.Run()
	defer worker.Submit(session.Exit{})

	dispatch := rpcapi.NewDispatch(worker)
	_ = dispatch // would be handed to the (unimplemented) RPC server here

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
