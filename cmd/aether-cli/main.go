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

// Command aether-cli is a one-shot command-line client: each invocation
// attaches to a probe, issues a single operation through rpcapi.Dispatch,
// prints the result, and exits. A deployment with a real RPC transport
// would instead point this at aether-agentd over the network; here the
// client owns the attach itself since no transport framing is in scope.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aether-dbg/aether/probe"
	"github.com/aether-dbg/aether/rpcapi"
	"github.com/aether-dbg/aether/session"
)

var (
	flagSerialPort string
	flagChip       string
	flagProtocol   string
	flagUnderReset bool
	flagRegCount   int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aether-cli",
		Short: "one-shot command-line client for an Aether debug session",
	}
	root.PersistentFlags().StringVar(&flagSerialPort, "serial-port", "", "serial device path of the debug probe's bridge")
	root.PersistentFlags().StringVar(&flagChip, "chip", "auto", "target chip name, or \"auto\" for heuristic fallback")
	root.PersistentFlags().StringVar(&flagProtocol, "protocol", "", "swd or jtag; empty tries both")
	root.PersistentFlags().BoolVar(&flagUnderReset, "under-reset", false, "attach with the target held in reset")

	root.AddCommand(
		newStatusCmd(), newHaltCmd(), newResumeCmd(), newResetCmd(), newStepCmd(),
		newRegsCmd(), newReadCmd(), newWriteCmd(), newBreakCmd(), newClearCmd(),
		newBreakpointsCmd(), newStackCmd(),
	)
	return root
}

// parseHex parses a hex literal with an optional "0x"/"0X" prefix.
func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func dial() (*rpcapi.Dispatch, error) {
	drv := &probe.SerialBridge{DevicePath: flagSerialPort}

	var proto *probe.Protocol
	switch flagProtocol {
	case "swd":
		p := probe.SWD
		proto = &p
	case "jtag":
		p := probe.JTAG
		proto = &p
	}

	core, _, err := probe.Attach(drv, flagChip, proto, flagUnderReset)
	if err != nil {
		return nil, err
	}
	w := session.New(core)
	go w.Run()
	return rpcapi.NewDispatch(w), nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report the core's current run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			st, err := d.GetStatus()
			if err != nil {
				return err
			}
			fmt.Printf("halted=%v pc=0x%08X core=%s\n", st.Halted, st.PC, st.Core)
			return nil
		},
	}
}

func newHaltCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "halt",
		Short: "halt the core",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			return d.Halt()
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "resume the core",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			return d.Resume()
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "reset the core",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			return d.Reset()
		},
	}
}

func newStepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step",
		Short: "single-step the core",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			return d.Step()
		},
	}
}

func newRegsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "regs",
		Short: "dump the first N general registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			for i := 0; i < flagRegCount; i++ {
				rv, err := d.ReadRegister(rpcapi.ReadRegisterRequest{Register: uint32(i)})
				if err != nil {
					return err
				}
				fmt.Printf("r%-2d = 0x%08X\n", i, rv.Value)
			}
			return nil
		},
	}
	c.Flags().IntVar(&flagRegCount, "num", 16, "number of registers to dump")
	return c
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <hex-addr> <len>",
		Short: "read len bytes of target memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseHex(args[0])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[0], err)
			}
			length, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid length %q: %w", args[1], err)
			}
			d, err := dial()
			if err != nil {
				return err
			}
			resp, err := d.ReadMemory(rpcapi.ReadMemoryRequest{Address: addr, Length: length})
			if err != nil {
				return err
			}
			fmt.Printf("%X\n", resp.Data)
			return nil
		},
	}
}

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <hex-addr> <hex-bytes>",
		Short: "write hex-encoded bytes to target memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseHex(args[0])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[0], err)
			}
			data, err := decodeHexBytes(args[1])
			if err != nil {
				return fmt.Errorf("invalid bytes %q: %w", args[1], err)
			}
			d, err := dial()
			if err != nil {
				return err
			}
			return d.WriteMemory(rpcapi.WriteMemoryRequest{Address: addr, Data: data})
		},
	}
}

func decodeHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

func newBreakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "break <addr>",
		Short: "set a hardware breakpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseHex(args[0])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[0], err)
			}
			d, err := dial()
			if err != nil {
				return err
			}
			_, err = d.SetBreakpoint(rpcapi.BreakpointRequest{Address: addr})
			return err
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <addr>",
		Short: "clear a hardware breakpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseHex(args[0])
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", args[0], err)
			}
			d, err := dial()
			if err != nil {
				return err
			}
			_, err = d.ClearBreakpoint(rpcapi.BreakpointRequest{Address: addr})
			return err
		},
	}
}

func newBreakpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breakpoints",
		Short: "list installed hardware breakpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			addrs, err := d.ListBreakpoints()
			if err != nil {
				return err
			}
			for _, a := range addrs {
				fmt.Printf("0x%08X\n", a)
			}
			return nil
		},
	}
}

func newStackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stack",
		Short: "unwind and print the call stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dial()
			if err != nil {
				return err
			}
			frames, err := d.GetStack()
			if err != nil {
				return err
			}
			for _, f := range frames {
				fmt.Printf("#%-2d 0x%08X %s (%s:%d)\n", f.ID, f.PC, f.FunctionName, f.SourceFile, f.Line)
			}
			return nil
		},
	}
}
