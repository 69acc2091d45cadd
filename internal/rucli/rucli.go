/*
 * MIT License
 *
 * Copyright (c) 2024 johnm-dev
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package rucli holds the call-and-stream logic shared by the rudial
// family of commands (spec.md §6.3): rudial/ruexec take <op> off argv,
// while ruhelp/ruinfo/ruls force a fixed op and take <addr> [<arg>...]. Each
// cmd/* main is a thin wrapper that picks ForcedOp and calls Run.
package rucli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/client"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/forwarder"
	"github.com/johnm-dev/russng-sub001/request"
)

// call is one parsed invocation, ready to dial.
type call struct {
	op, addr    string
	attrs, args []string
	dl          deadline.Deadline
	debug       bool
}

// parseArgs splits a rudial-family command's positional args, given
// forcedOp (empty meaning "take op from argv", per Run's contract).
func parseArgs(name, forcedOp string, args []string, attrs []string, timeoutSec float64, debug bool) (*call, error) {
	op := forcedOp
	var addr string
	var callArgs []string
	if forcedOp == "" {
		if len(args) < 2 {
			return nil, fmt.Errorf("%s: need <op> <addr>", name)
		}
		op = args[0]
		addr = args[1]
		callArgs = args[2:]
	} else {
		if len(args) < 1 {
			return nil, fmt.Errorf("%s: need <addr>", name)
		}
		addr = args[0]
		callArgs = args[1:]
	}

	if len(attrs) > request.MaxAttrs {
		return nil, fmt.Errorf("%s: too many -a/--attr options (max %d)", name, request.MaxAttrs)
	}

	dl := deadline.Never
	if timeoutSec > 0 {
		dl = deadline.FromTimeout(time.Duration(timeoutSec * float64(time.Second)))
	}

	return &call{op: op, addr: addr, attrs: attrs, args: callArgs, dl: dl, debug: debug}, nil
}

// Run builds and executes the cobra command for one rudial-family binary.
// When forcedOp is non-empty, the command takes <addr> [<arg>...] and always
// dials with that op; otherwise it takes <op> <addr> off its own argv
// (rudial, ruexec). It returns the process exit code; main() should pass
// it straight to os.Exit.
func Run(use, short, forcedOp string) int {
	var (
		attrs      []string
		timeoutSec float64
		debug      bool
		exitCode   int
	)

	cmd := &cobra.Command{
		Use:                   use,
		Short:                 short,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseArgs(cmd.Name(), forcedOp, args, attrs, timeoutSec, debug)
			if err != nil {
				return err
			}

			status, err := dialAndStream(c.addr, c.op, c.attrs, c.args, c.dl, c.debug)
			if err != nil {
				fmt.Fprintln(os.Stderr, cmd.Name()+":", err)
				exitCode = int(buserr.ExitCallFailure)
				return nil
			}
			exitCode = int(status)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&attrs, "attr", "a", nil, "append an attribute name=value (repeatable)")
	cmd.Flags().Float64VarP(&timeoutSec, "timeout", "t", 0, "deadline for the call, in seconds")
	cmd.Flags().BoolVar(&debug, "debug", false, "keep stderr forwarding after exit; emit diagnostics")

	if err := cmd.Execute(); err != nil {
		return int(buserr.ExitCallFailure)
	}
	return exitCode
}

// dialAndStream performs the actual bus call: dial, send the request,
// bridge stdin/stdout/stderr to the call's data fds via the forwarder
// package, and wait for the exit status (spec.md §6.3).
func dialAndStream(addr, op string, attrs, args []string, dl deadline.Deadline, debug bool) (buserr.ExitStatus, error) {
	cl, err := client.Dial(addr, dl)
	if err != nil {
		return buserr.ExitCallFailure, err
	}
	defer cl.Close()

	req := request.New(op, "", attrs, args)
	if err := cl.SendRequest(req, dl); err != nil {
		return buserr.ExitCallFailure, err
	}
	if err := cl.ReceiveDescriptors(dl); err != nil {
		return buserr.ExitCallFailure, err
	}
	if err := cl.Stream(); err != nil {
		return buserr.ExitCallFailure, err
	}

	inFwd := forwarder.New(forwarder.Config{
		InFD: int(os.Stdin.Fd()), OutFD: cl.In(), Count: -1,
		Mode: forwarder.ModeChunk, Close: forwarder.CloseOut, Deadline: deadline.Never,
	})
	outFwd := forwarder.New(forwarder.Config{
		InFD: cl.Out(), OutFD: int(os.Stdout.Fd()), Count: -1,
		Mode: forwarder.ModeChunk, Deadline: deadline.Never,
	})
	errFwd := forwarder.New(forwarder.Config{
		InFD: cl.Err(), OutFD: int(os.Stderr.Fd()), Count: -1,
		Mode: forwarder.ModeChunk, Deadline: deadline.Never,
	})
	g := forwarder.Launch(inFwd, outFwd, errFwd)

	status, werr := cl.WaitExit(dl)

	// Every forwarder is joined to the end of its input, with or without
	// --debug, so stderr keeps being forwarded after the service has
	// exited; --debug only adds the exit-status line.
	outFwd.Join()
	if debug {
		fmt.Fprintf(os.Stderr, "%s: debug: exit status %d\n", os.Args[0], status)
		errFwd.Join()
	} else {
		_, _, _ = errFwd.Join()
	}
	inFwd.Join()

	// All three have already stopped by the time the individual Joins
	// above return; Wait just collects whichever one hit a real
	// ReasonError first.
	if gerr := g.Wait(); gerr != nil && werr == nil {
		werr = gerr
	}

	if werr != nil {
		return buserr.ExitSysFailure, werr
	}
	return status, nil
}
