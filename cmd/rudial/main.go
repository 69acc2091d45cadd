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

// Command rudial is the thin CLI front-end over client.Dial + forwarder
// (spec.md §6.3): it dials a service, streams stdin to its input fd and its
// output/error fds back to stdout/stderr, waits for the exit status, and
// exits with that status. Invoked (via symlink or copy) under the names
// ruhelp or ruinfo, it forces the op implied by its own name instead of
// reading one off argv; under ruexec it behaves exactly like rudial and
// takes <op> off argv. ruls is its own binary sharing the same rucli.Run
// core (cmd/ruls).
package main

import (
	"os"
	"path/filepath"

	"github.com/johnm-dev/russng-sub001/internal/rucli"
)

func main() {
	os.Exit(rucli.Run("rudial [options] <op> <addr> [<arg>...]",
		"dial a bus service and stream its call", forcedOp()))
}

func forcedOp() string {
	switch filepath.Base(os.Args[0]) {
	case "ruhelp":
		return "help"
	case "ruinfo":
		return "info"
	default: // rudial, ruexec
		return ""
	}
}
