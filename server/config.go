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

package server

import (
	"os"

	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/logging"
)

// Variant selects one of the two scheduling models spec.md §4.7 describes.
type Variant int

const (
	// VariantThread spawns a goroutine per accepted connection.
	VariantThread Variant = iota
	// VariantFork re-execs the current binary per accepted connection,
	// inheriting the connection's fd (see doc.go for why this replaces a
	// bare fork(2)).
	VariantFork
)

// Config is the process-level server configuration a CLI front-end
// populates from flags (SPEC_FULL.md §A.3) — no file-format opinions here,
// just the knobs spec.md §4.7 names.
type Config struct {
	Variant Variant

	// SocketPath is the filesystem address to bind (spec.md §6.2).
	SocketPath string
	SocketMode os.FileMode

	// AcceptDeadline bounds time spent blocking in accept.
	AcceptDeadline deadline.Deadline
	// RequestDeadline bounds time spent reading the request frame after
	// accept.
	RequestDeadline deadline.Deadline

	// AutoSwitchUser drops privileges to the connection's peer uid/gid
	// before invoking the handler (process-wide — see the caveat on
	// switchToPeerUser in reexec.go on why this is only meaningful paired
	// with VariantFork).
	AutoSwitchUser bool
	// MatchClientUser refuses the call unless the peer uid matches the
	// server's own uid.
	MatchClientUser bool

	// HandlerName is the name under which the active handler tree was
	// registered via RegisterServer; required for VariantFork so a
	// re-exec'd child knows which handler to run.
	HandlerName string

	// MaxMatchedPathLen bounds svctree.Find's matched_path reconstruction.
	MaxMatchedPathLen int

	// MaxOpenFiles, if positive, is the RLIMIT_NOFILE soft limit Listen
	// raises the process to before binding (spec.md §4.7: a server that
	// fans out a forwarder/relay pair per connection needs headroom well
	// beyond the usual 1024-fd default). Zero leaves the inherited limit
	// untouched.
	MaxOpenFiles int

	Logger logging.Logger
}

func (c Config) logger() logging.Logger {
	if c.Logger == nil {
		return logging.Default()
	}
	return c.Logger
}
