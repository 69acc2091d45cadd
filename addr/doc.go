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

// Package addr resolves a logical service address (spath) to the concrete
// UNIX-domain socket backing it, plus the residual sub-path the server will
// receive as part of the request.
//
// The upstream resolver (original_source/russlib/src/lib/addr.c) has a
// known defect: after dereferencing a symlink it immediately discards the
// symlink target's own basename into the residual path instead of treating
// it as part of the socket address, which breaks spec.md §8 property 2's
// join(target_path, residual) == original_path invariant whenever a
// service directory itself is a symlink. This package implements the
// invariant the spec actually documents rather than the upstream bug.
package addr

import "os"

// DefaultServicesDir is used when RUSS_SERVICES_DIR is unset.
const DefaultServicesDir = "/run/russ/services"

// ServicesDir returns the configured service root: RUSS_SERVICES_DIR if
// set, else DefaultServicesDir.
func ServicesDir() string {
	if d := os.Getenv("RUSS_SERVICES_DIR"); d != "" {
		return d
	}
	return DefaultServicesDir
}
