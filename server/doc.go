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

// Package server implements the accept side of the bus: the per-connection
// state machine (spec.md §4.4 "Server state machine"), the dispatch tree
// wiring against svctree, and the two server-loop scheduling variants
// (spec.md §4.7) selectable per Server.
//
// Go gives no safe equivalent of a bare fork(2) once goroutines are
// running — the runtime's internal locks and background threads do not
// survive a fork without an immediate exec (see
// https://pkg.go.dev/os/exec and the well-known "fork in a Go process is
// unsafe" constraint). The fork-per-request variant is therefore built on
// the same self-re-exec technique used for zero-downtime socket handoff in
// Go daemons (ExtraFiles + a re-exec of argv[0]): the accepted connection's
// underlying fd is inherited by a freshly exec'd child, which runs the
// registered handler and exits, giving the same process-isolation and
// crash-containment properties as the original fork variant without
// touching the parent's live goroutines.
package server
