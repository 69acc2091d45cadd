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

package buserr

import (
	"fmt"
	"runtime"
)

// Error is the bus's structured error value.
type Error struct {
	kind   Kind
	exit   ExitStatus
	msg    string
	parent []error
	frame  runtime.Frame
}

// New builds an Error of the given kind and exit status, optionally
// chaining parent errors (nil parents are skipped).
func New(kind Kind, exit ExitStatus, msg string, parent ...error) *Error {
	return &Error{
		kind:   kind,
		exit:   exit,
		msg:    msg,
		parent: compactParents(parent),
		frame:  getFrame(),
	}
}

// Newf is New with fmt.Sprintf-style message formatting.
func Newf(kind Kind, exit ExitStatus, format string, args ...any) *Error {
	return &Error{
		kind:  kind,
		exit:  exit,
		msg:   fmt.Sprintf(format, args...),
		frame: getFrame(),
	}
}

func compactParents(parent []error) []error {
	out := make([]error, 0, len(parent))
	for _, p := range parent {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (e *Error) Error() string {
	if len(e.parent) == 0 {
		return e.msg
	}
	s := e.msg
	for _, p := range e.parent {
		s += ": " + p.Error()
	}
	return s
}

// Unwrap exposes the parent chain to errors.Is/errors.As (multi-error
// unwrap, supported since Go 1.20).
func (e *Error) Unwrap() []error { return e.parent }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// ExitStatus returns the exit status a connection should report for this
// error.
func (e *Error) ExitStatus() ExitStatus { return e.exit }

// Add appends additional parent errors (nil entries are skipped).
func (e *Error) Add(parent ...error) {
	e.parent = append(e.parent, compactParents(parent)...)
}

// Trace returns a "file:line (function)" description of where the error
// was constructed, or "" if it could not be captured.
func (e *Error) Trace() string { return formatFrame(e.frame) }

// HasKind reports whether e or any error in its parent chain has kind k.
func (e *Error) HasKind(k Kind) bool {
	if e.kind == k {
		return true
	}
	for _, p := range e.parent {
		if be := Get(p); be != nil && be.HasKind(k) {
			return true
		}
	}
	return false
}
