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

package request

import (
	"fmt"
	"strconv"
	"strings"
)

// Request is one call across the bus: an operation against a service path,
// carrying attributes (environment-like name=value pairs) and positional
// arguments, the same three things spec.md §3 describes.
type Request struct {
	ProtocolTag string
	Op          string
	Spath       string
	Attrs       []string
	Args        []string
}

// OpNum classifies r.Op via LookupOpNum.
func (r *Request) OpNum() OpNum {
	return LookupOpNum(r.Op)
}

// New builds a Request stamped with the current ProtocolTag.
func New(op, spath string, attrs, args []string) *Request {
	return &Request{
		ProtocolTag: ProtocolTag,
		Op:          op,
		Spath:       spath,
		Attrs:       attrs,
		Args:        args,
	}
}

// SetArg sets the positional argument at index, growing Args with empty
// strings if necessary. index == -1 appends a new trailing argument. This
// mirrors the "set" service pattern (SPEC_FULL.md §C.4) where an
// intermediate service rewrites argv before redialing downstream.
func (r *Request) SetArg(index int, value string) error {
	if index == -1 {
		if len(r.Args) >= MaxArgs {
			return fmt.Errorf("request: SetArg: would exceed MaxArgs (%d)", MaxArgs)
		}
		r.Args = append(r.Args, value)
		return nil
	}
	if index < 0 {
		return fmt.Errorf("request: SetArg: negative index %d", index)
	}
	if index >= MaxArgs {
		return fmt.Errorf("request: SetArg: index %d exceeds MaxArgs (%d)", index, MaxArgs)
	}
	if index >= len(r.Args) {
		grown := make([]string, index+1)
		copy(grown, r.Args)
		r.Args = grown
	}
	r.Args[index] = value
	return nil
}

// SetAttr sets (or adds) the attribute named name to value, replacing any
// existing "name=..." entry in place. Attrs are stored on the wire as single
// "name=value" strings, matching the upstream attrv representation.
func (r *Request) SetAttr(name, value string) error {
	entry := name + "=" + value
	for i, a := range r.Attrs {
		if attrName(a) == name {
			r.Attrs[i] = entry
			return nil
		}
	}
	if len(r.Attrs) >= MaxAttrs {
		return fmt.Errorf("request: SetAttr: would exceed MaxAttrs (%d)", MaxAttrs)
	}
	r.Attrs = append(r.Attrs, entry)
	return nil
}

// Attr returns the value of the attribute named name and whether it was
// present.
func (r *Request) Attr(name string) (string, bool) {
	for _, a := range r.Attrs {
		if n, v, ok := strings.Cut(a, "="); ok && n == name {
			return v, true
		}
	}
	return "", false
}

func attrName(entry string) string {
	n, _, _ := strings.Cut(entry, "=")
	return n
}

// ConsumeSetSegments parses the "set" service's "/index=value" and
// "/name=value" spath-segment convention (SPEC_FULL.md §C.4, grounding
// spec.md §8 S5): segments are consumed left to right off r.Spath, applied
// via SetArg (numeric key) or SetAttr (named key) when r.Op is "execute",
// up to and including a terminating "." segment. When a terminator is
// found, forward is true and residual is the remainder of the spath
// (or "/" if the terminator was the trailing segment) — the call should be
// redialed downstream with that as its new Spath. When the whole spath is
// consumed without ever finding one, forward is false, mirroring
// russset_server.c's "nothing left to dial" fallback: the call terminates
// here instead of forwarding.
func (r *Request) ConsumeSetSegments() (residual string, forward bool, err error) {
	spath := r.Spath
	if spath == "" || spath[0] != '/' {
		return "", false, nil
	}

	isExecute := r.OpNum() == OpNumExecute
	p0 := spath
	for {
		rest := p0[1:]
		var seg, tail string
		if idx := strings.IndexByte(rest, '/'); idx < 0 {
			seg, tail = rest, ""
		} else {
			seg, tail = rest[:idx], rest[idx:]
		}

		if seg == "." {
			if tail == "" {
				return "/", true, nil
			}
			return tail, true, nil
		}

		if isExecute {
			if serr := applySetSegment(r, seg); serr != nil {
				return "", false, serr
			}
		}

		if tail == "" {
			return "", false, nil
		}
		p0 = tail
	}
}

// applySetSegment applies one "index=value" or "name=value" set-service
// segment to r, mirroring russset_server.c's update_attrv_argv.
func applySetSegment(r *Request, seg string) error {
	eq := strings.IndexByte(seg, '=')
	if eq < 0 {
		return fmt.Errorf("request: set segment %q: missing '='", seg)
	}
	key, value := seg[:eq], seg[eq+1:]
	if index, ierr := strconv.Atoi(key); ierr == nil {
		if index < -1 {
			return fmt.Errorf("request: set segment %q: negative index", seg)
		}
		return r.SetArg(index, value)
	}
	return r.SetAttr(key, value)
}
