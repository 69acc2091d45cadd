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
	"context"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/request"
)

// SetThenForward is the handler body for the "set" service's virtual,
// autoanswer=false node (SPEC_FULL.md §C.4, grounding spec.md §8 S5
// "Set-then-forward"): it consumes the leading /index=value and
// /name=value spath segments up to and including the first "." segment
// (request.Request.ConsumeSetSegments) on a private copy of the caller's
// request, then redials addrStr with the rewritten request and residual
// spath via RedialAndSplice. A spath with no "." terminator has nothing
// left to dial into, so the call is answered here instead, mirroring
// russset_server.c's fallback; a segment that fails to parse is reported
// back to the caller as ExitFailure rather than forwarded.
func SetThenForward(ctx context.Context, sc *ServerConn, addrStr string, dl deadline.Deadline) error {
	orig := sc.Request()
	mutated := request.Request{
		ProtocolTag: orig.ProtocolTag,
		Op:          orig.Op,
		Spath:       orig.Spath,
		Attrs:       append([]string(nil), orig.Attrs...),
		Args:        append([]string(nil), orig.Args...),
	}

	residual, forward, err := mutated.ConsumeSetSegments()
	if err != nil {
		if aerr := sc.answer(dl); aerr != nil {
			return aerr
		}
		if merr := sc.markServing(); merr != nil {
			return merr
		}
		return sc.Fatal("error: could not set attribute/argument", buserr.ExitFailure)
	}

	if !forward {
		if aerr := sc.answer(dl); aerr != nil {
			return aerr
		}
		if merr := sc.markServing(); merr != nil {
			return merr
		}
		return sc.SendExit(buserr.ExitSuccess)
	}

	mutated.Spath = residual
	return RedialAndSplice(ctx, sc, addrStr, &mutated, dl)
}
