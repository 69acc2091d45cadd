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
	"github.com/johnm-dev/russng-sub001/client"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/relay"
	"github.com/johnm-dev/russng-sub001/request"
)

// RedialAndSplice is the handler body for an autoanswer=false pass-through
// node (spec.md §4.3 "autoanswer"): it answers sc itself — creating sc's own
// data/exit pipes rather than handing off the caller's original descriptor
// set — dials addrStr as a fresh client call carrying req, and then bridges
// the two descriptor sets byte-for-byte through a relay until the downstream
// service exits, at which point that real exit status is forwarded to the
// original caller (SPEC_FULL.md §C.3).
func RedialAndSplice(ctx context.Context, sc *ServerConn, addrStr string, req *request.Request, dl deadline.Deadline) error {
	if err := sc.answer(dl); err != nil {
		return err
	}
	if err := sc.markServing(); err != nil {
		return err
	}

	cl, err := client.Dial(addrStr, dl)
	if err != nil {
		return err
	}
	defer cl.Close()

	if err := cl.SendRequest(req, dl); err != nil {
		return err
	}
	if err := cl.ReceiveDescriptors(dl); err != nil {
		return err
	}
	if err := cl.Stream(); err != nil {
		return err
	}

	rel := relay.New(cl.ExitFD())
	rel.Add(sc.In(), cl.In(), 0, true, false)
	rel.Add(cl.Out(), sc.Out(), 0, true, false)
	rel.Add(cl.Err(), sc.Err(), 0, true, false)

	status, serr := rel.Serve(dl)
	if serr != nil {
		_ = sc.SendExit(buserr.ExitSysFailure)
		return serr
	}

	// The caller's failsafe SendExit in serveConn is a no-op once this one
	// has already run (ServerConn.exitSent), so the downstream's real exit
	// status is what reaches the original caller, not a generic success.
	if err := sc.SendExit(status); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
