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
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/hashicorp/go-uuid"
	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/closer"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/descriptor"
	"github.com/johnm-dev/russng-sub001/request"
)

// fdCloser adapts a bare file descriptor to io.Closer so it can be
// registered with a closer.Closer.
type fdCloser int

func (fd fdCloser) Close() error { return unix.Close(int(fd)) }

// ServerConn is one accepted connection's server-side state (spec.md §4.4
// "Server state machine (per-connection)"). TraceID is attached to every
// log entry emitted for this call, since a fork/thread server can't rely
// on pid or goroutine id alone to correlate a request across log lines
// (SPEC_FULL.md §B).
type ServerConn struct {
	mu sync.Mutex

	rawConn *net.UnixConn
	state   ConnState

	cred descriptor.Credentials
	req  *request.Request

	matchedPath string
	autoAnswer  bool

	// server-side ends of the fds handed (or to be handed) to the client.
	in, out, errFd, exitFd int
	exitSent                bool

	TraceID string
	clo     closer.Closer
}

func newServerConn(conn *net.UnixConn) *ServerConn {
	id, err := uuid.GenerateUUID()
	if err != nil {
		id = ""
	}
	return &ServerConn{
		rawConn: conn,
		state:   StateAccepted,
		in:      -1,
		out:     -1,
		errFd:   -1,
		exitFd:  -1,
		TraceID: id,
		clo:     closer.New(context.Background()),
	}
}

// RawConn exposes the accepted socket, for handlers that answer the
// connection themselves (autoanswer=false nodes, spec.md §4.4).
func (sc *ServerConn) RawConn() *net.UnixConn { return sc.rawConn }

// Credentials returns the peer (pid, uid, gid) read by readCredentials.
func (sc *ServerConn) Credentials() descriptor.Credentials {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cred
}

// Request returns the parsed request (valid from StateRequestParsed on).
func (sc *ServerConn) Request() *request.Request {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.req
}

// MatchedPath returns the dispatch-tree matched_path computed for this
// request (spec.md §4.3).
func (sc *ServerConn) MatchedPath() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.matchedPath
}

// State reports the connection's current state.
func (sc *ServerConn) State() ConnState {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// readCredentials reads the peer's (pid, uid, gid) and advances to
// StateCredsRead.
func (sc *ServerConn) readCredentials() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateAccepted {
		return &ErrWrongState{Want: StateAccepted, Have: sc.state}
	}
	cred, err := descriptor.GetCredentials(sc.rawConn)
	if err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: read credentials", err)
	}
	sc.cred = cred
	sc.state = StateCredsRead
	return nil
}

// readRequest reads and parses the request frame within dl, advancing
// through StateAwaitingRequest to StateRequestParsed.
func (sc *ServerConn) readRequest(dl deadline.Deadline) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateCredsRead {
		return &ErrWrongState{Want: StateCredsRead, Have: sc.state}
	}
	sc.state = StateAwaitingRequest

	if dl != deadline.Never {
		if err := sc.rawConn.SetReadDeadline(timeFromDeadline(dl)); err != nil {
			return err
		}
		defer sc.rawConn.SetReadDeadline(noDeadline)
	}

	req, err := request.ReadRequest(sc.rawConn)
	if err != nil {
		return buserr.New(buserr.KindProtocol, buserr.ExitCallFailure, "server: read request", err)
	}
	sc.req = req
	sc.state = StateRequestParsed
	return nil
}

// answer creates the three data-fd pipes plus the exit-fd pipe, sends the
// client-side ends in the fixed order [in, out, err, exit], closes the
// handed-off server-side copies, and keeps the opposite ends for the
// server's own I/O (spec.md §4.4 "Descriptor handoff").
func (sc *ServerConn) answer(dl deadline.Deadline) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateRequestParsed {
		return &ErrWrongState{Want: StateRequestParsed, Have: sc.state}
	}

	dataR, dataW, err := descriptor.MakePipes(3)
	if err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: make data pipes", err)
	}
	exitR, exitW, err := descriptor.MakePipes(1)
	if err != nil {
		for _, fd := range append(dataR, dataW...) {
			_ = unix.Close(fd)
		}
		return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: make exit pipe", err)
	}

	if dl != deadline.Never {
		if err := sc.rawConn.SetWriteDeadline(timeFromDeadline(dl)); err != nil {
			return err
		}
		defer sc.rawConn.SetWriteDeadline(noDeadline)
	}

	clientSide := []int{dataR[0], dataR[1], dataR[2], exitR[0]}
	for _, fd := range clientSide {
		if serr := descriptor.SendFD(sc.rawConn, fd); serr != nil {
			return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: send fd", serr)
		}
	}
	for _, fd := range clientSide {
		_ = unix.Close(fd)
	}

	sc.in, sc.out, sc.errFd = dataW[0], dataW[1], dataW[2]
	sc.clo.Add(fdCloser(sc.in), fdCloser(sc.out), fdCloser(sc.errFd))
	sc.exitFd = exitW[0]
	sc.autoAnswer = true
	sc.state = StateAnswered
	return nil
}

// markAnswered is used by autoanswer=false handlers (pass-through, set)
// that perform their own answer sequence directly on RawConn rather than
// through answer().
func (sc *ServerConn) markAnswered() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateRequestParsed {
		return &ErrWrongState{Want: StateRequestParsed, Have: sc.state}
	}
	sc.state = StateAnswered
	return nil
}

func (sc *ServerConn) markServing() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateAnswered {
		return &ErrWrongState{Want: StateAnswered, Have: sc.state}
	}
	sc.state = StateServing
	return nil
}

// In, Out, Err return the server's own ends of the three data fds (valid
// once StateAnswered, for autoanswer nodes).
func (sc *ServerConn) In() int  { sc.mu.Lock(); defer sc.mu.Unlock(); return sc.in }
func (sc *ServerConn) Out() int { sc.mu.Lock(); defer sc.mu.Unlock(); return sc.out }
func (sc *ServerConn) Err() int { sc.mu.Lock(); defer sc.mu.Unlock(); return sc.errFd }

// SendExit writes status on the exit fd and closes it, advancing to
// StateExited. Any later SendExit call is a protocol error (spec.md §4.4
// "Exit signalling": "Any write after the status is a protocol error").
func (sc *ServerConn) SendExit(status buserr.ExitStatus) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.exitSent {
		return fmt.Errorf("server: exit status already sent")
	}
	if sc.exitFd < 0 {
		return fmt.Errorf("server: no exit fd to send on")
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(status)))
	if _, err := unix.Write(sc.exitFd, buf[:]); err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: write exit status", err)
	}
	if err := unix.Close(sc.exitFd); err != nil {
		return err
	}
	sc.exitFd = -1
	sc.exitSent = true
	sc.state = StateExited
	return nil
}

// Fatal writes line to the error fd (if answered) or, if not yet answered,
// simply closes the connection, then sends exitStatus and closes the
// connection (spec.md §4.4 "Error conditions and signals": the fatal
// message helper).
func (sc *ServerConn) Fatal(line string, exitStatus buserr.ExitStatus) error {
	sc.mu.Lock()
	answered := sc.state == StateAnswered || sc.state == StateServing
	errFd := sc.errFd
	sc.mu.Unlock()

	if answered && errFd >= 0 {
		msg := line
		if len(msg) == 0 || msg[len(msg)-1] != '\n' {
			msg += "\n"
		}
		_, _ = unix.Write(errFd, []byte(msg))
		_ = sc.SendExit(exitStatus)
	}
	return sc.Close()
}

// Close closes every fd this connection owns (idempotent).
func (sc *ServerConn) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var errs []error
	// exitFd has its own one-shot lifecycle: SendExit already closes it
	// and clears the field once the status has gone out, so it is only
	// closed here when a call never reached that point (spec.md §4.4
	// "Error conditions and signals").
	if sc.exitFd >= 0 {
		if err := unix.Close(sc.exitFd); err != nil {
			errs = append(errs, err)
		}
		sc.exitFd = -1
	}
	if err := sc.clo.Close(); err != nil && err != closer.ErrClosed {
		errs = append(errs, err)
	}
	sc.in, sc.out, sc.errFd = -1, -1, -1

	if sc.rawConn != nil {
		if err := sc.rawConn.Close(); err != nil {
			errs = append(errs, err)
		}
		sc.rawConn = nil
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
