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

package client

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/johnm-dev/russng-sub001/addr"
	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/closer"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/descriptor"
	"github.com/johnm-dev/russng-sub001/logging"
	"github.com/johnm-dev/russng-sub001/request"
)

// fdCloser adapts a bare file descriptor to io.Closer so it can be
// registered with a closer.Closer.
type fdCloser int

func (fd fdCloser) Close() error { return closeRawFD(int(fd)) }

// Conn is a client-side bus connection: the connected socket, the three
// data fds [in, out, err], and the exit fd carrying the server-signalled
// exit status (spec.md §3 "Connection (client view)").
type Conn struct {
	mu sync.Mutex

	conn  *net.UnixConn
	state State
	req   *request.Request

	in, out, errFd, exitFd int

	exitStatus buserr.ExitStatus
	exitRead   bool

	clo closer.Closer
}

// Dial resolves addr and connects to the target service's socket,
// advancing the returned Conn to StateConnecting.
func Dial(addrStr string, dl deadline.Deadline) (*Conn, error) {
	saddr, spath, err := addr.Resolve(addrStr)
	if err != nil {
		logging.Default().Warn(fmt.Sprintf("client: resolve %q failed: %v", addrStr, err))
		return nil, buserr.New(buserr.KindResolution, buserr.ExitCallFailure,
			fmt.Sprintf("client: resolve %q", addrStr), err)
	}

	dialer := net.Dialer{}
	if dl != deadline.Never {
		dialer.Timeout = dl.Remaining()
	}
	rawConn, err := dialer.Dial("unix", saddr)
	if err != nil {
		logging.Default().Warn(fmt.Sprintf("client: dial %q failed: %v", saddr, err))
		return nil, buserr.New(buserr.KindTransport, buserr.ExitCallFailure,
			fmt.Sprintf("client: dial %q", saddr), err)
	}
	uconn, ok := rawConn.(*net.UnixConn)
	if !ok {
		_ = rawConn.Close()
		return nil, buserr.New(buserr.KindTransport, buserr.ExitSysFailure,
			"client: dial: not a unix socket connection")
	}

	c := &Conn{
		conn:   uconn,
		state:  StateConnecting,
		in:     -1,
		out:    -1,
		errFd:  -1,
		exitFd: -1,
		clo:    closer.New(context.Background()),
	}
	c.req = &request.Request{Spath: spath}
	return c, nil
}

// SendRequest writes req's frame (after rewriting its Spath to the residual
// path Dial computed) and advances to StateRequestSent.
func (c *Conn) SendRequest(req *request.Request, dl deadline.Deadline) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnecting {
		return &ErrWrongState{Want: StateConnecting, Have: c.state}
	}

	sent := *req
	sent.Spath = c.req.Spath

	if dl != deadline.Never {
		if err := c.conn.SetWriteDeadline(timeFromDeadline(dl)); err != nil {
			return err
		}
		defer c.conn.SetWriteDeadline(noDeadline)
	}

	buf, err := request.Marshal(&sent)
	if err != nil {
		return buserr.New(buserr.KindProtocol, buserr.ExitCallFailure, "client: marshal request", err)
	}
	if _, err := c.conn.Write(buf); err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitCallFailure, "client: write request", err)
	}

	c.req = &sent
	c.state = StateRequestSent
	return nil
}

// ReceiveDescriptors receives the three data fds [in, out, err] and the
// exit fd, in that fixed order, and advances to StateDescriptorsReceived.
func (c *Conn) ReceiveDescriptors(dl deadline.Deadline) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRequestSent {
		return &ErrWrongState{Want: StateRequestSent, Have: c.state}
	}

	raw, err := c.conn.SyscallConn()
	if err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitCallFailure, "client: syscallconn", err)
	}

	recv := func(target *int) error {
		var fdNum int
		if cerr := raw.Control(func(fdRaw uintptr) { fdNum = int(fdRaw) }); cerr != nil {
			return cerr
		}
		if err := waitReadable(fdNum, dl); err != nil {
			return err
		}
		fd, err := descriptor.RecvFD(c.conn)
		if err != nil {
			return err
		}
		*target = fd
		c.clo.Add(fdCloser(fd))
		return nil
	}

	if err := recv(&c.in); err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitCallFailure, "client: receive in fd", err)
	}
	if err := recv(&c.out); err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitCallFailure, "client: receive out fd", err)
	}
	if err := recv(&c.errFd); err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitCallFailure, "client: receive err fd", err)
	}
	if err := recv(&c.exitFd); err != nil {
		return buserr.New(buserr.KindTransport, buserr.ExitCallFailure, "client: receive exit fd", err)
	}

	c.state = StateDescriptorsReceived
	return nil
}

// Stream advances to StateStreaming, after which In/Out/Err are safe for
// the caller to read/write directly while polling for exit.
func (c *Conn) Stream() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDescriptorsReceived {
		return &ErrWrongState{Want: StateDescriptorsReceived, Have: c.state}
	}
	c.state = StateStreaming
	return nil
}

// In, Out, Err return the client's three data fds (valid once
// StateDescriptorsReceived or later).
func (c *Conn) In() int  { c.mu.Lock(); defer c.mu.Unlock(); return c.in }
func (c *Conn) Out() int { c.mu.Lock(); defer c.mu.Unlock(); return c.out }
func (c *Conn) Err() int { c.mu.Lock(); defer c.mu.Unlock(); return c.errFd }

// ExitFD returns the system fd the server signals its exit status on.
func (c *Conn) ExitFD() int { c.mu.Lock(); defer c.mu.Unlock(); return c.exitFd }

// State reports the connection's current state.
func (c *Conn) State() State { c.mu.Lock(); defer c.mu.Unlock(); return c.state }

// WaitExit blocks until the exit fd is readable (within dl), reads the i32
// exit status, and advances to StateExited. A closed exit fd with no
// payload is reported as ExitSysFailure (spec.md §4.4 "Exit signalling").
func (c *Conn) WaitExit(dl deadline.Deadline) (buserr.ExitStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStreaming && c.state != StateDescriptorsReceived {
		return 0, &ErrWrongState{Want: StateStreaming, Have: c.state}
	}

	if err := waitReadable(c.exitFd, dl); err != nil {
		return 0, err
	}

	var buf [4]byte
	n, rerr := readFull(c.exitFd, buf[:])
	if rerr != nil || n < 4 {
		c.exitStatus = buserr.ExitSysFailure
		c.exitRead = true
		c.state = StateExited
		return c.exitStatus, nil
	}

	c.exitStatus = buserr.ExitStatus(int32(binary.LittleEndian.Uint32(buf[:])))
	c.exitRead = true
	c.state = StateExited
	return c.exitStatus, nil
}

// Close closes all four fds and frees the connection. Closing before
// StateExited is legal; ExitStatus then defaults to ExitSysFailure
// (spec.md §4.4 "Client state machine").
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil
	}
	if !c.exitRead {
		c.exitStatus = buserr.ExitSysFailure
	}

	var errs []error
	if err := c.clo.Close(); err != nil && err != closer.ErrClosed {
		errs = append(errs, err)
	}
	if err := c.conn.Close(); err != nil {
		errs = append(errs, err)
	}

	c.state = StateClosed
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ExitStatus returns the last observed (or defaulted) exit status.
func (c *Conn) ExitStatus() buserr.ExitStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitStatus
}
