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

//go:build linux

package descriptor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

func closeFD(fd int) error {
	return unix.Close(fd)
}

// MakePipes creates n pipes, returning the read-side fds and write-side fds
// as parallel slices. On any failure every fd created so far is closed and
// the error is returned.
//
// For n == 3 the first pair is substituted with a UNIX-domain socketpair
// rather than a plain pipe: this is the documented quirk (spec.md §9, §C.1
// of SPEC_FULL.md) that lets a handler's stdin be read from and written to
// through the same descriptor, as the "set" service pattern requires.
func MakePipes(n int) (readFDs, writeFDs []int, err error) {
	readFDs = make([]int, 0, n)
	writeFDs = make([]int, 0, n)

	cleanup := func() {
		for _, fd := range readFDs {
			_ = unix.Close(fd)
		}
		for _, fd := range writeFDs {
			_ = unix.Close(fd)
		}
	}

	if n <= 0 {
		return readFDs, writeFDs, nil
	}

	if n == 3 {
		sv, serr := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if serr != nil {
			return nil, nil, fmt.Errorf("descriptor: socketpair: %w", serr)
		}
		readFDs = append(readFDs, sv[0])
		writeFDs = append(writeFDs, sv[1])
	} else {
		fds, err := makeOnePipe()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		readFDs = append(readFDs, fds[0])
		writeFDs = append(writeFDs, fds[1])
	}

	for i := 1; i < n; i++ {
		fds, err := makeOnePipe()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		readFDs = append(readFDs, fds[0])
		writeFDs = append(writeFDs, fds[1])
	}
	return readFDs, writeFDs, nil
}

func makeOnePipe() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return fds, fmt.Errorf("descriptor: pipe: %w", err)
	}
	return fds, nil
}

// GetCredentials reads the peer (pid, uid, gid) of an accepted UNIX-domain
// socket via SO_PEERCRED. Pid is reported as -1 if the kernel did not
// supply one (not expected on Linux, but the field is always checked).
func GetCredentials(conn *net.UnixConn) (Credentials, error) {
	var (
		cred Credentials
		ucr  *unix.Ucred
		rerr error
	)

	raw, err := conn.SyscallConn()
	if err != nil {
		return cred, fmt.Errorf("descriptor: syscallconn: %w", err)
	}
	cerr := raw.Control(func(fd uintptr) {
		ucr, rerr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if cerr != nil {
		return cred, fmt.Errorf("descriptor: control: %w", cerr)
	}
	if rerr != nil {
		return cred, fmt.Errorf("descriptor: getsockopt(SO_PEERCRED): %w", rerr)
	}

	cred.Pid = ucr.Pid
	if cred.Pid == 0 {
		cred.Pid = -1
	}
	cred.Uid = ucr.Uid
	cred.Gid = ucr.Gid
	return cred, nil
}

// SendFD transfers exactly one descriptor through ancillary data (SCM_RIGHTS)
// on conn. The accompanying one-byte payload carries no meaning; the
// receiver ignores its content.
func SendFD(conn *net.UnixConn, fd int) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("descriptor: syscallconn: %w", err)
	}
	oob := unix.UnixRights(fd)
	var sendErr error
	cerr := raw.Control(func(sfd uintptr) {
		sendErr = unix.Sendmsg(int(sfd), []byte{0}, oob, nil, 0)
	})
	if cerr != nil {
		return fmt.Errorf("descriptor: control: %w", cerr)
	}
	if sendErr != nil {
		return fmt.Errorf("descriptor: sendmsg: %w", sendErr)
	}
	return nil
}

// errNoRights is returned by RecvFD when the message carried no SCM_RIGHTS
// ancillary data at all (a protocol error per spec.md §3 Invariants).
var errNoRights = fmt.Errorf("descriptor: no SCM_RIGHTS in message")

// RecvFD receives exactly one descriptor transferred by SendFD. A received
// fd of -1 (if ever observed from a malformed peer) is treated as a protocol
// error rather than propagated.
func RecvFD(conn *net.UnixConn) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("descriptor: syscallconn: %w", err)
	}

	oob := make([]byte, unix.CmsgSpace(4))
	p := make([]byte, 1)

	var (
		n, oobn int
		rerr    error
	)
	cerr := raw.Control(func(sfd uintptr) {
		n, oobn, _, _, rerr = unix.Recvmsg(int(sfd), p, oob, 0)
	})
	if cerr != nil {
		return -1, fmt.Errorf("descriptor: control: %w", cerr)
	}
	if rerr != nil {
		return -1, fmt.Errorf("descriptor: recvmsg: %w", rerr)
	}
	if n == 0 && oobn == 0 {
		return -1, fmt.Errorf("descriptor: recvmsg: connection closed")
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, fmt.Errorf("descriptor: parse control message: %w", err)
	}
	for _, scm := range scms {
		fds, err := unix.ParseUnixRights(&scm)
		if err != nil {
			continue
		}
		if len(fds) == 0 {
			continue
		}
		if fds[0] < 0 {
			return -1, errNoRights
		}
		return fds[0], nil
	}
	return -1, errNoRights
}
