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

package dial

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/client"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/request"
)

const scratchSize = 4096

// WaitInOutErr dials addrStr, sends req, streams input to the call's input
// fd (closing it once exhausted, so the service sees EOF), and captures the
// call's output and error streams into outBuf/errBuf (either may be nil,
// modelling a zero-capacity buffer — spec.md §4.8: "absent capture is
// modelled as capacity zero"). It returns once all four fds — input,
// output, error, exit — have closed, together with the exit status read
// off the exit fd.
func WaitInOutErr(addrStr string, dl deadline.Deadline, req *request.Request, input []byte, outBuf, errBuf *Buffer) (buserr.ExitStatus, error) {
	c, err := client.Dial(addrStr, dl)
	if err != nil {
		return 0, err
	}
	// The wait loop below closes the four data/exit fds itself as each one
	// drains, per spec.md §4.8; this deferred Close only needs to reach the
	// underlying socket by the time we return (its redundant attempts on
	// the already-closed fds are harmless no-ops).
	defer c.Close()

	if err := c.SendRequest(req, dl); err != nil {
		return 0, err
	}
	if err := c.ReceiveDescriptors(dl); err != nil {
		return 0, err
	}
	if err := c.Stream(); err != nil {
		return 0, err
	}

	st := &session{
		inFD:   c.In(),
		outFD:  c.Out(),
		errFD:  c.Err(),
		exitFD: c.ExitFD(),
		input:  input,
		outBuf: outBuf,
		errBuf: errBuf,
	}
	if len(st.input) == 0 {
		st.closeIn()
	}

	for !st.allClosed() {
		if dl.Expired() {
			return 0, deadline.ErrTimeout
		}
		timeoutMs := -1
		if dl != deadline.Never {
			timeoutMs = int(dl.Remaining().Milliseconds())
			if timeoutMs < 0 {
				timeoutMs = 0
			}
		}

		fds, targets := st.buildPollSet()
		n, perr := unix.Poll(fds, timeoutMs)
		if perr != nil {
			if errors.Is(perr, unix.EINTR) {
				continue
			}
			return 0, perr
		}
		if n == 0 {
			if dl == deadline.Never {
				continue
			}
			return 0, deadline.ErrTimeout
		}

		for i, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			st.handle(targets[i], pfd.Revents)
		}
	}

	return st.exitStatus, nil
}

type slot int

const (
	slotIn slot = iota
	slotOut
	slotErr
	slotExit
)

type session struct {
	inFD, outFD, errFD, exitFD int
	inOff                      int
	input                      []byte
	outBuf, errBuf             *Buffer

	inClosed, outClosed, errClosed, exitClosed bool
	exitStatus                                 buserr.ExitStatus
}

func (s *session) allClosed() bool {
	return s.inClosed && s.outClosed && s.errClosed && s.exitClosed
}

func (s *session) closeIn() {
	if s.inClosed {
		return
	}
	_ = unix.Close(s.inFD)
	s.inClosed = true
}

func (s *session) buildPollSet() ([]unix.PollFd, []slot) {
	var fds []unix.PollFd
	var targets []slot
	if !s.inClosed {
		fds = append(fds, unix.PollFd{Fd: int32(s.inFD), Events: unix.POLLOUT})
		targets = append(targets, slotIn)
	}
	if !s.outClosed {
		fds = append(fds, unix.PollFd{Fd: int32(s.outFD), Events: unix.POLLIN})
		targets = append(targets, slotOut)
	}
	if !s.errClosed {
		fds = append(fds, unix.PollFd{Fd: int32(s.errFD), Events: unix.POLLIN})
		targets = append(targets, slotErr)
	}
	if !s.exitClosed {
		fds = append(fds, unix.PollFd{Fd: int32(s.exitFD), Events: unix.POLLIN})
		targets = append(targets, slotExit)
	}
	return fds, targets
}

func (s *session) handle(t slot, revents int16) {
	switch t {
	case slotIn:
		if revents&unix.POLLOUT == 0 {
			if revents&(unix.POLLHUP|unix.POLLERR) != 0 {
				s.closeIn()
			}
			return
		}
		n, err := unix.Write(s.inFD, s.input[s.inOff:])
		if err != nil {
			if err == unix.EINTR {
				return
			}
			s.closeIn()
			return
		}
		s.inOff += n
		if s.inOff >= len(s.input) {
			s.closeIn()
		}

	case slotOut:
		s.drainInto(s.outFD, s.outBuf, &s.outClosed)
	case slotErr:
		s.drainInto(s.errFD, s.errBuf, &s.errClosed)

	case slotExit:
		if revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			return
		}
		var buf [4]byte
		n, _ := readFull(s.exitFD, buf[:])
		if n == 4 {
			s.exitStatus = buserr.ExitStatus(int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16 | int32(buf[3])<<24)
		} else {
			s.exitStatus = buserr.ExitSysFailure
		}
		_ = unix.Close(s.exitFD)
		s.exitClosed = true
	}
}

// drainInto handles a readable data fd: captured bytes go to buf up to its
// capacity (spec.md §4.8 step 3); a zero-capacity (or nil) buf still drains
// the fd, discarding what it reads, so the poll loop doesn't spin on a
// permanently-readable fd.
func (s *session) drainInto(fd int, buf *Buffer, closed *bool) {
	scratch := make([]byte, scratchSize)
	n, err := unix.Read(fd, scratch)
	if err != nil {
		if err == unix.EINTR {
			return
		}
		_ = unix.Close(fd)
		*closed = true
		return
	}
	if n == 0 {
		_ = unix.Close(fd)
		*closed = true
		return
	}
	if buf != nil {
		buf.append(scratch[:n])
	}
}

func readFull(fd int, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := unix.Read(fd, buf[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
	return total, nil
}
