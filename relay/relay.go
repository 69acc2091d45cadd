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

package relay

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/logging"
)

// DefaultBufSize mirrors RUSS_RELAY_BUFSIZE (2 << 15).
const DefaultBufSize = 2 << 15

// Stream is one (rfd, wfd) bridge with its own pending-output buffer
// (spec.md §3 "Relay stream").
type Stream struct {
	RFD       int
	WFD       int
	AutoClose bool
	Bidir     bool

	cap  int
	buf  []byte
	rDone bool
	wDone bool
	retired bool
}

// Relay bridges up to K streams through a single poll call, ending when
// ExitFD becomes readable (or, if ExitFD is -1, once every stream has
// retired) — spec.md §4.6.
type Relay struct {
	ExitFD  int
	streams []*Stream

	// Logger receives an Error for a poll failure (SPEC_FULL.md §A.1:
	// "relay ... logs through the logging package"); nil uses
	// logging.Default().
	Logger logging.Logger
}

// New creates an empty Relay. exitFD may be -1 to run without exit-fd
// observation (the relay then ends once every stream has retired).
func New(exitFD int) *Relay {
	return &Relay{ExitFD: exitFD}
}

func (r *Relay) logger() logging.Logger {
	if r.Logger == nil {
		return logging.Default()
	}
	return r.Logger
}

// Add registers a new stream and returns it. bufCap <= 0 defaults to
// DefaultBufSize.
func (r *Relay) Add(rfd, wfd, bufCap int, autoClose, bidir bool) *Stream {
	if bufCap <= 0 {
		bufCap = DefaultBufSize
	}
	s := &Stream{
		RFD:       rfd,
		WFD:       wfd,
		AutoClose: autoClose,
		Bidir:     bidir,
		cap:       bufCap,
	}
	r.streams = append(r.streams, s)
	return s
}

// Remove retires s without touching its fds; the caller is responsible
// for closing them if desired.
func (r *Relay) Remove(s *Stream) {
	for i, st := range r.streams {
		if st == s {
			r.streams = append(r.streams[:i], r.streams[i+1:]...)
			return
		}
	}
}

type pollTarget struct {
	streamIdx int // -1 for the exit fd
	isWrite   bool
}

// Serve runs the relay's event loop until ExitFD reports a status, every
// stream retires (ExitFD == -1), or dl expires.
func (r *Relay) Serve(dl deadline.Deadline) (buserr.ExitStatus, error) {
	for {
		if r.allRetired() {
			if r.ExitFD < 0 {
				return buserr.ExitSuccess, nil
			}
		}

		fds, targets := r.buildPollSet()
		if len(fds) == 0 {
			return buserr.ExitSuccess, nil
		}

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

		n, err := unix.Poll(fds, timeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			r.logger().Error("relay: poll", err)
			return 0, err
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
			t := targets[i]
			if t.streamIdx < 0 {
				if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
					status, serr := readExitStatus(r.ExitFD)
					return status, serr
				}
				continue
			}
			s := r.streams[t.streamIdx]
			if t.isWrite {
				r.handleWritable(s, pfd.Revents)
			} else {
				r.handleReadable(s, pfd.Revents)
			}
		}

		r.retireFinished()
	}
}

func (r *Relay) buildPollSet() ([]unix.PollFd, []pollTarget) {
	var fds []unix.PollFd
	var targets []pollTarget

	for i, s := range r.streams {
		if s.retired {
			continue
		}
		if !s.rDone && len(s.buf) < s.cap {
			fds = append(fds, unix.PollFd{Fd: int32(s.RFD), Events: unix.POLLIN})
			targets = append(targets, pollTarget{streamIdx: i, isWrite: false})
		}
		if len(s.buf) > 0 {
			fds = append(fds, unix.PollFd{Fd: int32(s.WFD), Events: unix.POLLOUT})
			targets = append(targets, pollTarget{streamIdx: i, isWrite: true})
		}
	}
	if r.ExitFD >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(r.ExitFD), Events: unix.POLLIN})
		targets = append(targets, pollTarget{streamIdx: -1})
	}
	return fds, targets
}

func (r *Relay) handleReadable(s *Stream, revents int16) {
	if revents&unix.POLLIN == 0 {
		if revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			s.rDone = true
		}
		return
	}
	free := s.cap - len(s.buf)
	if free <= 0 {
		return
	}
	tmp := make([]byte, free)
	n, err := unix.Read(s.RFD, tmp)
	if err != nil {
		if err == unix.EINTR {
			return
		}
		s.rDone = true
		return
	}
	if n == 0 {
		s.rDone = true
		return
	}
	s.buf = append(s.buf, tmp[:n]...)
}

func (r *Relay) handleWritable(s *Stream, revents int16) {
	if revents&(unix.POLLHUP|unix.POLLERR) != 0 {
		s.retired = true
		return
	}
	if revents&unix.POLLOUT == 0 {
		return
	}
	n, err := unix.Write(s.WFD, s.buf)
	if err != nil {
		if err == unix.EINTR {
			return
		}
		// hangup/error on an output aborts that stream (spec.md §4.6)
		s.retired = true
		return
	}
	s.buf = s.buf[n:]
}

func (r *Relay) retireFinished() {
	for _, s := range r.streams {
		if s.retired {
			continue
		}
		if s.rDone && len(s.buf) == 0 {
			s.wDone = true
		}
		if s.rDone && s.wDone {
			s.retired = true
			if s.AutoClose {
				if !s.Bidir {
					_ = unix.Close(s.RFD)
					_ = unix.Close(s.WFD)
				} else {
					_ = unix.Close(s.RFD)
				}
			}
		}
	}
}

func (r *Relay) allRetired() bool {
	for _, s := range r.streams {
		if !s.retired {
			return false
		}
	}
	return true
}

func readExitStatus(fd int) (buserr.ExitStatus, error) {
	var buf [4]byte
	total := 0
	for total < 4 {
		n, err := unix.Read(fd, buf[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return buserr.ExitSysFailure, nil
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total < 4 {
		return buserr.ExitSysFailure, nil
	}
	status := int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16 | int32(buf[3])<<24
	return buserr.ExitStatus(status), nil
}
