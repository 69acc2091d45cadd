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

package forwarder

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/deadline"
)

// pollOne blocks fd until the requested events are ready, a hangup/error is
// observed, or dl expires, recomputing the remaining timeout on each
// iteration and restarting transparently on EINTR (spec.md §4.4
// "Deadlines", applied here to a single fd rather than a whole relay set).
func pollOne(fd int, events int16, dl deadline.Deadline) (ready bool, hup bool, err error) {
	for {
		if dl.Expired() {
			return false, false, deadline.ErrTimeout
		}

		timeoutMs := -1
		if dl != deadline.Never {
			timeoutMs = int(dl.Remaining().Milliseconds())
			if timeoutMs < 0 {
				timeoutMs = 0
			}
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, perr := unix.Poll(fds, timeoutMs)
		if perr != nil {
			if errors.Is(perr, unix.EINTR) {
				continue
			}
			return false, false, perr
		}
		if n == 0 {
			if dl == deadline.Never {
				continue
			}
			return false, false, deadline.ErrTimeout
		}

		revents := fds[0].Revents
		hup = revents&(unix.POLLHUP|unix.POLLERR) != 0
		ready = revents&events != 0
		return ready, hup, nil
	}
}
