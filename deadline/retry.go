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

package deadline

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Retry when d expires before attempt reports done.
var ErrTimeout = errors.New("deadline: timeout")

// pollInterval bounds how long a single retry iteration sleeps when attempt
// reports "not yet" and the deadline allows more time.
const pollInterval = 20 * time.Millisecond

// Retry calls attempt repeatedly until it reports done, returns an error, or
// d expires. Each iteration recomputes the remaining time from d rather than
// trusting a fixed budget, so a process that stalls between iterations
// (signal handling, GC pause) never gets more total wait time than d allows
// — the Go equivalent of the source's poll-recompute-and-restart-on-EINTR
// loop (spec.md §4.4).
func Retry(d Deadline, attempt func() (done bool, err error)) error {
	for {
		done, err := attempt()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if d == Now {
			return ErrTimeout
		}
		if d != Never && d.Expired() {
			return ErrTimeout
		}

		sleep := pollInterval
		if d != Never {
			if rem := d.Remaining(); rem < sleep {
				sleep = rem
			}
		}
		time.Sleep(sleep)
	}
}
