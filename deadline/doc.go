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

// Package deadline models the bus's absolute-monotonic-millisecond deadline
// value (spec.md §4.4) and the recompute-and-retry wait loop every blocking
// bus operation is built on.
//
// A Deadline is not a duration: it is a fixed point in monotonic time,
// computed once at the start of an operation and carried through retries so
// that EINTR/spurious wakeups never extend the effective timeout, the same
// discipline the teacher's duration package applies to wall-clock values
// elsewhere in the stack.
package deadline

import (
	"math"
	"time"
)

// Deadline is milliseconds on the monotonic clock (counted from process
// start, see NowMillis) at which a blocking operation must give up.
type Deadline int64

const (
	// Never disables timing entirely: waits block until satisfied by other
	// means (data ready, connection closed), never by the clock.
	Never Deadline = math.MaxInt64

	// Now forces an immediate, non-blocking check with no retry.
	Now Deadline = 0
)

// epoch is the process-start instant; time.Since reads its monotonic clock
// reading, so NowMillis is unaffected by wall-clock changes.
var epoch = time.Now()

// NowMillis returns the current instant on the same clock Deadline values
// are measured against: monotonic milliseconds since process start.
func NowMillis() int64 {
	return time.Since(epoch).Milliseconds()
}

// FromTimeout computes an absolute Deadline that expires after timeout from
// now. A negative timeout yields Never; a zero timeout yields Now.
func FromTimeout(timeout time.Duration) Deadline {
	switch {
	case timeout < 0:
		return Never
	case timeout == 0:
		return Now
	default:
		return Deadline(NowMillis() + timeout.Milliseconds())
	}
}

// Remaining returns the time.Duration left until d, clamped to zero. For
// Never it returns the largest representable duration so callers can feed
// it straight to time.After-style APIs without a special case.
func (d Deadline) Remaining() time.Duration {
	if d == Never {
		return time.Duration(math.MaxInt64)
	}
	remMs := int64(d) - NowMillis()
	if remMs <= 0 {
		return 0
	}
	return time.Duration(remMs) * time.Millisecond
}

// Expired reports whether d has already passed (Now is always expired;
// Never is never expired).
func (d Deadline) Expired() bool {
	if d == Never {
		return false
	}
	return int64(d) <= NowMillis()
}
