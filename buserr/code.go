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

package buserr

// Kind classifies an Error along the bus's own fault lines, independent of
// the numeric exit status ultimately reported to a peer.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindProtocol marks a malformed frame or an out-of-order wire operation.
	KindProtocol
	// KindResolution marks an address-resolution failure (addr package).
	KindResolution
	// KindTransport marks a failure in the underlying socket/fd machinery.
	KindTransport
	// KindDeadline marks an operation that gave up because its deadline expired.
	KindDeadline
	// KindApplication marks a failure reported by a service handler itself.
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindResolution:
		return "resolution"
	case KindTransport:
		return "transport"
	case KindDeadline:
		return "deadline"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// ExitStatus is the reserved set of numeric sentinels a connection's exit fd
// carries (spec.md §4.4). Clients SHOULD surface these unmodified.
type ExitStatus int32

const (
	ExitSuccess     ExitStatus = 0
	ExitFailure     ExitStatus = 1
	ExitCallFailure ExitStatus = -1
	ExitSysFailure  ExitStatus = -127
)
