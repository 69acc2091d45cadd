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

import "fmt"

// State is a client Conn's position in the dial/request/stream/exit
// sequence (spec.md §4.4).
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateRequestSent
	StateDescriptorsReceived
	StateStreaming
	StateExited
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateRequestSent:
		return "request_sent"
	case StateDescriptorsReceived:
		return "descriptors_received"
	case StateStreaming:
		return "streaming"
	case StateExited:
		return "exited"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrWrongState reports an attempt to advance a Conn out of order.
type ErrWrongState struct {
	Want State
	Have State
}

func (e *ErrWrongState) Error() string {
	return fmt.Sprintf("client: expected state %s, have %s", e.Want, e.Have)
}
