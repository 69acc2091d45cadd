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

// ConnState is the per-connection server-side state (spec.md §4.4 "Server
// state machine").
type ConnState int

const (
	StateAccepted ConnState = iota
	StateCredsRead
	StateAwaitingRequest
	StateRequestParsed
	StateAnswered
	StateServing
	StateExited
)

func (s ConnState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateCredsRead:
		return "creds-read"
	case StateAwaitingRequest:
		return "awaiting-request"
	case StateRequestParsed:
		return "request-parsed"
	case StateAnswered:
		return "answered"
	case StateServing:
		return "serving"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// ErrWrongState is returned when a ServerConn method is called out of
// sequence.
type ErrWrongState struct {
	Want ConnState
	Have ConnState
}

func (e *ErrWrongState) Error() string {
	return "server: expected state " + e.Want.String() + ", have " + e.Have.String()
}
