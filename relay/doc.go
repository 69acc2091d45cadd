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

// Package relay implements the single-event-loop alternative to running N
// forwarders (spec.md §4.6): a bounded set of streams, each
// (read fd, write fd, buffer, auto-close, bidirectional), bridged through
// one poll call alongside an exit-observation fd.
//
// The upstream source carries two generations of this idea —
// russ_relay (a flat fd+buffer+auto_close triple) and russ_relay2 (adds
// an explicit exit_fd and a bidir flag per stream, used by the
// pass-through/redirect/tunnel/multi-redirect servers). This port
// implements the russ_relay2 shape throughout, per spec.md §9's license
// to pick the more capable of the two generations when both appear in
// the retrieved source.
package relay
