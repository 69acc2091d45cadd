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

package server

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConnState", func() {
	It("names every defined state", func() {
		Expect(StateAccepted.String()).To(Equal("accepted"))
		Expect(StateCredsRead.String()).To(Equal("creds-read"))
		Expect(StateAwaitingRequest.String()).To(Equal("awaiting-request"))
		Expect(StateRequestParsed.String()).To(Equal("request-parsed"))
		Expect(StateAnswered.String()).To(Equal("answered"))
		Expect(StateServing.String()).To(Equal("serving"))
		Expect(StateExited.String()).To(Equal("exited"))
	})

	It("falls back to unknown for an out-of-range value", func() {
		Expect(ConnState(99).String()).To(Equal("unknown"))
	})
})

var _ = Describe("ErrWrongState", func() {
	It("reports both the wanted and actual state", func() {
		err := &ErrWrongState{Want: StateAnswered, Have: StateCredsRead}
		Expect(err.Error()).To(ContainSubstring("answered"))
		Expect(err.Error()).To(ContainSubstring("creds-read"))
	})
})
