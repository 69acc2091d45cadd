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

package deadline_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/johnm-dev/russng-sub001/deadline"
)

var _ = Describe("Never and Now sentinels", func() {
	It("Never is never expired", func() {
		Expect(deadline.Never.Expired()).To(BeFalse())
	})

	It("Now is always expired", func() {
		Expect(deadline.Now.Expired()).To(BeTrue())
	})

	It("FromTimeout(0) yields Now and a negative timeout yields Never", func() {
		Expect(deadline.FromTimeout(0)).To(Equal(deadline.Now))
		Expect(deadline.FromTimeout(-1 * time.Second)).To(Equal(deadline.Never))
	})
})

var _ = Describe("FromTimeout and Remaining", func() {
	It("reports a positive remaining duration for a future deadline", func() {
		d := deadline.FromTimeout(50 * time.Millisecond)
		Expect(d.Remaining()).To(BeNumerically(">", 0))
		Expect(d.Expired()).To(BeFalse())
	})

	It("expires once its time has passed", func() {
		d := deadline.FromTimeout(5 * time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		Expect(d.Expired()).To(BeTrue())
		Expect(d.Remaining()).To(Equal(time.Duration(0)))
	})
})

var _ = Describe("Retry", func() {
	It("returns immediately once attempt reports done", func() {
		calls := 0
		err := deadline.Retry(deadline.FromTimeout(time.Second), func() (bool, error) {
			calls++
			return calls >= 3, nil
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(calls).To(Equal(3))
	})

	It("propagates an error from attempt without retrying further", func() {
		sentinel := errors.New("boom")
		calls := 0
		err := deadline.Retry(deadline.Never, func() (bool, error) {
			calls++
			return false, sentinel
		})
		Expect(err).To(MatchError(sentinel))
		Expect(calls).To(Equal(1))
	})

	It("times out against Now without ever retrying", func() {
		calls := 0
		err := deadline.Retry(deadline.Now, func() (bool, error) {
			calls++
			return false, nil
		})
		Expect(err).To(MatchError(deadline.ErrTimeout))
		Expect(calls).To(Equal(1))
	})

	It("times out a short deadline that is never satisfied", func() {
		err := deadline.Retry(deadline.FromTimeout(30*time.Millisecond), func() (bool, error) {
			return false, nil
		})
		Expect(err).To(MatchError(deadline.ErrTimeout))
	})
})
