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

package rucli

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/johnm-dev/russng-sub001/deadline"
)

var _ = Describe("parseArgs", func() {
	It("takes op and addr off argv when forcedOp is empty", func() {
		c, err := parseArgs("rudial", "", []string{"echo", "/tmp/sock", "hello", "world"}, nil, 0, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.op).To(Equal("echo"))
		Expect(c.addr).To(Equal("/tmp/sock"))
		Expect(c.args).To(Equal([]string{"hello", "world"}))
		Expect(c.dl).To(Equal(deadline.Never))
	})

	It("errors when op-from-argv is missing its addr", func() {
		_, err := parseArgs("rudial", "", []string{"echo"}, nil, 0, false)
		Expect(err).To(HaveOccurred())
	})

	It("takes only addr when forcedOp is set", func() {
		c, err := parseArgs("ruls", "list", []string{"/tmp/sock"}, nil, 0, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.op).To(Equal("list"))
		Expect(c.addr).To(Equal("/tmp/sock"))
		Expect(c.args).To(BeEmpty())
	})

	It("errors when forcedOp is set but addr is missing", func() {
		_, err := parseArgs("ruls", "list", nil, nil, 0, false)
		Expect(err).To(HaveOccurred())
	})

	It("converts a positive timeout into a bounded deadline", func() {
		c, err := parseArgs("rudial", "", []string{"echo", "/tmp/sock"}, nil, 2.5, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.dl).NotTo(Equal(deadline.Never))
	})

	It("rejects more attrs than MaxAttrs", func() {
		attrs := make([]string, 2000)
		_, err := parseArgs("rudial", "", []string{"echo", "/tmp/sock"}, attrs, 0, false)
		Expect(err).To(HaveOccurred())
	})
})
