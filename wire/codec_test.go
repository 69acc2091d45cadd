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

package wire_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/johnm-dev/russng-sub001/wire"
)

var _ = Describe("Scalar round-trip", func() {
	It("encodes and decodes u16 values", func() {
		for _, v := range []uint16{0, 1, 255, 256, 65535} {
			buf := make([]byte, 2)
			w := wire.NewWriter(buf)
			Expect(w.PutU16(v)).To(Succeed())
			r := wire.NewReader(buf)
			got, err := r.GetU16()
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(v))
		}
	})

	It("encodes and decodes u32 values", func() {
		for _, v := range []uint32{0, 1, 4294967295, 1 << 16} {
			buf := make([]byte, 4)
			w := wire.NewWriter(buf)
			Expect(w.PutU32(v)).To(Succeed())
			r := wire.NewReader(buf)
			got, err := r.GetU32()
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(v))
		}
	})

	It("encodes and decodes i32 values, including negative sentinels", func() {
		for _, v := range []int32{0, 1, -1, -127, 2147483647, -2147483648} {
			buf := make([]byte, 4)
			w := wire.NewWriter(buf)
			Expect(w.PutI32(v)).To(Succeed())
			r := wire.NewReader(buf)
			got, err := r.GetI32()
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(v))
		}
	})

	It("is little-endian on the wire", func() {
		buf := make([]byte, 4)
		w := wire.NewWriter(buf)
		Expect(w.PutU32(0x01020304)).To(Succeed())
		Expect(buf).To(Equal([]byte{0x04, 0x03, 0x02, 0x01}))
	})
})

var _ = Describe("Bytes and string round-trip", func() {
	It("round-trips arbitrary byte strings", func() {
		cases := [][]byte{{}, {0}, []byte("hello"), make([]byte, 4096)}
		for i := range cases[3] {
			cases[3][i] = byte(i)
		}
		for _, c := range cases {
			buf := make([]byte, 4+len(c))
			w := wire.NewWriter(buf)
			Expect(w.PutBytes(c)).To(Succeed())
			r := wire.NewReader(buf)
			got, err := r.GetBytes()
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(c))
		}
	})

	It("round-trips strings with no trailing NUL on the wire", func() {
		s := "execute"
		buf := make([]byte, 4+len(s))
		w := wire.NewWriter(buf)
		Expect(w.PutString(s)).To(Succeed())
		Expect(buf[len(buf)-1]).ToNot(Equal(byte(0)))
		r := wire.NewReader(buf)
		got, err := r.GetString()
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(s))
	})
})

var _ = Describe("String array round-trip", func() {
	It("round-trips a NUL-terminated array for random inputs", func() {
		rnd := rand.New(rand.NewSource(42))
		for i := 0; i < 50; i++ {
			n := rnd.Intn(8)
			arr := make([]string, n)
			for j := range arr {
				arr[j] = randString(rnd, rnd.Intn(32))
			}
			size := 4
			for _, s := range arr {
				size += 4 + len(s)
			}
			buf := make([]byte, size)
			w := wire.NewWriter(buf)
			Expect(w.PutStringArray(arr)).To(Succeed())
			r := wire.NewReader(buf)
			got, err := r.GetStringArray(1024)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(arr))
		}
	})

	It("encodes a zero count for an empty array", func() {
		buf := make([]byte, 4)
		w := wire.NewWriter(buf)
		Expect(w.PutStringArray(nil)).To(Succeed())
		r := wire.NewReader(buf)
		got, err := r.GetStringArray(1024)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(BeEmpty())
	})

	It("rejects a count above the caller's maximum", func() {
		buf := make([]byte, 4)
		w := wire.NewWriter(buf)
		Expect(w.PutU32(2000)).To(Succeed())
		r := wire.NewReader(buf)
		_, err := r.GetStringArray(1024)
		Expect(err).To(MatchError(wire.ErrArrayTooLarge))
	})
})

var _ = Describe("Overflow and short-buffer handling", func() {
	It("fails encoding without writing when the buffer is too small", func() {
		buf := []byte{0xAA, 0xAA}
		w := wire.NewWriter(buf)
		err := w.PutU32(42)
		Expect(err).To(MatchError(wire.ErrOverflow))
		Expect(buf).To(Equal([]byte{0xAA, 0xAA}))
	})

	It("fails decoding a truncated source", func() {
		r := wire.NewReader([]byte{0x01})
		_, err := r.GetU32()
		Expect(err).To(MatchError(wire.ErrShortBuffer))
	})
})

func randString(rnd *rand.Rand, n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFG0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rnd.Intn(len(letters))]
	}
	return string(b)
}
