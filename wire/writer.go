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

package wire

import "errors"

// ErrOverflow is returned when an encode operation would write past the end
// of the destination buffer. No partial write occurs: the buffer is left
// exactly as it was before the call that overflowed.
var ErrOverflow = errors.New("wire: encode overflow")

// Writer accumulates an encoded frame into a caller-supplied buffer. It never
// grows the buffer; callers size it (MaxRequestBufSize in the request
// package) up front and treat ErrOverflow as a hard protocol limit.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter wraps buf for sequential little-endian encoding.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.pos }

// Bytes returns the written prefix of the destination buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

func (w *Writer) remaining() int { return len(w.buf) - w.pos }

// PutU16 writes a 2-byte little-endian unsigned value.
func (w *Writer) PutU16(v uint16) error {
	if w.remaining() < 2 {
		return ErrOverflow
	}
	w.buf[w.pos] = byte(v)
	w.buf[w.pos+1] = byte(v >> 8)
	w.pos += 2
	return nil
}

// PutU32 writes a 4-byte little-endian unsigned value.
func (w *Writer) PutU32(v uint32) error {
	if w.remaining() < 4 {
		return ErrOverflow
	}
	w.buf[w.pos] = byte(v)
	w.buf[w.pos+1] = byte(v >> 8)
	w.buf[w.pos+2] = byte(v >> 16)
	w.buf[w.pos+3] = byte(v >> 24)
	w.pos += 4
	return nil
}

// PutI32 writes a 4-byte little-endian signed value.
func (w *Writer) PutI32(v int32) error {
	return w.PutU32(uint32(v))
}

// PutBytes writes a u32 length prefix followed by the raw bytes.
func (w *Writer) PutBytes(b []byte) error {
	if w.remaining() < 4+len(b) {
		return ErrOverflow
	}
	_ = w.PutU32(uint32(len(b)))
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
	return nil
}

// PutString writes s exactly as PutBytes; there is no trailing NUL on the
// wire — the length prefix alone delimits it.
func (w *Writer) PutString(s string) error {
	return w.PutBytes([]byte(s))
}

// PutRawFixed writes bytes unprefixed and unpadded (used for the 4-byte
// protocol tag, which has no length prefix of its own).
func (w *Writer) PutRawFixed(b []byte) error {
	if w.remaining() < len(b) {
		return ErrOverflow
	}
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
	return nil
}

// PutStringArray writes a NUL-terminated string array: a u32 count followed
// by each element encoded as a string. A nil or empty slice encodes as a
// zero count.
func (w *Writer) PutStringArray(arr []string) error {
	need := 4
	for _, s := range arr {
		need += 4 + len(s)
	}
	if w.remaining() < need {
		return ErrOverflow
	}
	if err := w.PutU32(uint32(len(arr))); err != nil {
		return err
	}
	for _, s := range arr {
		if err := w.PutString(s); err != nil {
			return err
		}
	}
	return nil
}

// PutSizedStringArray writes a u32 count followed by exactly that many
// string elements. On the wire it is identical to PutStringArray; the
// distinction is in the decoder's contract (a sized array never treats a
// zero count as "absent").
func (w *Writer) PutSizedStringArray(arr []string) error {
	return w.PutStringArray(arr)
}
