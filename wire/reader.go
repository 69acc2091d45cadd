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

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a decode operation needs more bytes than
// the source buffer has remaining.
var ErrShortBuffer = errors.New("wire: short buffer")

// ErrArrayTooLarge is returned when a decoded array count exceeds the
// caller-supplied maximum (see Reader.GetStringArray's max parameter).
var ErrArrayTooLarge = errors.New("wire: array count exceeds limit")

// Reader parses a frame written by Writer, advancing its cursor as it goes.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential little-endian decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.Len() < n {
		return fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, n, r.Len())
	}
	return nil
}

// GetU16 reads a 2-byte little-endian unsigned value.
func (r *Reader) GetU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := uint16(r.buf[r.pos]) | uint16(r.buf[r.pos+1])<<8
	r.pos += 2
	return v, nil
}

// GetU32 reads a 4-byte little-endian unsigned value.
func (r *Reader) GetU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.pos]) | uint32(r.buf[r.pos+1])<<8 |
		uint32(r.buf[r.pos+2])<<16 | uint32(r.buf[r.pos+3])<<24
	r.pos += 4
	return v, nil
}

// GetI32 reads a 4-byte little-endian signed value.
func (r *Reader) GetI32() (int32, error) {
	v, err := r.GetU32()
	return int32(v), err
}

// GetBytes reads a u32 length prefix followed by that many raw bytes.
func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

// GetString reads a length-prefixed string with no trailing NUL on the wire.
func (r *Reader) GetString() (string, error) {
	b, err := r.GetBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetRawFixed reads exactly n unprefixed bytes (used for the protocol tag).
func (r *Reader) GetRawFixed(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

// GetStringArray reads a NUL-terminated string array: a u32 count followed
// by that many string elements. A count of zero yields an empty, non-nil
// slice. max bounds the accepted count (RUSS_MAX_ATTRC / RUSS_MAX_ARGC in
// spec terms); a count above max is ErrArrayTooLarge and nothing further is
// consumed from the count field itself (the cursor stops right after it).
func (r *Reader) GetStringArray(max int) ([]string, error) {
	n, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	if max > 0 && int(n) > max {
		return nil, fmt.Errorf("%w: %d > %d", ErrArrayTooLarge, n, max)
	}
	arr := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.GetString()
		if err != nil {
			return nil, err
		}
		arr = append(arr, s)
	}
	return arr, nil
}

// GetSizedStringArray is identical to GetStringArray on the wire; it exists
// so callers can express the "always exactly N elements" contract at the
// call site instead of overloading a zero count as "absent".
func (r *Reader) GetSizedStringArray(max int) ([]string, error) {
	return r.GetStringArray(max)
}
