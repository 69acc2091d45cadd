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

package request

import (
	"errors"
	"fmt"
	"io"

	"github.com/johnm-dev/russng-sub001/wire"
)

// ErrFrameTooLarge is returned by Marshal when the encoded frame would
// exceed MaxRequestBufSize.
var ErrFrameTooLarge = errors.New("request: frame exceeds MaxRequestBufSize")

// ErrSpathTooLong is returned by Marshal when Spath exceeds MaxSpathLen.
var ErrSpathTooLong = errors.New("request: spath exceeds MaxSpathLen")

// frame layout, all little-endian via the wire package:
//
//	u32    bodySize   (everything below, in bytes)
//	[4]byte protocol tag
//	string  op
//	string  spath
//	string array  attrs  (max MaxAttrs)
//	string array  args   (max MaxArgs)
//
// bodySize does not include its own 4 bytes.
func bodySize(r *Request) int {
	n := len(ProtocolTag) + 4 + len(r.Op) + 4 + len(r.Spath)
	n += 4
	for _, a := range r.Attrs {
		n += 4 + len(a)
	}
	n += 4
	for _, a := range r.Args {
		n += 4 + len(a)
	}
	return n
}

// Marshal encodes r into a self-delimiting frame, length-prefixed so a
// stream reader knows exactly how many bytes to read next (ReadRequest).
func Marshal(r *Request) ([]byte, error) {
	if len(r.Spath) > MaxSpathLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrSpathTooLong, len(r.Spath), MaxSpathLen)
	}
	if len(r.Attrs) > MaxAttrs {
		return nil, fmt.Errorf("request: too many attrs: %d > %d", len(r.Attrs), MaxAttrs)
	}
	if len(r.Args) > MaxArgs {
		return nil, fmt.Errorf("request: too many args: %d > %d", len(r.Args), MaxArgs)
	}

	body := bodySize(r)
	total := 4 + body
	if total > MaxRequestBufSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, total, MaxRequestBufSize)
	}

	tag := r.ProtocolTag
	if tag == "" {
		tag = ProtocolTag
	}
	if len(tag) != 4 {
		return nil, fmt.Errorf("request: protocol tag must be 4 bytes, got %q", tag)
	}

	buf := make([]byte, total)
	w := wire.NewWriter(buf)
	if err := w.PutU32(uint32(body)); err != nil {
		return nil, err
	}
	if err := w.PutRawFixed([]byte(tag)); err != nil {
		return nil, err
	}
	if err := w.PutString(r.Op); err != nil {
		return nil, err
	}
	if err := w.PutString(r.Spath); err != nil {
		return nil, err
	}
	if err := w.PutStringArray(r.Attrs); err != nil {
		return nil, err
	}
	if err := w.PutStringArray(r.Args); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a complete frame produced by Marshal, buf beginning at
// the bodySize prefix.
func Unmarshal(buf []byte) (*Request, error) {
	r := wire.NewReader(buf)

	body, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	if int(body) > r.Len() {
		return nil, fmt.Errorf("request: declared body size %d exceeds available %d", body, r.Len())
	}

	tag, err := r.GetRawFixed(4)
	if err != nil {
		return nil, err
	}
	op, err := r.GetString()
	if err != nil {
		return nil, err
	}
	spath, err := r.GetString()
	if err != nil {
		return nil, err
	}
	if len(spath) > MaxSpathLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrSpathTooLong, len(spath), MaxSpathLen)
	}
	attrs, err := r.GetStringArray(MaxAttrs)
	if err != nil {
		return nil, err
	}
	args, err := r.GetStringArray(MaxArgs)
	if err != nil {
		return nil, err
	}

	return &Request{
		ProtocolTag: string(tag),
		Op:          op,
		Spath:       spath,
		Attrs:       attrs,
		Args:        args,
	}, nil
}

// WriteRequest encodes r and writes it to w as a single frame.
func WriteRequest(w io.Writer, r *Request) error {
	buf, err := Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadRequest reads one frame from r: a u32 body-size prefix followed by
// exactly that many bytes, then decodes it. It never reads past the frame
// boundary, so r can be a shared stream multiplexed with other data after
// this request.
func ReadRequest(r io.Reader) (*Request, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}
	body := uint32(sizeBuf[0]) | uint32(sizeBuf[1])<<8 | uint32(sizeBuf[2])<<16 | uint32(sizeBuf[3])<<24
	if int(body)+4 > MaxRequestBufSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, int(body)+4, MaxRequestBufSize)
	}

	frame := make([]byte, 4+int(body))
	copy(frame, sizeBuf[:])
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return nil, err
	}
	return Unmarshal(frame)
}
