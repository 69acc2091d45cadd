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

package dial

// Buffer is a capped, pre-allocated capture target (spec.md §4.8: "capped,
// pre-allocated structures (data, cap, len, off)"). A zero-capacity Buffer
// models "not captured" — bytes are still read off the fd to drain it, just
// discarded rather than retained.
type Buffer struct {
	data []byte
	cap  int
}

// NewBuffer allocates a Buffer that retains up to cap bytes. cap == 0
// discards everything read (spec.md §4.8: "absent capture is modelled as
// capacity zero").
func NewBuffer(cap int) *Buffer {
	return &Buffer{cap: cap}
}

// Bytes returns the bytes captured so far.
func (b *Buffer) Bytes() []byte { return b.data }

// Len reports how many bytes have been captured.
func (b *Buffer) Len() int { return len(b.data) }

// Cap reports the buffer's capture capacity.
func (b *Buffer) Cap() int { return b.cap }

func (b *Buffer) full() bool { return len(b.data) >= b.cap }

func (b *Buffer) append(p []byte) {
	room := b.cap - len(b.data)
	if room <= 0 {
		return
	}
	if len(p) > room {
		p = p[:room]
	}
	b.data = append(b.data, p...)
}
