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

// Package descriptor provides pipe/socketpair creation, fd-array lifecycle
// management, peer-credential reading and single-fd ancillary-data transfer
// over UNIX-domain sockets. It is the only package in this module that
// handles SCM_RIGHTS ancillary data directly.
package descriptor

// Array is a fixed-size set of file descriptors with the sentinel -1 meaning
// "empty slot". It mirrors the source's russ_fds_init/russ_fds_close pair:
// initialize once, close idempotently.
type Array []int

// NewArray returns an Array of size n with every slot set to the -1
// sentinel.
func NewArray(n int) Array {
	a := make(Array, n)
	a.Init()
	return a
}

// Init resets every slot to the -1 sentinel.
func (a Array) Init() {
	for i := range a {
		a[i] = -1
	}
}

// Close closes each non-negative fd and resets the slot to -1. It is
// idempotent: calling it twice in a row is a no-op the second time. The
// first error encountered is returned after every slot has been attempted.
func (a Array) Close() error {
	var first error
	for i, fd := range a {
		if fd < 0 {
			continue
		}
		if err := closeFD(fd); err != nil && first == nil {
			first = err
		}
		a[i] = -1
	}
	return first
}

// Credentials is the peer (pid, uid, gid) triple read from an accepted
// UNIX-domain socket. Pid is -1 on platforms that do not expose it.
type Credentials struct {
	Pid int32
	Uid uint32
	Gid uint32
}
