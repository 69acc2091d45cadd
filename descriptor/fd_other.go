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

//go:build !linux

package descriptor

import (
	"errors"
	"net"
)

// ErrUnsupported is returned by every descriptor-passing primitive on
// platforms other than Linux. The bus relies on SCM_RIGHTS and
// SO_PEERCRED, both Linux-specific in the exact shape this module uses;
// porting to another UNIX would mean a second platform file here, the same
// way ioutils/fileDescriptor splits its rlimit logic per platform upstream.
var ErrUnsupported = errors.New("descriptor: unsupported on this platform")

func closeFD(fd int) error {
	return errors.New("descriptor: closeFD unsupported on this platform")
}

func MakePipes(n int) (readFDs, writeFDs []int, err error) {
	return nil, nil, ErrUnsupported
}

func GetCredentials(conn *net.UnixConn) (Credentials, error) {
	return Credentials{}, ErrUnsupported
}

func SendFD(conn *net.UnixConn, fd int) error {
	return ErrUnsupported
}

func RecvFD(conn *net.UnixConn) (int, error) {
	return -1, ErrUnsupported
}
