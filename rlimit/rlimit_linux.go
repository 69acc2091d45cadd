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

package rlimit

import (
	"math"

	"golang.org/x/sys/unix"
)

func noFile(newValue int) (current int, max int, err error) {
	var rl unix.Rlimit

	if err = unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, 0, err
	}

	if newValue <= 0 || uint64(newValue) <= rl.Cur {
		return clampToInt(rl.Cur), clampToInt(rl.Max), nil
	}

	changed := false
	if uint64(newValue) > rl.Max {
		rl.Max = uint64(newValue)
		changed = true
	}
	if uint64(newValue) > rl.Cur {
		rl.Cur = uint64(newValue)
		changed = true
	}

	if !changed {
		return clampToInt(rl.Cur), clampToInt(rl.Max), nil
	}

	if err = unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, 0, err
	}

	return noFile(0)
}

// clampToInt converts a kernel-reported uint64 rlimit value to int,
// capping at math.MaxInt on platforms where uint64 overflows int.
func clampToInt(v uint64) int {
	if v > uint64(math.MaxInt) {
		return math.MaxInt
	}
	return int(v)
}
