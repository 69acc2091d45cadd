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

package buserr

import "errors"

// Get returns e as *Error if it (or something in its chain) is one,
// else nil.
func Get(e error) *Error {
	var be *Error
	if errors.As(e, &be) {
		return be
	}
	return nil
}

// Is reports whether e is, or wraps, a buserr *Error.
func Is(e error) bool {
	return Get(e) != nil
}

// HasKind reports whether e is, or wraps, a buserr *Error with kind k.
func HasKind(e error, k Kind) bool {
	if be := Get(e); be != nil {
		return be.HasKind(k)
	}
	return false
}

// ExitStatusOf maps any error to the exit status a connection should
// report: the *Error's own status if e is one, else ExitSysFailure for any
// other non-nil error, else ExitSuccess.
func ExitStatusOf(e error) ExitStatus {
	if e == nil {
		return ExitSuccess
	}
	if be := Get(e); be != nil {
		return be.ExitStatus()
	}
	return ExitSysFailure
}
