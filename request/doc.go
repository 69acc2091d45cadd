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

// Package request defines the bus Request value and its wire framing.
//
// A Request is immutable from the caller's point of view once sent, with
// one documented exception: intermediate "set" services (spec.md §4.3,
// SPEC_FULL.md §C.4) mutate a request's attrs/args in transit before
// redialing downstream, which is why SetArg/SetAttr exist as explicit,
// narrow mutators rather than free-form field access.
package request

// Protocol tag identifying the wire-compatible version of this bus. Two
// generations appear in the upstream source ("0004" and "0010"); per
// spec.md §9 we document the newer one as current.
const ProtocolTag = "0010"

// Field limits enforced at frame boundaries (spec.md §3, §4.4).
const (
	MaxAttrs          = 1024
	MaxArgs           = 1024
	MaxRequestBufSize = 256 * 1024 // 256 KiB
	MaxSpathLen       = 4096       // >= 4 KiB per spec.md §4.4
)

// OpNum is the small-integer classification of an operation verb. The
// standard verbs get stable numbers; anything else is OpNumExtension and
// the original string is preserved on the Request.
type OpNum int32

const (
	OpNumNotSet    OpNum = 0
	OpNumExecute   OpNum = 1
	OpNumList      OpNum = 2
	OpNumHelp      OpNum = 3
	OpNumID        OpNum = 4
	OpNumInfo      OpNum = 5
	OpNumExtension OpNum = -1
)

// Standard operation verb strings.
const (
	OpExecute = "execute"
	OpList    = "list"
	OpHelp    = "help"
	OpID      = "id"
	OpInfo    = "info"
)

// LookupOpNum classifies an operation verb string, mirroring the source's
// optable: the five standard verbs map to their fixed number, anything else
// is OpNumExtension.
func LookupOpNum(op string) OpNum {
	switch op {
	case OpExecute:
		return OpNumExecute
	case OpList:
		return OpNumList
	case OpHelp:
		return OpNumHelp
	case OpID:
		return OpNumID
	case OpInfo:
		return OpNumInfo
	default:
		return OpNumExtension
	}
}
