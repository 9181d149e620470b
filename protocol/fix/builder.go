/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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
 *
 *
 */

package fix

import (
	"fmt"
	"strconv"
)

type field struct {
	tag   int
	value string
}

// Builder constructs an outbound FIX message directly into a caller-owned
// byte slice (typically a ring-buffer claimed slot), following spec.md
// §4.2: header fields 8, 9, 35 are emitted first, then the fields the
// caller set via SetField in the order they were set, then CheckSum (10)
// last. BodyLength and CheckSum are computed only when Encode is called
// (spec.md's "computed at commit()").
type Builder struct {
	beginString string
	msgType     string
	fields      []field
}

// Reset prepares the Builder for a new message with the given BeginString
// and MsgType (tag 35). Any previously set fields are discarded.
func (b *Builder) Reset(beginString, msgType string) {
	b.beginString = beginString
	b.msgType = msgType
	b.fields = b.fields[:0]
}

// SetField appends tag=value to the body, in call order. Tags 8, 9, 35, and
// 10 are reserved and panics if passed here - use Reset for 8/35 and let
// Encode compute 9/10.
func (b *Builder) SetField(tag int, value string) {
	switch tag {
	case TagBeginString, TagBodyLength, TagMsgType, TagCheckSum:
		panic(fmt.Sprintf("fix: tag %d is managed by Builder, not SetField", tag))
	}
	b.fields = append(b.fields, field{tag: tag, value: value})
}

// SetInt is a convenience wrapper over SetField for integer fields.
func (b *Builder) SetInt(tag int, value int) {
	b.SetField(tag, strconv.Itoa(value))
}

// EncodedLen returns an upper bound on the encoded size, suitable for
// sizing a ring-buffer claim before calling Encode.
func (b *Builder) EncodedLen() int {
	n := len("8=") + len(b.beginString) + 1
	n += len("9=") + 10 + 1 // BodyLength value, generously bounded
	n += len("35=") + len(b.msgType) + 1
	for _, f := range b.fields {
		n += len(strconv.Itoa(f.tag)) + 1 + len(f.value) + 1
	}
	n += len("10=000") + 1
	return n
}

// Encode writes the complete message (including trailer) into dst and
// returns the number of bytes written. dst must be at least EncodedLen()
// bytes.
func (b *Builder) Encode(dst []byte) (int, error) {
	// Render the body (everything after BodyLength, before CheckSum) first
	// so BodyLength can be computed.
	var body []byte
	body = appendField(body, TagMsgType, b.msgType)
	for _, f := range b.fields {
		body = appendField(body, f.tag, f.value)
	}

	n := copy(dst, "8=")
	n += copy(dst[n:], b.beginString)
	dst[n] = SOH
	n++

	n += copy(dst[n:], "9=")
	n += copy(dst[n:], strconv.Itoa(len(body)))
	dst[n] = SOH
	n++

	bodyStart := n
	n += copy(dst[n:], body)

	sum := CheckSum(dst[:n])
	chk := formatCheckSum(sum)
	n += copy(dst[n:], "10=")
	n += copy(dst[n:], chk[:])
	dst[n] = SOH
	n++

	_ = bodyStart
	return n, nil
}

func appendField(dst []byte, tag int, value string) []byte {
	dst = append(dst, []byte(strconv.Itoa(tag))...)
	dst = append(dst, '=')
	dst = append(dst, []byte(value)...)
	dst = append(dst, SOH)
	return dst
}
