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
	"errors"
	"fmt"
	"strconv"
)

// ErrIncomplete is returned (as -1 per spec.md §4.4) by ExpectedLength when
// the buffer does not yet contain one full message.
var ErrIncomplete = errors.New("fix: incomplete message")

// ErrMalformed wraps any structural problem found while framing or
// validating a message: missing header fields, a BodyLength that does not
// match, or a CheckSum mismatch. The session core turns this into a
// ProtocolViolation per spec.md §7.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return "fix: malformed message: " + e.Reason
}

// DefaultMaxMessageLength bounds BodyLength when no maximum is configured;
// ExpectedLength returns ErrMalformed if a claimed BodyLength would exceed
// the bound in effect.
const DefaultMaxMessageLength = 64 * 1024

// ExpectedLength implements the codec side of spec.md §4.4 step 2: given the
// bytes accumulated so far in a connection's inbound buffer, it returns the
// number of bytes that make up the next complete frame, or -1 (ErrIncomplete)
// if more bytes must be read first. maxLen is the session's configured
// maxMessageLength (0 selects DefaultMaxMessageLength).
func ExpectedLength(buf []byte, maxLen int) (int, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}

	// Header must contain at least "8=...\x019=...\x01" before we can know
	// BodyLength.
	bodyLenStart := indexOf(buf, []byte("9="))
	if bodyLenStart < 0 {
		if len(buf) > maxLen {
			return 0, &ErrMalformed{Reason: "no BodyLength field found within max length"}
		}
		return -1, ErrIncomplete
	}

	valStart := bodyLenStart + 2
	valEnd := valStart
	for valEnd < len(buf) && buf[valEnd] != SOH {
		valEnd++
	}
	if valEnd >= len(buf) {
		return -1, ErrIncomplete
	}

	bodyLen, err := strconv.Atoi(string(buf[valStart:valEnd]))
	if err != nil {
		return 0, &ErrMalformed{Reason: "BodyLength is not numeric"}
	}
	if bodyLen < 0 || bodyLen > maxLen {
		return 0, &ErrMalformed{Reason: "BodyLength exceeds configured maximum"}
	}

	// Body starts right after the BodyLength field's trailing SOH, and runs
	// for bodyLen bytes, followed by the "10=nnn\x01" trailer (7 bytes).
	bodyStart := valEnd + 1
	total := bodyStart + bodyLen + 7
	if len(buf) < total {
		return -1, ErrIncomplete
	}
	return total, nil
}

func indexOf(haystack, needle []byte) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		match := true
		for j := 0; j < n; j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Validate checks header/trailer presence and the CheckSum invariant over a
// single complete message (as sliced by ExpectedLength).
func Validate(raw []byte) error {
	v := &View{raw: raw}

	if !v.HasTag(TagBeginString) {
		return &ErrMalformed{Reason: "missing BeginString (8)"}
	}
	if !v.HasTag(TagBodyLength) {
		return &ErrMalformed{Reason: "missing BodyLength (9)"}
	}
	if !v.HasTag(TagMsgType) {
		return &ErrMalformed{Reason: "missing MsgType (35)"}
	}
	if !v.HasTag(TagSenderCompID) {
		return &ErrMalformed{Reason: "missing SenderCompID (49)"}
	}
	if !v.HasTag(TagTargetCompID) {
		return &ErrMalformed{Reason: "missing TargetCompID (56)"}
	}
	if !v.HasTag(TagMsgSeqNum) {
		return &ErrMalformed{Reason: "missing MsgSeqNum (34)"}
	}

	chkStr, err := v.GetCharSequence(TagCheckSum)
	if err != nil {
		return &ErrMalformed{Reason: "missing CheckSum (10)"}
	}

	idx := indexOf(raw, []byte(fmt.Sprintf("\x0110=%s", chkStr)))
	var bodyForSum []byte
	if idx >= 0 {
		bodyForSum = raw[:idx+1]
	} else if len(raw) >= 7 {
		// trailer is always the final field; fall back to trimming it.
		bodyForSum = raw[:len(raw)-len(chkStr)-4]
	} else {
		return &ErrMalformed{Reason: "trailer not found"}
	}

	want := formatCheckSum(CheckSum(bodyForSum))
	if string(want[:]) != chkStr {
		return &ErrMalformed{Reason: "checksum mismatch"}
	}

	return nil
}
