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

// View is the IncomingFixMessage flyweight of spec.md §4.2: it wraps one
// complete tag/value message and exposes type-specialized accessors that
// scan the raw buffer on demand. A View is meant to be held one per
// goroutine (typically the owning session's loop goroutine) and reused
// across parses via Reset - it must be fully consumed before the next
// Reset, exactly as spec.md requires for the message-view flyweight.
type View struct {
	raw []byte
}

// NewView allocates a View with no wrapped buffer; call Reset before use.
func NewView() *View {
	return &View{}
}

// Reset re-wraps the View around raw, a single complete SOH-delimited FIX
// message (trailing "10=nnn" field included).
func (v *View) Reset(raw []byte) {
	v.raw = raw
}

// Raw returns the wrapped message bytes.
func (v *View) Raw() []byte {
	return v.raw
}

// find scans v.raw for "tag=" and returns the value slice (excluding the
// trailing SOH) and whether it was found. This is the "lazily extract by
// scanning the raw buffer" behaviour spec.md §4.2 calls for.
func (v *View) find(tag int) ([]byte, bool) {
	prefix := strconv.Itoa(tag) + "="
	raw := v.raw
	for i := 0; i < len(raw); {
		// fields start either at i==0 or just after a SOH
		if i > 0 && raw[i-1] != SOH {
			i++
			continue
		}
		if i+len(prefix) <= len(raw) && string(raw[i:i+len(prefix)]) == prefix {
			start := i + len(prefix)
			end := start
			for end < len(raw) && raw[end] != SOH {
				end++
			}
			return raw[start:end], true
		}
		i++
	}
	return nil, false
}

// GetCharSequence returns the raw string value of tag.
func (v *View) GetCharSequence(tag int) (string, error) {
	b, ok := v.find(tag)
	if !ok {
		return "", fmt.Errorf("fix: tag %d not present", tag)
	}
	return string(b), nil
}

// GetInt returns the value of tag parsed as an integer.
func (v *View) GetInt(tag int) (int, error) {
	s, err := v.GetCharSequence(tag)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("fix: tag %d not an int: %w", tag, err)
	}
	return n, nil
}

// GetChar returns the single-byte value of tag.
func (v *View) GetChar(tag int) (byte, error) {
	s, err := v.GetCharSequence(tag)
	if err != nil {
		return 0, err
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("fix: tag %d is not a single char", tag)
	}
	return s[0], nil
}

// GetDouble returns the value of tag parsed as a float64.
func (v *View) GetDouble(tag int) (float64, error) {
	s, err := v.GetCharSequence(tag)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("fix: tag %d not a float: %w", tag, err)
	}
	return f, nil
}

// HasTag reports whether tag is present in the wrapped message.
func (v *View) HasTag(tag int) bool {
	_, ok := v.find(tag)
	return ok
}

// MsgType returns tag 35.
func (v *View) MsgType() (string, error) {
	return v.GetCharSequence(TagMsgType)
}

// MsgSeqNum returns tag 34.
func (v *View) MsgSeqNum() (int, error) {
	return v.GetInt(TagMsgSeqNum)
}
