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

import "time"

// TimestampEncoder formats FIX SendingTime (tag 52) values as
// YYYYMMDD-HH:MM:SS.sss (21 bytes) or, without millis, YYYYMMDD-HH:MM:SS
// (17 bytes), without allocating on the hot path.
//
// Unlike the source system's global cache, one TimestampEncoder is carried
// per session (or per event-loop goroutine) so the cached date component
// never needs cross-goroutine synchronization - see SPEC_FULL.md §9(a).
type TimestampEncoder struct {
	cachedDay   int
	cachedMonth time.Month
	cachedYear  int
	cachedDate  [8]byte // YYYYMMDD
}

// WithMillis is the length of a timestamp encoded with millisecond precision.
const WithMillis = 21

// WithoutMillis is the length of a timestamp encoded without millisecond precision.
const WithoutMillis = 17

func (e *TimestampEncoder) refreshDate(t time.Time) {
	y, m, d := t.Date()
	if y == e.cachedYear && m == e.cachedMonth && d == e.cachedDay {
		return
	}
	e.cachedYear, e.cachedMonth, e.cachedDay = y, m, d
	putDigits(e.cachedDate[0:4], y, 4)
	putDigits(e.cachedDate[4:6], int(m), 2)
	putDigits(e.cachedDate[6:8], d, 2)
}

func putDigits(dst []byte, v int, width int) {
	for i := width - 1; i >= 0; i-- {
		dst[i] = byte('0' + v%10)
		v /= 10
	}
}

// Encode writes t into dst and returns the number of bytes written (17 or
// 21). dst must have at least WithMillis bytes of capacity.
func (e *TimestampEncoder) Encode(dst []byte, t time.Time, millis bool) int {
	t = t.UTC()
	e.refreshDate(t)

	copy(dst[0:8], e.cachedDate[:])
	dst[8] = '-'

	h, m, s := t.Clock()
	putDigits(dst[9:11], h, 2)
	dst[11] = ':'
	putDigits(dst[12:14], m, 2)
	dst[14] = ':'
	putDigits(dst[15:17], s, 2)

	if !millis {
		return WithoutMillis
	}

	dst[17] = '.'
	putDigits(dst[18:21], t.Nanosecond()/1_000_000, 3)
	return WithMillis
}

// EncodeString is a convenience wrapper over Encode for callers outside the
// hot path (tests, admin projections).
func (e *TimestampEncoder) EncodeString(t time.Time, millis bool) string {
	var buf [WithMillis]byte
	n := e.Encode(buf[:], t, millis)
	return string(buf[:n])
}
