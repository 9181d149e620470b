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

// CheckSum computes the FIX trailer checksum: the decimal sum of every byte
// up to (but not including) the "10=" field, modulo 256.
func CheckSum(body []byte) byte {
	var sum int
	for _, b := range body {
		sum += int(b)
	}
	return byte(sum % 256)
}

// formatCheckSum renders v as the three-digit zero-padded ASCII used by
// field 10.
func formatCheckSum(v byte) [3]byte {
	var out [3]byte
	n := int(v)
	out[2] = byte('0' + n%10)
	n /= 10
	out[1] = byte('0' + n%10)
	n /= 10
	out[0] = byte('0' + n%10)
	return out
}
