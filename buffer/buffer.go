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

// Package buffer provides zero-copy direct byte buffers with little/big-endian
// field accessors and fixed-width ASCII helpers, used as the common substrate
// for every wire codec (FIX tag/value and the SBE-framed binary protocols).
//
// A Buffer never allocates on access: every accessor reads or writes directly
// into the byte slice it wraps. A Buffer never grows its slice; Reset re-wraps
// it around another slice without allocating.
package buffer

import (
	"encoding/binary"
	"fmt"
)

// ErrOutOfRange is returned when an accessor is asked to read or write past
// the bounds of the wrapped slice.
type ErrOutOfRange struct {
	Offset int
	Length int
	Cap    int
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("buffer: offset %d length %d exceeds capacity %d", e.Offset, e.Length, e.Cap)
}

// Buffer is a flyweight over a byte slice: it carries no data of its own and
// projects typed field accessors over externally owned memory.
type Buffer struct {
	raw []byte
}

// Wrap returns a Buffer projecting over b. No copy is made.
func Wrap(b []byte) *Buffer {
	return &Buffer{raw: b}
}

// Bytes returns the wrapped slice.
func (b *Buffer) Bytes() []byte {
	return b.raw
}

// Len returns the length of the wrapped slice.
func (b *Buffer) Len() int {
	return len(b.raw)
}

// Reset re-wraps the Buffer around a (possibly different) slice, allowing
// pooled Buffer instances to be reused without allocation.
func (b *Buffer) Reset(raw []byte) {
	b.raw = raw
}

func (b *Buffer) checkRange(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > len(b.raw) {
		return &ErrOutOfRange{Offset: offset, Length: length, Cap: len(b.raw)}
	}
	return nil
}

// Slice returns the sub-range [offset:offset+length) without copying.
func (b *Buffer) Slice(offset, length int) ([]byte, error) {
	if err := b.checkRange(offset, length); err != nil {
		return nil, err
	}
	return b.raw[offset : offset+length], nil
}

// --- unsigned integers, big and little endian ---

func (b *Buffer) GetUint8(offset int) (uint8, error) {
	if err := b.checkRange(offset, 1); err != nil {
		return 0, err
	}
	return b.raw[offset], nil
}

func (b *Buffer) PutUint8(offset int, v uint8) error {
	if err := b.checkRange(offset, 1); err != nil {
		return err
	}
	b.raw[offset] = v
	return nil
}

func (b *Buffer) GetUint16BE(offset int) (uint16, error) {
	if err := b.checkRange(offset, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b.raw[offset:]), nil
}

func (b *Buffer) PutUint16BE(offset int, v uint16) error {
	if err := b.checkRange(offset, 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b.raw[offset:], v)
	return nil
}

func (b *Buffer) GetUint16LE(offset int) (uint16, error) {
	if err := b.checkRange(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b.raw[offset:]), nil
}

func (b *Buffer) PutUint16LE(offset int, v uint16) error {
	if err := b.checkRange(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b.raw[offset:], v)
	return nil
}

func (b *Buffer) GetUint32BE(offset int) (uint32, error) {
	if err := b.checkRange(offset, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b.raw[offset:]), nil
}

func (b *Buffer) PutUint32BE(offset int, v uint32) error {
	if err := b.checkRange(offset, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b.raw[offset:], v)
	return nil
}

func (b *Buffer) GetUint32LE(offset int) (uint32, error) {
	if err := b.checkRange(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.raw[offset:]), nil
}

func (b *Buffer) PutUint32LE(offset int, v uint32) error {
	if err := b.checkRange(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.raw[offset:], v)
	return nil
}

func (b *Buffer) GetUint64BE(offset int) (uint64, error) {
	if err := b.checkRange(offset, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b.raw[offset:]), nil
}

func (b *Buffer) PutUint64BE(offset int, v uint64) error {
	if err := b.checkRange(offset, 8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b.raw[offset:], v)
	return nil
}

func (b *Buffer) GetUint64LE(offset int) (uint64, error) {
	if err := b.checkRange(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.raw[offset:]), nil
}

func (b *Buffer) PutUint64LE(offset int, v uint64) error {
	if err := b.checkRange(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.raw[offset:], v)
	return nil
}

// --- signed integers, reusing the unsigned accessors ---

func (b *Buffer) GetInt32BE(offset int) (int32, error) {
	v, err := b.GetUint32BE(offset)
	return int32(v), err
}

func (b *Buffer) PutInt32BE(offset int, v int32) error {
	return b.PutUint32BE(offset, uint32(v))
}

func (b *Buffer) GetInt64BE(offset int) (int64, error) {
	v, err := b.GetUint64BE(offset)
	return int64(v), err
}

func (b *Buffer) PutInt64BE(offset int, v int64) error {
	return b.PutUint64BE(offset, uint64(v))
}

func (b *Buffer) GetInt64LE(offset int) (int64, error) {
	v, err := b.GetUint64LE(offset)
	return int64(v), err
}

func (b *Buffer) PutInt64LE(offset int, v int64) error {
	return b.PutUint64LE(offset, uint64(v))
}

// --- fixed-width ASCII helpers (OUCH tokens, Pillar symbols, ...) ---

// GetFixedASCII returns the field as a string, right-padded spaces trimmed.
func (b *Buffer) GetFixedASCII(offset, width int) (string, error) {
	if err := b.checkRange(offset, width); err != nil {
		return "", err
	}
	raw := b.raw[offset : offset+width]
	end := len(raw)
	for end > 0 && (raw[end-1] == ' ' || raw[end-1] == 0) {
		end--
	}
	return string(raw[:end]), nil
}

// PutFixedASCII writes s into a width-byte field, space-padded on the right.
// It truncates s if it is longer than width.
func (b *Buffer) PutFixedASCII(offset, width int, s string) error {
	if err := b.checkRange(offset, width); err != nil {
		return err
	}
	field := b.raw[offset : offset+width]
	n := copy(field, s)
	for i := n; i < width; i++ {
		field[i] = ' '
	}
	return nil
}

// GetDecimalASCII reads width bytes of ASCII digits as an integer, used for
// FIX's zero-padded CheckSum and BodyLength fields.
func (b *Buffer) GetDecimalASCII(offset, width int) (int, error) {
	if err := b.checkRange(offset, width); err != nil {
		return 0, err
	}
	v := 0
	for _, c := range b.raw[offset : offset+width] {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("buffer: non-digit byte %q at offset %d", c, offset)
		}
		v = v*10 + int(c-'0')
	}
	return v, nil
}

// PutDecimalASCII writes v as zero-padded ASCII digits into a width-byte field.
func (b *Buffer) PutDecimalASCII(offset, width int, v int) error {
	if err := b.checkRange(offset, width); err != nil {
		return err
	}
	field := b.raw[offset : offset+width]
	for i := width - 1; i >= 0; i-- {
		field[i] = byte('0' + v%10)
		v /= 10
	}
	return nil
}
