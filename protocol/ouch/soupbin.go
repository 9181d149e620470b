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

// Package ouch implements the Nasdaq-family OUCH order-entry protocol of
// spec.md §4.1.2 and §6: a soupbin-style session layer (2-byte big-endian
// length prefix + 1-byte packet type + body) carrying v4.2 (14-byte
// alphanumeric token) and v5.0 (8-byte userRefNum) application messages
// behind a single send-enter-order API.
package ouch

import (
	"encoding/binary"
	"errors"
)

// Soupbin packet type bytes.
const (
	PacketLoginRequest   = 'L'
	PacketLoginAccepted  = 'A'
	PacketLoginRejected  = 'J'
	PacketLogoutRequest  = 'O'
	PacketSequencedData  = 'S'
	PacketUnsequenced    = 'U'
	PacketServerHeartbeat = 'H'
	PacketClientHeartbeat = 'R'
	PacketDebug          = '+'
)

// ErrIncomplete mirrors protocol/fix.ErrIncomplete for the soupbin framer.
var ErrIncomplete = errors.New("ouch: incomplete frame")

// LengthPrefixSize is the size of the big-endian frame length field.
const LengthPrefixSize = 2

// ExpectedLength implements spec.md §4.4's expectedLength contract for
// soupbin framing: it returns the total byte count of the next frame
// (prefix + type + body), or -1 (ErrIncomplete) if more bytes are needed.
func ExpectedLength(buf []byte) (int, error) {
	if len(buf) < LengthPrefixSize {
		return -1, ErrIncomplete
	}
	bodyLen := int(binary.BigEndian.Uint16(buf[:2]))
	total := LengthPrefixSize + bodyLen
	if len(buf) < total {
		return -1, ErrIncomplete
	}
	return total, nil
}

// Frame is one decoded soupbin packet: its type byte and body (excluding
// the 2-byte length prefix and the type byte itself).
type Frame struct {
	Type byte
	Body []byte
}

// Decode slices raw (exactly one ExpectedLength-sized frame) into its type
// and body.
func Decode(raw []byte) (Frame, error) {
	if len(raw) < LengthPrefixSize+1 {
		return Frame{}, errors.New("ouch: frame too short")
	}
	return Frame{Type: raw[2], Body: raw[3:]}, nil
}

// Encode writes a soupbin frame of the given type and body into dst,
// returning the number of bytes written. dst must have capacity for
// LengthPrefixSize + 1 + len(body).
func Encode(dst []byte, typ byte, body []byte) int {
	binary.BigEndian.PutUint16(dst[0:2], uint16(1+len(body)))
	dst[2] = typ
	copy(dst[3:], body)
	return LengthPrefixSize + 1 + len(body)
}

// EncodedLen returns the total frame size for a body of n bytes.
func EncodedLen(bodyLen int) int {
	return LengthPrefixSize + 1 + bodyLen
}

// LoginRequest is the soupbin handshake request.
type LoginRequest struct {
	Username       [6]byte
	Password       [10]byte
	RequestedSession [10]byte
	RequestedSeq   uint64 // ASCII-encoded 20 digits on the real wire; kept numeric here
}

// LoginAccepted carries the assigned session id and the next sequence
// number expected from the client.
type LoginAccepted struct {
	Session     [10]byte
	SequenceNum uint64
}

// LoginRejected carries a single reason code; per spec.md §4.1.2 it is
// terminal - the initiator must not reconnect automatically.
type LoginRejected struct {
	Reason byte
}

const (
	RejectNotAuthorized byte = 'A'
	RejectSessionNotAvailable byte = 'S'
)
