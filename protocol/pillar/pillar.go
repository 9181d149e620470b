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

// Package pillar implements the NYSE Pillar gateway protocol of spec.md §6:
// a 4-byte frame header (2-byte message type, 2-byte length including the
// header itself) followed by a fixed-width SBE-style body, carrying Login,
// LoginResponse, stream Open, Heartbeat and sequenced application-data
// messages. Sequenced messages carry an additional 8-byte SeqMsg header
// ahead of their payload.
package pillar

import (
	"errors"

	"github.com/nabbar/omnibridge/buffer"
)

// FrameHeaderSize is the 4-byte outer frame header: message type then
// total frame length (header included), both little-endian, per spec.md §6.
const FrameHeaderSize = 4

// SeqHeaderSize is the 8-byte SeqMsg header sequenced messages (MsgTypeAppData)
// carry ahead of their payload, per spec.md §6.
const SeqHeaderSize = 8

// Message type codes.
const (
	MsgTypeLogin         uint16 = 1
	MsgTypeLoginResponse uint16 = 2
	MsgTypeStreamOpen    uint16 = 3
	MsgTypeHeartbeat     uint16 = 4
	MsgTypeAppData       uint16 = 5
)

// ErrIncomplete signals that ExpectedLength needs more bytes.
var ErrIncomplete = errors.New("pillar: incomplete frame")

// ExpectedLength implements the expectedLength contract for Pillar framing.
// The header's length field is the total frame length, header included.
func ExpectedLength(buf []byte) (int, error) {
	if len(buf) < FrameHeaderSize {
		return -1, ErrIncomplete
	}
	b := buffer.Wrap(buf)
	total, err := b.GetUint16LE(2)
	if err != nil {
		return -1, ErrIncomplete
	}
	if len(buf) < int(total) {
		return -1, ErrIncomplete
	}
	return int(total), nil
}

// WriteFrameHeader writes the 4-byte header for a body of bodyLen bytes and
// the given message type into dst[0:4]: msgType first, then the total
// frame length (FrameHeaderSize+bodyLen), per spec.md §6.
func WriteFrameHeader(dst []byte, bodyLen int, msgType uint16) error {
	b := buffer.Wrap(dst)
	if err := b.PutUint16LE(0, msgType); err != nil {
		return err
	}
	return b.PutUint16LE(2, uint16(FrameHeaderSize+bodyLen))
}

// ReadFrameHeader reads the message type and body length (the header's
// total-length field minus FrameHeaderSize) out of a frame's leading 4 bytes.
func ReadFrameHeader(buf []byte) (bodyLen int, msgType uint16, err error) {
	b := buffer.Wrap(buf)
	t, err := b.GetUint16LE(0)
	if err != nil {
		return 0, 0, err
	}
	total, err := b.GetUint16LE(2)
	if err != nil {
		return 0, 0, err
	}
	return int(total) - FrameHeaderSize, t, nil
}

// WriteSeqHeader writes the 8-byte little-endian sequence number a
// sequenced (MsgTypeAppData) message carries ahead of its payload.
func WriteSeqHeader(dst []byte, seq uint64) error {
	return buffer.Wrap(dst).PutUint64LE(0, seq)
}

// ReadSeqHeader reads the sequence number out of a sequenced message's
// leading 8 bytes.
func ReadSeqHeader(buf []byte) (uint64, error) {
	return buffer.Wrap(buf).GetUint64LE(0)
}

const usernameWidth = 20
const passwordWidth = 20

// Login is the Pillar session logon request.
type Login struct {
	Username string
	Password string
	HeartbeatIntervalMs uint32
}

func (m *Login) EncodedLen() int { return usernameWidth + passwordWidth + 4 }

func (m *Login) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutFixedASCII(0, usernameWidth, m.Username); err != nil {
		return 0, err
	}
	if err := b.PutFixedASCII(usernameWidth, passwordWidth, m.Password); err != nil {
		return 0, err
	}
	if err := b.PutUint32LE(usernameWidth+passwordWidth, m.HeartbeatIntervalMs); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *Login) Decode(body []byte) error {
	b := buffer.Wrap(body)
	u, err := b.GetFixedASCII(0, usernameWidth)
	if err != nil {
		return err
	}
	p, err := b.GetFixedASCII(usernameWidth, passwordWidth)
	if err != nil {
		return err
	}
	hb, err := b.GetUint32LE(usernameWidth + passwordWidth)
	if err != nil {
		return err
	}
	m.Username, m.Password, m.HeartbeatIntervalMs = u, p, hb
	return nil
}

// LoginResponse acknowledges or rejects a Login.
type LoginResponse struct {
	Accepted bool
	Reason   string
}

const reasonWidth = 40

func (m *LoginResponse) EncodedLen() int { return 1 + reasonWidth }

func (m *LoginResponse) Encode(dst []byte) (int, error) {
	if m.Accepted {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	b := buffer.Wrap(dst)
	if err := b.PutFixedASCII(1, reasonWidth, m.Reason); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *LoginResponse) Decode(body []byte) error {
	m.Accepted = body[0] == 1
	b := buffer.Wrap(body)
	reason, err := b.GetFixedASCII(1, reasonWidth)
	if err != nil {
		return err
	}
	m.Reason = reason
	return nil
}

const streamWidth = 16

// StreamOpen subscribes the session to a named market-data or order stream.
type StreamOpen struct {
	StreamName string
}

func (m *StreamOpen) EncodedLen() int { return streamWidth }

func (m *StreamOpen) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutFixedASCII(0, streamWidth, m.StreamName); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *StreamOpen) Decode(body []byte) error {
	b := buffer.Wrap(body)
	s, err := b.GetFixedASCII(0, streamWidth)
	if err != nil {
		return err
	}
	m.StreamName = s
	return nil
}

// Heartbeat is Pillar's empty-body keepalive.
type Heartbeat struct{}

func (m *Heartbeat) EncodedLen() int            { return 0 }
func (m *Heartbeat) Encode([]byte) (int, error) { return 0, nil }
func (m *Heartbeat) Decode([]byte) error         { return nil }
