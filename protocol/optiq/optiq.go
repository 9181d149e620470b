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

// Package optiq implements the Euronext Optiq gateway protocol of spec.md
// §6 atop the shared SBE header (protocol/sbe, schemaId=0, version=1):
// Logon/LogonAck, a generic application message envelope, and a
// reason-coded Logout.
package optiq

import (
	"errors"

	"github.com/nabbar/omnibridge/buffer"
	"github.com/nabbar/omnibridge/protocol/sbe"
)

const (
	SchemaID = 0
	Version  = 1
)

const (
	TemplateLogon     uint16 = 1
	TemplateLogonAck  uint16 = 2
	TemplateAppMsg    uint16 = 3
	TemplateLogout    uint16 = 4
)

// FrameHeaderSize is the 8-byte SBE message header (blockLength, templateId,
// schemaId, version) session.OptiqSession writes ahead of every message
// body; see sendOptiq in session/sbe.go.
const FrameHeaderSize = sbe.HeaderSize

// ErrIncomplete signals that ExpectedLength needs more bytes.
var ErrIncomplete = errors.New("optiq: incomplete frame")

// ErrSchemaMismatch is returned when an inbound frame's schemaId/version
// does not match this protocol's SBE schema.
var ErrSchemaMismatch = errors.New("optiq: schemaId/version mismatch")

// ExpectedLength implements the expectedLength contract for this
// protocol's SBE header, mirroring protocol/pillar.ExpectedLength. The
// header's blockLength field carries the body length, per sendOptiq.
func ExpectedLength(buf []byte) (int, error) {
	if len(buf) < FrameHeaderSize {
		return -1, ErrIncomplete
	}
	h, err := sbe.ReadHeaderLE(buffer.Wrap(buf))
	if err != nil {
		return -1, ErrIncomplete
	}
	total := FrameHeaderSize + int(h.BlockLength)
	if len(buf) < total {
		return -1, ErrIncomplete
	}
	return total, nil
}

const partyIDWidth = 12

// Logon is the Optiq session logon request.
type Logon struct {
	PartyID  string
	Password string
}

func (m *Logon) EncodedLen() int { return partyIDWidth + partyIDWidth }

func (m *Logon) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutFixedASCII(0, partyIDWidth, m.PartyID); err != nil {
		return 0, err
	}
	if err := b.PutFixedASCII(partyIDWidth, partyIDWidth, m.Password); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *Logon) Decode(body []byte) error {
	b := buffer.Wrap(body)
	pid, err := b.GetFixedASCII(0, partyIDWidth)
	if err != nil {
		return err
	}
	pw, err := b.GetFixedASCII(partyIDWidth, partyIDWidth)
	if err != nil {
		return err
	}
	m.PartyID, m.Password = pid, pw
	return nil
}

// LogonAck accepts a Logon and conveys the next expected sequence number.
type LogonAck struct {
	NextSeqNo uint32
}

func (m *LogonAck) EncodedLen() int { return 4 }

func (m *LogonAck) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutUint32LE(0, m.NextSeqNo); err != nil {
		return 0, err
	}
	return 4, nil
}

func (m *LogonAck) Decode(body []byte) error {
	b := buffer.Wrap(body)
	v, err := b.GetUint32LE(0)
	if err != nil {
		return err
	}
	m.NextSeqNo = v
	return nil
}

const appPayloadWidth = 64

// AppMsg is a generic application-layer payload envelope; concrete order
// and market-data semantics for Optiq are out of scope (spec.md Non-goals).
type AppMsg struct {
	SeqNo   uint32
	Payload string
}

func (m *AppMsg) EncodedLen() int { return 4 + appPayloadWidth }

func (m *AppMsg) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutUint32LE(0, m.SeqNo); err != nil {
		return 0, err
	}
	if err := b.PutFixedASCII(4, appPayloadWidth, m.Payload); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *AppMsg) Decode(body []byte) error {
	b := buffer.Wrap(body)
	seq, err := b.GetUint32LE(0)
	if err != nil {
		return err
	}
	p, err := b.GetFixedASCII(4, appPayloadWidth)
	if err != nil {
		return err
	}
	m.SeqNo, m.Payload = seq, p
	return nil
}

// Logout reason codes.
const (
	LogoutReasonRequested      byte = 'R'
	LogoutReasonSequenceError  byte = 'Q'
	LogoutReasonProtocolError  byte = 'P'
	LogoutReasonAdministrative byte = 'D'
)

// Logout carries a reason code so the receiver can decide whether to
// reconnect automatically, per spec.md §4.1.3.
type Logout struct {
	Reason byte
}

func (m *Logout) EncodedLen() int { return 1 }

func (m *Logout) Encode(dst []byte) (int, error) {
	dst[0] = m.Reason
	return 1, nil
}

func (m *Logout) Decode(body []byte) error {
	m.Reason = body[0]
	return nil
}
