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

// Package ilink3 implements the CME iLink 3 session and application
// protocol of spec.md §6 atop the shared SBE header (protocol/sbe):
// Negotiate/NegotiationResponse, Establish/EstablishmentAck, Sequence and
// Terminate for session control, plus ExecutionReportNew and the distinct
// ExecutionReportFill template (spec.md §9 Open Question (b): a fill is
// never represented by replaying ExecutionReportNew with different field
// values, it has its own templateId so a decoder can dispatch on it
// directly instead of re-inspecting an ExecType field).
package ilink3

import (
	"errors"

	"github.com/nabbar/omnibridge/buffer"
	"github.com/nabbar/omnibridge/protocol/sbe"
)

// SchemaID and Version are fixed for this protocol's SBE header.
const (
	SchemaID = 8
	Version  = 9
)

// FrameHeaderSize is the 8-byte SBE message header (blockLength, templateId,
// schemaId, version) session.ILink3Session writes ahead of every message
// body; see sendSBE in session/sbe.go.
const FrameHeaderSize = sbe.HeaderSize

// ErrIncomplete signals that ExpectedLength needs more bytes.
var ErrIncomplete = errors.New("ilink3: incomplete frame")

// ErrSchemaMismatch is returned when an inbound frame's schemaId/version
// does not match this protocol's SBE schema.
var ErrSchemaMismatch = errors.New("ilink3: schemaId/version mismatch")

// ExpectedLength implements the expectedLength contract for this
// protocol's SBE header, mirroring protocol/pillar.ExpectedLength. The
// header's blockLength field carries the body length, per sendSBE.
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

// Template IDs.
const (
	TemplateNegotiate            uint16 = 500
	TemplateNegotiationResponse  uint16 = 501
	TemplateEstablish            uint16 = 503
	TemplateEstablishmentAck     uint16 = 504
	TemplateExecutionReportNew   uint16 = 505
	TemplateExecutionReportFill  uint16 = 506
	TemplateTerminate            uint16 = 507
	TemplateSequence             uint16 = 508
)

const (
	uuidWidth = 16
	sessionIDWidth = 16
)

// Negotiate opens a transport-layer session.
type Negotiate struct {
	UUID           [uuidWidth]byte
	Timestamp      uint64
	SessionID      string
}

func (m *Negotiate) EncodedLen() int { return uuidWidth + 8 + sessionIDWidth }

func (m *Negotiate) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	copy(dst[0:uuidWidth], m.UUID[:])
	if err := b.PutUint64LE(uuidWidth, m.Timestamp); err != nil {
		return 0, err
	}
	if err := b.PutFixedASCII(uuidWidth+8, sessionIDWidth, m.SessionID); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *Negotiate) Decode(body []byte) error {
	b := buffer.Wrap(body)
	copy(m.UUID[:], body[0:uuidWidth])
	ts, err := b.GetUint64LE(uuidWidth)
	if err != nil {
		return err
	}
	m.Timestamp = ts
	sid, err := b.GetFixedASCII(uuidWidth+8, sessionIDWidth)
	if err != nil {
		return err
	}
	m.SessionID = sid
	return nil
}

// NegotiationResponse accepts a Negotiate.
type NegotiationResponse struct {
	UUID      [uuidWidth]byte
	Timestamp uint64
}

func (m *NegotiationResponse) EncodedLen() int { return uuidWidth + 8 }

func (m *NegotiationResponse) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	copy(dst[0:uuidWidth], m.UUID[:])
	if err := b.PutUint64LE(uuidWidth, m.Timestamp); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *NegotiationResponse) Decode(body []byte) error {
	b := buffer.Wrap(body)
	copy(m.UUID[:], body[0:uuidWidth])
	ts, err := b.GetUint64LE(uuidWidth)
	if err != nil {
		return err
	}
	m.Timestamp = ts
	return nil
}

// Establish opens the application-layer session atop a negotiated
// transport session, carrying the next expected sequence number.
type Establish struct {
	UUID                [uuidWidth]byte
	NextSeqNo           uint64
	KeepaliveIntervalMs uint32
}

func (m *Establish) EncodedLen() int { return uuidWidth + 8 + 4 }

func (m *Establish) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	copy(dst[0:uuidWidth], m.UUID[:])
	if err := b.PutUint64LE(uuidWidth, m.NextSeqNo); err != nil {
		return 0, err
	}
	if err := b.PutUint32LE(uuidWidth+8, m.KeepaliveIntervalMs); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *Establish) Decode(body []byte) error {
	b := buffer.Wrap(body)
	copy(m.UUID[:], body[0:uuidWidth])
	seq, err := b.GetUint64LE(uuidWidth)
	if err != nil {
		return err
	}
	m.NextSeqNo = seq
	ka, err := b.GetUint32LE(uuidWidth + 8)
	if err != nil {
		return err
	}
	m.KeepaliveIntervalMs = ka
	return nil
}

// EstablishmentAck accepts an Establish, echoing the sequence number the
// acceptor will send next.
type EstablishmentAck struct {
	UUID      [uuidWidth]byte
	NextSeqNo uint64
}

func (m *EstablishmentAck) EncodedLen() int { return uuidWidth + 8 }

func (m *EstablishmentAck) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	copy(dst[0:uuidWidth], m.UUID[:])
	if err := b.PutUint64LE(uuidWidth, m.NextSeqNo); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *EstablishmentAck) Decode(body []byte) error {
	b := buffer.Wrap(body)
	copy(m.UUID[:], body[0:uuidWidth])
	seq, err := b.GetUint64LE(uuidWidth)
	if err != nil {
		return err
	}
	m.NextSeqNo = seq
	return nil
}

// Sequence is the idle-keepalive / gap-bridging message, carrying the
// sender's next outbound sequence number.
type Sequence struct {
	NextSeqNo uint64
}

func (m *Sequence) EncodedLen() int { return 8 }

func (m *Sequence) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutUint64LE(0, m.NextSeqNo); err != nil {
		return 0, err
	}
	return 8, nil
}

func (m *Sequence) Decode(body []byte) error {
	b := buffer.Wrap(body)
	v, err := b.GetUint64LE(0)
	if err != nil {
		return err
	}
	m.NextSeqNo = v
	return nil
}

const terminateReasonWidth = 32

// Terminate tears down the session, carrying a human-readable reason.
type Terminate struct {
	Reason string
}

func (m *Terminate) EncodedLen() int { return terminateReasonWidth }

func (m *Terminate) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutFixedASCII(0, terminateReasonWidth, m.Reason); err != nil {
		return 0, err
	}
	return terminateReasonWidth, nil
}

func (m *Terminate) Decode(body []byte) error {
	b := buffer.Wrap(body)
	r, err := b.GetFixedASCII(0, terminateReasonWidth)
	if err != nil {
		return err
	}
	m.Reason = r
	return nil
}

const clOrdIDWidth = 20
const symbolWidth = 8

// ExecutionReportNew reports an order's acceptance into the book.
type ExecutionReportNew struct {
	ClOrdID string
	Symbol  string
	OrderQty uint32
	Price    int64
}

func (m *ExecutionReportNew) EncodedLen() int { return clOrdIDWidth + symbolWidth + 4 + 8 }

func (m *ExecutionReportNew) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutFixedASCII(0, clOrdIDWidth, m.ClOrdID); err != nil {
		return 0, err
	}
	if err := b.PutFixedASCII(clOrdIDWidth, symbolWidth, m.Symbol); err != nil {
		return 0, err
	}
	if err := b.PutUint32LE(clOrdIDWidth+symbolWidth, m.OrderQty); err != nil {
		return 0, err
	}
	if err := b.PutInt64LE(clOrdIDWidth+symbolWidth+4, m.Price); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *ExecutionReportNew) Decode(body []byte) error {
	b := buffer.Wrap(body)
	id, err := b.GetFixedASCII(0, clOrdIDWidth)
	if err != nil {
		return err
	}
	sym, err := b.GetFixedASCII(clOrdIDWidth, symbolWidth)
	if err != nil {
		return err
	}
	qty, err := b.GetUint32LE(clOrdIDWidth + symbolWidth)
	if err != nil {
		return err
	}
	px, err := b.GetInt64LE(clOrdIDWidth + symbolWidth + 4)
	if err != nil {
		return err
	}
	m.ClOrdID, m.Symbol, m.OrderQty, m.Price = id, sym, qty, px
	return nil
}

// ExecutionReportFill reports a fill against a previously accepted order.
// It is a distinct template from ExecutionReportNew (see the package
// doc's Open Question note) so LastQty/LastPx/cumulative fields never need
// to be optional on the New template.
type ExecutionReportFill struct {
	ClOrdID string
	LastQty uint32
	LastPx  int64
	CumQty  uint32
}

func (m *ExecutionReportFill) EncodedLen() int { return clOrdIDWidth + 4 + 8 + 4 }

func (m *ExecutionReportFill) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	if err := b.PutFixedASCII(0, clOrdIDWidth, m.ClOrdID); err != nil {
		return 0, err
	}
	if err := b.PutUint32LE(clOrdIDWidth, m.LastQty); err != nil {
		return 0, err
	}
	if err := b.PutInt64LE(clOrdIDWidth+4, m.LastPx); err != nil {
		return 0, err
	}
	if err := b.PutUint32LE(clOrdIDWidth+4+8, m.CumQty); err != nil {
		return 0, err
	}
	return m.EncodedLen(), nil
}

func (m *ExecutionReportFill) Decode(body []byte) error {
	b := buffer.Wrap(body)
	id, err := b.GetFixedASCII(0, clOrdIDWidth)
	if err != nil {
		return err
	}
	qty, err := b.GetUint32LE(clOrdIDWidth)
	if err != nil {
		return err
	}
	px, err := b.GetInt64LE(clOrdIDWidth + 4)
	if err != nil {
		return err
	}
	cum, err := b.GetUint32LE(clOrdIDWidth + 4 + 8)
	if err != nil {
		return err
	}
	m.ClOrdID, m.LastQty, m.LastPx, m.CumQty = id, qty, px, cum
	return nil
}
