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

package session

import (
	"time"

	"github.com/nabbar/omnibridge/buffer"
	liberr "github.com/nabbar/omnibridge/errors"
	"github.com/nabbar/omnibridge/protocol/ilink3"
	"github.com/nabbar/omnibridge/protocol/optiq"
	"github.com/nabbar/omnibridge/protocol/pillar"
	"github.com/nabbar/omnibridge/protocol/sbe"
)

// PillarSession implements spec.md §4.1.3's Pillar handshake: Login ->
// LoginResponse -> stream Open per logical stream -> Heartbeat every 1s.
type PillarSession struct {
	*Base

	Username, Password string
	Streams            []string

	openedStreams int
}

func NewPillarSession(cfg Config, username, password string, streams []string) *PillarSession {
	cfg.Protocol = ProtocolPillar
	return &PillarSession{Base: NewBase(cfg), Username: username, Password: password, Streams: streams}
}

func (s *PillarSession) BeginConnect() {
	if s.state == Disconnected {
		s.setState(Connecting)
	}
}

func (s *PillarSession) OnConnected() error {
	login := &pillar.Login{Username: s.Username, Password: s.Password, HeartbeatIntervalMs: uint32(s.cfg.HeartbeatInterval / time.Millisecond)}
	if err := s.sendPillar(pillar.MsgTypeLogin, login.EncodedLen(), login.Encode); err != nil {
		return err
	}
	s.inner = innerLogonSent
	return nil
}

func (s *PillarSession) sendPillar(msgType uint16, bodyLen int, encode func([]byte) (int, error)) error {
	total := pillar.FrameHeaderSize + bodyLen
	return s.claimAndCommit(total, func(dst []byte) (int, error) {
		if err := pillar.WriteFrameHeader(dst, bodyLen, msgType); err != nil {
			return 0, err
		}
		if _, err := encode(dst[pillar.FrameHeaderSize:]); err != nil {
			return 0, err
		}
		s.lastOutboundAt = s.clockNow()
		return total, nil
	})
}

func (s *PillarSession) clockNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *PillarSession) HandleInbound(raw []byte) error {
	bodyLen, msgType, err := pillar.ReadFrameHeader(raw)
	if err != nil || pillar.FrameHeaderSize+bodyLen > len(raw) {
		return liberr.New(uint16(liberr.ProtocolViolation), "malformed pillar frame")
	}
	body := raw[pillar.FrameHeaderSize : pillar.FrameHeaderSize+bodyLen]
	s.lastInboundAt = s.clockNow()
	_ = s.persistFrame(DirectionInbound, -1, raw)

	switch msgType {
	case pillar.MsgTypeLoginResponse:
		var resp pillar.LoginResponse
		if err := resp.Decode(body); err != nil {
			return err
		}
		if !resp.Accepted {
			s.disconnect(ReasonPeerReject)
			return nil
		}
		s.inner = innerNone
		s.setState(Connected)
		return s.openNextStream()
	case pillar.MsgTypeHeartbeat:
		// keepalive only.
	case pillar.MsgTypeAppData:
		if len(body) < pillar.SeqHeaderSize {
			return liberr.New(uint16(liberr.ProtocolViolation), "malformed pillar sequenced message")
		}
		seq, err := pillar.ReadSeqHeader(body)
		if err != nil {
			return err
		}
		if int64(seq) == s.expectedInbound {
			s.expectedInbound++
		}
		s.fireMessage(body[pillar.SeqHeaderSize:])
	default:
		s.fireMessage(body)
	}
	return nil
}

// SendSequencedMessage sends a post-logon application message prefixed by
// Pillar's 8-byte SeqMsg header carrying this session's next outbound
// sequence number, per spec.md §6.
func (s *PillarSession) SendSequencedMessage(body []byte) error {
	seq := s.nextOutbound
	total := pillar.FrameHeaderSize + pillar.SeqHeaderSize + len(body)
	err := s.claimAndCommit(total, func(dst []byte) (int, error) {
		if err := pillar.WriteFrameHeader(dst, pillar.SeqHeaderSize+len(body), pillar.MsgTypeAppData); err != nil {
			return 0, err
		}
		if err := pillar.WriteSeqHeader(dst[pillar.FrameHeaderSize:], uint64(seq)); err != nil {
			return 0, err
		}
		copy(dst[pillar.FrameHeaderSize+pillar.SeqHeaderSize:], body)
		s.lastOutboundAt = s.clockNow()
		return total, nil
	})
	if err != nil {
		return err
	}
	s.nextOutbound++
	return nil
}

func (s *PillarSession) openNextStream() error {
	for s.openedStreams < len(s.Streams) {
		so := &pillar.StreamOpen{StreamName: s.Streams[s.openedStreams]}
		s.openedStreams++
		if err := s.sendPillar(pillar.MsgTypeStreamOpen, so.EncodedLen(), so.Encode); err != nil {
			return err
		}
	}
	s.setState(LoggedOn)
	s.fireLogon()
	return nil
}

func (s *PillarSession) SendHeartbeat() error {
	hb := &pillar.Heartbeat{}
	return s.sendPillar(pillar.MsgTypeHeartbeat, hb.EncodedLen(), hb.Encode)
}

// ILink3Session implements spec.md §4.1.3's iLink3 handshake: Negotiate ->
// NegotiationResponse -> Establish -> EstablishmentAck -> Sequence
// heartbeats; Terminate ends the session.
type ILink3Session struct {
	*Base

	UUID      [16]byte
	SessionID string
}

func NewILink3Session(cfg Config, sessionID string) *ILink3Session {
	cfg.Protocol = ProtocolILink3
	s := &ILink3Session{Base: NewBase(cfg), SessionID: sessionID}
	copy(s.UUID[:], sessionID)
	return s
}

func (s *ILink3Session) BeginConnect() {
	if s.state == Disconnected {
		s.setState(Connecting)
	}
}

func (s *ILink3Session) OnConnected() error {
	neg := &ilink3.Negotiate{UUID: s.UUID, Timestamp: uint64(s.clockNow().UnixNano()), SessionID: s.SessionID}
	if err := s.sendSBE(ilink3.TemplateNegotiate, neg.EncodedLen(), neg.Encode); err != nil {
		return err
	}
	s.inner = innerLogonSent
	return nil
}

func (s *ILink3Session) clockNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// sendSBE writes the protocol's real 8-byte SBE header (blockLength,
// templateId, schemaId, version, per protocol/sbe.Header) ahead of the
// body; blockLength carries this message's body length so ExpectedLength
// can frame the next read without a separate length field.
func (s *ILink3Session) sendSBE(templateID uint16, bodyLen int, encode func([]byte) (int, error)) error {
	total := sbe.HeaderSize + bodyLen
	return s.claimAndCommit(total, func(dst []byte) (int, error) {
		h := sbe.Header{BlockLength: uint16(bodyLen), TemplateID: templateID, SchemaID: ilink3.SchemaID, Version: ilink3.Version}
		if err := sbe.WriteHeaderLE(buffer.Wrap(dst), h); err != nil {
			return 0, err
		}
		if _, err := encode(dst[sbe.HeaderSize:]); err != nil {
			return 0, err
		}
		s.lastOutboundAt = s.clockNow()
		return total, nil
	})
}

func (s *ILink3Session) HandleInbound(raw []byte) error {
	if len(raw) < sbe.HeaderSize {
		return liberr.New(uint16(liberr.ProtocolViolation), "malformed ilink3 frame")
	}
	h, err := sbe.ReadHeaderLE(buffer.Wrap(raw))
	if err != nil {
		return liberr.New(uint16(liberr.ProtocolViolation), "malformed ilink3 frame")
	}
	if h.SchemaID != ilink3.SchemaID || h.Version != ilink3.Version {
		return liberr.New(uint16(liberr.ProtocolViolation), ilink3.ErrSchemaMismatch.Error())
	}
	templateID := h.TemplateID
	bodyLen := int(h.BlockLength)
	if sbe.HeaderSize+bodyLen > len(raw) {
		return liberr.New(uint16(liberr.ProtocolViolation), "truncated ilink3 frame")
	}
	body := raw[sbe.HeaderSize : sbe.HeaderSize+bodyLen]
	s.lastInboundAt = s.clockNow()
	_ = s.persistFrame(DirectionInbound, -1, raw)

	switch templateID {
	case ilink3.TemplateNegotiationResponse:
		var resp ilink3.NegotiationResponse
		if err := resp.Decode(body); err != nil {
			return err
		}
		est := &ilink3.Establish{UUID: s.UUID, NextSeqNo: uint64(s.nextOutbound), KeepaliveIntervalMs: uint32(s.cfg.HeartbeatInterval / time.Millisecond)}
		return s.sendSBE(ilink3.TemplateEstablish, est.EncodedLen(), est.Encode)
	case ilink3.TemplateEstablishmentAck:
		s.inner = innerNone
		s.setState(LoggedOn)
		s.fireLogon()
	case ilink3.TemplateSequence:
		// keepalive only.
	case ilink3.TemplateTerminate:
		s.disconnect(ReasonAdminLogout)
	case ilink3.TemplateExecutionReportNew, ilink3.TemplateExecutionReportFill:
		s.fireMessage(body)
	default:
		s.fireMessage(body)
	}
	return nil
}

func (s *ILink3Session) SendSequenceHeartbeat() error {
	seq := &ilink3.Sequence{NextSeqNo: uint64(s.nextOutbound)}
	return s.sendSBE(ilink3.TemplateSequence, seq.EncodedLen(), seq.Encode)
}

// OptiqSession implements spec.md §4.1.3's Optiq handshake: Logon -> LogonAck
// (server asserts heartbeat interval) -> application messages ->
// Logout(reason-coded).
type OptiqSession struct {
	*Base

	PartyID, Password string
}

func NewOptiqSession(cfg Config, partyID, password string) *OptiqSession {
	cfg.Protocol = ProtocolOptiq
	return &OptiqSession{Base: NewBase(cfg), PartyID: partyID, Password: password}
}

func (s *OptiqSession) BeginConnect() {
	if s.state == Disconnected {
		s.setState(Connecting)
	}
}

func (s *OptiqSession) OnConnected() error {
	logon := &optiq.Logon{PartyID: s.PartyID, Password: s.Password}
	if err := s.sendOptiq(optiq.TemplateLogon, logon.EncodedLen(), logon.Encode); err != nil {
		return err
	}
	s.inner = innerLogonSent
	return nil
}

func (s *OptiqSession) clockNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// sendOptiq writes the protocol's real 8-byte SBE header, mirroring
// ILink3Session.sendSBE.
func (s *OptiqSession) sendOptiq(templateID uint16, bodyLen int, encode func([]byte) (int, error)) error {
	total := sbe.HeaderSize + bodyLen
	return s.claimAndCommit(total, func(dst []byte) (int, error) {
		h := sbe.Header{BlockLength: uint16(bodyLen), TemplateID: templateID, SchemaID: optiq.SchemaID, Version: optiq.Version}
		if err := sbe.WriteHeaderLE(buffer.Wrap(dst), h); err != nil {
			return 0, err
		}
		if _, err := encode(dst[sbe.HeaderSize:]); err != nil {
			return 0, err
		}
		s.lastOutboundAt = s.clockNow()
		return total, nil
	})
}

func (s *OptiqSession) HandleInbound(raw []byte) error {
	if len(raw) < sbe.HeaderSize {
		return liberr.New(uint16(liberr.ProtocolViolation), "malformed optiq frame")
	}
	h, err := sbe.ReadHeaderLE(buffer.Wrap(raw))
	if err != nil {
		return liberr.New(uint16(liberr.ProtocolViolation), "malformed optiq frame")
	}
	if h.SchemaID != optiq.SchemaID || h.Version != optiq.Version {
		return liberr.New(uint16(liberr.ProtocolViolation), optiq.ErrSchemaMismatch.Error())
	}
	templateID := h.TemplateID
	bodyLen := int(h.BlockLength)
	if sbe.HeaderSize+bodyLen > len(raw) {
		return liberr.New(uint16(liberr.ProtocolViolation), "truncated optiq frame")
	}
	body := raw[sbe.HeaderSize : sbe.HeaderSize+bodyLen]
	s.lastInboundAt = s.clockNow()
	_ = s.persistFrame(DirectionInbound, -1, raw)

	switch templateID {
	case optiq.TemplateLogonAck:
		var ack optiq.LogonAck
		if err := ack.Decode(body); err != nil {
			return err
		}
		s.nextOutbound = int64(ack.NextSeqNo)
		s.inner = innerNone
		s.setState(LoggedOn)
		s.fireLogon()
	case optiq.TemplateLogout:
		var lo optiq.Logout
		_ = lo.Decode(body)
		s.disconnect(ReasonAdminLogout)
	default:
		s.fireMessage(body)
	}
	return nil
}

func (s *OptiqSession) SendLogout(reason byte) error {
	lo := &optiq.Logout{Reason: reason}
	return s.sendOptiq(optiq.TemplateLogout, lo.EncodedLen(), lo.Encode)
}
