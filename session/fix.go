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
	"strconv"
	"time"

	liberr "github.com/nabbar/omnibridge/errors"
	"github.com/nabbar/omnibridge/protocol/fix"
)

// FIXSession implements the FIX initiator machine of spec.md §4.1.1: the
// connect/Logon/ResendRequest/heartbeat transitions and the sequence-number
// contract (reject-on-too-low, resend-on-gap).
type FIXSession struct {
	*Base

	BeginString   string
	SenderCompID  string
	TargetCompID  string

	view    *fix.View
	builder *fix.Builder
	ts      fix.TimestampEncoder

	resendQueue [][]byte

	lastTestReqID string
}

// NewFIXSession constructs a FIX initiator session in the Disconnected
// state.
func NewFIXSession(cfg Config, beginString, sender, target string) *FIXSession {
	cfg.Protocol = ProtocolFIX
	return &FIXSession{
		Base:         NewBase(cfg),
		BeginString:  beginString,
		SenderCompID: sender,
		TargetCompID: target,
		view:         fix.NewView(),
		builder:      &fix.Builder{},
	}
}

// OnConnected is fired by the network loop once the TCP connection
// completes: it sends Logon and records the reset-on-logon sequence rule.
func (s *FIXSession) OnConnected() error {
	if s.cfg.ResetOnLogon {
		s.resetSequences()
	}
	if err := s.sendLogon(); err != nil {
		return err
	}
	s.setState(Connected)
	s.inner = innerLogonSent
	return nil
}

// ConnectFailed projects the CONNECTING -> DISCONNECTED edge for a failed
// or timed-out dial; the caller (netloop) is responsible for scheduling the
// reconnect timer per the session's reconnect policy.
func (s *FIXSession) ConnectFailed() {
	s.setState(Disconnected)
}

// BeginConnect transitions DISCONNECTED -> CONNECTING; the caller opens the
// TCP connection and starts the connect timer.
func (s *FIXSession) BeginConnect() {
	if s.state != Disconnected {
		return
	}
	s.setState(Connecting)
}

func (s *FIXSession) sendLogon() error {
	return s.sendAdmin(fix.MsgTypeLogon, func(b *fix.Builder) {
		b.SetInt(fix.TagEncryptMethod, 0)
		b.SetInt(fix.TagHeartBtInt, int(s.cfg.HeartbeatInterval/time.Second))
	})
}

func (s *FIXSession) sendHeartbeat(testReqID string) error {
	return s.sendAdmin(fix.MsgTypeHeartbeat, func(b *fix.Builder) {
		if testReqID != "" {
			b.SetField(fix.TagTestReqID, testReqID)
		}
	})
}

func (s *FIXSession) sendTestRequest(id string) error {
	s.lastTestReqID = id
	return s.sendAdmin(fix.MsgTypeTestRequest, func(b *fix.Builder) {
		b.SetField(fix.TagTestReqID, id)
	})
}

func (s *FIXSession) sendResendRequest(begin, end int) error {
	return s.sendAdmin(fix.MsgTypeResendRequest, func(b *fix.Builder) {
		b.SetInt(fix.TagBeginSeqNo, begin)
		b.SetInt(fix.TagEndSeqNo, end)
	})
}

func (s *FIXSession) sendLogout() error {
	return s.sendAdmin(fix.MsgTypeLogout, func(*fix.Builder) {})
}

// sendAdmin builds a session-level message with the common header fields
// and commits it to the outbound ring, incrementing nextOutbound only on a
// successful commit per spec.md's sequence-number contract.
func (s *FIXSession) sendAdmin(msgType string, fields func(b *fix.Builder)) error {
	s.builder.Reset(s.BeginString, msgType)
	s.builder.SetField(fix.TagSenderCompID, s.SenderCompID)
	s.builder.SetField(fix.TagTargetCompID, s.TargetCompID)
	s.builder.SetInt(fix.TagMsgSeqNum, int(s.nextOutbound))
	s.builder.SetField(fix.TagSendingTime, s.ts.EncodeString(s.clockNow(), true))
	fields(s.builder)

	seq := s.nextOutbound
	buf := make([]byte, s.builder.EncodedLen())
	n, err := s.builder.Encode(buf)
	if err != nil {
		return err
	}
	buf = buf[:n]

	if err := s.claimAndCommit(len(buf), func(dst []byte) (int, error) {
		return copy(dst, buf), nil
	}); err != nil {
		return err
	}
	s.nextOutbound++
	_ = s.persistFrame(DirectionOutbound, seq, buf)
	s.lastOutboundAt = s.clockNow()
	return nil
}

func (s *FIXSession) clockNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SendNewOrderSingle claims a ring slot and commits a New Order Single
// (tag 35=D), incrementing the outbound sequence number only on a
// successful commit, exactly like sendAdmin. Usable once the session is
// LoggedOn; callers driving a load-test pattern (spec.md §6's sample-client
// CLI surface) are responsible for their own pacing.
func (s *FIXSession) SendNewOrderSingle(clOrdID, symbol, side string, qty int, price float64) error {
	s.builder.Reset(s.BeginString, fix.MsgTypeNewOrderSingle)
	s.builder.SetField(fix.TagSenderCompID, s.SenderCompID)
	s.builder.SetField(fix.TagTargetCompID, s.TargetCompID)
	s.builder.SetInt(fix.TagMsgSeqNum, int(s.nextOutbound))
	s.builder.SetField(fix.TagSendingTime, s.ts.EncodeString(s.clockNow(), true))
	s.builder.SetField(fix.TagClOrdID, clOrdID)
	s.builder.SetField(fix.TagSymbol, symbol)
	s.builder.SetField(fix.TagSide, side)
	s.builder.SetInt(fix.TagOrderQty, qty)
	s.builder.SetField(fix.TagOrdType, fix.OrdTypeLimit)
	s.builder.SetField(fix.TagPrice, strconv.FormatFloat(price, 'f', 4, 64))
	s.builder.SetField(fix.TagTransactTime, s.ts.EncodeString(s.clockNow(), true))

	seq := s.nextOutbound
	buf := make([]byte, s.builder.EncodedLen())
	n, err := s.builder.Encode(buf)
	if err != nil {
		return err
	}
	buf = buf[:n]

	if err := s.claimAndCommit(len(buf), func(dst []byte) (int, error) {
		return copy(dst, buf), nil
	}); err != nil {
		return err
	}
	s.nextOutbound++
	_ = s.persistFrame(DirectionOutbound, seq, buf)
	s.lastOutboundAt = s.clockNow()
	return nil
}

// HandleInbound processes one complete, validated FIX frame: the
// sequence-number contract runs first, then session-level messages are
// handled internally and everything else dispatched to listeners.
func (s *FIXSession) HandleInbound(raw []byte) error {
	if err := fix.Validate(raw); err != nil {
		return liberr.New(uint16(liberr.ProtocolViolation), err.Error())
	}

	s.view.Reset(raw)
	seq, err := s.view.MsgSeqNum()
	if err != nil {
		return liberr.New(uint16(liberr.ProtocolViolation), err.Error())
	}
	msgType, err := s.view.MsgType()
	if err != nil {
		return liberr.New(uint16(liberr.ProtocolViolation), err.Error())
	}

	s.lastInboundAt = s.clockNow()
	_ = s.persistFrame(DirectionInbound, seq, raw)

	switch {
	case int64(seq) < s.expectedInbound:
		s.disconnect(ReasonSequenceTooLow)
		return liberr.New(uint16(liberr.SequenceTooLow), "inbound seqnum below expected")
	case int64(seq) > s.expectedInbound:
		s.inner = innerResending
		s.resendQueue = append(s.resendQueue, append([]byte(nil), raw...))
		return s.sendResendRequest(int(s.expectedInbound), 0)
	}

	s.expectedInbound++

	if fix.IsAdminMsgType(msgType) {
		return s.handleAdmin(msgType)
	}

	if s.inner == innerResending {
		// a gap-filling message arrived in sequence; dispatch once the
		// queue drains back to in-order per the RESENDING->LOGGED_ON edge.
		s.drainResendQueue()
	}

	s.fireMessage(raw)
	return nil
}

func (s *FIXSession) drainResendQueue() {
	if len(s.resendQueue) == 0 {
		s.inner = innerNone
		return
	}
	pending := s.resendQueue
	s.resendQueue = nil
	s.inner = innerNone
	for _, raw := range pending {
		s.fireMessage(raw)
	}
}

func (s *FIXSession) handleAdmin(msgType string) error {
	switch msgType {
	case fix.MsgTypeLogon:
		s.inner = innerNone
		s.setState(LoggedOn)
		s.fireLogon()
	case fix.MsgTypeHeartbeat:
		// no action beyond the inbound-timer reset already recorded above.
	case fix.MsgTypeTestRequest:
		id, _ := s.view.GetCharSequence(fix.TagTestReqID)
		return s.sendHeartbeat(id)
	case fix.MsgTypeResendRequest:
		begin, _ := s.view.GetInt(fix.TagBeginSeqNo)
		end, _ := s.view.GetInt(fix.TagEndSeqNo)
		return s.handleResendRequest(begin, end)
	case fix.MsgTypeSequenceReset:
		newSeq, err := s.view.GetInt(fix.TagNewSeqNo)
		if err == nil {
			s.expectedInbound = int64(newSeq)
		}
	case fix.MsgTypeLogout:
		if s.cfg.ResetOnLogout {
			s.resetSequences()
		}
		s.disconnect(ReasonAdminLogout)
	}
	return nil
}

// handleResendRequest answers a ResendRequest per spec.md §4.1.1's
// gap-recovery scenario: the originally-sent bytes for [begin,end] are
// read back from the resend source (persist.Log, via SetResendSource) and
// retransmitted in order. end==0 means "through the current outbound
// sequence", per FIX's open-ended resend convention. Messages that were
// never persisted (no resend source bound, or the log has already rolled
// past them) fall back to a SequenceReset(gap-fill) that simply jumps the
// counterparty's expected sequence number forward.
func (s *FIXSession) handleResendRequest(begin, end int) error {
	to := int64(end)
	if end == 0 {
		to = s.nextOutbound - 1
	}
	if to < int64(begin) {
		return nil
	}

	if s.resend != nil {
		bodies, err := s.resend.Range(s.cfg.ID, DirectionOutbound, int64(begin), to)
		if err == nil && len(bodies) > 0 {
			for _, body := range bodies {
				if err := s.claimAndCommit(len(body), func(dst []byte) (int, error) {
					return copy(dst, body), nil
				}); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return s.sendAdmin(fix.MsgTypeSequenceReset, func(b *fix.Builder) {
		b.SetField(fix.TagGapFillFlag, "Y")
		b.SetInt(fix.TagNewSeqNo, int(to)+1)
	})
}

// CheckHeartbeats implements the heartbeat discipline of spec.md §4.1.1: no
// outbound in heartbeatInterval sends a Heartbeat; no inbound in 1.5x sends
// a TestRequest; no response within another interval disconnects.
func (s *FIXSession) CheckHeartbeats(now time.Time) error {
	if s.state != LoggedOn && s.inner != innerLogonSent {
		return nil
	}
	hb := s.cfg.HeartbeatInterval
	if hb <= 0 {
		return nil
	}

	if !s.lastOutboundAt.IsZero() && now.Sub(s.lastOutboundAt) >= hb {
		if err := s.sendHeartbeat(""); err != nil {
			return err
		}
	}

	if s.lastInboundAt.IsZero() {
		return nil
	}
	idle := now.Sub(s.lastInboundAt)
	switch {
	case s.lastTestReqID != "" && idle >= hb*2:
		s.disconnect(ReasonHeartbeatTimeout)
	case idle >= time.Duration(float64(hb)*1.5):
		id := "TEST" + strconv.FormatInt(now.UnixNano(), 10)
		return s.sendTestRequest(id)
	}
	return nil
}
