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

	liberr "github.com/nabbar/omnibridge/errors"
	"github.com/nabbar/omnibridge/protocol/ouch"
)

// OUCHSession implements the soupbin-framed OUCH machine of spec.md
// §4.1.2, abstracting the v4.2/v5.0 application-layer difference behind a
// single EnterOrder call.
type OUCHSession struct {
	*Base

	Version        ouch.Version
	Username       string
	Password       string
	RequestedSeq   uint64

	assignedSession string
	nextUserRefNum  uint64

	lastPeerHeartbeatAt time.Time
}

// NewOUCHSession constructs an OUCH initiator session in the Disconnected
// state for the given wire version.
func NewOUCHSession(cfg Config, version ouch.Version, username, password string) *OUCHSession {
	if version == ouch.V50 {
		cfg.Protocol = ProtocolOUCHv50
	} else {
		cfg.Protocol = ProtocolOUCHv42
	}
	return &OUCHSession{
		Base:     NewBase(cfg),
		Version:  version,
		Username: username,
		Password: password,
	}
}

// BeginConnect transitions DISCONNECTED -> CONNECTING.
func (s *OUCHSession) BeginConnect() {
	if s.state != Disconnected {
		return
	}
	s.setState(Connecting)
}

// OnConnected sends the soupbin LoginRequest once the TCP connection
// completes.
func (s *OUCHSession) OnConnected() error {
	body := make([]byte, 6+10+10+8)
	copy(body[0:6], padRight(s.Username, 6))
	copy(body[6:16], padRight(s.Password, 10))
	copy(body[16:26], padRight("", 10))

	frame := make([]byte, ouch.EncodedLen(len(body)))
	n := ouch.Encode(frame, ouch.PacketLoginRequest, body)
	if err := s.claimAndCommit(n, func(dst []byte) (int, error) {
		return copy(dst, frame), nil
	}); err != nil {
		return err
	}
	s.setState(Connecting)
	s.inner = innerLogonSent
	return nil
}

func padRight(s string, width int) []byte {
	out := make([]byte, width)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out
}

// HandleInbound processes one complete soupbin frame, per the
// LOGIN_ACCEPTED / LOGIN_REJECTED / heartbeat / sequenced-data transitions.
func (s *OUCHSession) HandleInbound(raw []byte) error {
	f, err := ouch.Decode(raw)
	if err != nil {
		return liberr.New(uint16(liberr.ProtocolViolation), err.Error())
	}

	s.lastInboundAt = s.clockNow()
	_ = s.persistFrame(DirectionInbound, -1, raw)

	switch f.Type {
	case ouch.PacketLoginAccepted:
		s.inner = innerNone
		s.setState(LoggedOn)
		s.fireLogon()
	case ouch.PacketLoginRejected:
		// reject is terminal: spec.md §4.1.2 - the initiator must not
		// reconnect automatically.
		s.inner = innerNone
		s.disconnect(ReasonPeerReject)
	case ouch.PacketServerHeartbeat:
		s.lastPeerHeartbeatAt = s.clockNow()
	case ouch.PacketSequencedData, ouch.PacketUnsequenced:
		s.fireMessage(f.Body)
	case ouch.PacketLogoutRequest:
		s.disconnect(ReasonAdminLogout)
	}
	return nil
}

func (s *OUCHSession) clockNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SendHeartbeat emits the client heartbeat; both peers are expected to send
// one per second per spec.md §4.1.2.
func (s *OUCHSession) SendHeartbeat() error {
	frame := make([]byte, ouch.EncodedLen(0))
	ouch.Encode(frame, ouch.PacketClientHeartbeat, nil)
	return s.claimAndCommit(len(frame), func(dst []byte) (int, error) {
		return copy(dst, frame), nil
	})
}

// CheckHeartbeats disconnects if no heartbeat has been seen from the peer
// within 15 seconds, per spec.md §4.1.2.
func (s *OUCHSession) CheckHeartbeats(now time.Time) error {
	if s.state != LoggedOn {
		return nil
	}
	if s.lastPeerHeartbeatAt.IsZero() {
		s.lastPeerHeartbeatAt = now
		return nil
	}
	if now.Sub(s.lastPeerHeartbeatAt) >= 15*time.Second {
		s.disconnect(ReasonHeartbeatTimeout)
	}
	return nil
}

// EnterOrder submits an order using the session's configured wire version,
// presenting a uniform API across v4.2 tokens and v5.0 userRefNums per
// spec.md §4.1.2.
func (s *OUCHSession) EnterOrder(symbol string, side ouch.Side, shares uint32, price uint32) (string, error) {
	msg := &ouch.EnterOrder{
		Version:  s.Version,
		Side:     side,
		Shares:   shares,
		Symbol:   symbol,
		Price:    price,
		Capacity: ouch.CapacityAgency,
		CrossType: ouch.CrossTypeNone,
	}

	var token string
	if s.Version == ouch.V50 {
		s.nextUserRefNum++
		msg.UserRefNum = s.nextUserRefNum
	} else {
		s.nextUserRefNum++
		token = padToken(s.nextUserRefNum)
		msg.Token = token
	}

	body := make([]byte, msg.EncodedLen())
	n, err := msg.Encode(body)
	if err != nil {
		return "", err
	}

	frame := make([]byte, ouch.EncodedLen(n))
	size := ouch.EncodedLen(n)
	err = s.claimAndCommit(size, func(dst []byte) (int, error) {
		return ouch.Encode(dst, ouch.PacketUnsequenced, body[:n]), nil
	})
	if err != nil {
		return "", err
	}
	_ = frame
	return token, nil
}

func padToken(n uint64) string {
	const width = 14
	s := "ORDER"
	digits := itoaPad(n, width-len(s))
	return s + digits
}

func itoaPad(n uint64, width int) string {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte('0' + n%10)
		n /= 10
	}
	return string(out)
}
