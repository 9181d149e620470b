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
	"errors"
	"time"

	liberr "github.com/nabbar/omnibridge/errors"
	"github.com/nabbar/omnibridge/ring"
)

// Transport is the minimal outbound surface a session needs from its
// connection; netloop.Conn satisfies it. Kept as an interface here so
// session has no import-time dependency on netloop (which in turn depends
// on session), avoiding an import cycle.
type Transport interface {
	Write(p []byte) (int, error)
	RemoteAddr() string
	Close() error
}

// PersistSink receives every inbound/outbound frame before it becomes
// observable to listeners, per spec.md §4.5's "persisted before becoming
// observable" rule. persist.Log satisfies it.
type PersistSink interface {
	Append(direction byte, streamID string, seq int64, body []byte) error
}

// ResendSource supplies a session's own previously-persisted outbound
// frames back to it, so a FIX ResendRequest can be answered with the
// original bytes rather than a bare gap-fill. persist.Log satisfies it
// once Component.Init has given it a reopen source.
type ResendSource interface {
	Range(streamID string, direction byte, from, to int64) ([][]byte, error)
}

// Direction tags a persisted/dispatched frame's flow relative to this
// session.
const (
	DirectionInbound  byte = 'I'
	DirectionOutbound byte = 'O'
)

// Listener receives session lifecycle and application-message events,
// dispatched synchronously and in wire order from the owning loop
// goroutine, per spec.md §5.
type Listener interface {
	OnSessionLogon(s *Base)
	OnSessionDisconnected(s *Base, reason DisconnectReason)
	OnMessage(s *Base, raw []byte)
}

// Config carries the per-session parameters spec.md §4.1.1/.2/.3 name.
type Config struct {
	ID                string
	Role              Role
	Protocol          Protocol
	HeartbeatInterval time.Duration
	MaxMessageLength  int
	ResetOnLogon      bool
	ResetOnLogout     bool
	ResetOnDisconnect bool
	ResetOnEod        bool
	OutboundCapacity  int
}

// Base holds the fields common to every protocol machine: identity,
// connection state, sequence counters, the outbound ring buffer and the
// listener/persistence fan-out. Protocol-specific machines (FIXSession,
// OUCHSession, PillarSession, ILink3Session, OptiqSession) embed Base and
// add their own handshake logic.
type Base struct {
	cfg Config

	state      State
	inner      innerState
	transport  Transport
	persist    PersistSink
	resend     ResendSource
	listeners  []Listener

	expectedInbound int64
	nextOutbound    int64

	lastInboundAt  time.Time
	lastOutboundAt time.Time

	outbound *ring.Buffer

	now func() time.Time
}

// NewBase constructs a Base in the Disconnected state with sequence
// counters reset to 1, the initial value per spec.md's reset semantics.
func NewBase(cfg Config) *Base {
	if cfg.OutboundCapacity <= 0 {
		cfg.OutboundCapacity = 1 << 20
	}
	return &Base{
		cfg:             cfg,
		state:           Disconnected,
		expectedInbound: 1,
		nextOutbound:    1,
		outbound:        ring.New(cfg.OutboundCapacity),
		now:             time.Now,
	}
}

func (b *Base) Config() Config          { return b.cfg }
func (b *Base) State() State            { return b.state }
func (b *Base) ID() string              { return b.cfg.ID }
func (b *Base) Outbound() *ring.Buffer  { return b.outbound }

// IncomingSeqNum returns the next inbound sequence number this session
// expects to accept.
func (b *Base) IncomingSeqNum() int64 { return b.expectedInbound }

// OutgoingSeqNum returns the sequence number the next outbound message will
// carry.
func (b *Base) OutgoingSeqNum() int64 { return b.nextOutbound }

// ErrSessionConnected is returned by SetIncomingSeqNum/SetOutgoingSeqNum
// when called on a session that is not Disconnected, per the admin
// boundary's "writable while disconnected" rule.
var ErrSessionConnected = errors.New("session: sequence numbers are only writable while disconnected")

// SetIncomingSeqNum overwrites the expected inbound sequence number. Only
// permitted while the session is Disconnected.
func (b *Base) SetIncomingSeqNum(n int64) error {
	if b.state != Disconnected {
		return ErrSessionConnected
	}
	b.expectedInbound = n
	return nil
}

// SetOutgoingSeqNum overwrites the next outbound sequence number. Only
// permitted while the session is Disconnected.
func (b *Base) SetOutgoingSeqNum(n int64) error {
	if b.state != Disconnected {
		return ErrSessionConnected
	}
	b.nextOutbound = n
	return nil
}

// AddListener registers a listener; not safe to call once the session is
// bound to a running engine loop.
func (b *Base) AddListener(l Listener) { b.listeners = append(b.listeners, l) }

// Bind attaches the transport and persistence sink a netloop.Engine assigns
// to this session once its connection is accepted or dialed.
func (b *Base) Bind(t Transport, p PersistSink) {
	b.transport = t
	b.persist = p
}

// SetResendSource attaches the read-back source a FIX ResendRequest
// replays from; additive to Bind so engines that don't need resend
// support (OUCH, Pillar, iLink3, Optiq) are unaffected.
func (b *Base) SetResendSource(r ResendSource) {
	b.resend = r
}

func (b *Base) setState(s State) {
	b.state = s
}

func (b *Base) resetSequences() {
	b.expectedInbound = 1
	b.nextOutbound = 1
}

func (b *Base) fireLogon() {
	for _, l := range b.listeners {
		l.OnSessionLogon(b)
	}
}

func (b *Base) fireDisconnected(reason DisconnectReason) {
	for _, l := range b.listeners {
		l.OnSessionDisconnected(b, reason)
	}
}

func (b *Base) fireMessage(raw []byte) {
	for _, l := range b.listeners {
		l.OnMessage(b, raw)
	}
}

func (b *Base) persistFrame(direction byte, seq int64, body []byte) error {
	if b.persist == nil {
		return nil
	}
	return b.persist.Append(direction, b.cfg.ID, seq, body)
}

// disconnect is the shared "any connected state -> Disconnected" edge used
// by every protocol machine on transport failure, reject or admin logout.
func (b *Base) disconnect(reason DisconnectReason) {
	if b.state == Stopped {
		return
	}
	if b.transport != nil {
		_ = b.transport.Close()
	}
	if b.cfg.ResetOnDisconnect {
		b.resetSequences()
	}
	b.inner = innerNone
	b.setState(Disconnected)
	b.fireDisconnected(reason)
}

// Stop is the terminal transition available from any state; duplicate
// calls are a no-op since Stopped has no outgoing transitions.
func (b *Base) Stop() {
	if b.state == Stopped {
		return
	}
	if b.transport != nil {
		_ = b.transport.Close()
	}
	b.setState(Stopped)
}

// claimAndCommit serializes msg into a freshly claimed ring slot, committing
// only after the full encode succeeds; an encode failure aborts the slot so
// it never reaches the consumer.
func (b *Base) claimAndCommit(size int, encode func([]byte) (int, error)) error {
	id, view, err := b.outbound.TryClaim(size)
	if err != nil {
		return liberr.New(uint16(liberr.Backpressure), err.Error(), err)
	}
	n, err := encode(view)
	if err != nil {
		_ = b.outbound.Abort(id)
		return err
	}
	_ = n
	return b.outbound.Commit(id)
}
