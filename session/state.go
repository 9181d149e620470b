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

// Package session implements the protocol-polymorphic session state
// machine: a common connection-state domain (State) shared by the FIX,
// OUCH and SBE-family (Pillar/iLink3/Optiq) machines, each of which
// projects its own handshake and sequencing discipline onto it.
package session

// State is the common connection-state domain every protocol machine
// projects into. LOGON_SENT collapses into Connected for FIXSession (the
// OUCH, Pillar, iLink3 and Optiq machines stay in Connecting while their
// login is outstanding) and RESENDING collapses into LoggedOn, per the
// session's admin
// projection (registry.Descriptor only ever reports one of these five).
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	LoggedOn
	Stopped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case LoggedOn:
		return "LOGGED_ON"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// innerState tracks the transient sub-states that collapse into the common
// domain above when projected to admin observers.
type innerState int

const (
	innerNone innerState = iota
	innerLogonSent
	innerResending
	innerLogoutSent
)

// Role distinguishes which side of the handshake a session plays.
type Role int

const (
	RoleInitiator Role = iota
	RoleAcceptor
)

func (r Role) String() string {
	if r == RoleAcceptor {
		return "ACCEPTOR"
	}
	return "INITIATOR"
}

// Protocol tags the wire protocol a session speaks.
type Protocol int

const (
	ProtocolFIX Protocol = iota
	ProtocolOUCHv42
	ProtocolOUCHv50
	ProtocolPillar
	ProtocolILink3
	ProtocolOptiq
)

func (p Protocol) String() string {
	switch p {
	case ProtocolFIX:
		return "FIX"
	case ProtocolOUCHv42:
		return "OUCHv42"
	case ProtocolOUCHv50:
		return "OUCHv50"
	case ProtocolPillar:
		return "Pillar"
	case ProtocolILink3:
		return "ILink3"
	case ProtocolOptiq:
		return "Optiq"
	default:
		return "Unknown"
	}
}

// DisconnectReason values used across protocol machines when firing
// onSessionDisconnected / logout notifications.
type DisconnectReason string

const (
	ReasonAdminDisabled    DisconnectReason = "disabled"
	ReasonAdminLogout      DisconnectReason = "admin_logout"
	ReasonIOError          DisconnectReason = "io_error"
	ReasonSequenceTooLow   DisconnectReason = "sequence_too_low"
	ReasonHeartbeatTimeout DisconnectReason = "heartbeat_timeout"
	ReasonPeerReject       DisconnectReason = "peer_reject"
	ReasonStop             DisconnectReason = "stop"
)
