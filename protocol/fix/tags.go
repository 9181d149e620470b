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

// Package fix implements the tag/value ASCII FIX codec of spec.md §4.2: a
// parser exposing a lazily-scanned, thread-local message view, and a
// ring-buffer-backed builder for outbound messages with canonical field
// ordering, computed BodyLength and CheckSum.
package fix

// SOH is the FIX field delimiter (0x01).
const SOH = byte(0x01)

// Header/trailer tag numbers used directly by the session core.
const (
	TagBeginString  = 8
	TagBodyLength   = 9
	TagMsgType      = 35
	TagSenderCompID = 49
	TagTargetCompID = 56
	TagMsgSeqNum    = 34
	TagSendingTime  = 52
	TagCheckSum     = 10

	TagEncryptMethod  = 98
	TagHeartBtInt     = 108
	TagTestReqID      = 112
	TagResetSeqNumFlag = 141
	TagGapFillFlag    = 123
	TagNewSeqNo       = 36
	TagBeginSeqNo     = 7
	TagEndSeqNo       = 16
	TagText           = 58
)

// Order-entry tag numbers used by application-level New Order Single
// messages sent through the session core's outbound path.
const (
	TagClOrdID     = 11
	TagSide        = 54
	TagSymbol      = 55
	TagTransactTime = 60
	TagOrderQty    = 38
	TagOrdType     = 40
	TagPrice       = 44
)

// Side values for TagSide.
const (
	SideBuy  = "1"
	SideSell = "2"
)

// OrdType values for TagOrdType.
const (
	OrdTypeMarket = "1"
	OrdTypeLimit  = "2"
)

// MsgType values for session-level (admin) messages, handled internally by
// the session state machine and never dispatched to application listeners.
const (
	MsgTypeHeartbeat     = "0"
	MsgTypeTestRequest   = "1"
	MsgTypeResendRequest = "2"
	MsgTypeReject        = "3"
	MsgTypeSequenceReset = "4"
	MsgTypeLogout        = "5"
	MsgTypeLogon         = "A"
)

// IsAdminMsgType reports whether t is one of the session-level message
// types that spec.md §4.1.1 and §6 say are handled internally.
func IsAdminMsgType(t string) bool {
	switch t {
	case MsgTypeHeartbeat, MsgTypeTestRequest, MsgTypeResendRequest,
		MsgTypeReject, MsgTypeSequenceReset, MsgTypeLogout, MsgTypeLogon:
		return true
	default:
		return false
	}
}

// MsgTypeNewOrderSingle is the application-level order-entry message type;
// never passed to IsAdminMsgType since it is dispatched to listeners like
// any other application message.
const MsgTypeNewOrderSingle = "D"
