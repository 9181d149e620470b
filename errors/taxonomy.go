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

package errors

// Connectivity engine error codes, in the 4000-4099 range: from MinAvailable
// up, clear of the MinPkg* ranges in modules.go.
const (
	// ProtocolViolation covers any malformed or out-of-spec wire message.
	ProtocolViolation CodeError = 4000

	// SequenceTooLow is raised when a peer's inbound sequence number is
	// behind what the session already processed - a protocol violation
	// severe enough to carry its own code since it drives a distinct
	// recovery path: the FIX session disconnects (ReasonSequenceTooLow)
	// instead of sending a resend request.
	SequenceTooLow CodeError = 4001

	// SequenceGap is raised when a peer's inbound sequence number is ahead
	// of what the session expected, triggering a resend/retransmit request.
	SequenceGap CodeError = 4002

	// IOError wraps a transport-level read/write failure.
	IOError CodeError = 4010

	// Backpressure is raised when an outbound ring buffer has no room for a
	// new message and the caller's policy is to fail rather than block.
	Backpressure CodeError = 4020

	// ConfigError covers invalid or missing session/engine configuration.
	ConfigError CodeError = 4030

	// AdminError covers failures surfaced through the admin HTTP/WS boundary.
	AdminError CodeError = 4040
)

func init() {
	idMsgFct[ProtocolViolation] = func(CodeError) string { return "protocol violation" }
	idMsgFct[SequenceTooLow] = func(CodeError) string { return "sequence number too low" }
	idMsgFct[SequenceGap] = func(CodeError) string { return "sequence number gap detected" }
	idMsgFct[IOError] = func(CodeError) string { return "transport i/o error" }
	idMsgFct[Backpressure] = func(CodeError) string { return "outbound buffer backpressure" }
	idMsgFct[ConfigError] = func(CodeError) string { return "invalid configuration" }
	idMsgFct[AdminError] = func(CodeError) string { return "admin request failed" }
}
