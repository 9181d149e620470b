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

// Package netloop implements the network event loop of spec.md §4.4.
//
// The source system multiplexes non-blocking sockets with a hand-rolled
// selector loop. Go's runtime netpoller already does that job for every
// goroutine blocked in a socket read or write, so a literal epoll
// reimplementation would fight the scheduler instead of using it. The
// idiomatic translation kept here is: one reader goroutine per accepted or
// dialed connection turns socket bytes into framed messages and posts them
// to a single event channel; one loop goroutine per Engine is the sole
// consumer of that channel plus a command channel (admin/listener
// submissions) and a heartbeat/reconnect ticker. That loop goroutine is
// the "loop thread" spec.md §5 requires to own all per-session mutation -
// every Session method the engine calls runs there and nowhere else,
// matching the ordering guarantees of spec.md §5 with channels standing in
// for the hand-rolled selector and task queue. Grounded on the shape
// socket/server/tcp and socket/client/tcp's tests imply (a handler
// callback driven by accepted connections) translated to single-owner
// channel dispatch per runner/startStop's dedicated-goroutine-supervisor
// idiom.
package netloop

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/nabbar/omnibridge/ring"
	"github.com/nabbar/omnibridge/session"
)

// Session is the subset of the protocol-specific session machines
// (session.FIXSession, session.OUCHSession, session.PillarSession,
// session.ILink3Session, session.OptiqSession) that the engine drives.
// Every concrete machine in package session satisfies it.
type Session interface {
	ID() string
	Config() session.Config
	State() session.State
	Bind(t session.Transport, p session.PersistSink)
	BeginConnect()
	OnConnected() error
	HandleInbound(raw []byte) error
	CheckHeartbeats(now time.Time) error
	Outbound() *ring.Buffer
	Stop()
}

// connectFailer is implemented by session machines with an explicit
// CONNECTING -> DISCONNECTED failure edge (session.FIXSession). Machines
// that don't implement it fall back to a plain Disconnected state left by
// the connection-level error.
type connectFailer interface {
	ConnectFailed()
}

// Codec adapts one protocol's framing to the engine: given the bytes
// accumulated so far for a connection, it returns the length of the next
// complete frame, or returns incomplete (detected via IsIncomplete) when
// more bytes are needed.
type Codec struct {
	// ExpectedLength implements spec.md §4.4 step 2's expectedLength
	// contract: -1 (signalled by returning Incomplete) means "await more
	// bytes", otherwise the returned int is the frame's byte length.
	ExpectedLength func(buf []byte) (int, error)
	// IsIncomplete reports whether an error returned by ExpectedLength
	// means "incomplete" (wait for more bytes) as opposed to a protocol
	// violation.
	IsIncomplete func(error) bool
}

// binding couples one registered Session to its codec, transport and
// persistence sink once a connection is attached.
type binding struct {
	sess  Session
	codec Codec

	conn   *Conn
	inbuf  []byte

	role       session.Role
	dialAddr   string // initiator: address to dial
	listenAddr string // acceptor: address this session is bound to

	reconnect ReconnectPolicy
	attempts  int
	nextRetry time.Time

	enabled bool

	tlsConfig *tls.Config // initiator only; acceptor TLS is applied at the listener
}

// ReconnectPolicy configures the CONNECTING-failure -> reconnect-timer edge
// of spec.md §4.1.1 for initiator sessions.
type ReconnectPolicy struct {
	Enabled     bool
	Fixed       time.Duration // used when Exponential is false
	Exponential bool
	MaxBackoff  time.Duration
	MaxAttempts int // 0 = unlimited
}

func (p ReconnectPolicy) delay(attempt int) time.Duration {
	if !p.Exponential {
		return p.Fixed
	}
	d := p.Fixed
	for i := 0; i < attempt && d < p.MaxBackoff; i++ {
		d *= 2
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// frameEvent carries one fully-framed inbound message from a reader
// goroutine to the loop goroutine.
type frameEvent struct {
	id  string
	raw []byte
}

// connErrEvent reports a reader or dialer goroutine observing a transport
// failure, handled on the loop goroutine as spec.md's IOError edge.
type connErrEvent struct {
	id  string
	err error
}

// acceptEvent reports a freshly accepted connection matched to a listening
// acceptor session, to be bound on the loop goroutine.
type acceptEvent struct {
	addr string
	conn net.Conn
}

// Engine owns every session bound to it and the single loop goroutine that
// mutates them, per spec.md §5's "one loop thread owns all per-session
// state" rule. An operator may run several engines in one process; each is
// an independent owner, matching "each process owns its sessions" at
// engine granularity.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*binding
	listeners map[string]net.Listener

	persistFor func(id string) session.PersistSink

	events  chan frameEvent
	errs    chan connErrEvent
	accepts chan acceptEvent
	cmds    chan func()

	latencyActive bool
	pollInterval  time.Duration

	stopCh chan struct{}
	doneCh chan struct{}

	now func() time.Time

	onReconnectAttempt func(id string, attempt int)
	onError            func(id string, err error)
}

// OnError installs a callback invoked whenever a session's transport fails
// or HandleInbound rejects a frame; admin/metrics wiring uses this to log
// and count errors without the session or engine importing a logger.
func (e *Engine) OnError(f func(id string, err error)) { e.onError = f }

// OnReconnectAttempt installs a callback fired each time the engine
// schedules a reconnect attempt for an initiator session.
func (e *Engine) OnReconnectAttempt(f func(id string, attempt int)) { e.onReconnectAttempt = f }

// New constructs an Engine; Run must be called to start its loop goroutine.
func New() *Engine {
	return &Engine{
		sessions:     make(map[string]*binding),
		listeners:    make(map[string]net.Listener),
		events:       make(chan frameEvent, 4096),
		errs:         make(chan connErrEvent, 256),
		accepts:      make(chan acceptEvent, 64),
		cmds:         make(chan func(), 256),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		pollInterval: 10 * time.Millisecond,
		now:          time.Now,
	}
}

// SetLatencyMode toggles the engine's ticker cadence between the 1ms
// active / 10ms idle intervals of spec.md §4.4 step 1. Per DESIGN.md's
// resolution of open question (a), this only changes the owning engine's
// own poll/ticker interval - it never rebuilds or migrates sessions
// between engines, which would break the single-writer-per-session
// invariant spec.md §5 depends on throughout.
func (e *Engine) SetLatencyMode(active bool) {
	e.Submit(func() {
		e.latencyActive = active
		if active {
			e.pollInterval = time.Millisecond
		} else {
			e.pollInterval = 10 * time.Millisecond
		}
	})
}

// PersistFunc installs the function used to resolve a persistence sink for
// a newly-bound session's connection, typically wrapping the engine's
// persist.Component per stream.
func (e *Engine) PersistFunc(f func(id string) session.PersistSink) {
	e.persistFor = f
}

// RegisterInitiator registers a session that dials out to addr once
// Connect is called or a reconnect is due.
func (e *Engine) RegisterInitiator(id string, sess Session, codec Codec, addr string, policy ReconnectPolicy) {
	e.mu.Lock()
	e.sessions[id] = &binding{sess: sess, codec: codec, role: session.RoleInitiator, dialAddr: addr, reconnect: policy}
	e.mu.Unlock()
}

// RegisterAcceptor registers a session that is bound to the next
// connection accepted on listenAddr (spec.md §4.4 step 5's "matched by
// remote address" rule, simplified to one session per listener).
func (e *Engine) RegisterAcceptor(id string, sess Session, codec Codec, listenAddr string) {
	e.mu.Lock()
	e.sessions[id] = &binding{sess: sess, codec: codec, role: session.RoleAcceptor, listenAddr: listenAddr}
	e.mu.Unlock()
}

// Listen opens a TCP listener and starts its accept loop; accepted
// connections are matched to the acceptor session registered for addr.
func (e *Engine) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return e.serve(addr, ln)
}

// ListenTLS is Listen with a *tls.Config applied: the handshake happens
// lazily on the connection's first Read/Write, same as a plain net.Conn, so
// it never touches the loop goroutine.
func (e *Engine) ListenTLS(addr string, cfg *tls.Config) error {
	ln, err := tls.Listen("tcp", addr, cfg)
	if err != nil {
		return err
	}
	return e.serve(addr, ln)
}

func (e *Engine) serve(addr string, ln net.Listener) error {
	e.mu.Lock()
	e.listeners[addr] = ln
	e.mu.Unlock()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			select {
			case e.accepts <- acceptEvent{addr: addr, conn: c}:
			case <-e.stopCh:
				_ = c.Close()
				return
			}
		}
	}()
	return nil
}

// SetTLSConfig attaches a TLS config to an already-registered initiator
// session; every subsequent dial for id uses tls.DialWithDialer instead of
// a plain net.DialTimeout. A no-op for sessions not yet registered.
func (e *Engine) SetTLSConfig(id string, cfg *tls.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.sessions[id]; ok {
		b.tlsConfig = cfg
	}
}

// Connect submits a command that starts the DISCONNECTED -> CONNECTING
// edge for an initiator session, per spec.md §4.1.1.
func (e *Engine) Connect(id string) {
	e.Submit(func() { e.beginDial(id) })
}

// Disconnect is the best-effort admin-triggered close of spec.md §5: it
// closes the socket and lets the session reconcile state on the next loop
// iteration.
func (e *Engine) Disconnect(id string, reason session.DisconnectReason) {
	e.Submit(func() {
		b, ok := e.sessions[id]
		if !ok {
			return
		}
		if b.conn != nil {
			_ = b.conn.Close()
		}
	})
}

// Submit enqueues fn to run on the loop goroutine; it is the single-
// producer command channel of spec.md §5 that admin/listener threads use
// to reach session state without touching it directly.
func (e *Engine) Submit(fn func()) {
	select {
	case e.cmds <- fn:
	case <-e.stopCh:
	}
}

// Run starts the loop goroutine and blocks until ctx is cancelled or Stop
// is called.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.doneCh)
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.closeAll()
			return
		case <-e.stopCh:
			e.closeAll()
			return
		case fn := <-e.cmds:
			fn()
		case ev := <-e.accepts:
			e.handleAccept(ev)
		case fe := <-e.events:
			e.handleFrame(fe)
		case ee := <-e.errs:
			e.handleConnErr(ee)
		case now := <-ticker.C:
			e.tick(now)
			ticker.Reset(e.pollInterval)
		}
	}
}

// Stop halts the loop goroutine and closes every owned connection and
// listener.
func (e *Engine) Stop() {
	close(e.stopCh)
	<-e.doneCh
	e.mu.Lock()
	for _, ln := range e.listeners {
		_ = ln.Close()
	}
	e.mu.Unlock()
}

func (e *Engine) closeAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range e.sessions {
		if b.conn != nil {
			_ = b.conn.Close()
		}
	}
}

func (e *Engine) beginDial(id string) {
	b, ok := e.sessions[id]
	if !ok || b.role != session.RoleInitiator || !b.enabled {
		return
	}
	b.sess.BeginConnect()
	tlsCfg := b.tlsConfig
	go func() {
		var (
			c   net.Conn
			err error
		)
		if tlsCfg != nil {
			c, err = tls.DialWithDialer(&net.Dialer{Timeout: 5 * time.Second}, "tcp", b.dialAddr, tlsCfg)
		} else {
			c, err = net.DialTimeout("tcp", b.dialAddr, 5*time.Second)
		}
		if err != nil {
			e.Submit(func() { e.dialFailed(id) })
			return
		}
		e.Submit(func() { e.dialSucceeded(id, c) })
	}()
}

func (e *Engine) dialFailed(id string) {
	b, ok := e.sessions[id]
	if !ok {
		return
	}
	if cf, ok := b.sess.(connectFailer); ok {
		cf.ConnectFailed()
	}
	e.scheduleReconnect(id, b)
}

func (e *Engine) dialSucceeded(id string, nc net.Conn) {
	b, ok := e.sessions[id]
	if !ok {
		_ = nc.Close()
		return
	}
	e.attach(id, b, nc)
	b.attempts = 0
	if err := b.sess.OnConnected(); err != nil {
		_ = nc.Close()
	}
}

func (e *Engine) scheduleReconnect(id string, b *binding) {
	if !b.reconnect.Enabled || !b.enabled {
		return
	}
	b.attempts++
	if b.reconnect.MaxAttempts > 0 && b.attempts > b.reconnect.MaxAttempts {
		return
	}
	if e.onReconnectAttempt != nil {
		e.onReconnectAttempt(id, b.attempts)
	}
	d := b.reconnect.delay(b.attempts)
	time.AfterFunc(d, func() { e.Submit(func() { e.beginDial(id) }) })
}

func (e *Engine) handleAccept(ev acceptEvent) {
	e.mu.Lock()
	var found *binding
	var foundID string
	for id, b := range e.sessions {
		if b.role == session.RoleAcceptor && b.listenAddr == ev.addr && b.conn == nil {
			found, foundID = b, id
			break
		}
	}
	e.mu.Unlock()

	if found == nil {
		_ = ev.conn.Close()
		return
	}
	e.attach(foundID, found, ev.conn)
	found.sess.BeginConnect()
	if err := found.sess.OnConnected(); err != nil {
		_ = ev.conn.Close()
	}
}

func (e *Engine) attach(id string, b *binding, nc net.Conn) {
	c := newConn(nc)
	b.conn = c

	var sink session.PersistSink
	if e.persistFor != nil {
		sink = e.persistFor(id)
	}
	b.sess.Bind(c, sink)

	if rs, ok := sink.(session.ResendSource); ok {
		if setter, ok := b.sess.(interface{ SetResendSource(session.ResendSource) }); ok {
			setter.SetResendSource(rs)
		}
	}

	go e.readLoop(id, b, c)
}

// readLoop is the per-connection reader goroutine of spec.md §4.4: it
// reads into the connection's inbound buffer and repeatedly asks the
// session's codec for the next frame's length, posting each complete
// frame to the engine's single event channel in wire order. Ordering
// across goroutines is irrelevant here because each connection has
// exactly one reader goroutine - the only interleaving the loop goroutine
// ever observes for a given session is this goroutine's own send order.
func (e *Engine) readLoop(id string, b *binding, c *Conn) {
	buf := make([]byte, 0, 64*1024)
	tmp := make([]byte, 32*1024)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				flen, ferr := b.codec.ExpectedLength(buf)
				if ferr != nil {
					if b.codec.IsIncomplete(ferr) {
						break
					}
					select {
					case e.errs <- connErrEvent{id: id, err: ferr}:
					case <-e.stopCh:
					}
					return
				}
				frame := append([]byte(nil), buf[:flen]...)
				buf = buf[flen:]
				select {
				case e.events <- frameEvent{id: id, raw: frame}:
				case <-e.stopCh:
					return
				}
			}
		}
		if err != nil {
			select {
			case e.errs <- connErrEvent{id: id, err: err}:
			case <-e.stopCh:
			}
			return
		}
	}
}

func (e *Engine) handleFrame(fe frameEvent) {
	b, ok := e.sessions[fe.id]
	if !ok {
		return
	}
	if err := b.sess.HandleInbound(fe.raw); err != nil && e.onError != nil {
		e.onError(fe.id, err)
	}
}

func (e *Engine) handleConnErr(ee connErrEvent) {
	b, ok := e.sessions[ee.id]
	if !ok {
		return
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
	if e.onError != nil {
		e.onError(ee.id, ee.err)
	}
	e.scheduleReconnect(ee.id, b)
}

// tick runs the scheduled tasks of spec.md §4.4 step 4: heartbeat and
// test-request discipline for every registered session, plus draining each
// session's outbound ring buffer to its socket.
func (e *Engine) tick(now time.Time) {
	for _, b := range e.sessions {
		_ = b.sess.CheckHeartbeats(now)
		e.drainOutbound(b)
	}
}

// drainOutbound writes every committed outbound slot to the socket,
// per spec.md §4.4 step 3. A slot whose write fails or writes fewer bytes
// than it holds is not consumed by ring.Buffer.Drain; it stays at the head
// of the ring and the whole slot is written again on a later tick.
func (e *Engine) drainOutbound(b *binding) {
	if b.conn == nil {
		return
	}
	for {
		n, err := b.sess.Outbound().Drain(func(data []byte) (int, error) {
			return b.conn.Write(data)
		})
		if err != nil || n == 0 {
			return
		}
	}
}

// Enable flips a session's admin enabled flag; when true and the session
// is an initiator, a connect attempt is scheduled. When false, any open
// connection is closed and no reconnect is scheduled. The session itself
// is not notified: its State is left unchanged and no ReasonAdminDisabled
// event reaches its listeners.
func (e *Engine) Enable(id string, on bool) {
	e.Submit(func() {
		b, ok := e.sessions[id]
		if !ok {
			return
		}
		b.enabled = on
		if on {
			if b.role == session.RoleInitiator {
				e.beginDial(id)
			}
			return
		}
		if b.conn != nil {
			_ = b.conn.Close()
			b.conn = nil
		}
	})
}
