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

package main

import (
	"fmt"
	"time"

	"github.com/nabbar/omnibridge/netloop"
	"github.com/nabbar/omnibridge/registry"
	"github.com/nabbar/omnibridge/session"
)

// adminBase is the subset of session.Base the controller and status poller
// need; every protocol machine embeds *session.Base and satisfies it.
type adminBase interface {
	ID() string
	State() session.State
	IncomingSeqNum() int64
	OutgoingSeqNum() int64
	SetIncomingSeqNum(n int64) error
	SetOutgoingSeqNum(n int64) error
}

// controller implements admin.Controller by submitting every mutation to
// the owning engine's loop goroutine, exactly per spec.md §5's rule that
// the admin boundary never touches session state directly.
type controller struct {
	eng      *netloop.Engine
	reg      *registry.Registry
	sessions map[string]adminBase
}

func newController(eng *netloop.Engine, reg *registry.Registry) *controller {
	return &controller{eng: eng, reg: reg, sessions: make(map[string]adminBase)}
}

func (c *controller) register(b adminBase) {
	c.sessions[b.ID()] = b
}

func (c *controller) Enable(id string, enabled bool) error {
	if _, ok := c.sessions[id]; !ok {
		return fmt.Errorf("omnibridge: unknown session %q", id)
	}
	c.eng.Enable(id, enabled)
	c.reg.SetEnabled(id, enabled, time.Now())
	return nil
}

func (c *controller) SetSequence(id string, incoming, outgoing *int64) error {
	b, ok := c.sessions[id]
	if !ok {
		return fmt.Errorf("omnibridge: unknown session %q", id)
	}

	errCh := make(chan error, 1)
	c.eng.Submit(func() {
		var err error
		if incoming != nil {
			if e := b.SetIncomingSeqNum(*incoming); e != nil {
				err = e
			}
		}
		if outgoing != nil {
			if e := b.SetOutgoingSeqNum(*outgoing); e != nil && err == nil {
				err = e
			}
		}
		errCh <- err
	})

	if err := <-errCh; err != nil {
		return err
	}

	now := time.Now()
	if incoming != nil {
		c.reg.SetIncomingSeqNum(id, *incoming, now)
	}
	if outgoing != nil {
		c.reg.SetOutgoingSeqNum(id, *outgoing, now)
	}
	return nil
}

// statusPoller periodically snapshots every session's live state and
// sequence numbers into the registry from the engine's loop goroutine, so
// the admin surface's reads never race the session's only writer thread.
type statusPoller struct {
	eng      *netloop.Engine
	reg      *registry.Registry
	sessions []adminBase
	interval time.Duration
	stopCh   chan struct{}
}

func newStatusPoller(eng *netloop.Engine, reg *registry.Registry, sessions []adminBase, interval time.Duration) *statusPoller {
	return &statusPoller{eng: eng, reg: reg, sessions: sessions, interval: interval, stopCh: make(chan struct{})}
}

func (p *statusPoller) run() {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-t.C:
			p.eng.Submit(func() {
				now := time.Now()
				for _, b := range p.sessions {
					p.reg.Update(b.ID(), b.State(), now)
					p.reg.SetIncomingSeqNum(b.ID(), b.IncomingSeqNum(), now)
					p.reg.SetOutgoingSeqNum(b.ID(), b.OutgoingSeqNum(), now)
				}
			})
		}
	}
}

func (p *statusPoller) stop() { close(p.stopCh) }
