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
	"context"
	"net/http"
	"time"

	"github.com/nabbar/omnibridge/admin"
	"github.com/nabbar/omnibridge/logging"
	"github.com/nabbar/omnibridge/netloop"
)

// engineComponent adapts netloop.Engine to lifecycle.Component: Init is a
// no-op (the engine is already constructed and its sessions already
// registered by the time the root runs), StartActive launches the loop
// goroutine and begins dialing every initiator, Stop tears the loop down.
type engineComponent struct {
	name       string
	eng        *netloop.Engine
	initiators []string
	cancel     context.CancelFunc
}

func newEngineComponent(name string, eng *netloop.Engine, initiators []string) *engineComponent {
	return &engineComponent{name: name, eng: eng, initiators: initiators}
}

func (c *engineComponent) Name() string { return c.name }
func (c *engineComponent) Init() error  { return nil }

func (c *engineComponent) StartActive() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.eng.Run(ctx)
	for _, id := range c.initiators {
		c.eng.Connect(id)
	}
	return nil
}

func (c *engineComponent) StartStandby() error {
	// A standby engine still runs its loop (heartbeats/reconnects keep
	// ticking) but never dials out, matching spec.md §4.7's standby
	// replica semantics without a second physical connection.
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.eng.Run(ctx)
	return nil
}

func (c *engineComponent) BecomeActive() error {
	for _, id := range c.initiators {
		c.eng.Connect(id)
	}
	return nil
}

func (c *engineComponent) BecomeStandby() error {
	for _, id := range c.initiators {
		c.eng.Disconnect(id, "standby_demotion")
	}
	return nil
}

func (c *engineComponent) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.eng.Stop()
	return nil
}

// adminComponent wraps the admin HTTP/WebSocket surface's *http.Server as a
// lifecycle.Component, grounded on config/components/http's listen-on-Start,
// shutdown-on-Stop wrapping of net/http.Server.
type adminComponent struct {
	addr   string
	svc    *admin.Service
	srv    *http.Server
	log    *logging.Logger
}

func newAdminComponent(addr string, svc *admin.Service, log *logging.Logger) *adminComponent {
	return &adminComponent{addr: addr, svc: svc, log: log}
}

func (c *adminComponent) Name() string { return "admin" }

func (c *adminComponent) Init() error {
	router := c.svc.Router()
	router.GET("/ws/sessions", c.svc.HandleWS)
	c.srv = &http.Server{Addr: c.addr, Handler: router}
	return nil
}

func (c *adminComponent) startServing() error {
	go func() {
		if err := c.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.log.Error("admin server failed", logging.Fields{"error": err.Error()})
		}
	}()
	return nil
}

func (c *adminComponent) StartActive() error  { return c.startServing() }
func (c *adminComponent) StartStandby() error { return c.startServing() }
func (c *adminComponent) BecomeActive() error { return nil }
func (c *adminComponent) BecomeStandby() error { return nil }

func (c *adminComponent) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.srv.Shutdown(ctx)
}
