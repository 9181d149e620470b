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

// Package admin is the HTTP/WebSocket boundary of spec.md §6: a thin
// collaborator over registry.Registry that never touches session state
// directly, only ever enqueueing commands through the Controller the
// caller wires to the owning netloop.Engine instances.
package admin

import (
	"context"
	"time"

	"github.com/nabbar/omnibridge/cache"
	"github.com/nabbar/omnibridge/registry"
	"github.com/nabbar/omnibridge/session"
)

// statsCacheTTL bounds how stale /sessions/stats may be under concurrent
// polling: recomputed at most 4 times a second regardless of request rate.
const statsCacheTTL = 250 * time.Millisecond

// Controller is the admin boundary's only path into session state. It is
// implemented by the process wiring code (cmd/omnibridge), never by this
// package, keeping the admin thread off the loop goroutine per spec.md §5.
type Controller interface {
	// Enable submits an enable/disable toggle for id.
	Enable(id string, enabled bool) error

	// SetSequence submits a sequence-number override for id. A nil pointer
	// leaves that sequence number untouched.
	SetSequence(id string, incoming, outgoing *int64) error
}

// Service is the admin-facing façade: it reads from a Registry and mutates
// through a Controller, and fans registry events out to WebSocket
// subscribers and Prometheus metrics.
type Service struct {
	reg     *registry.Registry
	ctrl    Controller
	hub     *Hub
	metrics *Metrics

	statsCache cache.Cache[string, any]
}

// NewService wires reg's listeners into the returned Service's hub and
// metrics, so every Register/Update/Unregister/SetEnabled call made against
// reg after NewService returns is reflected without the caller doing
// anything further; descriptors registered earlier are not replayed.
func NewService(reg *registry.Registry, ctrl Controller) *Service {
	s := &Service{
		reg:        reg,
		ctrl:       ctrl,
		hub:        newHub(),
		metrics:    newMetrics(),
		statsCache: cache.New[string, any](context.Background(), statsCacheTTL),
	}

	reg.OnRegistered(func(d registry.Descriptor) {
		s.metrics.observeRegister(d)
		s.hub.broadcastEvent(eventSessionRegistered, descriptorToPayload(d))
	})
	reg.OnUnregistered(func(id string) {
		s.metrics.observeUnregister(id)
		s.hub.broadcastEvent(eventSessionUnregistered, map[string]any{"sessionId": id})
	})
	reg.OnStateChange(func(d registry.Descriptor, old, new session.State) {
		s.metrics.observeStateChange(d)
		s.hub.broadcastEvent(eventStateChange, descriptorToPayload(d))
	})
	reg.OnEnabledChange(func(d registry.Descriptor, enabled bool) {
		s.hub.broadcastEvent(eventStateChange, descriptorToPayload(d))
	})

	go s.hub.run()

	return s
}

// Hub exposes the WebSocket hub so cmd/omnibridge can shut it down cleanly.
func (s *Service) Hub() *Hub { return s.hub }

// Metrics exposes the Prometheus collectors for registration against a
// process-wide prometheus.Registerer.
func (s *Service) Metrics() *Metrics { return s.metrics }
