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

// Package registry is the managed-session service of spec.md §4.8: a
// sync.Map-backed registry of session-id to admin-facing Descriptor,
// dispatching state-change/registered/unregistered/enabled-change listeners
// synchronously on the goroutine that makes the triggering call.
package registry

import (
	"time"

	libatm "github.com/nabbar/omnibridge/atomic"
	"github.com/nabbar/omnibridge/session"
)

// Descriptor is the admin projection of a session: everything the HTTP/WS
// boundary of spec.md §6 needs to render without reaching into session
// internals.
type Descriptor struct {
	ID             string
	Protocol       session.Protocol
	Role           session.Role
	State          session.State
	Enabled        bool
	IncomingSeqNum int64
	OutgoingSeqNum int64
	UpdatedAt      time.Time
}

// StateChangeFunc, RegisteredFunc, UnregisteredFunc and EnabledChangeFunc are
// the listener shapes spec.md §4.8 names.
type StateChangeFunc func(d Descriptor, old, new session.State)
type RegisteredFunc func(d Descriptor)
type UnregisteredFunc func(id string)
type EnabledChangeFunc func(d Descriptor, enabled bool)

// Registry tracks every session known to one or more engines and fans out
// registration/state-change events to admin listeners.
type Registry struct {
	sessions libatm.Map[string]

	onStateChange   []StateChangeFunc
	onRegistered    []RegisteredFunc
	onUnregistered  []UnregisteredFunc
	onEnabledChange []EnabledChangeFunc
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{sessions: libatm.NewMapAny[string]()}
}

// OnStateChange registers a listener fired whenever Update observes a state
// transition.
func (r *Registry) OnStateChange(f StateChangeFunc) { r.onStateChange = append(r.onStateChange, f) }

// OnRegistered registers a listener fired from Register.
func (r *Registry) OnRegistered(f RegisteredFunc) { r.onRegistered = append(r.onRegistered, f) }

// OnUnregistered registers a listener fired from Unregister.
func (r *Registry) OnUnregistered(f UnregisteredFunc) { r.onUnregistered = append(r.onUnregistered, f) }

// OnEnabledChange registers a listener fired from SetEnabled, exactly once
// per actual transition.
func (r *Registry) OnEnabledChange(f EnabledChangeFunc) {
	r.onEnabledChange = append(r.onEnabledChange, f)
}

// Register adds a session's initial descriptor and fires the registered
// listeners. Sessions start enabled.
func (r *Registry) Register(id string, protocol session.Protocol, role session.Role, state session.State, now time.Time) {
	d := Descriptor{ID: id, Protocol: protocol, Role: role, State: state, Enabled: true, UpdatedAt: now}
	r.sessions.Store(id, d)
	for _, f := range r.onRegistered {
		f(d)
	}
}

// Update records a session's new state, firing state-change listeners only
// when the state actually differs from what was last recorded.
func (r *Registry) Update(id string, newState session.State, now time.Time) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return
	}
	d, ok := v.(Descriptor)
	if !ok {
		return
	}
	old := d.State
	if old == newState {
		return
	}
	d.State = newState
	d.UpdatedAt = now
	r.sessions.Store(id, d)
	for _, f := range r.onStateChange {
		f(d, old, newState)
	}
}

// SetEnabled records the admin enabled flag for id. Idempotent: a call that
// does not change the flag fires no listener.
func (r *Registry) SetEnabled(id string, enabled bool, now time.Time) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return
	}
	d, ok := v.(Descriptor)
	if !ok || d.Enabled == enabled {
		return
	}
	d.Enabled = enabled
	d.UpdatedAt = now
	r.sessions.Store(id, d)
	for _, f := range r.onEnabledChange {
		f(d, enabled)
	}
}

// SetIncomingSeqNum overwrites the observed inbound sequence number, as
// allowed by the admin boundary while the session is disconnected.
func (r *Registry) SetIncomingSeqNum(id string, n int64, now time.Time) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return
	}
	d, ok := v.(Descriptor)
	if !ok {
		return
	}
	d.IncomingSeqNum = n
	d.UpdatedAt = now
	r.sessions.Store(id, d)
}

// SetOutgoingSeqNum overwrites the observed outbound sequence number.
func (r *Registry) SetOutgoingSeqNum(id string, n int64, now time.Time) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return
	}
	d, ok := v.(Descriptor)
	if !ok {
		return
	}
	d.OutgoingSeqNum = n
	d.UpdatedAt = now
	r.sessions.Store(id, d)
}

// Unregister removes a session's descriptor and fires the unregistered
// listeners.
func (r *Registry) Unregister(id string) {
	r.sessions.Delete(id)
	for _, f := range r.onUnregistered {
		f(id)
	}
}

// Get returns the descriptor for id, if registered.
func (r *Registry) Get(id string) (Descriptor, bool) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return Descriptor{}, false
	}
	d, ok := v.(Descriptor)
	return d, ok
}

// List returns every registered descriptor, in no particular order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0)
	r.sessions.Range(func(_ string, v any) bool {
		if d, ok := v.(Descriptor); ok {
			out = append(out, d)
		}
		return true
	})
	return out
}
