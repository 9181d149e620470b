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

// Package lifecycle implements the component lifecycle root of spec.md
// §4.7: an ordered list of Components, each moving through
// UNINITIALIZED -> INITIALIZED -> (ACTIVE|STANDBY) -> STOPPED, with
// ACTIVE<->STANDBY transitions allowed. Grounded on the teacher's
// config.Component Init/RegisterFuncStart hook ordering and
// runner/startStop's dedicated start/stop goroutine-supervisor shape.
package lifecycle

import (
	"fmt"
)

// State is a component or root's position in the lifecycle state domain.
type State int

const (
	Uninitialized State = iota
	Initialized
	Active
	Standby
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Initialized:
		return "INITIALIZED"
	case Active:
		return "ACTIVE"
	case Standby:
		return "STANDBY"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Component is implemented by every unit the root supervises: netloop
// engines, the persistence log, the admin server, and so on.
type Component interface {
	Name() string
	Init() error
	StartActive() error
	StartStandby() error
	BecomeActive() error
	BecomeStandby() error
	Stop() error
}

// Root owns an ordered list of Components. Initialization and start happen
// in registration order; shutdown and standby-demotion happen in reverse,
// per spec.md §4.7.
type Root struct {
	state      State
	components []Component
	started    []Component
}

// New constructs an empty Root in the Uninitialized state.
func New() *Root {
	return &Root{state: Uninitialized}
}

// Register appends a component to the root's ordered list; only valid
// before Initialize is called.
func (r *Root) Register(c Component) {
	r.components = append(r.components, c)
}

// State returns the root's current lifecycle state.
func (r *Root) State() State { return r.state }

// Initialize runs Init on every component in registration order. If any
// component fails, no rollback is needed yet (nothing has started) and the
// error is returned with the failing component named.
func (r *Root) Initialize() error {
	for _, c := range r.components {
		if err := c.Init(); err != nil {
			return fmt.Errorf("lifecycle: component %q failed to initialize: %w", c.Name(), err)
		}
	}
	r.state = Initialized
	return nil
}

// StartActive starts every component as Active, in registration order. If
// any component fails to start, every component already started is
// stopped in reverse order and the root transitions to Stopped.
func (r *Root) StartActive() error {
	return r.start(true)
}

// StartStandby starts every component as Standby, in registration order,
// with the same rollback-on-failure behavior as StartActive.
func (r *Root) StartStandby() error {
	return r.start(false)
}

func (r *Root) start(active bool) error {
	if r.state != Initialized {
		return fmt.Errorf("lifecycle: root must be INITIALIZED before starting, was %s", r.state)
	}
	for _, c := range r.components {
		var err error
		if active {
			err = c.StartActive()
		} else {
			err = c.StartStandby()
		}
		if err != nil {
			r.rollback()
			return fmt.Errorf("lifecycle: component %q failed to start: %w", c.Name(), err)
		}
		r.started = append(r.started, c)
	}
	if active {
		r.state = Active
	} else {
		r.state = Standby
	}
	return nil
}

func (r *Root) rollback() {
	for i := len(r.started) - 1; i >= 0; i-- {
		_ = r.started[i].Stop()
	}
	r.started = nil
	r.state = Stopped
}

// BecomeActive promotes every started component from Standby to Active, in
// registration order.
func (r *Root) BecomeActive() error {
	if r.state != Standby {
		return fmt.Errorf("lifecycle: root must be STANDBY to become active, was %s", r.state)
	}
	for _, c := range r.started {
		if err := c.BecomeActive(); err != nil {
			return fmt.Errorf("lifecycle: component %q failed to become active: %w", c.Name(), err)
		}
	}
	r.state = Active
	return nil
}

// BecomeStandby demotes every started component from Active to Standby, in
// reverse registration order.
func (r *Root) BecomeStandby() error {
	if r.state != Active {
		return fmt.Errorf("lifecycle: root must be ACTIVE to become standby, was %s", r.state)
	}
	for i := len(r.started) - 1; i >= 0; i-- {
		if err := r.started[i].BecomeStandby(); err != nil {
			return fmt.Errorf("lifecycle: component %q failed to become standby: %w", r.started[i].Name(), err)
		}
	}
	r.state = Standby
	return nil
}

// Stop shuts down every started component in reverse registration order.
// Duplicate calls are a no-op.
func (r *Root) Stop() error {
	if r.state == Stopped {
		return nil
	}
	var firstErr error
	for i := len(r.started) - 1; i >= 0; i-- {
		if err := r.started[i].Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.started = nil
	r.state = Stopped
	return firstErr
}
