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

// Package pool implements the message-flyweight pools of spec.md §4.6.
//
// The source system keys pools per-OS-thread; Go has no equivalent concept; the
// idiomatic translation is a keyed registry of sync.Pool instances, one per
// message/template type, with Get returning a freshly-reset flyweight and Release
// resetting it before returning it to the pool. Concurrent use of the same
// type from different goroutines is safe (that is the whole point of
// sync.Pool); concurrent use of the *same instance* across goroutines remains
// undefined, exactly as spec.md prescribes.
//
// Diagnostics lean on two teacher collaborators: errors/pool.Pool collects
// any Reset panics recovered during Release without interrupting the caller,
// and cache/item.CacheItem tags every key's last-used moment so a long-idle
// pool (a session type that stopped trading) can be noticed and dropped by
// DropIdle instead of growing the registry forever.
package pool

import (
	"sync"
	"time"

	cchitm "github.com/nabbar/omnibridge/cache/item"
	errpool "github.com/nabbar/omnibridge/errors/pool"
)

// Resettable is implemented by any flyweight that can be returned to a clean
// state for reuse.
type Resettable interface {
	Reset()
}

// Registry is a thread-safe collection of typed sync.Pool instances, keyed
// by a caller-chosen template identifier (a FIX MsgType, an SBE templateId,
// or any comparable key).
type Registry[K comparable, T Resettable] struct {
	mu       sync.RWMutex
	pools    map[K]*sync.Pool
	lastUsed map[K]cchitm.CacheItem[time.Time]
	new      func(key K) T

	errs errpool.Pool

	// idleTTL is how long a key may go unused before DropIdle reclaims its
	// pool. Zero disables idle tracking.
	idleTTL time.Duration
}

// NewRegistry builds a Registry whose pools lazily construct new instances
// with newFn when empty.
func NewRegistry[K comparable, T Resettable](newFn func(key K) T) *Registry[K, T] {
	return &Registry[K, T]{
		pools:    make(map[K]*sync.Pool),
		lastUsed: make(map[K]cchitm.CacheItem[time.Time]),
		new:      newFn,
		errs:     errpool.New(),
	}
}

// WithIdleTTL enables idle-key tracking: any key not touched by Get/Release
// within ttl becomes eligible for DropIdle. Returns the Registry for
// chaining at construction time.
func (r *Registry[K, T]) WithIdleTTL(ttl time.Duration) *Registry[K, T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idleTTL = ttl
	return r
}

// Errors returns every panic recovered from a flyweight's Reset during
// Release, in no particular order. The pool keeps serving despite a misbehaving
// Reset; callers decide whether to surface these.
func (r *Registry[K, T]) Errors() []error {
	return r.errs.Slice()
}

func (r *Registry[K, T]) touch(key K) {
	if r.idleTTL <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.lastUsed[key]; ok {
		it.Store(time.Now())
		return
	}
	r.lastUsed[key] = cchitm.New(r.idleTTL, time.Now())
}

// DropIdle evicts every key whose idle tracker has expired, discarding its
// sync.Pool so the next Get rebuilds it fresh. A no-op when WithIdleTTL was
// never called.
func (r *Registry[K, T]) DropIdle() {
	if r.idleTTL <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, it := range r.lastUsed {
		if !it.Check() {
			delete(r.lastUsed, key)
			delete(r.pools, key)
		}
	}
}

func (r *Registry[K, T]) poolFor(key K) *sync.Pool {
	r.mu.RLock()
	p, ok := r.pools[key]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.pools[key]; ok {
		return p
	}
	p = &sync.Pool{
		New: func() any { return r.new(key) },
	}
	r.pools[key] = p
	return p
}

// Get returns a reset, ready-to-use flyweight for key.
func (r *Registry[K, T]) Get(key K) T {
	r.touch(key)
	p := r.poolFor(key)
	v := p.Get().(T)
	v.Reset()
	return v
}

// Release resets msg and returns it to key's pool. A panic from a
// misbehaving Reset is recovered and recorded rather than propagated, so one
// bad flyweight cannot take down the caller's hot path.
func (r *Registry[K, T]) Release(key K, msg T) {
	defer func() {
		if rec := recover(); rec != nil {
			r.errs.Add(&resetPanic{key: key, rec: rec})
		}
	}()
	msg.Reset()
	r.touch(key)
	r.poolFor(key).Put(msg)
}

type resetPanic struct {
	key any
	rec any
}

func (e *resetPanic) Error() string {
	return "pool: recovered panic resetting flyweight for key"
}
