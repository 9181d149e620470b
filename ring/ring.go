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

// Package ring provides a claim/commit/abort byte-slot queue for outbound
// session frames. It backs the write side of a session without allocating
// on the hot path: a producer claims a contiguous region, writes directly
// into it, then commits (making it visible to the consumer, in claim order)
// or aborts (releasing it without ever becoming visible).
//
// The single-producer variant is for the common case: the owning session's
// loop goroutine is the only writer. The MPSC variant trades a short
// mutex-guarded critical section for safe concurrent claims from
// application goroutines; it is not lock-free.
package ring

import (
	"errors"
	"sync"
)

// ErrFull is returned by TryClaim when the buffer has no room for the
// requested size. Callers must back off, drop, or log per spec.md's
// Backpressure taxonomy entry.
var ErrFull = errors.New("ring: buffer full")

// ErrTooLarge is returned when a single claim is larger than the buffer's
// total capacity; no amount of draining would ever make room for it.
var ErrTooLarge = errors.New("ring: claim larger than buffer capacity")

// ErrUnknownSlot is returned by Commit/Abort for a slot id that was never
// claimed, or was already committed/aborted.
var ErrUnknownSlot = errors.New("ring: unknown or already-resolved slot")

// Slot identifies a claimed region. It is opaque to callers beyond being
// passed back to Commit or Abort.
type Slot uint64

type slotState struct {
	offset    int
	length    int
	committed bool
	aborted   bool
}

// Buffer is a bounded, contiguous-memory claim/commit queue. TryClaim,
// Commit, Abort, Drain and Len all take the buffer's mutex; MPSC wraps it
// with a second lock around TryClaim for multi-producer call sites.
type Buffer struct {
	data []byte

	mu      sync.Mutex
	writePos int
	readPos  int

	nextID Slot
	slots  map[Slot]*slotState
	order  []Slot
}

// New allocates a ring buffer of the given byte capacity.
func New(capacity int) *Buffer {
	return &Buffer{
		data:  make([]byte, capacity),
		slots: make(map[Slot]*slotState),
	}
}

func (b *Buffer) usedLocked() int {
	used := 0
	for _, id := range b.order {
		s := b.slots[id]
		if !s.aborted {
			used += s.length
		}
	}
	return used
}

// TryClaim reserves size contiguous bytes and returns a slot id and the
// writable view into the buffer. It returns ErrFull if there is currently
// no room, or ErrTooLarge if size exceeds total capacity.
func (b *Buffer) TryClaim(size int) (Slot, []byte, error) {
	if size > len(b.data) {
		return 0, nil, ErrTooLarge
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.usedLocked()+size > len(b.data) {
		return 0, nil, ErrFull
	}

	offset := b.writePos % len(b.data)
	// keep claims contiguous (no wrap-splitting of a single slot)
	if offset+size > len(b.data) {
		pad := len(b.data) - offset
		if b.usedLocked()+size+pad > len(b.data) {
			return 0, nil, ErrFull
		}
		b.writePos += pad
		offset = 0
	}

	id := b.nextID
	b.nextID++

	b.slots[id] = &slotState{offset: offset, length: size}
	b.order = append(b.order, id)
	b.writePos += size

	return id, b.data[offset : offset+size], nil
}

// Commit marks a claimed slot ready; a committed slot is never rewritten
// (spec.md §3). The consumer observes slots in claim order, not commit
// order: a committed slot waits behind any earlier slot still claimed.
func (b *Buffer) Commit(id Slot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[id]
	if !ok || s.committed || s.aborted {
		return ErrUnknownSlot
	}
	s.committed = true
	return nil
}

// Abort discards a claimed slot without ever making it visible to the
// consumer; its space is reclaimed on the next Drain.
func (b *Buffer) Abort(id Slot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.slots[id]
	if !ok || s.committed || s.aborted {
		return ErrUnknownSlot
	}
	s.aborted = true
	return nil
}

// Drain invokes fn with the bytes of the slot at the read position, first
// discarding any aborted slots ahead of it, and returns the number of slots
// consumed: 1 when fn wrote the whole slot, 0 when the buffer is empty, the
// head slot is still claimed, or fn wrote fewer bytes than the slot holds
// (the slot stays queued). A slot whose fn invocation returns an error is not consumed;
// Drain stops and returns that error so the caller can retry the same
// bytes (e.g. on a partial socket write).
func (b *Buffer) Drain(fn func(data []byte) (int, error)) (int, error) {
	for {
		b.mu.Lock()
		if len(b.order) == 0 {
			b.mu.Unlock()
			return 0, nil
		}
		id := b.order[0]
		s := b.slots[id]
		if s.aborted {
			b.order = b.order[1:]
			delete(b.slots, id)
			b.readPos = s.offset + s.length
			b.mu.Unlock()
			continue
		}
		if !s.committed {
			b.mu.Unlock()
			return 0, nil
		}
		data := b.data[s.offset : s.offset+s.length]
		b.mu.Unlock()

		n, err := fn(data)
		if err != nil {
			return 0, err
		}
		if n < len(data) {
			// partial write: leave the slot in place, caller retries.
			return 0, nil
		}

		b.mu.Lock()
		b.order = b.order[1:]
		delete(b.slots, id)
		b.readPos = s.offset + s.length
		b.mu.Unlock()
		return 1, nil
	}
}

// Len returns the number of bytes currently occupied by unconsumed slots
// (committed or still claimed).
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usedLocked()
}

// Cap returns the buffer's total byte capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}
