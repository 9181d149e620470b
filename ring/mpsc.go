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

package ring

import "sync"

// MPSC wraps a Buffer so that multiple application goroutines can claim
// concurrently while a single loop goroutine drains. The claim/commit path
// takes a short mutex (Buffer already serializes its own bookkeeping); this
// type only adds the multi-producer guarantee that TryClaim itself never
// races two producers onto the same bytes, which the embedded Buffer's
// internal lock already provides - MPSC exists as a distinct type so the
// call site documents its concurrency contract rather than depending on an
// implementation detail of Buffer.
type MPSC struct {
	mu sync.Mutex
	b  *Buffer
}

// NewMPSC allocates an MPSC ring buffer of the given byte capacity.
func NewMPSC(capacity int) *MPSC {
	return &MPSC{b: New(capacity)}
}

func (m *MPSC) TryClaim(size int) (Slot, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.b.TryClaim(size)
}

func (m *MPSC) Commit(id Slot) error {
	return m.b.Commit(id)
}

func (m *MPSC) Abort(id Slot) error {
	return m.b.Abort(id)
}

func (m *MPSC) Drain(fn func(data []byte) (int, error)) (int, error) {
	return m.b.Drain(fn)
}

func (m *MPSC) Len() int {
	return m.b.Len()
}

func (m *MPSC) Cap() int {
	return m.b.Cap()
}
