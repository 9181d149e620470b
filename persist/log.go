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

// Package persist implements the append-only, per-stream frame log of
// spec.md §4.5: every inbound/outbound frame is persisted before it
// becomes observable to session listeners. Framing follows a fixed header
// (timestamp, direction, seqnum, stream-id length, txn-id, metadata
// length, body length) so a tailing reader can detect a torn write at the
// log's current end. Grounded on ioutils/delim's buffered-reader-with-
// trailer style for the replay/tail reader (adapted here to length-
// prefixed framing rather than a single delimiter byte, since frame bodies
// may themselves contain any byte value) and on
// config/components/nutsdb's pattern of wrapping a storage engine as a
// lifecycle Component.
package persist

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"sync"
)

// ErrTornWrite is returned by the reader when a record's declared length
// would run past the bytes actually available, indicating the writer died
// mid-record.
var ErrTornWrite = errors.New("persist: torn write detected at log tail")

// ErrClosed is returned by Append once the log has been closed.
var ErrClosed = errors.New("persist: log is closed")

// Frame is one persisted record.
type Frame struct {
	TimestampMs int64
	Direction   byte
	Seq         int64
	StreamID    string
	TxnID       string
	Metadata    map[string]string
	Body        []byte
}

// Log is an append-only frame log backed by a single io.WriteCloser,
// exposed as a lifecycle.Component by the engine that owns it.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool

	nowFn func() int64

	reopen func() (io.ReadCloser, error)
}

// NewLog wraps w (typically an *os.File opened in append mode) as a Frame
// log. closer may be nil if w does not need explicit closing.
func NewLog(w io.Writer, closer io.Closer, nowMs func() int64) *Log {
	return &Log{w: w, closer: closer, nowFn: nowMs}
}

// SetReopen installs the function Range uses to open an independent
// read-only handle onto the same backing storage, so a range query never
// disturbs the append file's position. Component.Init wires this to a
// fresh os.Open of the log file.
func (l *Log) SetReopen(reopen func() (io.ReadCloser, error)) {
	l.reopen = reopen
}

// ErrNoReopen is returned by Range when the log was never given a reopen
// function via SetReopen.
var ErrNoReopen = errors.New("persist: log has no reopen source for range reads")

// Range returns the bodies of every frame matching streamID and direction
// with Seq in [from, to], read back from a fresh handle opened via
// SetReopen. It satisfies session.ResendSource so a FIX session can
// retransmit the outbound frames a ResendRequest names, per spec.md
// §4.1.1's gap-recovery scenario.
func (l *Log) Range(streamID string, direction byte, from, to int64) ([][]byte, error) {
	l.mu.Lock()
	reopen := l.reopen
	l.mu.Unlock()
	if reopen == nil {
		return nil, ErrNoReopen
	}

	rc, err := reopen()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rd := NewReader(rc)
	var out [][]byte
	for {
		f, err := rd.Next()
		if err == io.EOF || err == ErrTornWrite {
			break
		}
		if err != nil {
			return nil, err
		}
		if f.StreamID == streamID && f.Direction == direction && f.Seq >= from && f.Seq <= to {
			out = append(out, f.Body)
		}
	}
	return out, nil
}

// Append persists one frame before it may be dispatched to listeners, per
// spec.md §4.5.
func (l *Log) Append(direction byte, streamID string, seq int64, body []byte) error {
	return l.AppendFrame(Frame{
		TimestampMs: l.nowFn(),
		Direction:   direction,
		Seq:         seq,
		StreamID:    streamID,
		Body:        body,
	})
}

// AppendFrame persists a fully-populated Frame, including optional txn-id
// and metadata.
func (l *Log) AppendFrame(f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	buf := encodeFrame(f)
	_, err := l.w.Write(buf)
	return err
}

// Close releases the underlying writer, if it was given a closer.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func encodeFrame(f Frame) []byte {
	streamBytes := []byte(f.StreamID)
	txnBytes := []byte(f.TxnID)
	metaBytes := encodeMetadata(f.Metadata)

	size := 8 + 1 + 8 + 2 + len(streamBytes) + 2 + len(txnBytes) + 4 + len(metaBytes) + 4 + len(f.Body)
	buf := make([]byte, size)
	off := 0

	binary.BigEndian.PutUint64(buf[off:], uint64(f.TimestampMs))
	off += 8
	buf[off] = f.Direction
	off++
	binary.BigEndian.PutUint64(buf[off:], uint64(f.Seq))
	off += 8
	binary.BigEndian.PutUint16(buf[off:], uint16(len(streamBytes)))
	off += 2
	off += copy(buf[off:], streamBytes)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(txnBytes)))
	off += 2
	off += copy(buf[off:], txnBytes)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(metaBytes)))
	off += 4
	off += copy(buf[off:], metaBytes)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(f.Body)))
	off += 4
	off += copy(buf[off:], f.Body)

	return buf
}

func encodeMetadata(m map[string]string) []byte {
	if len(m) == 0 {
		return nil
	}
	var buf []byte
	for k, v := range m {
		kb, vb := []byte(k), []byte(v)
		var lenBuf [4]byte
		binary.BigEndian.PutUint16(lenBuf[0:2], uint16(len(kb)))
		binary.BigEndian.PutUint16(lenBuf[2:4], uint16(len(vb)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, kb...)
		buf = append(buf, vb...)
	}
	return buf
}

func decodeMetadata(buf []byte) map[string]string {
	if len(buf) == 0 {
		return nil
	}
	m := make(map[string]string)
	off := 0
	for off+4 <= len(buf) {
		klen := int(binary.BigEndian.Uint16(buf[off : off+2]))
		vlen := int(binary.BigEndian.Uint16(buf[off+2 : off+4]))
		off += 4
		if off+klen+vlen > len(buf) {
			break
		}
		k := string(buf[off : off+klen])
		off += klen
		v := string(buf[off : off+vlen])
		off += vlen
		m[k] = v
	}
	return m
}

// Reader tails or replays a frame log written by Log, detecting torn
// writes at the current end of the stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for sequential frame decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next decodes the next frame. It returns io.EOF when the stream is
// exhausted cleanly (no partial header pending), or ErrTornWrite when a
// partial record is found at the end of the available bytes.
func (rd *Reader) Next() (Frame, error) {
	var hdr [19]byte
	if _, err := io.ReadFull(rd.r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Frame{}, ErrTornWrite
		}
		return Frame{}, err
	}

	f := Frame{
		TimestampMs: int64(binary.BigEndian.Uint64(hdr[0:8])),
		Direction:   hdr[8],
		Seq:         int64(binary.BigEndian.Uint64(hdr[9:17])),
	}
	streamLen := int(binary.BigEndian.Uint16(hdr[17:19]))

	streamBuf := make([]byte, streamLen)
	if _, err := io.ReadFull(rd.r, streamBuf); err != nil {
		return Frame{}, ErrTornWrite
	}
	f.StreamID = string(streamBuf)

	var txnLenBuf [2]byte
	if _, err := io.ReadFull(rd.r, txnLenBuf[:]); err != nil {
		return Frame{}, ErrTornWrite
	}
	txnBuf := make([]byte, binary.BigEndian.Uint16(txnLenBuf[:]))
	if _, err := io.ReadFull(rd.r, txnBuf); err != nil {
		return Frame{}, ErrTornWrite
	}
	f.TxnID = string(txnBuf)

	var metaLenBuf [4]byte
	if _, err := io.ReadFull(rd.r, metaLenBuf[:]); err != nil {
		return Frame{}, ErrTornWrite
	}
	metaBuf := make([]byte, binary.BigEndian.Uint32(metaLenBuf[:]))
	if _, err := io.ReadFull(rd.r, metaBuf); err != nil {
		return Frame{}, ErrTornWrite
	}
	f.Metadata = decodeMetadata(metaBuf)

	var bodyLenBuf [4]byte
	if _, err := io.ReadFull(rd.r, bodyLenBuf[:]); err != nil {
		return Frame{}, ErrTornWrite
	}
	body := make([]byte, binary.BigEndian.Uint32(bodyLenBuf[:]))
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return Frame{}, ErrTornWrite
	}
	f.Body = body

	return f, nil
}
