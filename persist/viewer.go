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

package persist

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Format selects a Viewer's rendering of each matched Frame.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatCSV
	FormatRaw
)

// Decoder lets the Viewer render protocol-specific detail per spec.md
// §4.5 without persist depending on any protocol package directly.
type Decoder interface {
	DecodeMessageType(body []byte) (string, bool)
	IsAdminMessage(body []byte) bool
	FormatMessage(body []byte, verbose bool) string
	DecodeSequenceNumber(body []byte) (int64, bool)
}

// Filter narrows a replay/tail pass over a log.
type Filter struct {
	From      time.Time
	To        time.Time
	Direction byte
	HasDir    bool
	Stream    string
	MsgType   string
}

func (f Filter) matches(fr Frame, dec Decoder) bool {
	if !f.From.IsZero() && fr.TimestampMs < f.From.UnixMilli() {
		return false
	}
	if !f.To.IsZero() && fr.TimestampMs > f.To.UnixMilli() {
		return false
	}
	if f.HasDir && fr.Direction != f.Direction {
		return false
	}
	if f.Stream != "" && fr.StreamID != f.Stream {
		return false
	}
	if f.MsgType != "" {
		if dec == nil {
			return false
		}
		mt, ok := dec.DecodeMessageType(fr.Body)
		if !ok || mt != f.MsgType {
			return false
		}
	}
	return true
}

// Viewer replays or tails a persisted log, filtering and formatting
// frames for the admin surface of spec.md §6.
type Viewer struct {
	dec Decoder
}

// NewViewer builds a Viewer. dec may be nil; message-type filtering and
// verbose text formatting are then unavailable but raw/JSON/CSV rendering
// still works off the frame envelope alone.
func NewViewer(dec Decoder) *Viewer {
	return &Viewer{dec: dec}
}

// Replay reads every frame from r, applies filter, and writes each match
// to w in the given format.
func (v *Viewer) Replay(r io.Reader, w io.Writer, filter Filter, format Format) error {
	rd := NewReader(r)
	csvw := csv.NewWriter(w)
	if format == FormatCSV {
		if err := csvw.Write([]string{"timestamp_ms", "direction", "seq", "stream", "txn", "body_len"}); err != nil {
			return err
		}
	}

	for {
		fr, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err == ErrTornWrite {
			break
		}
		if err != nil {
			return err
		}
		if !filter.matches(fr, v.dec) {
			continue
		}
		if err := v.render(w, csvw, fr, format); err != nil {
			return err
		}
	}
	if format == FormatCSV {
		csvw.Flush()
		return csvw.Error()
	}
	return nil
}

func (v *Viewer) render(w io.Writer, csvw *csv.Writer, fr Frame, format Format) error {
	switch format {
	case FormatText:
		line := fmt.Sprintf("%d %c %s#%d", fr.TimestampMs, fr.Direction, fr.StreamID, fr.Seq)
		if v.dec != nil {
			line += " " + v.dec.FormatMessage(fr.Body, true)
		}
		_, err := fmt.Fprintln(w, line)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		return enc.Encode(jsonFrame(fr))
	case FormatCSV:
		return csvw.Write([]string{
			strconv.FormatInt(fr.TimestampMs, 10),
			string(fr.Direction),
			strconv.FormatInt(fr.Seq, 10),
			fr.StreamID,
			fr.TxnID,
			strconv.Itoa(len(fr.Body)),
		})
	case FormatRaw:
		b, err := cbor.Marshal(fr)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("persist: unknown format %d", format)
	}
}

type jsonFrameT struct {
	TimestampMs int64             `json:"timestampMs"`
	Direction   string            `json:"direction"`
	Seq         int64             `json:"seq"`
	StreamID    string            `json:"streamId"`
	TxnID       string            `json:"txnId,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	BodyLen     int               `json:"bodyLen"`
}

func jsonFrame(fr Frame) jsonFrameT {
	return jsonFrameT{
		TimestampMs: fr.TimestampMs,
		Direction:   string(fr.Direction),
		Seq:         fr.Seq,
		StreamID:    fr.StreamID,
		TxnID:       fr.TxnID,
		Metadata:    fr.Metadata,
		BodyLen:     len(fr.Body),
	}
}

// Tail follows r (expected to be a file still being appended to) and
// invokes onFrame for each new frame as it becomes available, stopping
// when stop is closed. A torn tail is treated as "not yet written" and
// retried rather than treated as an error, since the writer may be
// mid-append.
func Tail(r io.ReadSeeker, filter Filter, dec Decoder, poll time.Duration, stop <-chan struct{}, onFrame func(Frame)) error {
	var offset int64
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		rd := NewReader(r)
		for {
			fr, err := rd.Next()
			if err == io.EOF || err == ErrTornWrite {
				break
			}
			if err != nil {
				return err
			}
			n := int64(len(encodeFrame(fr)))
			offset += n
			if filter.matches(fr, dec) {
				onFrame(fr)
			}
		}

		select {
		case <-stop:
			return nil
		case <-time.After(poll):
		}
	}
}
