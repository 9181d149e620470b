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

package persist_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/omnibridge/persist"
)

var _ = Describe("Viewer", func() {
	buildLog := func() *bytes.Buffer {
		var buf bytes.Buffer
		log := persist.NewLog(&buf, nil, func() int64 { return 1000 })
		Expect(log.Append('O', "fix-1", 1, []byte("AAA"))).To(Succeed())
		Expect(log.Append('I', "fix-1", 2, []byte("BBB"))).To(Succeed())
		Expect(log.Append('O', "ouch-1", 3, []byte("CCC"))).To(Succeed())
		return &buf
	}

	It("renders every frame as text when unfiltered", func() {
		v := persist.NewViewer(nil)
		var out bytes.Buffer
		Expect(v.Replay(bytes.NewReader(buildLog().Bytes()), &out, persist.Filter{}, persist.FormatText)).To(Succeed())
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(3))
	})

	It("filters by stream", func() {
		v := persist.NewViewer(nil)
		var out bytes.Buffer
		filter := persist.Filter{Stream: "ouch-1"}
		Expect(v.Replay(bytes.NewReader(buildLog().Bytes()), &out, filter, persist.FormatText)).To(Succeed())
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(1))
		Expect(lines[0]).To(ContainSubstring("ouch-1"))
	})

	It("filters by direction", func() {
		v := persist.NewViewer(nil)
		var out bytes.Buffer
		filter := persist.Filter{Direction: 'I', HasDir: true}
		Expect(v.Replay(bytes.NewReader(buildLog().Bytes()), &out, filter, persist.FormatText)).To(Succeed())
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(1))
	})

	It("renders JSON with one object per line", func() {
		v := persist.NewViewer(nil)
		var out bytes.Buffer
		Expect(v.Replay(bytes.NewReader(buildLog().Bytes()), &out, persist.Filter{}, persist.FormatJSON)).To(Succeed())
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(ContainSubstring(`"streamId":"fix-1"`))
	})

	It("renders CSV with a header row", func() {
		v := persist.NewViewer(nil)
		var out bytes.Buffer
		Expect(v.Replay(bytes.NewReader(buildLog().Bytes()), &out, persist.Filter{}, persist.FormatCSV)).To(Succeed())
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(Equal("timestamp_ms,direction,seq,stream,txn,body_len"))
	})

	It("renders raw CBOR bytes that are non-empty per frame", func() {
		v := persist.NewViewer(nil)
		var out bytes.Buffer
		Expect(v.Replay(bytes.NewReader(buildLog().Bytes()), &out, persist.Filter{}, persist.FormatRaw)).To(Succeed())
		Expect(out.Len()).To(BeNumerically(">", 0))
	})
})
