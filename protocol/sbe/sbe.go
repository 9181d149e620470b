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

// Package sbe holds the framing shared by the Simple Binary Encoding
// protocol family: iLink3 and Optiq both wrap the 8-byte SBE message header
// defined here (OUCH's soupbin framing lives in protocol/ouch and Pillar's
// 4-byte frame header in protocol/pillar). Re-architected per spec.md §9 as
// composition: this package holds only the shared Header, and each protocol
// package provides its own parser/encoder keyed by templateId rather than
// an inheritance chain.
package sbe

import "github.com/nabbar/omnibridge/buffer"

// Header is the common 8-byte SBE message header: blockLength, templateId,
// schemaId, version - used verbatim by iLink3 (schemaId=8, version=9) and
// Optiq (schemaId=0, version=1), per spec.md §6.
type Header struct {
	BlockLength uint16
	TemplateID  uint16
	SchemaID    uint16
	Version     uint16
}

const HeaderSize = 8

// ReadHeaderLE reads a little-endian SBE header at offset 0 of b.
func ReadHeaderLE(b *buffer.Buffer) (Header, error) {
	var h Header
	bl, err := b.GetUint16LE(0)
	if err != nil {
		return h, err
	}
	tid, err := b.GetUint16LE(2)
	if err != nil {
		return h, err
	}
	sid, err := b.GetUint16LE(4)
	if err != nil {
		return h, err
	}
	ver, err := b.GetUint16LE(6)
	if err != nil {
		return h, err
	}
	return Header{BlockLength: bl, TemplateID: tid, SchemaID: sid, Version: ver}, nil
}

// WriteHeaderLE writes h at offset 0 of b.
func WriteHeaderLE(b *buffer.Buffer, h Header) error {
	if err := b.PutUint16LE(0, h.BlockLength); err != nil {
		return err
	}
	if err := b.PutUint16LE(2, h.TemplateID); err != nil {
		return err
	}
	if err := b.PutUint16LE(4, h.SchemaID); err != nil {
		return err
	}
	return b.PutUint16LE(6, h.Version)
}

// Message is the per-template flyweight shape for the SBE protocol
// packages: Wrap projects the view over a frame's body (the bytes
// following the protocol's outer framing and SBE header), Reset clears it
// for pool reuse. No message type in protocol/ilink3, protocol/optiq or
// protocol/pillar implements it; those types use EncodedLen/Encode/Decode.
type Message interface {
	TemplateID() uint16
	Wrap(body []byte)
	Reset()
}
