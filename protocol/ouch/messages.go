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

package ouch

import "github.com/nabbar/omnibridge/buffer"

// Version selects the wire layout of the order-identifying field: v4.2
// carries a 14-byte alphanumeric token, v5.0 replaces it with an 8-byte
// binary userRefNum, per spec.md §6's ouch.version session parameter.
type Version int

const (
	V42 Version = iota
	V50
)

const (
	tokenWidth = 14
	symbolWidth = 8
	firmWidth   = 4
)

// Side is the OUCH side-of-market indicator byte.
type Side byte

const (
	SideBuy  Side = 'B'
	SideSell Side = 'S'
)

// Capacity is the OUCH order-capacity indicator byte.
type Capacity byte

const (
	CapacityAgency    Capacity = 'A'
	CapacityPrincipal Capacity = 'P'
	CapacityRiskless  Capacity = 'R'
	CapacityOther     Capacity = 'O'
)

// CrossType identifies participation in an auction or cross, v4.2 only.
type CrossType byte

const (
	CrossTypeNone         CrossType = 'N'
	CrossTypeOpening      CrossType = 'O'
	CrossTypeClosing      CrossType = 'C'
	CrossTypeHalt         CrossType = 'H'
	CrossTypeSupplemental CrossType = 'S'
)

// EnterOrder is the order-entry application message (packet type 'O' inside
// PacketUnsequenced), scenario S3 of spec.md §8. Firm, Display, Capacity,
// IntermarketSweepEligibility, MinimumQuantity and CrossType are carried only
// on the v4.2 wire; v5.0 moves this information into optional TLV appendages
// that EnterOrder does not model.
type EnterOrder struct {
	Version     Version
	Token       string // v4.2
	UserRefNum  uint64 // v5.0
	Side        Side
	Shares      uint32
	Symbol      string
	Price       uint32 // fixed-point, 4 implied decimals
	TimeInForce uint32

	// v4.2 only, per spec.md §6's 47-byte Enter Order body.
	Firm                        string
	Display                     byte
	Capacity                    Capacity
	IntermarketSweepEligibility byte
	MinimumQuantity             uint32
	CrossType                   CrossType
}

// EncodedLen returns the body length (excluding soupbin framing) for the
// message's version.
func (m *EnterOrder) EncodedLen() int {
	if m.Version == V50 {
		return 1 + 8 + 1 + 4 + symbolWidth + 4 + 4
	}
	return 1 + tokenWidth + 1 + 4 + symbolWidth + 4 + 4 + firmWidth + 1 + 1 + 1 + 4 + 1
}

// Encode writes the application body (after the soupbin type byte) into dst.
func (m *EnterOrder) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	off := 0
	dst[off] = 'O'
	off++

	if m.Version == V50 {
		if err := b.PutUint64BE(off, m.UserRefNum); err != nil {
			return 0, err
		}
		off += 8
	} else {
		if err := b.PutFixedASCII(off, tokenWidth, m.Token); err != nil {
			return 0, err
		}
		off += tokenWidth
	}

	dst[off] = byte(m.Side)
	off++
	if err := b.PutUint32BE(off, m.Shares); err != nil {
		return 0, err
	}
	off += 4
	if err := b.PutFixedASCII(off, symbolWidth, m.Symbol); err != nil {
		return 0, err
	}
	off += symbolWidth
	if err := b.PutUint32BE(off, m.Price); err != nil {
		return 0, err
	}
	off += 4
	if err := b.PutUint32BE(off, m.TimeInForce); err != nil {
		return 0, err
	}
	off += 4

	if m.Version != V50 {
		if err := b.PutFixedASCII(off, firmWidth, m.Firm); err != nil {
			return 0, err
		}
		off += firmWidth
		dst[off] = m.Display
		off++
		dst[off] = byte(m.Capacity)
		off++
		dst[off] = m.IntermarketSweepEligibility
		off++
		if err := b.PutUint32BE(off, m.MinimumQuantity); err != nil {
			return 0, err
		}
		off += 4
		dst[off] = byte(m.CrossType)
		off++
	}
	return off, nil
}

// Decode parses an application body (as produced by Encode) of the given
// version into m.
func (m *EnterOrder) Decode(version Version, body []byte) error {
	m.Version = version
	b := buffer.Wrap(body)
	off := 1 // skip the 'O' packet subtype byte

	if version == V50 {
		v, err := b.GetUint64BE(off)
		if err != nil {
			return err
		}
		m.UserRefNum = v
		off += 8
	} else {
		tok, err := b.GetFixedASCII(off, tokenWidth)
		if err != nil {
			return err
		}
		m.Token = tok
		off += tokenWidth
	}

	m.Side = Side(body[off])
	off++
	shares, err := b.GetUint32BE(off)
	if err != nil {
		return err
	}
	m.Shares = shares
	off += 4
	sym, err := b.GetFixedASCII(off, symbolWidth)
	if err != nil {
		return err
	}
	m.Symbol = sym
	off += symbolWidth
	price, err := b.GetUint32BE(off)
	if err != nil {
		return err
	}
	m.Price = price
	off += 4
	tif, err := b.GetUint32BE(off)
	if err != nil {
		return err
	}
	m.TimeInForce = tif
	off += 4

	if version != V50 {
		firm, err := b.GetFixedASCII(off, firmWidth)
		if err != nil {
			return err
		}
		m.Firm = firm
		off += firmWidth
		m.Display = body[off]
		off++
		m.Capacity = Capacity(body[off])
		off++
		m.IntermarketSweepEligibility = body[off]
		off++
		minQty, err := b.GetUint32BE(off)
		if err != nil {
			return err
		}
		m.MinimumQuantity = minQty
		off += 4
		m.CrossType = CrossType(body[off])
	}
	return nil
}

// OrderAccepted is the acceptor's acknowledgement, carrying the exchange-
// assigned OrderReferenceNumber.
type OrderAccepted struct {
	Version      Version
	Token        string
	UserRefNum   uint64
	Side         Side
	Shares       uint32
	Symbol       string
	Price        uint32
	OrderRefNum  uint64
}

func (m *OrderAccepted) EncodedLen() int {
	base := 1 + 1 + 4 + symbolWidth + 4 + 8
	if m.Version == V50 {
		return base + 8
	}
	return base + tokenWidth
}

func (m *OrderAccepted) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	off := 0
	dst[off] = 'A'
	off++

	if m.Version == V50 {
		if err := b.PutUint64BE(off, m.UserRefNum); err != nil {
			return 0, err
		}
		off += 8
	} else {
		if err := b.PutFixedASCII(off, tokenWidth, m.Token); err != nil {
			return 0, err
		}
		off += tokenWidth
	}

	dst[off] = byte(m.Side)
	off++
	if err := b.PutUint32BE(off, m.Shares); err != nil {
		return 0, err
	}
	off += 4
	if err := b.PutFixedASCII(off, symbolWidth, m.Symbol); err != nil {
		return 0, err
	}
	off += symbolWidth
	if err := b.PutUint32BE(off, m.Price); err != nil {
		return 0, err
	}
	off += 4
	if err := b.PutUint64BE(off, m.OrderRefNum); err != nil {
		return 0, err
	}
	off += 8
	return off, nil
}

func (m *OrderAccepted) Decode(version Version, body []byte) error {
	m.Version = version
	b := buffer.Wrap(body)
	off := 1

	if version == V50 {
		v, err := b.GetUint64BE(off)
		if err != nil {
			return err
		}
		m.UserRefNum = v
		off += 8
	} else {
		tok, err := b.GetFixedASCII(off, tokenWidth)
		if err != nil {
			return err
		}
		m.Token = tok
		off += tokenWidth
	}

	m.Side = Side(body[off])
	off++
	shares, err := b.GetUint32BE(off)
	if err != nil {
		return err
	}
	m.Shares = shares
	off += 4
	sym, err := b.GetFixedASCII(off, symbolWidth)
	if err != nil {
		return err
	}
	m.Symbol = sym
	off += symbolWidth
	price, err := b.GetUint32BE(off)
	if err != nil {
		return err
	}
	m.Price = price
	off += 4
	ref, err := b.GetUint64BE(off)
	if err != nil {
		return err
	}
	m.OrderRefNum = ref
	return nil
}

// OrderExecuted reports a fill against a previously accepted order.
type OrderExecuted struct {
	Version         Version
	Token           string
	UserRefNum      uint64
	ExecutedShares  uint32
	ExecutionPrice  uint32
	MatchNumber     uint64
}

func (m *OrderExecuted) EncodedLen() int {
	base := 1 + 4 + 4 + 8
	if m.Version == V50 {
		return base + 8
	}
	return base + tokenWidth
}

func (m *OrderExecuted) Encode(dst []byte) (int, error) {
	b := buffer.Wrap(dst)
	off := 0
	dst[off] = 'E'
	off++

	if m.Version == V50 {
		if err := b.PutUint64BE(off, m.UserRefNum); err != nil {
			return 0, err
		}
		off += 8
	} else {
		if err := b.PutFixedASCII(off, tokenWidth, m.Token); err != nil {
			return 0, err
		}
		off += tokenWidth
	}

	if err := b.PutUint32BE(off, m.ExecutedShares); err != nil {
		return 0, err
	}
	off += 4
	if err := b.PutUint32BE(off, m.ExecutionPrice); err != nil {
		return 0, err
	}
	off += 4
	if err := b.PutUint64BE(off, m.MatchNumber); err != nil {
		return 0, err
	}
	off += 8
	return off, nil
}

func (m *OrderExecuted) Decode(version Version, body []byte) error {
	m.Version = version
	b := buffer.Wrap(body)
	off := 1

	if version == V50 {
		v, err := b.GetUint64BE(off)
		if err != nil {
			return err
		}
		m.UserRefNum = v
		off += 8
	} else {
		tok, err := b.GetFixedASCII(off, tokenWidth)
		if err != nil {
			return err
		}
		m.Token = tok
		off += tokenWidth
	}

	shares, err := b.GetUint32BE(off)
	if err != nil {
		return err
	}
	m.ExecutedShares = shares
	off += 4
	price, err := b.GetUint32BE(off)
	if err != nil {
		return err
	}
	m.ExecutionPrice = price
	off += 4
	match, err := b.GetUint64BE(off)
	if err != nil {
		return err
	}
	m.MatchNumber = match
	return nil
}
