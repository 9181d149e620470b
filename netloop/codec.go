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

package netloop

import (
	"errors"

	"github.com/nabbar/omnibridge/protocol/fix"
	"github.com/nabbar/omnibridge/protocol/ilink3"
	"github.com/nabbar/omnibridge/protocol/optiq"
	"github.com/nabbar/omnibridge/protocol/ouch"
	"github.com/nabbar/omnibridge/protocol/pillar"
)

// FIXCodec adapts protocol/fix's tag-value framing to the engine's Codec
// contract, bounding BodyLength at maxLen (0 selects the protocol
// package's default).
func FIXCodec(maxLen int) Codec {
	return Codec{
		ExpectedLength: func(buf []byte) (int, error) { return fix.ExpectedLength(buf, maxLen) },
		IsIncomplete:   func(err error) bool { return errors.Is(err, fix.ErrIncomplete) },
	}
}

// OUCHCodec adapts protocol/ouch's soupbin length-prefixed framing.
func OUCHCodec() Codec {
	return Codec{
		ExpectedLength: ouch.ExpectedLength,
		IsIncomplete:   func(err error) bool { return errors.Is(err, ouch.ErrIncomplete) },
	}
}

// PillarCodec adapts protocol/pillar's type+length framing.
func PillarCodec() Codec {
	return Codec{
		ExpectedLength: pillar.ExpectedLength,
		IsIncomplete:   func(err error) bool { return errors.Is(err, pillar.ErrIncomplete) },
	}
}

// ILink3Codec adapts protocol/ilink3's length-prefixed SBE framing.
func ILink3Codec() Codec {
	return Codec{
		ExpectedLength: ilink3.ExpectedLength,
		IsIncomplete:   func(err error) bool { return errors.Is(err, ilink3.ErrIncomplete) },
	}
}

// OptiqCodec adapts protocol/optiq's length-prefixed SBE framing.
func OptiqCodec() Codec {
	return Codec{
		ExpectedLength: optiq.ExpectedLength,
		IsIncomplete:   func(err error) bool { return errors.Is(err, optiq.ErrIncomplete) },
	}
}
