// go-bitbus
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-bitbus.
//
// go-bitbus is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-bitbus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-bitbus; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package bitbus

import "github.com/ZaparooProject/go-bitbus/internal/frame"

// byteAsyncCodec decodes start/stop framed bytes. Flags, escapes and
// aborts are recognized on byte values.
type byteAsyncCodec struct {
	ch     Channel
	timing Timing
}

func (*byteAsyncCodec) sync() error {
	return nil
}

func (*byteAsyncCodec) afterAbort() error {
	return nil
}

// readRaw reads one character: start bit, eight data bits LSB first and
// the first half of the stop bit
func (c *byteAsyncCodec) readRaw() (decodedByte, error) {
	h := c.timing.half()

	// the line idles high between characters
	if c.ch.BitState() == Low {
		if err := c.ch.AdvanceToNextEdge(); err != nil {
			return decodedByte{}, err
		}
	}
	if err := c.ch.AdvanceToNextEdge(); err != nil {
		return decodedByte{}, err
	}
	if err := c.ch.Advance(h * midCell); err != nil {
		return decodedByte{}, err
	}

	start := sampleAfter(c.ch.SampleNumber(), h*midCell)
	var value byte
	for i := 0; i < frame.BitsPerByte; i++ {
		if err := c.ch.Advance(h); err != nil {
			return decodedByte{}, err
		}
		if c.ch.BitState() == High {
			value |= 1 << i
		}
	}
	end := sampleAfter(c.ch.SampleNumber(), h*midCell)

	if err := c.ch.Advance(h); err != nil {
		return decodedByte{}, err
	}
	return decodedByte{start: start, end: end, value: value}, nil
}

func (c *byteAsyncCodec) readByte(fc *frameContext) (decodedByte, error) {
	b, err := c.readRaw()
	if err != nil {
		return decodedByte{}, err
	}

	switch b.value {
	case frame.FlagValue:
		fc.foundEndFlag = true
		return b, nil
	case frame.EscapeValue:
		next, err := c.readRaw()
		if err != nil {
			return decodedByte{}, err
		}
		if next.value == frame.FlagValue {
			fc.abort(Field{Kind: FieldAbort, Start: b.start, End: next.end})
			return next, nil
		}
		logical := decodedByte{
			start:   b.start,
			end:     next.end,
			value:   frame.Bit5Inv(next.value),
			escaped: true,
		}
		fc.accumulate(logical.value)
		return logical, nil
	default:
		fc.accumulate(b.value)
		return b, nil
	}
}

func (c *byteAsyncCodec) processFlags(fc *frameContext) (decodedByte, error) {
	fc.readingFrame = true
	var flags []decodedByte

	for {
		b, err := c.readByte(fc)
		if err != nil {
			return decodedByte{}, err
		}
		if fc.aborted {
			fc.emitFlags(flags, false)
			return decodedByte{}, nil
		}
		if fc.foundEndFlag {
			fc.foundEndFlag = false
			flags = append(flags, b)
			continue
		}
		if len(flags) > 0 {
			fc.emitFlags(flags, true)
			return b, nil
		}
		// data before the first flag belongs to no frame
		fc.raw = fc.raw[:0]
	}
}
