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

// Fractions of a half-period used to place the sampling point
const (
	resyncWindow = 0.2
	midCell      = 0.5
	flagReentry  = 1.5
)

// bitSyncCodec decodes the bit synchronous modes. A flag is 01111110 and
// any other run of five 1 bits is followed by a stuffed 0.
type bitSyncCodec struct {
	ch     Channel
	timing Timing
	nrz    bool
}

func (c *bitSyncCodec) sync() error {
	return c.ch.AdvanceToNextEdge()
}

func (c *bitSyncCodec) afterAbort() error {
	return c.ch.AdvanceToNextEdge()
}

func (c *bitSyncCodec) edgeWithin(samples float64) bool {
	return c.ch.WouldAdvancingCauseTransition(samples)
}

// flagComing reports whether a constant run as long as one flag starts at
// the cursor and ends with an edge
func (c *bitSyncCodec) flagComing() bool {
	h := c.timing.half()
	flagLen := float64(c.timing.Flag)
	if c.edgeWithin(flagLen-h*midCell) || !c.edgeWithin(flagLen+h*midCell) {
		return false
	}
	// NRZ flags are 0111111x, a low level cannot start the high run
	return !c.nrz || c.ch.BitState() == High
}

// abortComing reports whether the line stays constant for longer than
// the abort sequence
func (c *bitSyncCodec) abortComing() bool {
	if c.nrz && c.ch.BitState() == Low {
		return false
	}
	return !c.edgeWithin(float64(c.timing.Abort) + c.timing.half()*midCell)
}

func (c *bitSyncCodec) processFlags(fc *frameContext) (decodedByte, error) {
	if err := c.searchFlags(fc); err != nil {
		return decodedByte{}, err
	}
	if fc.aborted {
		return decodedByte{}, nil
	}
	fc.readingFrame = true
	return c.readByte(fc)
}

func (c *bitSyncCodec) searchFlags(fc *frameContext) error {
	var flags []decodedByte
	h := c.timing.half()

	for {
		if c.abortComing() {
			fc.emitFlags(flags, false)
			fc.aborted = true
			return nil
		}

		if !c.flagComing() {
			if len(flags) > 0 {
				break
			}
			// interframe fill
			if err := c.ch.AdvanceToNextEdge(); err != nil {
				return err
			}
			continue
		}

		start := sampleBefore(c.ch.SampleNumber(), c.timing.HalfPeriod)
		if err := c.ch.AdvanceToNextEdge(); err != nil {
			return err
		}
		end := c.ch.SampleNumber() + c.timing.HalfPeriod
		flags = append(flags, decodedByte{start: start, end: end, value: frame.FlagValue})

		// Sample the centre of the flag's last cell to pick up the NRZI
		// reference, then stop on the next cell boundary.
		reentry := c.edgeWithin(h * flagReentry)
		if err := c.ch.Advance(h * midCell); err != nil {
			return err
		}
		fc.prevBit = c.ch.BitState()
		var err error
		if reentry {
			err = c.ch.AdvanceToNextEdge()
		} else {
			err = c.ch.Advance(c.cellRest())
		}
		if err != nil {
			return err
		}
	}

	fc.emitFlags(flags, true)
	fc.consecutiveOnes = 0
	return nil
}

// cellRest is the distance from a cell centre to the end of the cell. Odd
// half-periods would lose a sample per bit if both halves were truncated.
func (c *bitSyncCodec) cellRest() float64 {
	return float64(c.timing.HalfPeriod - c.timing.HalfPeriod/2)
}

// resync jumps to an edge that is about to happen so sampling stays
// centred on the cells
func (c *bitSyncCodec) resync() error {
	next := c.ch.SampleOfNextEdge()
	if float64(next) < float64(c.ch.SampleNumber())+c.timing.half()*resyncWindow {
		return c.ch.AdvanceToNextEdge()
	}
	return nil
}

// readBit reads one logical bit and removes stuffed bits
func (c *bitSyncCodec) readBit(fc *frameContext) (BitState, error) {
	h := c.timing.half()
	if err := c.resync(); err != nil {
		return Low, err
	}
	if err := c.ch.Advance(h * midCell); err != nil {
		return Low, err
	}

	line := c.ch.BitState()
	bit := line
	if !c.nrz {
		// NRZI: no transition is a 1
		bit = Low
		if line == fc.prevBit {
			bit = High
		}
	}

	switch {
	case bit == Low:
		fc.consecutiveOnes = 0
		fc.prevBit = line
	case fc.readingFrame && fc.consecutiveOnes+1 == frame.MaxConsecutiveOnes:
		fc.consecutiveOnes = 0
		if err := c.destuff(fc); err != nil {
			return Low, err
		}
	default:
		fc.consecutiveOnes++
		fc.prevBit = line
	}

	if err := c.ch.Advance(c.cellRest()); err != nil {
		return Low, err
	}
	if err := c.resync(); err != nil {
		return Low, err
	}
	return bit, nil
}

// destuff consumes the 0 bit that must follow five 1 bits. Without it the
// line carries an abort.
func (c *bitSyncCodec) destuff(fc *frameContext) error {
	pos := c.ch.SampleNumber()
	if float64(c.ch.SampleOfNextEdge()) >= float64(pos)+c.timing.half() {
		fc.abort(Field{Kind: FieldAbort, Start: pos, End: pos + c.timing.Byte})
		return nil
	}

	if err := c.ch.AdvanceToNextEdge(); err != nil {
		return err
	}
	fc.mark(c.ch.SampleNumber(), MarkerDot)
	if err := c.ch.Advance(c.timing.half() * midCell); err != nil {
		return err
	}
	fc.prevBit = c.ch.BitState()
	return nil
}

func (c *bitSyncCodec) readByte(fc *frameContext) (decodedByte, error) {
	if fc.readingFrame && c.abortComing() {
		start := c.ch.SampleNumber()
		if err := c.ch.Advance(float64(c.timing.Byte)); err != nil {
			return decodedByte{}, err
		}
		fc.abort(Field{Kind: FieldAbort, Start: start + c.timing.HalfPeriod, End: c.ch.SampleNumber()})
		return decodedByte{}, nil
	}

	if fc.readingFrame && !c.nrz && c.flagComing() {
		return c.closingFlag(fc)
	}

	start := c.ch.SampleNumber()
	var value byte
	for i := 0; i < frame.BitsPerByte; i++ {
		bit, err := c.readBit(fc)
		if err != nil {
			return decodedByte{}, err
		}
		// NRZ flags are not stuffed and may start on any byte boundary
		if i == 0 && c.nrz && c.flagComing() {
			return c.closingFlag(fc)
		}
		if fc.aborted {
			return decodedByte{}, nil
		}
		if bit == High {
			value |= 1 << i
		}
	}

	fc.accumulate(value)
	return decodedByte{start: start, end: c.ch.SampleNumber(), value: value}, nil
}

func (c *bitSyncCodec) closingFlag(fc *frameContext) (decodedByte, error) {
	start := sampleBefore(c.ch.SampleNumber(), c.timing.HalfPeriod)
	if err := c.ch.AdvanceToNextEdge(); err != nil {
		return decodedByte{}, err
	}
	fc.foundEndFlag = true
	return decodedByte{
		start: start,
		end:   c.ch.SampleNumber() + c.timing.HalfPeriod,
		value: frame.FlagValue,
	}, nil
}
