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

// Package signal provides sample sources for the BITBUS analyzer: in-memory
// captures, a recorder used to synthesize captures, and live streams fed by
// capture hardware.
package signal

import (
	"fmt"
	"math"
	"sort"

	bitbus "github.com/ZaparooProject/go-bitbus"
)

// Capture is a digitized signal stored as an initial level and the sample
// indices where the level changes. An edge at e means sample e is the first
// sample at the new level.
type Capture struct {
	Edges      []uint64
	Length     uint64
	SampleRate uint32
	Initial    bitbus.BitState
}

// Validate checks that edges are strictly increasing and inside the capture
func (c *Capture) Validate() error {
	var prev uint64
	for i, e := range c.Edges {
		if e == 0 || (i > 0 && e <= prev) {
			return fmt.Errorf("%w: edge %d at sample %d out of order", bitbus.ErrCaptureFormat, i, e)
		}
		if e >= c.Length {
			return fmt.Errorf("%w: edge %d at sample %d beyond length %d", bitbus.ErrCaptureFormat, i, e, c.Length)
		}
		prev = e
	}
	return nil
}

// LevelAt returns the level at sample
func (c *Capture) LevelAt(sample uint64) bitbus.BitState {
	passed := sort.Search(len(c.Edges), func(i int) bool { return c.Edges[i] > sample })
	return levelAfter(c.Initial, passed)
}

// Duration returns the capture length in seconds
func (c *Capture) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(c.Length) / float64(c.SampleRate)
}

// Cursor returns a new cursor positioned at sample 0
func (c *Capture) Cursor() *Cursor {
	return &Cursor{capture: c}
}

func levelAfter(initial bitbus.BitState, edges int) bitbus.BitState {
	if edges%2 == 1 {
		return initial.Invert()
	}
	return initial
}

// Cursor walks a Capture. It implements bitbus.Channel.
type Cursor struct {
	capture *Capture
	pos     uint64
	next    int
}

var _ bitbus.Channel = (*Cursor)(nil)

// BitState returns the level at the current sample
func (c *Cursor) BitState() bitbus.BitState {
	return levelAfter(c.capture.Initial, c.next)
}

// SampleNumber returns the current sample index
func (c *Cursor) SampleNumber() uint64 {
	return c.pos
}

// Advance moves the cursor forward by samples
func (c *Cursor) Advance(samples float64) error {
	target := c.pos + toSamples(samples)
	if target >= c.capture.Length {
		return bitbus.ErrEndOfSamples
	}
	c.pos = target
	for c.next < len(c.capture.Edges) && c.capture.Edges[c.next] <= c.pos {
		c.next++
	}
	return nil
}

// AdvanceToNextEdge moves the cursor onto the next edge
func (c *Cursor) AdvanceToNextEdge() error {
	if c.next >= len(c.capture.Edges) {
		return bitbus.ErrEndOfSamples
	}
	c.pos = c.capture.Edges[c.next]
	c.next++
	return nil
}

// SampleOfNextEdge returns the next edge or math.MaxUint64
func (c *Cursor) SampleOfNextEdge() uint64 {
	if c.next >= len(c.capture.Edges) {
		return math.MaxUint64
	}
	return c.capture.Edges[c.next]
}

// WouldAdvancingCauseTransition reports whether an edge lies within samples
func (c *Cursor) WouldAdvancingCauseTransition(samples float64) bool {
	if c.next >= len(c.capture.Edges) {
		return false
	}
	return c.capture.Edges[c.next] <= c.pos+toSamples(samples)
}

func toSamples(samples float64) uint64 {
	if samples <= 0 {
		return 0
	}
	return uint64(samples)
}

// Pack returns the capture as levels packed eight samples per byte, least
// significant bit first. It is the inverse of UnpackLevels.
func (c *Capture) Pack() []byte {
	out := make([]byte, (c.Length+7)/8)
	level := c.Initial
	next := 0
	for i := uint64(0); i < c.Length; i++ {
		for next < len(c.Edges) && c.Edges[next] <= i {
			level = level.Invert()
			next++
		}
		if level == bitbus.High {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}
