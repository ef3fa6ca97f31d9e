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

// BitState is the level of the sampled signal
type BitState uint8

const (
	Low BitState = iota
	High
)

// Invert returns the opposite level
func (b BitState) Invert() BitState {
	if b == High {
		return Low
	}
	return High
}

func (b BitState) String() string {
	if b == High {
		return "high"
	}
	return "low"
}

// Channel is a monotonic cursor over one digitized signal.
// This can be implemented by in-memory captures or live sample streams.
//
// An edge at sample e means e is the first sample at the new level. The
// lookahead methods never move the cursor and report "no edge" when the
// data ends first. Fractional sample counts are truncated.
type Channel interface {
	// BitState returns the level at the current sample
	BitState() BitState

	// SampleNumber returns the current absolute sample index
	SampleNumber() uint64

	// Advance moves the cursor forward by samples
	Advance(samples float64) error

	// AdvanceToNextEdge moves the cursor to the next edge
	AdvanceToNextEdge() error

	// SampleOfNextEdge returns the index of the next edge, or math.MaxUint64
	// when no further edge exists
	SampleOfNextEdge() uint64

	// WouldAdvancingCauseTransition reports whether an edge lies within the
	// next samples
	WouldAdvancingCauseTransition(samples float64) bool
}
