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

package signal

import bitbus "github.com/ZaparooProject/go-bitbus"

// Recorder authors a signal edge by edge
type Recorder struct {
	edges      []uint64
	pos        uint64
	sampleRate uint32
	initial    bitbus.BitState
	state      bitbus.BitState
}

// NewRecorder creates a recorder starting at sample 0 with the given level
func NewRecorder(sampleRate uint32, initial bitbus.BitState) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		initial:    initial,
		state:      initial,
	}
}

// BitState returns the current level
func (r *Recorder) BitState() bitbus.BitState {
	return r.state
}

// SampleNumber returns the current sample index
func (r *Recorder) SampleNumber() uint64 {
	return r.pos
}

// SampleRate returns the sample rate the recorder was created with
func (r *Recorder) SampleRate() uint32 {
	return r.sampleRate
}

// Advance holds the current level for samples
func (r *Recorder) Advance(samples uint64) {
	r.pos += samples
}

// Transition toggles the level at the current sample
func (r *Recorder) Transition() {
	r.state = r.state.Invert()
	switch {
	case r.pos == 0:
		r.initial = r.state
	case len(r.edges) > 0 && r.edges[len(r.edges)-1] == r.pos:
		// two toggles on one sample cancel out
		r.edges = r.edges[:len(r.edges)-1]
	default:
		r.edges = append(r.edges, r.pos)
	}
}

// TransitionIfNeeded moves the line to level
func (r *Recorder) TransitionIfNeeded(level bitbus.BitState) {
	if r.state != level {
		r.Transition()
	}
}

// Capture returns a copy of everything recorded so far. The current sample
// is the last sample of the capture.
func (r *Recorder) Capture() *Capture {
	return &Capture{
		Edges:      append([]uint64(nil), r.edges...),
		Length:     r.pos + 1,
		SampleRate: r.sampleRate,
		Initial:    r.initial,
	}
}
