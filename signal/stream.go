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

import (
	"math"
	"sync"

	bitbus "github.com/ZaparooProject/go-bitbus"
)

// Stream is a live signal fed by a capture goroutine and consumed by one
// analyzer. It implements bitbus.Channel; cursor calls block until the
// samples they need have been captured or the stream is closed.
type Stream struct {
	cond *sync.Cond
	// pending holds edges after the cursor
	pending    []uint64
	known      uint64
	pos        uint64
	passed     int
	mu         sync.Mutex
	sampleRate uint32
	initial    bitbus.BitState
	level      bitbus.BitState
	closed     bool
}

var _ bitbus.Channel = (*Stream)(nil)

// NewStream creates a stream whose first sample has the given level
func NewStream(sampleRate uint32, initial bitbus.BitState) *Stream {
	s := &Stream{
		sampleRate: sampleRate,
		initial:    initial,
		level:      initial,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SampleRate returns the stream sample rate
func (s *Stream) SampleRate() uint32 {
	return s.sampleRate
}

// AppendEdge records a level change at sample. Edges must be strictly
// increasing and not before samples already reported.
func (s *Stream) AppendEdge(sample uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return bitbus.ErrStreamClosed
	}
	if sample < s.known {
		return bitbus.NewCaptureError("append edge", "stream", bitbus.ErrCaptureFormat)
	}
	s.level = s.level.Invert()
	if sample == 0 {
		// a change on the very first sample only sets the starting level
		s.initial = s.level
	} else {
		s.pending = append(s.pending, sample)
	}
	s.known = sample + 1
	s.cond.Broadcast()
	return nil
}

// Extend reports that samples up to (not including) known carry no edge
// beyond the ones already appended
func (s *Stream) Extend(known uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if known > s.known {
		s.known = known
		s.cond.Broadcast()
	}
}

// AppendLevels appends consecutive samples given as levels
func (s *Stream) AppendLevels(levels []bitbus.BitState) error {
	s.mu.Lock()
	start := s.known
	level := s.level
	s.mu.Unlock()

	for i, l := range levels {
		if l != level {
			if err := s.AppendEdge(start + uint64(i)); err != nil {
				return err
			}
			level = l
		}
	}
	s.Extend(start + uint64(len(levels)))
	return nil
}

// AppendPacked appends samples packed eight per byte, least significant
// bit first
func (s *Stream) AppendPacked(data []byte) error {
	return s.AppendLevels(UnpackLevels(data))
}

// Known returns the number of samples captured so far
func (s *Stream) Known() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known
}

// Close ends the stream. Blocked cursor calls return immediately and any
// advance past the captured samples fails with bitbus.ErrEndOfSamples.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}

// BitState returns the level at the current sample
func (s *Stream) BitState() bitbus.BitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return levelAfter(s.initial, s.passed)
}

// SampleNumber returns the current sample index
func (s *Stream) SampleNumber() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Advance moves the cursor forward, waiting for the samples to arrive
func (s *Stream) Advance(samples float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.pos + toSamples(samples)
	for s.known <= target && !s.closed {
		s.cond.Wait()
	}
	if s.known <= target {
		return bitbus.ErrEndOfSamples
	}
	s.pos = target
	for len(s.pending) > 0 && s.pending[0] <= s.pos {
		s.pending = s.pending[1:]
		s.passed++
	}
	return nil
}

// AdvanceToNextEdge moves the cursor onto the next edge, waiting for it
func (s *Stream) AdvanceToNextEdge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.pending) == 0 {
		return bitbus.ErrEndOfSamples
	}
	s.pos = s.pending[0]
	s.pending = s.pending[1:]
	s.passed++
	return nil
}

// SampleOfNextEdge waits for the next edge and returns it, or
// math.MaxUint64 once the stream is closed without one
func (s *Stream) SampleOfNextEdge() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.pending) == 0 {
		return math.MaxUint64
	}
	return s.pending[0]
}

// WouldAdvancingCauseTransition waits until the window is captured or an
// edge shows up in it
func (s *Stream) WouldAdvancingCauseTransition(samples float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := s.pos + toSamples(samples)
	for {
		if len(s.pending) > 0 {
			return s.pending[0] <= limit
		}
		if s.known > limit || s.closed {
			return false
		}
		s.cond.Wait()
	}
}

// UnpackLevels expands samples packed eight per byte, LSB first
func UnpackLevels(data []byte) []bitbus.BitState {
	levels := make([]bitbus.BitState, 0, len(data)*8)
	for _, b := range data {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				levels = append(levels, bitbus.High)
			} else {
				levels = append(levels, bitbus.Low)
			}
		}
	}
	return levels
}

// FromLevels builds a capture from one level per sample
func FromLevels(sampleRate uint32, levels []bitbus.BitState) *Capture {
	c := &Capture{SampleRate: sampleRate, Length: uint64(len(levels))}
	if len(levels) == 0 {
		return c
	}
	c.Initial = levels[0]
	for i := 1; i < len(levels); i++ {
		if levels[i] != levels[i-1] {
			c.Edges = append(c.Edges, uint64(i))
		}
	}
	return c
}
