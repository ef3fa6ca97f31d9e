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

package simulation

import (
	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/internal/frame"
)

// stuffer tracks runs of ones and reports where a zero must be inserted
type stuffer struct {
	ones int
	prev bool
}

// push records bit and reports whether a stuffed zero must follow it
func (s *stuffer) push(bit bool) bool {
	switch {
	case !bit:
		s.ones = 0
	case s.prev:
		s.ones++
	default:
		s.ones = 0
	}
	if s.ones == frame.MaxConsecutiveOnes-1 {
		s.ones = 0
		s.prev = false
		return true
	}
	s.prev = bit
	return false
}

// eachBit walks stream least significant bit first, inserting stuffed zeros.
// It stops before byte abortAt when abortAt is not negative.
func eachBit(stream []byte, abortAt int, emit func(bit bool)) {
	var st stuffer
	for i, b := range stream {
		if i == abortAt {
			return
		}
		for n := 0; n < frame.BitsPerByte; n++ {
			bit := b&(1<<n) != 0
			emit(bit)
			if st.push(bit) {
				emit(false)
			}
		}
	}
}

func (g *Generator) nrziFlag() {
	g.rec.Transition()
	g.rec.Advance(g.timing.Flag)
	g.rec.Transition()
	g.rec.Advance(g.timing.HalfPeriod)
}

func (g *Generator) transmitNRZI(stream []byte, abortAt int) {
	for i := 0; i < framingFlags; i++ {
		g.nrziFlag()
	}
	eachBit(stream, abortAt, func(bit bool) {
		if !bit {
			g.rec.Transition()
		}
		g.rec.Advance(g.timing.HalfPeriod)
	})
	if abortAt >= 0 {
		g.rec.Advance(g.timing.HalfPeriod * abortCells)
		return
	}
	for i := 0; i < framingFlags; i++ {
		g.nrziFlag()
	}
}

func (g *Generator) nrzBit(bit bool) {
	if bit {
		g.rec.TransitionIfNeeded(bitbus.High)
	} else {
		g.rec.TransitionIfNeeded(bitbus.Low)
	}
	g.rec.Advance(g.timing.HalfPeriod)
}

// nrzFlag sends 0111111. Consecutive flags share the closing zero with the
// next flag's opening one.
func (g *Generator) nrzFlag() {
	g.nrzBit(false)
	g.rec.TransitionIfNeeded(bitbus.High)
	g.rec.Advance(g.timing.Flag)
}

func (g *Generator) transmitNRZ(stream []byte, abortAt int) {
	for i := 0; i < framingFlags; i++ {
		g.nrzFlag()
	}
	g.nrzBit(false)
	eachBit(stream, abortAt, g.nrzBit)
	if abortAt >= 0 {
		g.rec.TransitionIfNeeded(bitbus.High)
		g.rec.Advance(g.timing.HalfPeriod * abortCells)
		return
	}
	for i := 0; i < framingFlags; i++ {
		g.nrzFlag()
	}
}
