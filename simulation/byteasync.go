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

// asyncByte sends one start bit, b least significant bit first and one stop
// bit. A low line is first released for one bit.
func (g *Generator) asyncByte(b byte) {
	hp := g.timing.HalfPeriod
	if g.rec.BitState() == bitbus.Low {
		g.rec.Transition()
		g.rec.Advance(hp)
	}
	g.rec.TransitionIfNeeded(bitbus.Low)
	g.rec.Advance(hp)
	for n := 0; n < frame.BitsPerByte; n++ {
		if b&(1<<n) != 0 {
			g.rec.TransitionIfNeeded(bitbus.High)
		} else {
			g.rec.TransitionIfNeeded(bitbus.Low)
		}
		g.rec.Advance(hp)
	}
	g.rec.TransitionIfNeeded(bitbus.High)
	g.rec.Advance(hp)
}

func (g *Generator) asyncFill() {
	if n := g.rng.Intn(maxFillCells + 1); n > 0 {
		g.rec.Advance(g.timing.HalfPeriod * uint64(n))
	}
}

func (g *Generator) transmitByteAsync(stream []byte, abortAt int) {
	for i := 0; i < framingFlags; i++ {
		g.asyncByte(frame.FlagValue)
	}
	for i, b := range stream {
		if i == abortAt {
			g.asyncByte(frame.EscapeValue)
			g.asyncByte(frame.FlagValue)
			return
		}
		if frame.NeedsEscape(b) {
			g.asyncByte(frame.EscapeValue)
			g.asyncByte(frame.Bit5Inv(b))
		} else {
			g.asyncByte(b)
		}
		g.asyncFill()
	}
	for i := 0; i < framingFlags; i++ {
		g.asyncByte(frame.FlagValue)
	}
}
