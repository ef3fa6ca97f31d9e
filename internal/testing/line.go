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

// Package testing builds BITBUS line signals bit by bit for decoder tests.
// Unlike the simulation package it never fixes up what it is told to send,
// so it can produce truncated, aborted or noisy traffic.
package testing

import (
	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/signal"
)

// DefaultCell is the bit cell used by tests, in samples
const DefaultCell = 16

// DefaultSampleRate matches DefaultCell at the default bit rate
const DefaultSampleRate = 2_000_000

// Line authors a signal one bit cell at a time
type Line struct {
	rec  *signal.Recorder
	cell uint64
}

// NewLine starts a low line sampled at DefaultSampleRate
func NewLine() *Line {
	return NewLineWithCell(DefaultSampleRate, DefaultCell, bitbus.Low)
}

// NewLineWithCell starts a line with an explicit cell length
func NewLineWithCell(sampleRate uint32, cell uint64, initial bitbus.BitState) *Line {
	return &Line{rec: signal.NewRecorder(sampleRate, initial), cell: cell}
}

// Cell returns the cell length in samples
func (l *Line) Cell() uint64 {
	return l.cell
}

// Position returns the current sample
func (l *Line) Position() uint64 {
	return l.rec.SampleNumber()
}

// Hold keeps the current level for cells
func (l *Line) Hold(cells uint64) *Line {
	l.rec.Advance(cells * l.cell)
	return l
}

// Level drives the line to level and holds it for cells
func (l *Line) Level(level bitbus.BitState, cells uint64) *Line {
	l.rec.TransitionIfNeeded(level)
	return l.Hold(cells)
}

// NRZIFlag sends 01111110 as NRZI
func (l *Line) NRZIFlag() *Line {
	l.rec.Transition()
	l.Hold(7)
	l.rec.Transition()
	return l.Hold(1)
}

// NRZIBytes sends data LSB first as NRZI with a 0 after every five 1 bits
func (l *Line) NRZIBytes(data ...byte) *Line {
	var ones int
	for _, b := range data {
		for n := 0; n < 8; n++ {
			if b&(1<<n) == 0 {
				l.rec.Transition()
				ones = 0
			} else {
				ones++
			}
			l.Hold(1)
			if ones == 5 {
				l.rec.Transition()
				l.Hold(1)
				ones = 0
			}
		}
	}
	return l
}

// NRZFlag sends 0111111. The 0 of the next flag or Zero closes it.
func (l *Line) NRZFlag() *Line {
	l.Level(bitbus.Low, 1)
	return l.Level(bitbus.High, 6)
}

// Zero sends one NRZ 0 bit
func (l *Line) Zero() *Line {
	return l.Level(bitbus.Low, 1)
}

// NRZBytes sends data LSB first as NRZ with a 0 after every five 1 bits
func (l *Line) NRZBytes(data ...byte) *Line {
	var ones int
	for _, b := range data {
		for n := 0; n < 8; n++ {
			if b&(1<<n) == 0 {
				l.Level(bitbus.Low, 1)
				ones = 0
				continue
			}
			l.Level(bitbus.High, 1)
			ones++
			if ones == 5 {
				l.Level(bitbus.Low, 1)
				ones = 0
			}
		}
	}
	return l
}

// AsyncChars sends each byte as start bit, data LSB first and stop bit
// after one cell of idle. Nothing is escaped.
func (l *Line) AsyncChars(data ...byte) *Line {
	for _, b := range data {
		l.Level(bitbus.High, 1)
		l.Level(bitbus.Low, 1)
		for n := 0; n < 8; n++ {
			if b&(1<<n) != 0 {
				l.Level(bitbus.High, 1)
			} else {
				l.Level(bitbus.Low, 1)
			}
		}
		l.Level(bitbus.High, 1)
	}
	return l
}

// Capture returns everything sent so far
func (l *Line) Capture() *signal.Capture {
	return l.rec.Capture()
}
