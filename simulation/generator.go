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

// Package simulation synthesizes BITBUS signals for testing the analyzer.
//
// A Generator is the inverse of the analyzer: it wraps logical frames in
// flags, appends the frame check sequence, applies bit or byte stuffing and
// records the resulting line levels.
package simulation

import (
	"errors"
	"fmt"
	"math/rand"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/internal/frame"
	"github.com/ZaparooProject/go-bitbus/signal"
)

// Generator defaults
const (
	DefaultSeed           = 5
	DefaultMaxInformation = 4
	// idleCells is the quiet time before the first frame
	idleCells = 8
	// abortCells is the constant run used to abort bit synchronous frames
	abortCells = 12
	// maxFillCells is the upper bound of random fill after a byte
	maxFillCells = 7
	// framingFlags is the number of flags before and after every frame
	framingFlags = 2
)

// LogicalFrame is the content of one BITBUS frame
type LogicalFrame struct {
	Information []byte
	Address     uint16
	Reserved    byte
}

// AddressBytes returns the two octets after the opening flag
func (f LogicalFrame) AddressBytes(mode bitbus.AddressingMode) [2]byte {
	switch mode {
	case bitbus.AddressSOF:
		return [2]byte{0x01, byte(f.Address)}
	case bitbus.AddressReserved:
		return [2]byte{byte(f.Address), f.Reserved}
	default:
		return [2]byte{byte(f.Address >> 8), byte(f.Address)}
	}
}

// DecodedAddress returns the address value the analyzer reports for f
func (f LogicalFrame) DecodedAddress(mode bitbus.AddressingMode) uint64 {
	b := f.AddressBytes(mode)
	if mode == bitbus.AddressReserved {
		return uint64(b[0])
	}
	return uint64(b[0])<<8 | uint64(b[1])
}

// Transmitted describes one frame put on the line
type Transmitted struct {
	Frame     LogicalFrame
	Start     uint64
	End       uint64
	Aborted   bool
	Corrupted bool
}

// Generator produces a BITBUS signal. It is not safe for concurrent use.
type Generator struct {
	rec          *signal.Recorder
	rng          *rand.Rand
	queue        []LogicalFrame
	sent         []Transmitted
	config       bitbus.Config
	timing       bitbus.Timing
	seed         int64
	maxInfo      int
	abortEvery   int
	corruptEvery int
	frameNumber  int
	explicit     bool
	addressValue byte
	initialized  bool
}

// Option configures a Generator
type Option func(*Generator) error

// WithSeed sets the seed of the pseudo-random source
func WithSeed(seed int64) Option {
	return func(g *Generator) error {
		g.seed = seed
		return nil
	}
}

// WithFrames transmits the given frames instead of generated ones. Once
// they are sent the line stays idle.
func WithFrames(frames ...LogicalFrame) Option {
	return func(g *Generator) error {
		g.queue = append(g.queue, frames...)
		g.explicit = true
		return nil
	}
}

// WithMaxInformation bounds the number of generated information bytes
func WithMaxInformation(n int) Option {
	return func(g *Generator) error {
		if n < 0 {
			return errors.New("max information must not be negative")
		}
		g.maxInfo = n
		return nil
	}
}

// WithAbortEvery aborts every n-th frame right after its address
func WithAbortEvery(n int) Option {
	return func(g *Generator) error {
		if n < 0 {
			return errors.New("abort interval must not be negative")
		}
		g.abortEvery = n
		return nil
	}
}

// WithCorruptEvery flips the low bit of the last information byte of every
// n-th frame after its checksum has been computed. Frames without
// information are sent intact.
func WithCorruptEvery(n int) Option {
	return func(g *Generator) error {
		if n < 0 {
			return errors.New("corrupt interval must not be negative")
		}
		g.corruptEvery = n
		return nil
	}
}

// NewGenerator creates a generator for cfg at sampleRate
func NewGenerator(cfg bitbus.Config, sampleRate uint32, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if uint64(sampleRate) < cfg.MinimumSampleRate() {
		return nil, bitbus.NewConfigError("sample_rate", sampleRate, bitbus.ErrSampleRateTooLow)
	}
	timing, err := bitbus.ResolveTiming(cfg.BitRate, sampleRate, cfg.TransmissionMode)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		config:  cfg,
		timing:  timing,
		seed:    DefaultSeed,
		maxInfo: DefaultMaxInformation,
		rec:     signal.NewRecorder(sampleRate, bitbus.Low),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.rng = rand.New(rand.NewSource(g.seed)) //nolint:gosec // test signal, not security sensitive
	return g, nil
}

// Timing returns the timing the generator encodes with
func (g *Generator) Timing() bitbus.Timing {
	return g.timing
}

// Transmitted returns every frame put on the line so far
func (g *Generator) Transmitted() []Transmitted {
	return append([]Transmitted(nil), g.sent...)
}

// Generate extends the signal until it reaches horizon samples and returns
// everything generated so far
func (g *Generator) Generate(horizon uint64) *signal.Capture {
	if !g.initialized {
		g.rec.Advance(g.timing.HalfPeriod * idleCells)
		g.initialized = true
	}

	for g.rec.SampleNumber() < horizon {
		lf, ok := g.nextFrame()
		if !ok {
			break
		}
		g.emitFrame(lf)
	}

	g.idle(horizon)
	return g.rec.Capture()
}

func (g *Generator) nextFrame() (LogicalFrame, bool) {
	if g.explicit {
		if len(g.queue) == 0 {
			return LogicalFrame{}, false
		}
		lf := g.queue[0]
		g.queue = g.queue[1:]
		return lf, true
	}

	lf := LogicalFrame{
		Address:  uint16(g.addressValue),
		Reserved: byte(g.rng.Intn(256)),
	}
	g.addressValue++
	if n := g.rng.Intn(g.maxInfo + 1); n > 0 {
		lf.Information = make([]byte, n)
		for i := range lf.Information {
			lf.Information[i] = byte(g.rng.Intn(256))
		}
	}
	return lf, true
}

func (g *Generator) emitFrame(lf LogicalFrame) {
	addr := lf.AddressBytes(g.config.AddressingMode)
	stream := make([]byte, 0, len(addr)+len(lf.Information)+frame.FCSLength)
	stream = append(stream, addr[:]...)
	stream = append(stream, lf.Information...)
	fcs := frame.Crc16(stream)
	stream = append(stream, fcs[0], fcs[1])

	g.frameNumber++
	tx := Transmitted{Frame: lf, Start: g.rec.SampleNumber()}
	if g.corruptEvery > 0 && g.frameNumber%g.corruptEvery == 0 && len(lf.Information) > 0 {
		// last byte before the check sequence
		stream[len(stream)-frame.FCSLength-1] ^= 0x01
		tx.Corrupted = true
	}
	abortAt := -1
	if g.abortEvery > 0 && g.frameNumber%g.abortEvery == 0 {
		abortAt = len(addr)
		tx.Aborted = true
	}

	switch g.config.TransmissionMode {
	case bitbus.ByteAsync:
		g.transmitByteAsync(stream, abortAt)
	case bitbus.BitSyncNRZ:
		g.transmitNRZ(stream, abortAt)
	default:
		g.transmitNRZI(stream, abortAt)
	}

	tx.End = g.rec.SampleNumber()
	g.sent = append(g.sent, tx)
	bitbus.Debugf("simulation: frame %d address=0x%X info=% X aborted=%t", g.frameNumber, lf.Address, lf.Information, tx.Aborted)
}

// idle holds the line at its idle level up to horizon
func (g *Generator) idle(horizon uint64) {
	switch g.config.TransmissionMode {
	case bitbus.ByteAsync:
		g.rec.TransitionIfNeeded(bitbus.High)
	case bitbus.BitSyncNRZ:
		// the 0 that ends the last flag
		g.rec.TransitionIfNeeded(bitbus.Low)
	}
	g.rec.Advance(g.timing.HalfPeriod * idleCells)
	if now := g.rec.SampleNumber(); now < horizon {
		g.rec.Advance(horizon - now)
	}
}

func (g *Generator) String() string {
	return fmt.Sprintf("simulation(%s/%s, %d samples per bit)",
		g.config.TransmissionMode, g.config.AddressingMode, g.timing.HalfPeriod)
}
