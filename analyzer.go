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

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-bitbus/internal/frame"
)

// Progress is reported after every committed frame
type Progress struct {
	// Sample is the cursor position after the frame
	Sample uint64
	// Frames is the number of processing cycles so far
	Frames uint64
	// Status is the status of the frame just committed
	Status Status
}

// ProgressCallback is called with decode progress
type ProgressCallback func(Progress)

// Analyzer decodes BITBUS frames from a Channel. It owns the channel for
// the duration of Run and is not safe for concurrent use.
type Analyzer struct {
	channel       Channel
	codec         codec
	onProgress    ProgressCallback
	results       []Results
	config        Config
	timing        Timing
	frames        uint64
	sampleRate    uint32
	synced        bool
	resyncPending bool
}

// NewAnalyzer creates an analyzer for a channel sampled at sampleRate
func NewAnalyzer(ch Channel, cfg Config, sampleRate uint32, opts ...Option) (*Analyzer, error) {
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if uint64(sampleRate) < cfg.MinimumSampleRate() {
		return nil, NewConfigError("sample_rate", sampleRate, ErrSampleRateTooLow)
	}

	timing, err := ResolveTiming(cfg.BitRate, sampleRate, cfg.TransmissionMode)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		channel:    ch,
		config:     cfg,
		timing:     timing,
		sampleRate: sampleRate,
		codec:      newCodec(ch, cfg.TransmissionMode, timing),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	debugf("analyzer: mode=%s addressing=%s half-period=%d samples",
		cfg.TransmissionMode, cfg.AddressingMode, timing.HalfPeriod)
	return a, nil
}

// Config returns the configuration the analyzer was created with
func (a *Analyzer) Config() Config {
	return a.config
}

// Timing returns the derived timing constants
func (a *Analyzer) Timing() Timing {
	return a.timing
}

// SampleRate returns the channel sample rate
func (a *Analyzer) SampleRate() uint32 {
	return a.sampleRate
}

// Run decodes frames until the channel runs out of samples or ctx is
// cancelled. Cancellation is only observed between frames. Running out of
// samples is a normal end and returns nil.
func (a *Analyzer) Run(ctx context.Context) error {
	for {
		fr, err := a.ProcessFrame()
		if err != nil {
			if IsEndOfSamples(err) {
				debugf("analyzer: end of samples after %d frames", a.frames)
				return nil
			}
			return err
		}

		if err := a.commit(fr); err != nil {
			return err
		}
		a.reportProgress(fr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (a *Analyzer) commit(fr *Frame) error {
	for _, r := range a.results {
		if err := r.Commit(fr); err != nil {
			return fmt.Errorf("commit frame %d: %w", fr.Sequence, err)
		}
	}
	return nil
}

func (a *Analyzer) reportProgress(fr *Frame) {
	if a.onProgress == nil {
		return
	}
	a.onProgress(Progress{
		Sample: a.channel.SampleNumber(),
		Frames: a.frames,
		Status: fr.Status,
	})
}

// ProcessFrame runs one processing cycle and returns what it decoded.
// A cycle that ends in line idle returns a frame with StatusIdle.
func (a *Analyzer) ProcessFrame() (*Frame, error) {
	if err := a.prepare(); err != nil {
		return nil, err
	}

	fc := newFrameContext()
	fc.transition(StateReadingFlags)

	first, err := a.codec.processFlags(fc)
	if err != nil {
		return nil, err
	}
	earlyAbort := fc.aborted

	if !fc.aborted {
		fc.transition(StateReadingAddress)
		if err := a.processAddress(fc, first); err != nil {
			return nil, err
		}
	}

	if !fc.aborted && !fc.foundEndFlag {
		fc.transition(StateReadingInformation)
		if err := a.processInformation(fc); err != nil {
			return nil, err
		}
	} else if !fc.aborted {
		// the closing flag came right after the first byte
		fc.transition(StateReadingChecksum)
		fc.status = StatusTruncated
	}

	switch {
	case fc.aborted:
		fc.transition(StateAborted)
		fc.status = StatusIdle
		if !earlyAbort {
			fc.emit(fc.abortField)
			fc.status = StatusAborted
		}
		a.resyncPending = true
	default:
		if fc.hasEndFlag {
			fc.emit(fc.endFlag)
		}
		fc.transition(StateCommitted)
	}

	fr := fc.toFrame(a.frames)
	a.frames++
	debugf("frame %d: %s, %d fields", fr.Sequence, fr.Status, len(fr.Fields))
	return fr, nil
}

func (a *Analyzer) prepare() error {
	if !a.synced {
		if err := a.codec.sync(); err != nil {
			return err
		}
		a.synced = true
	}
	if a.resyncPending {
		if err := a.codec.afterAbort(); err != nil {
			return err
		}
		a.resyncPending = false
	}
	return nil
}

// processAddress emits the address fields. SOF addressing is the SOH
// octet followed by the same combined read as extended addressing.
func (a *Analyzer) processAddress(fc *frameContext, first decodedByte) error {
	second, err := a.codec.readByte(fc)
	if err != nil {
		return err
	}
	if fc.aborted {
		return nil
	}

	if fc.foundEndFlag {
		a.emitSingleAddressByte(fc, first)
		fc.setEndFlag(second)
		return nil
	}

	fc.hasAddress = true
	switch a.config.AddressingMode {
	case AddressSOF:
		fc.emit(Field{Kind: FieldSOH, Start: first.start, End: first.end, Data1: uint64(first.value), Flags: first.flags()})
		fc.address = uint64(first.value)<<8 | uint64(second.value)
		fc.emit(Field{Kind: FieldAddress, Start: second.start, End: second.end, Data1: fc.address, Flags: second.flags()})
	case AddressExtended:
		fc.address = uint64(first.value)<<8 | uint64(second.value)
		fc.emit(Field{
			Kind:  FieldAddress,
			Start: first.start,
			End:   second.end,
			Data1: fc.address,
			Flags: first.flags() | second.flags(),
		})
	case AddressReserved:
		fc.address = uint64(first.value)
		fc.emit(Field{Kind: FieldAddress, Start: first.start, End: first.end, Data1: fc.address, Flags: first.flags()})
		fc.emit(Field{Kind: FieldReserved, Start: second.start, End: second.end, Data1: uint64(second.value), Flags: second.flags()})
	}
	return nil
}

// emitSingleAddressByte handles a frame that closes after one byte
func (a *Analyzer) emitSingleAddressByte(fc *frameContext, b decodedByte) {
	kind := FieldAddress
	if a.config.AddressingMode == AddressSOF {
		kind = FieldSOH
	}
	fc.emit(Field{Kind: kind, Start: b.start, End: b.end, Data1: uint64(b.value), Flags: b.flags()})
}

// processInformation reads bytes up to the closing flag or an abort. The
// last two bytes before the flag are the frame check sequence.
func (a *Analyzer) processInformation(fc *frameContext) error {
	var collected []decodedByte
	for {
		b, err := a.codec.readByte(fc)
		if err != nil {
			return err
		}
		if fc.aborted {
			break
		}
		if fc.foundEndFlag {
			fc.setEndFlag(b)
			break
		}
		collected = append(collected, b)
	}

	info := collected
	var fcs []decodedByte
	if !fc.aborted && len(collected) >= frame.FCSLength {
		info = collected[:len(collected)-frame.FCSLength]
		fcs = collected[len(collected)-frame.FCSLength:]
	}

	for i, b := range info {
		fc.emit(Field{
			Kind:  FieldInformation,
			Start: b.start,
			End:   b.end,
			Data1: uint64(b.value),
			Data2: uint64(i),
			Flags: b.flags(),
		})
		fc.information = append(fc.information, b.value)
	}

	if fc.aborted {
		return nil
	}

	fc.transition(StateReadingChecksum)
	if fcs == nil {
		fc.status = StatusTruncated
		return nil
	}
	a.verifyChecksum(fc, fcs)
	return nil
}

func (*Analyzer) verifyChecksum(fc *frameContext, fcs []decodedByte) {
	read, computed, ok := frame.VerifyFCS(fc.raw)
	fc.hasFCS = true

	field := Field{
		Kind:  FieldFCS,
		Start: fcs[0].start,
		End:   fcs[1].end,
		Data1: read,
		Data2: computed,
	}
	if !ok {
		field.Flags |= FieldError
		fc.emit(field)
		fc.mark(field.End, MarkerErrorX)
		fc.status = StatusChecksumError
		return
	}
	fc.emit(field)
	fc.status = StatusOK
}
