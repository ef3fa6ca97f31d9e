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

package bitbus_test

import (
	"context"
	"errors"
	"testing"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/internal/frame"
	testutil "github.com/ZaparooProject/go-bitbus/internal/testing"
	"github.com/ZaparooProject/go-bitbus/signal"
	"github.com/ZaparooProject/go-bitbus/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func config(mode bitbus.TransmissionMode, addr bitbus.AddressingMode) bitbus.Config {
	cfg := bitbus.DefaultConfig()
	cfg.TransmissionMode = mode
	cfg.AddressingMode = addr
	return cfg
}

func runCapture(t *testing.T, cfg bitbus.Config, c *signal.Capture) []*bitbus.Frame {
	t.Helper()
	results := bitbus.NewMemoryResults()
	a, err := bitbus.NewAnalyzer(c.Cursor(), cfg, c.SampleRate, bitbus.WithResults(results))
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))
	return results.Frames()
}

func fieldKinds(fr *bitbus.Frame) []bitbus.FieldKind {
	var out []bitbus.FieldKind
	for _, f := range fr.Fields {
		out = append(out, f.Kind)
	}
	return out
}

func withFCS(data ...byte) []byte {
	fcs := frame.Crc16(data)
	return append(data, fcs[0], fcs[1])
}

func TestNewAnalyzer(t *testing.T) {
	t.Parallel()

	c := testutil.NewLine().Hold(4).Capture()
	tests := []struct {
		wantErr    error
		ch         bitbus.Channel
		name       string
		opts       []bitbus.Option
		cfg        bitbus.Config
		sampleRate uint32
	}{
		{
			name:       "valid",
			ch:         c.Cursor(),
			cfg:        bitbus.DefaultConfig(),
			sampleRate: testutil.DefaultSampleRate,
		},
		{
			name:       "no channel",
			cfg:        bitbus.DefaultConfig(),
			sampleRate: testutil.DefaultSampleRate,
			wantErr:    bitbus.ErrNoChannel,
		},
		{
			name:       "bad transmission mode",
			ch:         c.Cursor(),
			cfg:        bitbus.Config{BitRate: 62500, TransmissionMode: 9},
			sampleRate: testutil.DefaultSampleRate,
			wantErr:    bitbus.ErrInvalidTransmissionMode,
		},
		{
			name:       "sample rate below four times bit rate",
			ch:         c.Cursor(),
			cfg:        bitbus.DefaultConfig(),
			sampleRate: 249_999,
			wantErr:    bitbus.ErrSampleRateTooLow,
		},
		{
			name:       "nil results",
			ch:         c.Cursor(),
			cfg:        bitbus.DefaultConfig(),
			sampleRate: testutil.DefaultSampleRate,
			opts:       []bitbus.Option{bitbus.WithResults(nil)},
			wantErr:    bitbus.ErrNilResults,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := bitbus.NewAnalyzer(tt.ch, tt.cfg, tt.sampleRate, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg, a.Config())
			assert.Equal(t, uint64(testutil.DefaultCell), a.Timing().HalfPeriod)
			assert.Equal(t, tt.sampleRate, a.SampleRate())
		})
	}
}

func TestAnalyzerEmptyCapture(t *testing.T) {
	t.Parallel()

	c := testutil.NewLine().Hold(10).Capture()
	a, err := bitbus.NewAnalyzer(c.Cursor(), bitbus.DefaultConfig(), c.SampleRate)
	require.NoError(t, err)

	_, err = a.ProcessFrame()
	require.ErrorIs(t, err, bitbus.ErrEndOfSamples)
	require.NoError(t, a.Run(context.Background()), "running out of samples ends a run cleanly")
}

func TestAnalyzerSingleByteFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line *testutil.Line
		name string
		mode bitbus.TransmissionMode
	}{
		{
			name: "nrzi",
			mode: bitbus.BitSyncNRZI,
			line: testutil.NewLine().Hold(8).NRZIFlag().NRZIFlag().NRZIBytes(0x01).NRZIFlag().NRZIFlag().Hold(20),
		},
		{
			name: "nrz",
			mode: bitbus.BitSyncNRZ,
			line: testutil.NewLine().Hold(8).NRZFlag().NRZFlag().Zero().NRZBytes(0x01).NRZFlag().NRZFlag().Level(bitbus.Low, 4),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frames := runCapture(t, config(tt.mode, bitbus.AddressSOF), tt.line.Capture())
			require.NotEmpty(t, frames)

			fr := frames[0]
			assert.Equal(t, bitbus.StatusTruncated, fr.Status)
			assert.Equal(t, bitbus.StateCommitted, fr.State)
			assert.False(t, fr.HasAddress)
			assert.Equal(t, []bitbus.FieldKind{
				bitbus.FieldFlag, bitbus.FieldFlag, bitbus.FieldSOH, bitbus.FieldFlag,
			}, fieldKinds(fr))
			assert.Equal(t, bitbus.FlagStart, fr.Fields[1].FlagType())
			assert.Equal(t, uint64(0x01), fr.Fields[2].Data1)
			assert.Equal(t, bitbus.FlagEnd, fr.Fields[3].FlagType())
			assert.Empty(t, fr.Markers)
		})
	}
}

func TestAnalyzerFrameWithoutChecksum(t *testing.T) {
	t.Parallel()

	line := testutil.NewLine().Hold(8).NRZIFlag().NRZIFlag().NRZIBytes(0x01, 0x05).NRZIFlag().Hold(20)
	frames := runCapture(t, config(bitbus.BitSyncNRZI, bitbus.AddressSOF), line.Capture())
	require.NotEmpty(t, frames)

	fr := frames[0]
	assert.Equal(t, bitbus.StatusTruncated, fr.Status)
	assert.True(t, fr.HasAddress)
	assert.Equal(t, uint64(0x0105), fr.Address)
	assert.Equal(t, []byte{0x01, 0x05}, fr.Payload)
	assert.Empty(t, fr.FieldsOfKind(bitbus.FieldFCS), "a short frame is dropped without an error")
	assert.Empty(t, fr.Markers)
	first, ok := fr.Field(bitbus.FieldFlag)
	require.True(t, ok)
	assert.Equal(t, bitbus.FlagFill, first.FlagType())
	assert.Equal(t, bitbus.FlagEnd, fr.Fields[len(fr.Fields)-1].FlagType())
}

func TestAnalyzerIdleAfterFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line      *testutil.Line
		name      string
		mode      bitbus.TransmissionMode
		wantFlags int
	}{
		{
			name:      "nrzi",
			mode:      bitbus.BitSyncNRZI,
			line:      testutil.NewLine().Hold(8).NRZIFlag().NRZIFlag().Hold(30),
			wantFlags: 2,
		},
		{
			// the second flag's high run merges into the idle line
			name:      "nrz",
			mode:      bitbus.BitSyncNRZ,
			line:      testutil.NewLine().Hold(8).NRZFlag().NRZFlag().Level(bitbus.High, 20).Level(bitbus.Low, 4),
			wantFlags: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frames := runCapture(t, config(tt.mode, bitbus.AddressSOF), tt.line.Capture())
			require.Len(t, frames, 1)

			fr := frames[0]
			assert.Equal(t, bitbus.StatusIdle, fr.Status)
			assert.Equal(t, bitbus.StateAborted, fr.State)
			assert.Empty(t, fr.FieldsOfKind(bitbus.FieldAbort), "idle line is not reported as an abort")

			flags := fr.FieldsOfKind(bitbus.FieldFlag)
			require.Len(t, flags, tt.wantFlags)
			for _, f := range flags {
				assert.Equal(t, bitbus.FlagFill, f.FlagType())
			}
		})
	}
}

func TestAnalyzerAbortInsideInformation(t *testing.T) {
	t.Parallel()

	second := withFCS(0x01, 0x06)
	tests := []struct {
		line *testutil.Line
		name string
		mode bitbus.TransmissionMode
	}{
		{
			name: "nrzi",
			mode: bitbus.BitSyncNRZI,
			line: testutil.NewLine().Hold(8).
				NRZIFlag().NRZIFlag().NRZIBytes(0x01, 0x05, 0x33).Hold(14).
				NRZIFlag().NRZIFlag().NRZIBytes(second...).NRZIFlag().Hold(20),
		},
		{
			name: "async",
			mode: bitbus.ByteAsync,
			line: testutil.NewLine().Level(bitbus.High, 4).
				AsyncChars(0x7E, 0x01, 0x05, 0x33, 0x7F, 0x7E).
				AsyncChars(0x7E).AsyncChars(second...).AsyncChars(0x7E).Hold(10),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frames := runCapture(t, config(tt.mode, bitbus.AddressSOF), tt.line.Capture())
			require.GreaterOrEqual(t, len(frames), 2)

			aborted := frames[0]
			assert.Equal(t, bitbus.StatusAborted, aborted.Status)
			assert.Equal(t, uint64(0x0105), aborted.Address)
			assert.Equal(t, []byte{0x33}, aborted.Information)
			assert.Equal(t, []byte{0x01, 0x05, 0x33}, aborted.Payload, "aborted frames keep every data byte")
			assert.Empty(t, aborted.FieldsOfKind(bitbus.FieldFCS))
			abort, ok := aborted.Field(bitbus.FieldAbort)
			require.True(t, ok)
			assert.Equal(t, "ABORT!", abort.Label(false))
			last := aborted.Fields[len(aborted.Fields)-1]
			assert.Equal(t, bitbus.FieldAbort, last.Kind, "the abort closes the frame")

			next := frames[1]
			assert.Equal(t, bitbus.StatusOK, next.Status, "decoding resumes after the abort")
			assert.Equal(t, uint64(0x0106), next.Address)
			assert.Equal(t, []byte{0x01, 0x06}, next.Payload)
		})
	}
}

func TestAnalyzerAsyncNoiseBeforeFlag(t *testing.T) {
	t.Parallel()

	line := testutil.NewLine().Level(bitbus.High, 4).
		AsyncChars(0x41, 0x42, 0x7E).
		AsyncChars(withFCS(0x05, 0x06)...).
		AsyncChars(0x7E).Hold(10)
	frames := runCapture(t, config(bitbus.ByteAsync, bitbus.AddressReserved), line.Capture())
	require.Len(t, frames, 1)

	fr := frames[0]
	assert.Equal(t, bitbus.StatusOK, fr.Status)
	assert.Equal(t, []byte{0x05, 0x06}, fr.Payload)
	assert.Equal(t, []bitbus.FieldKind{
		bitbus.FieldFlag, bitbus.FieldAddress, bitbus.FieldReserved, bitbus.FieldFCS, bitbus.FieldFlag,
	}, fieldKinds(fr))
	assert.Equal(t, bitbus.FlagStart, fr.Fields[0].FlagType())
}

func TestAnalyzerAsyncEscapedChecksum(t *testing.T) {
	t.Parallel()

	// the checksum of 00 57 starts with 0x7D, which is sent escaped
	fcs := frame.Crc16([]byte{0x00, 0x57})
	require.Equal(t, [2]byte{0x7D, 0x29}, fcs)

	line := testutil.NewLine().Level(bitbus.High, 4).
		AsyncChars(0x7E, 0x00, 0x57, 0x7F, 0x5D, 0x29, 0x7E).Hold(10)
	frames := runCapture(t, config(bitbus.ByteAsync, bitbus.AddressExtended), line.Capture())
	require.Len(t, frames, 1)

	fr := frames[0]
	assert.Equal(t, bitbus.StatusOK, fr.Status)
	assert.Equal(t, uint64(0x57), fr.Address)
	check, ok := fr.Field(bitbus.FieldFCS)
	require.True(t, ok)
	assert.Equal(t, uint64(0x7D29), check.Data1)
	assert.Equal(t, check.Data1, check.Data2)
	assert.Equal(t, "FCS CRC16 OK", check.Label(true))
}

func TestAnalyzerChecksumMismatch(t *testing.T) {
	t.Parallel()

	payload := withFCS(0x01, 0x05, 0x10)
	payload[2] ^= 0x04
	line := testutil.NewLine().Hold(8).NRZIFlag().NRZIFlag().NRZIBytes(payload...).NRZIFlag().Hold(20)
	frames := runCapture(t, config(bitbus.BitSyncNRZI, bitbus.AddressSOF), line.Capture())
	require.NotEmpty(t, frames)

	fr := frames[0]
	assert.Equal(t, bitbus.StatusChecksumError, fr.Status)
	check, ok := fr.Field(bitbus.FieldFCS)
	require.True(t, ok)
	assert.True(t, check.IsError())
	assert.Equal(t, uint64(payload[3])<<8|uint64(payload[4]), check.Data1)
	assert.NotEqual(t, check.Data1, check.Data2)
	assert.Equal(t, payload[:3], fr.Payload)
	assert.Equal(t, []bitbus.Marker{{Sample: check.End, Type: bitbus.MarkerErrorX}}, fr.Markers)
	assert.Equal(t, "!FCS CRC16", check.Label(false))
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()

	cfg := bitbus.DefaultConfig()
	gen, err := simulation.NewGenerator(cfg, testutil.DefaultSampleRate)
	require.NoError(t, err)
	c := gen.Generate(50_000)

	results := bitbus.NewMemoryResults()
	a, err := bitbus.NewAnalyzer(c.Cursor(), cfg, c.SampleRate, bitbus.WithResults(results))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = a.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results.Frames(), 1, "cancellation is observed between frames")
}

func TestRunProgressAndSinks(t *testing.T) {
	t.Parallel()

	cfg := config(bitbus.BitSyncNRZ, bitbus.AddressExtended)
	gen, err := simulation.NewGenerator(cfg, testutil.DefaultSampleRate)
	require.NoError(t, err)
	c := gen.Generate(30_000)

	var progress []bitbus.Progress
	var committed int
	a, err := bitbus.NewAnalyzer(c.Cursor(), cfg, c.SampleRate,
		bitbus.WithResults(bitbus.ResultsFunc(func(*bitbus.Frame) error {
			committed++
			return nil
		})),
		bitbus.WithProgressCallback(func(p bitbus.Progress) {
			progress = append(progress, p)
		}),
	)
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	require.NotEmpty(t, progress)
	assert.Len(t, progress, committed)
	for i, p := range progress {
		assert.Equal(t, uint64(i+1), p.Frames)
		if i > 0 {
			assert.Greater(t, p.Sample, progress[i-1].Sample)
		}
	}
}

func TestRunStopsOnSinkError(t *testing.T) {
	t.Parallel()

	cfg := bitbus.DefaultConfig()
	gen, err := simulation.NewGenerator(cfg, testutil.DefaultSampleRate)
	require.NoError(t, err)
	c := gen.Generate(30_000)

	errFull := errors.New("sink full")
	a, err := bitbus.NewAnalyzer(c.Cursor(), cfg, c.SampleRate,
		bitbus.WithResults(bitbus.ResultsFunc(func(*bitbus.Frame) error { return errFull })))
	require.NoError(t, err)
	require.ErrorIs(t, a.Run(context.Background()), errFull)
}

func TestRunOnLiveStream(t *testing.T) {
	t.Parallel()

	cfg := config(bitbus.ByteAsync, bitbus.AddressSOF)
	gen, err := simulation.NewGenerator(cfg, testutil.DefaultSampleRate, simulation.WithMaxInformation(8))
	require.NoError(t, err)
	c := gen.Generate(60_000)

	stream := signal.NewStream(c.SampleRate, c.Initial)
	go func() {
		defer stream.Close()
		for _, e := range c.Edges {
			if err := stream.AppendEdge(e); err != nil {
				return
			}
		}
		stream.Extend(c.Length)
	}()

	results := bitbus.NewMemoryResults()
	a, err := bitbus.NewAnalyzer(stream, cfg, c.SampleRate, bitbus.WithResults(results))
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	sent := gen.Transmitted()
	decoded := results.Decoded()
	require.Len(t, decoded, len(sent))
	for i, tx := range sent {
		assert.Equal(t, bitbus.StatusOK, decoded[i].Status)
		assert.Equal(t, tx.Frame.DecodedAddress(cfg.AddressingMode), decoded[i].Address)
	}
}
