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

// Command bitbus-sim synthesizes a BITBUS capture file for testing decoders
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/signal"
	"github.com/ZaparooProject/go-bitbus/simulation"
	"github.com/fatih/color"
)

type config struct {
	output       string
	mode         string
	addressing   string
	frames       []string
	bitRate      uint
	sampleRate   uint
	samples      uint64
	seed         int64
	maxInfo      int
	abortEvery   int
	corruptEvery int
	debug        bool
}

func main() {
	if run(os.Args[1:], os.Stdout) != 0 {
		os.Exit(1)
	}
}

func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("bitbus-sim", flag.ContinueOnError)
	cfg := &config{}
	fs.StringVar(&cfg.output, "o", "capture.bbc", "Output capture file (.bbc, or .bbc.zst for compressed)")
	fs.StringVar(&cfg.mode, "mode", "nrzi", "Transmission mode: nrzi, nrz or async")
	fs.StringVar(&cfg.addressing, "addressing", "sof", "Addressing mode: sof, extended or reserved")
	fs.UintVar(&cfg.bitRate, "bit-rate", bitbus.DefaultBitRate, "Bus bit rate")
	fs.UintVar(&cfg.sampleRate, "sample-rate", 2_000_000, "Sample rate in Hz")
	fs.Uint64Var(&cfg.samples, "samples", 2_000_000, "Number of samples to generate")
	fs.Int64Var(&cfg.seed, "seed", simulation.DefaultSeed, "Random seed")
	fs.IntVar(&cfg.maxInfo, "max-info", simulation.DefaultMaxInformation, "Maximum information bytes per generated frame")
	fs.IntVar(&cfg.abortEvery, "abort-every", 0, "Abort every Nth frame")
	fs.IntVar(&cfg.corruptEvery, "corrupt-every", 0, "Corrupt the checksum of every Nth frame")
	fs.BoolVar(&cfg.debug, "debug", false, "Enable debug output")
	fs.Func("frame", "Explicit frame as ADDRESS[:HEXINFO], repeatable (e.g., 0x0105:0102)", func(s string) error {
		cfg.frames = append(cfg.frames, s)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFrame reads ADDRESS[:HEXINFO[:RESERVED]]
func parseFrame(s string) (simulation.LogicalFrame, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return simulation.LogicalFrame{}, fmt.Errorf("invalid frame %q", s)
	}
	addr, err := strconv.ParseUint(parts[0], 0, 16)
	if err != nil {
		return simulation.LogicalFrame{}, fmt.Errorf("invalid frame address %q: %w", parts[0], err)
	}
	fr := simulation.LogicalFrame{Address: uint16(addr)}
	if len(parts) > 1 && parts[1] != "" {
		if fr.Information, err = hex.DecodeString(parts[1]); err != nil {
			return simulation.LogicalFrame{}, fmt.Errorf("invalid frame information %q: %w", parts[1], err)
		}
	}
	if len(parts) > 2 {
		rsvd, err := strconv.ParseUint(parts[2], 0, 8)
		if err != nil {
			return simulation.LogicalFrame{}, fmt.Errorf("invalid reserved byte %q: %w", parts[2], err)
		}
		fr.Reserved = byte(rsvd)
	}
	return fr, nil
}

func buildGenerator(cfg *config) (*simulation.Generator, error) {
	mode, err := bitbus.ParseTransmissionMode(cfg.mode)
	if err != nil {
		return nil, err
	}
	addressing, err := bitbus.ParseAddressingMode(cfg.addressing)
	if err != nil {
		return nil, err
	}
	if cfg.bitRate > bitbus.MaxBitRate {
		return nil, bitbus.NewConfigError("bit_rate", cfg.bitRate, bitbus.ErrInvalidBitRate)
	}
	if cfg.sampleRate > uint(^uint32(0)) {
		return nil, bitbus.NewConfigError("sample_rate", cfg.sampleRate, bitbus.ErrSampleRateTooLow)
	}

	opts := []simulation.Option{
		simulation.WithSeed(cfg.seed),
		simulation.WithMaxInformation(cfg.maxInfo),
		simulation.WithAbortEvery(cfg.abortEvery),
		simulation.WithCorruptEvery(cfg.corruptEvery),
	}
	if len(cfg.frames) > 0 {
		frames := make([]simulation.LogicalFrame, 0, len(cfg.frames))
		for _, s := range cfg.frames {
			fr, err := parseFrame(s)
			if err != nil {
				return nil, err
			}
			frames = append(frames, fr)
		}
		opts = append(opts, simulation.WithFrames(frames...))
	}

	bus := bitbus.Config{
		BitRate:          uint32(cfg.bitRate), //nolint:gosec // bounded above
		TransmissionMode: mode,
		AddressingMode:   addressing,
	}
	return simulation.NewGenerator(bus, uint32(cfg.sampleRate), opts...) //nolint:gosec // bounded above
}

func run(args []string, stdout io.Writer) int {
	cfg, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	if cfg.debug {
		bitbus.SetDebugEnabled(true)
	}

	gen, err := buildGenerator(cfg)
	if err != nil {
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	capture := gen.Generate(cfg.samples)
	if err := signal.WriteFile(cfg.output, capture); err != nil {
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	sent := gen.Transmitted()
	_, _ = fmt.Fprintf(stdout, "%s: %d samples, %d edges, %d frames (%s)\n",
		cfg.output, capture.Length, len(capture.Edges), len(sent), gen)
	for _, tx := range sent {
		note := ""
		switch {
		case tx.Aborted:
			note = " aborted"
		case tx.Corrupted:
			note = " corrupted"
		}
		_, _ = fmt.Fprintf(stdout, "  @%d address=0x%X info=% X%s\n", tx.Start, tx.Frame.Address, tx.Frame.Information, note)
	}
	return 0
}
