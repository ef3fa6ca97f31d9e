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

package main

import (
	"fmt"
	"io"
	"strings"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/fatih/color"
)

// Output handles consistent formatting of messages and decoded frames
type Output struct {
	w          io.Writer
	ok         *color.Color
	warn       *color.Color
	fail       *color.Color
	dim        *color.Color
	counts     map[bitbus.Status]int
	sampleRate uint32
	verbose    bool
}

var _ bitbus.Results = (*Output)(nil)

// NewOutput creates a new output handler writing to w
func NewOutput(w io.Writer, verbose, noColor bool) *Output {
	o := &Output{
		w:       w,
		verbose: verbose,
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
		dim:     color.New(color.Faint),
		counts:  make(map[bitbus.Status]int),
	}
	if noColor {
		for _, c := range []*color.Color{o.ok, o.warn, o.fail, o.dim} {
			c.DisableColor()
		}
	}
	return o
}

// SetSampleRate enables timestamps in seconds
func (o *Output) SetSampleRate(rate uint32) {
	o.sampleRate = rate
}

// Commit prints one line per frame, plus every field in verbose mode.
// Idle cycles are only printed in verbose mode.
func (o *Output) Commit(frame *bitbus.Frame) error {
	o.counts[frame.Status]++
	if !frame.HasAddress && !o.verbose {
		return nil
	}

	c := o.statusColor(frame.Status)
	_, _ = fmt.Fprintf(o.w, "%s %s\n", o.timestamp(frame.Start), c.Sprint(frame.String()))

	if !o.verbose {
		return nil
	}
	for _, f := range frame.Fields {
		line := fmt.Sprintf("    %s  %s", o.timestamp(f.Start), f.Label(true))
		if f.IsError() || f.Kind == bitbus.FieldAbort {
			_, _ = o.fail.Fprintln(o.w, line)
			continue
		}
		_, _ = o.dim.Fprintln(o.w, line)
	}
	return nil
}

func (o *Output) statusColor(s bitbus.Status) *color.Color {
	switch s {
	case bitbus.StatusOK:
		return o.ok
	case bitbus.StatusChecksumError:
		return o.warn
	case bitbus.StatusAborted:
		return o.fail
	default:
		return o.dim
	}
}

func (o *Output) timestamp(sample uint64) string {
	if o.sampleRate == 0 {
		return fmt.Sprintf("@%d", sample)
	}
	return fmt.Sprintf("%.6fs", float64(sample)/float64(o.sampleRate))
}

// Summary prints the frame counts by status
func (o *Output) Summary() {
	statuses := []bitbus.Status{
		bitbus.StatusOK, bitbus.StatusChecksumError, bitbus.StatusAborted, bitbus.StatusTruncated,
	}
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", s, o.counts[s]))
	}
	_, _ = fmt.Fprintf(o.w, "Frames: %s\n", strings.Join(parts, " "))
}

// Error prints an error message
func (o *Output) Error(format string, args ...any) {
	_, _ = o.fail.Fprintf(o.w, "ERROR: "+format+"\n", args...)
}

// Warning prints a warning message
func (o *Output) Warning(format string, args ...any) {
	_, _ = o.warn.Fprintf(o.w, "WARNING: "+format+"\n", args...)
}

// Info prints an info message
func (o *Output) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "INFO: "+format+"\n", args...)
}

// Verbose prints only if verbose mode is enabled
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		_, _ = fmt.Fprintf(o.w, format+"\n", args...)
	}
}
