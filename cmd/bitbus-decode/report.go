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
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	bitbus "github.com/ZaparooProject/go-bitbus"
)

var reportHeader = []string{"Time[s]", "Address", "Information", "FCS"}

// Report writes one CSV row per frame that carries a complete address
type Report struct {
	w          *csv.Writer
	addressing bitbus.AddressingMode
	sampleRate uint32
	rows       int
}

var _ bitbus.Results = (*Report)(nil)

// NewReport writes the header row and returns the report
func NewReport(w io.Writer, addressing bitbus.AddressingMode, sampleRate uint32) (*Report, error) {
	r := &Report{w: csv.NewWriter(w), addressing: addressing, sampleRate: sampleRate}
	if err := r.w.Write(reportHeader); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	return r, nil
}

// Commit appends a row. Frames whose address was cut short are dropped.
func (r *Report) Commit(frame *bitbus.Frame) error {
	address, ok := frame.Field(bitbus.FieldAddress)
	if !ok || !frame.HasAddress {
		return nil
	}

	start := address.Start
	if soh, hasSOH := frame.Field(bitbus.FieldSOH); hasSOH {
		start = soh.Start
	}

	info := make([]string, 0, len(frame.Information))
	for _, f := range frame.FieldsOfKind(bitbus.FieldInformation) {
		info = append(info, hexByte(f, 2))
	}

	var fcs string
	if f, hasFCS := frame.Field(bitbus.FieldFCS); hasFCS {
		fcs = fmt.Sprintf("0x%04X", f.Data1)
	}

	width := 4
	if r.addressing == bitbus.AddressReserved {
		width = 2
	}

	row := []string{
		fmt.Sprintf("%.9f", float64(start)/float64(r.sampleRate)),
		hexByte(address, width),
		strings.Join(info, " "),
		fcs,
	}
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("failed to write report row: %w", err)
	}
	r.rows++
	return nil
}

// Rows returns the number of rows written, not counting the header
func (r *Report) Rows() int {
	return r.rows
}

// Flush writes buffered rows to the underlying writer
func (r *Report) Flush() error {
	r.w.Flush()
	return r.w.Error()
}

// hexByte renders a field value; escaped values carry the escape prefix
func hexByte(f bitbus.Field, width int) string {
	s := fmt.Sprintf("0x%0*X", width, f.Data1)
	if f.Escaped() {
		return "0x7F-" + s
	}
	return s
}
