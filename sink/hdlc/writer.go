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

// Package hdlc re-encapsulates verified BITBUS frames as RFC 1662
// asynchronous HDLC frames, so they can be replayed into PPP-style tooling
// or inspected with any HDLC decoder.
package hdlc

import (
	"io"
	"sync"

	bitbus "github.com/ZaparooProject/go-bitbus"
	hdlc "github.com/zaninime/go-hdlc"
)

// Writer is a results sink writing one HDLC frame per verified frame
type Writer struct {
	write   func(*hdlc.Frame) (int, error)
	name    string
	written int
	mu      sync.Mutex
	// prefix adds the 0xFF 0x03 address and control bytes
	prefix bool
}

var _ bitbus.Results = (*Writer)(nil)

// NewWriter encodes to w. name identifies w in errors.
func NewWriter(w io.Writer, name string, addressCtrlPrefix bool) *Writer {
	return &Writer{
		write:  hdlc.NewEncoder(w).WriteFrame,
		name:   name,
		prefix: addressCtrlPrefix,
	}
}

// Commit writes the frame's address and information bytes when its checksum
// matched. Other cycles are skipped.
func (w *Writer) Commit(frame *bitbus.Frame) error {
	if frame.Status != bitbus.StatusOK || len(frame.Payload) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.write(hdlc.Encapsulate(frame.Payload, w.prefix)); err != nil {
		return bitbus.NewCaptureError("write hdlc", w.name, err)
	}
	w.written++
	return nil
}

// Written returns the number of frames written
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
