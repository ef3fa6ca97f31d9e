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

// codec reads BITBUS bytes off a channel for one transmission mode.
// The analyzer selects one implementation at construction time.
type codec interface {
	// sync aligns the cursor before the first frame
	sync() error

	// processFlags runs the interframe flag search, emits the flag fields
	// and returns the first byte after the opening flag. When the search
	// ends in an abort the returned byte is meaningless.
	processFlags(fc *frameContext) (decodedByte, error)

	// readByte reads the next byte of a frame. It sets fc.foundEndFlag on
	// the closing flag and fc.aborted on an abort sequence.
	readByte(fc *frameContext) (decodedByte, error)

	// afterAbort realigns the cursor once an aborted frame is committed
	afterAbort() error
}

func newCodec(ch Channel, mode TransmissionMode, timing Timing) codec {
	if mode == ByteAsync {
		return &byteAsyncCodec{ch: ch, timing: timing}
	}
	return &bitSyncCodec{ch: ch, timing: timing, nrz: mode == BitSyncNRZ}
}

// sampleBefore subtracts n from pos without wrapping below zero
func sampleBefore(pos, n uint64) uint64 {
	if pos < n {
		return 0
	}
	return pos - n
}

// sampleAfter adds a fractional sample count to pos, truncating the result
func sampleAfter(pos uint64, n float64) uint64 {
	return uint64(float64(pos) + n)
}
