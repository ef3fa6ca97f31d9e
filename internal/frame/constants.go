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

// Package frame provides BITBUS wire constants and the frame check sequence
package frame

// Reserved byte values used by the byte asynchronous framing
const (
	FlagValue   = 0x7E // Flag delimiter (01111110)
	EscapeValue = 0x7F // Escape introducer
)

// Flag sub-kinds carried in the Data1 value of flag fields
const (
	FlagStart = 0
	FlagEnd   = 1
	FlagFill  = 2
)

// Bit-synchronous framing limits
const (
	MaxConsecutiveOnes = 5 // A sixth 1 bit is never data
	BitsPerByte        = 8
	FCSLength          = 2
)

// EscapeMask is XORed into escaped bytes
const EscapeMask = 0x20

// Bit5Inv toggles bit 5 of value. It converts between a reserved byte and
// its escaped representation in both directions.
func Bit5Inv(value byte) byte {
	return value ^ EscapeMask
}

// NeedsEscape reports whether value must be escaped inside a byte
// asynchronous frame.
func NeedsEscape(value byte) bool {
	switch value {
	case FlagValue, EscapeValue, 0x7D:
		return true
	default:
		return false
	}
}
