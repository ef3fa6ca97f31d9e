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
	"fmt"

	"github.com/ZaparooProject/go-bitbus/internal/frame"
)

// FieldKind identifies the part of a BITBUS frame a field covers
type FieldKind uint8

const (
	FieldFlag FieldKind = iota
	FieldSOH
	FieldAddress
	// FieldPacketType is reserved for packet type octets; the decoder never emits it.
	FieldPacketType
	FieldInformation
	FieldFCS
	FieldAbort
	FieldReserved
)

var fieldKindNames = [...]string{
	FieldFlag:        "flag",
	FieldSOH:         "soh",
	FieldAddress:     "address",
	FieldPacketType:  "packet_type",
	FieldInformation: "information",
	FieldFCS:         "fcs",
	FieldAbort:       "abort",
	FieldReserved:    "reserved",
}

func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}
	return fmt.Sprintf("FieldKind(%d)", k)
}

// FlagType is carried in Data1 of flag fields
type FlagType uint64

const (
	FlagStart FlagType = frame.FlagStart
	FlagEnd   FlagType = frame.FlagEnd
	FlagFill  FlagType = frame.FlagFill
)

func (f FlagType) String() string {
	switch f {
	case FlagStart:
		return "Start"
	case FlagEnd:
		return "End"
	case FlagFill:
		return "Fill"
	default:
		return "Invalid"
	}
}

// FieldFlags annotate a field
type FieldFlags uint8

const (
	// FieldEscaped marks a field decoded from a byte-async escape sequence
	FieldEscaped FieldFlags = 1 << 0
	// FieldError marks a field that should be displayed as an error
	FieldError FieldFlags = 1 << 7
)

// Field is one decoded unit of a BITBUS frame. Start and End are inclusive
// absolute sample indices.
type Field struct {
	Start uint64
	End   uint64
	Data1 uint64
	Data2 uint64
	Kind  FieldKind
	Flags FieldFlags
}

// Escaped reports whether the field came from an escape sequence
func (f Field) Escaped() bool {
	return f.Flags&FieldEscaped != 0
}

// IsError reports whether the field carries the error flag
func (f Field) IsError() bool {
	return f.Flags&FieldError != 0
}

// FlagType returns the flag sub-kind of a flag field
func (f Field) FlagType() FlagType {
	return FlagType(f.Data1)
}

// MarkerType identifies an annotation placed on a single sample
type MarkerType uint8

const (
	// MarkerDot marks a removed stuffing bit
	MarkerDot MarkerType = iota
	// MarkerErrorX marks a checksum mismatch
	MarkerErrorX
)

func (m MarkerType) String() string {
	if m == MarkerErrorX {
		return "error"
	}
	return "dot"
}

// Marker is a single-sample annotation
type Marker struct {
	Sample uint64
	Type   MarkerType
}

// decodedByte is one byte as read by a codec
type decodedByte struct {
	start   uint64
	end     uint64
	value   byte
	escaped bool
}

func (b decodedByte) flags() FieldFlags {
	if b.escaped {
		return FieldEscaped
	}
	return 0
}
