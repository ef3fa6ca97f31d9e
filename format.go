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

// Label renders a field for display. The short form fits in a narrow
// bubble; the verbose form includes values and escape details.
func (f Field) Label(verbose bool) string {
	switch f.Kind {
	case FieldFlag:
		if !verbose {
			return "FLAG"
		}
		return f.FlagType().String() + " Flag Delimiter"
	case FieldSOH:
		if !verbose {
			return "SOH"
		}
		return "Start Of Header " + numberInfo(f.Data1) + escapedInfo(f)
	case FieldAddress:
		if !verbose {
			return "ADDR"
		}
		return "Address " + numberInfo(f.Data1) + escapedInfo(f)
	case FieldReserved:
		if !verbose {
			return "RSVD"
		}
		return "Reserved " + numberInfo(f.Data1) + escapedInfo(f)
	case FieldInformation:
		if !verbose {
			return fmt.Sprintf("I %d", f.Data2)
		}
		return fmt.Sprintf("Info %d (%s)%s", f.Data2, numberInfo(f.Data1), escapedInfo(f))
	case FieldFCS:
		return fcsLabel(f, verbose)
	case FieldAbort:
		if !verbose {
			return "ABORT!"
		}
		return "ABORT SEQUENCE!"
	default:
		return f.Kind.String()
	}
}

func numberInfo(v uint64) string {
	return fmt.Sprintf("%d [0x%02X]", v, v)
}

func escapedInfo(f Field) string {
	if !f.Escaped() {
		return ""
	}
	return fmt.Sprintf(" - ESCAPED: 0x%02X-0x%02X=0x%02X",
		frame.EscapeValue, frame.Bit5Inv(byte(f.Data1)), byte(f.Data1))
}

func fcsLabel(f Field, verbose bool) string {
	name := "FCS CRC16"
	if f.IsError() {
		name = "!" + name
	}
	if !verbose {
		return name
	}
	if !f.IsError() {
		return name + " OK"
	}
	return fmt.Sprintf("%s ERROR - CALC CRC[0x%04X] != READ CRC[0x%04X]", name, f.Data2, f.Data1)
}

// String returns a one line summary of the frame
func (f *Frame) String() string {
	if !f.HasAddress {
		return fmt.Sprintf("#%d %s", f.Sequence, f.Status)
	}
	return fmt.Sprintf("#%d %s address=0x%X info=% X", f.Sequence, f.Status, f.Address, f.Information)
}
