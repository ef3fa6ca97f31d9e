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

package frame

import (
	"github.com/sigurn/crc16"
)

// X.25 shares the MCRF4XX register and only differs by the final inversion.
var crcTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// Crc16 computes the BITBUS frame check sequence over data. The result is
// ordered the way it is transmitted: low byte first.
func Crc16(data []byte) [2]byte {
	crc := crc16.Init(crcTable)
	crc = crc16.Update(crc, data, crcTable)
	crc = crc16.Complete(crc, crcTable) ^ 0xffff
	return [2]byte{byte(crc), byte(crc >> 8)}
}

// FCSValue folds a two byte check sequence into the value shown for FCS
// fields, first byte most significant.
func FCSValue(fcs [2]byte) uint64 {
	return uint64(fcs[0])<<8 | uint64(fcs[1])
}

// VerifyFCS checks the trailing two bytes of payload against the checksum
// of everything before them. It returns the read and computed values.
func VerifyFCS(payload []byte) (read, computed uint64, ok bool) {
	if len(payload) < FCSLength {
		return 0, 0, false
	}
	body := payload[:len(payload)-FCSLength]
	want := Crc16(body)
	got := [2]byte{payload[len(payload)-2], payload[len(payload)-1]}
	return FCSValue(got), FCSValue(want), got == want
}
