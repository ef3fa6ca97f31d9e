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

import "math"

// Timing holds the sample counts derived from the bit rate and sample rate.
// One half-period is the length of one bit cell on the line.
type Timing struct {
	HalfPeriod uint64
	Flag       uint64
	Abort      uint64
	Byte       uint64
}

// ResolveTiming derives the timing constants for a run
func ResolveTiming(bitRate, sampleRate uint32, mode TransmissionMode) (Timing, error) {
	if bitRate == 0 {
		return Timing{}, NewConfigError("bit_rate", bitRate, ErrInvalidBitRate)
	}

	half := uint64(math.Round(float64(sampleRate) / float64(bitRate) / 2))
	if half == 0 {
		return Timing{}, NewConfigError("sample_rate", sampleRate, ErrSampleRateTooLow)
	}

	flagCells := uint64(7)
	if mode == BitSyncNRZ {
		// 0111111x: the high run is one cell shorter than the NRZI constant run
		flagCells = 6
	}

	return Timing{
		HalfPeriod: half,
		Flag:       half * flagCells,
		Abort:      half * 7,
		Byte:       half * 8,
	}, nil
}

func (t Timing) half() float64 {
	return float64(t.HalfPeriod)
}
