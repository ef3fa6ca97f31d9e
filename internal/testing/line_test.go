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

package testing_test

import (
	"testing"

	bitbus "github.com/ZaparooProject/go-bitbus"
	testutil "github.com/ZaparooProject/go-bitbus/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineNRZIFlag(t *testing.T) {
	t.Parallel()

	l := testutil.NewLine().Hold(2).NRZIFlag()
	c := l.Capture()
	require.NoError(t, c.Validate())
	assert.Equal(t, []uint64{32, 144}, c.Edges)
	assert.Equal(t, uint64(160), l.Position())
}

func TestLineNRZIStuffing(t *testing.T) {
	t.Parallel()

	// five 1 bits then a stuffed 0, then three more 1 bits
	c := testutil.NewLine().NRZIBytes(0xFF).Capture()
	assert.Equal(t, []uint64{80}, c.Edges)
	assert.Equal(t, uint64(9*16+1), c.Length)
}

func TestLineNRZ(t *testing.T) {
	t.Parallel()

	c := testutil.NewLine().NRZFlag().Zero().NRZBytes(0x01).Capture()
	levels := []bitbus.BitState{bitbus.Low, bitbus.High, bitbus.High, bitbus.High, bitbus.High, bitbus.High, bitbus.High, bitbus.Low, bitbus.High, bitbus.Low}
	for i, want := range levels {
		assert.Equal(t, want, c.LevelAt(uint64(i*16+8)), "cell %d", i)
	}
}

func TestLineAsyncChars(t *testing.T) {
	t.Parallel()

	l := testutil.NewLineWithCell(1000, 4, bitbus.High)
	c := l.AsyncChars(0x01).Capture()
	// idle, start, bit0=1, bits 1-7=0, stop
	assert.Equal(t, []uint64{4, 8, 12, 40}, c.Edges)
	assert.Equal(t, uint64(4), l.Cell())
}
