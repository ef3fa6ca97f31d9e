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
	"bytes"
	"testing"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report, err := NewReport(&buf, bitbus.AddressSOF, 1_000_000)
	require.NoError(t, err)

	frames := []*bitbus.Frame{
		{
			HasAddress: true,
			Status:     bitbus.StatusOK,
			Fields: []bitbus.Field{
				{Kind: bitbus.FieldFlag, Start: 100},
				{Kind: bitbus.FieldSOH, Start: 250, Data1: 0x01},
				{Kind: bitbus.FieldAddress, Start: 380, Data1: 0x0101},
				{Kind: bitbus.FieldInformation, Start: 500, Data1: 0x7E, Flags: bitbus.FieldEscaped},
				{Kind: bitbus.FieldInformation, Start: 600, Data1: 0x41, Data2: 1},
				{Kind: bitbus.FieldFCS, Start: 700, Data1: 0xBEEF},
				{Kind: bitbus.FieldFlag, Start: 900},
			},
			Information: []byte{0x7E, 0x41},
		},
		// idle cycle
		{Fields: []bitbus.Field{{Kind: bitbus.FieldFlag, Start: 1000}}},
		// aborted before the address completed
		{Status: bitbus.StatusAborted, Fields: []bitbus.Field{{Kind: bitbus.FieldAbort, Start: 1200}}},
		{
			HasAddress: true,
			Status:     bitbus.StatusTruncated,
			Fields: []bitbus.Field{
				{Kind: bitbus.FieldSOH, Start: 2_000_000, Data1: 0x01},
				{Kind: bitbus.FieldAddress, Start: 2_000_100, Data1: 0x01FF},
			},
		},
	}
	for _, fr := range frames {
		require.NoError(t, report.Commit(fr))
	}
	require.NoError(t, report.Flush())

	assert.Equal(t, 2, report.Rows())
	assert.Equal(t,
		"Time[s],Address,Information,FCS\n"+
			"0.000250000,0x0101,0x7F-0x7E 0x41,0xBEEF\n"+
			"2.000000000,0x01FF,,\n",
		buf.String())
}

func TestReportReservedAddressWidth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report, err := NewReport(&buf, bitbus.AddressReserved, 2_000_000)
	require.NoError(t, err)

	require.NoError(t, report.Commit(&bitbus.Frame{
		HasAddress: true,
		Fields: []bitbus.Field{
			{Kind: bitbus.FieldAddress, Start: 1000, Data1: 0x05},
			{Kind: bitbus.FieldReserved, Start: 1200, Data1: 0x33},
		},
	}))
	require.NoError(t, report.Flush())
	assert.Equal(t, "Time[s],Address,Information,FCS\n0.000500000,0x05,,\n", buf.String())
}
