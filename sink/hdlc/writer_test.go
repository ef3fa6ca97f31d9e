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

package hdlc_test

import (
	"bytes"
	"errors"
	"testing"

	bitbus "github.com/ZaparooProject/go-bitbus"
	testutil "github.com/ZaparooProject/go-bitbus/internal/testing"
	"github.com/ZaparooProject/go-bitbus/sink/hdlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEncapsulatesVerifiedFrames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := hdlc.NewWriter(&buf, "buffer", false)

	frames := []*bitbus.Frame{
		{Status: bitbus.StatusOK, HasAddress: true, Payload: []byte{0x01, 0x05, 0x7E, 0x7D, 0x42}},
		{Status: bitbus.StatusChecksumError, HasAddress: true, Payload: []byte{0x01, 0x06}},
		{Status: bitbus.StatusAborted, HasAddress: true, Payload: []byte{0x01, 0x07}},
		{Status: bitbus.StatusIdle},
		{Status: bitbus.StatusOK, HasAddress: true, Payload: []byte{0x20, 0x01}},
	}
	for _, fr := range frames {
		require.NoError(t, w.Commit(fr))
	}
	assert.Equal(t, 2, w.Written())

	decoded, err := testutil.ReadHDLCFrames(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i, expected := range [][]byte{{0x01, 0x05, 0x7E, 0x7D, 0x42}, {0x20, 0x01}} {
		assert.False(t, decoded[i].HasAddressCtrlPrefix)
		assert.Equal(t, expected, decoded[i].Payload)
	}
}

func TestWriterAddressControlPrefix(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := hdlc.NewWriter(&buf, "buffer", true)
	require.NoError(t, w.Commit(&bitbus.Frame{Status: bitbus.StatusOK, Payload: []byte{0x05, 0x33, 0x01}}))

	decoded, err := testutil.ReadHDLCFrames(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.True(t, decoded[0].HasAddressCtrlPrefix)
	assert.Equal(t, []byte{0x05, 0x33, 0x01}, decoded[0].Payload)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriterError(t *testing.T) {
	t.Parallel()

	w := hdlc.NewWriter(failingWriter{}, "frames.hdlc", false)
	err := w.Commit(&bitbus.Frame{Status: bitbus.StatusOK, Payload: []byte{0x01, 0x02}})

	var captureErr *bitbus.CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.Equal(t, "frames.hdlc", captureErr.Source)
	assert.Zero(t, w.Written())
}
