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

package signal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/klauspost/compress/zstd"
)

// Capture file layout: magic, uvarint sample rate, level byte, uvarint
// length, uvarint edge count, then uvarint deltas between edges.
var captureMagic = []byte("BBC1")

// maxEdges bounds the edge count read from a file header
const maxEdges = 1 << 32

// Write encodes c to w
func Write(w io.Writer, c *Capture) error {
	if err := c.Validate(); err != nil {
		return err
	}

	buf := make([]byte, 0, 32+len(c.Edges)*2)
	buf = append(buf, captureMagic...)
	buf = binary.AppendUvarint(buf, uint64(c.SampleRate))
	buf = append(buf, byte(c.Initial))
	buf = binary.AppendUvarint(buf, c.Length)
	buf = binary.AppendUvarint(buf, uint64(len(c.Edges)))

	var prev uint64
	for _, e := range c.Edges {
		buf = binary.AppendUvarint(buf, e-prev)
		prev = e
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write capture: %w", err)
	}
	return nil
}

// Read decodes a capture written by Write
func Read(r io.Reader) (*Capture, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(captureMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("%w: %w", bitbus.ErrCaptureFormat, err)
	}
	if !bytes.Equal(magic, captureMagic) {
		return nil, fmt.Errorf("%w: bad magic %q", bitbus.ErrCaptureFormat, magic)
	}

	rate, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, headerError("sample rate", err)
	}
	level, err := br.ReadByte()
	if err != nil {
		return nil, headerError("initial level", err)
	}
	length, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, headerError("length", err)
	}
	count, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, headerError("edge count", err)
	}
	if rate > uint64(^uint32(0)) || level > byte(bitbus.High) || count > maxEdges || count > length {
		return nil, fmt.Errorf("%w: header out of range", bitbus.ErrCaptureFormat)
	}

	c := &Capture{
		SampleRate: uint32(rate),
		Initial:    bitbus.BitState(level),
		Length:     length,
		Edges:      make([]uint64, 0, count),
	}
	var prev uint64
	for i := uint64(0); i < count; i++ {
		delta, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, headerError("edge", err)
		}
		prev += delta
		c.Edges = append(c.Edges, prev)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func headerError(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: %w", bitbus.ErrCaptureFormat, what, err)
}

// IsCompressedName reports whether a capture file name asks for zstd
func IsCompressedName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zst")
}

// WriteFile stores c at path, zstd compressed when path ends in .zst
func WriteFile(path string, c *Capture) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return bitbus.NewCaptureError("create", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = bitbus.NewCaptureError("close", path, closeErr)
		}
	}()

	if !IsCompressedName(path) {
		return Write(f, c)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return bitbus.NewCaptureError("compress", path, err)
	}
	if err := Write(enc, c); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return bitbus.NewCaptureError("compress", path, err)
	}
	return nil
}

// ReadFile loads a capture written by WriteFile
func ReadFile(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, bitbus.NewCaptureError("open", path, err)
	}
	defer func() { _ = f.Close() }()

	if !IsCompressedName(path) {
		return Read(f)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, bitbus.NewCaptureError("decompress", path, err)
	}
	defer dec.Close()
	return Read(dec)
}
