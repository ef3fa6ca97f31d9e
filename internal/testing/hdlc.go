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


package testing

import (
	"errors"
	"io"

	hdlc "github.com/zaninime/go-hdlc"
)

// ReadHDLCFrames decodes every frame in r until EOF. Each frame carries its
// own opening and closing flag, so the empty stretch between two adjacent
// flags is skipped.
func ReadHDLCFrames(r io.Reader) ([]*hdlc.Frame, error) {
	dec := hdlc.NewDecoder(r)
	var frames []*hdlc.Frame
	for {
		fr, err := dec.ReadFrame()
		switch {
		case errors.Is(err, hdlc.ErrEmptyFrame):
			continue
		case errors.Is(err, io.EOF):
			return frames, nil
		case err != nil:
			return frames, err
		}
		frames = append(frames, fr)
	}
}
