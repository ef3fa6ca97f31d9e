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
	"strings"
)

// Bit rate limits accepted by Config.Validate
const (
	MinBitRate     = 1
	MaxBitRate     = 50_000_000
	DefaultBitRate = 62500
)

// TransmissionMode selects the line encoding and framing
type TransmissionMode int

const (
	// BitSyncNRZI is bit synchronous transmission with NRZI line coding and bit stuffing.
	BitSyncNRZI TransmissionMode = iota
	// BitSyncNRZ is bit synchronous transmission with NRZ line coding and bit stuffing.
	BitSyncNRZ
	// ByteAsync is start/stop byte transmission with byte stuffing.
	ByteAsync
)

var transmissionModeNames = map[TransmissionMode]string{
	BitSyncNRZI: "nrzi",
	BitSyncNRZ:  "nrz",
	ByteAsync:   "async",
}

func (m TransmissionMode) String() string {
	if name, ok := transmissionModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TransmissionMode(%d)", int(m))
}

// IsBitSync returns true for the two bit synchronous modes
func (m TransmissionMode) IsBitSync() bool {
	return m == BitSyncNRZI || m == BitSyncNRZ
}

// MarshalText implements encoding.TextMarshaler
func (m TransmissionMode) MarshalText() ([]byte, error) {
	if _, ok := transmissionModeNames[m]; !ok {
		return nil, ErrInvalidTransmissionMode
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *TransmissionMode) UnmarshalText(text []byte) error {
	parsed, err := ParseTransmissionMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseTransmissionMode parses "nrzi", "nrz" or "async" (case-insensitive)
func ParseTransmissionMode(s string) (TransmissionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nrzi", "bitsync", "bit-sync":
		return BitSyncNRZI, nil
	case "nrz":
		return BitSyncNRZ, nil
	case "async", "byteasync", "byte-async":
		return ByteAsync, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTransmissionMode, s)
	}
}

// AddressingMode selects the layout of the bytes following the opening flag
type AddressingMode int

const (
	// AddressSOF is a start-of-header octet followed by an 8-bit address.
	AddressSOF AddressingMode = iota
	// AddressExtended is a 16-bit big-endian address.
	AddressExtended
	// AddressReserved is an 8-bit address followed by an 8-bit reserved octet.
	AddressReserved
)

var addressingModeNames = map[AddressingMode]string{
	AddressSOF:      "sof",
	AddressExtended: "extended",
	AddressReserved: "reserved",
}

func (m AddressingMode) String() string {
	if name, ok := addressingModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("AddressingMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler
func (m AddressingMode) MarshalText() ([]byte, error) {
	if _, ok := addressingModeNames[m]; !ok {
		return nil, ErrInvalidAddressingMode
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *AddressingMode) UnmarshalText(text []byte) error {
	parsed, err := ParseAddressingMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseAddressingMode parses "sof", "extended" or "reserved" (case-insensitive)
func ParseAddressingMode(s string) (AddressingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sof":
		return AddressSOF, nil
	case "extended", "ext":
		return AddressExtended, nil
	case "reserved", "normal", "addr-reserved":
		return AddressReserved, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddressingMode, s)
	}
}

// Config holds the bus parameters for one decode or simulation run
type Config struct {
	Channel          int              `yaml:"channel"`
	BitRate          uint32           `yaml:"bit_rate"`
	TransmissionMode TransmissionMode `yaml:"transmission_mode"`
	AddressingMode   AddressingMode   `yaml:"addressing_mode"`
}

// DefaultConfig returns the default bus configuration: 62500 bit/s, NRZI, SOF
func DefaultConfig() Config {
	return Config{
		Channel:          0,
		BitRate:          DefaultBitRate,
		TransmissionMode: BitSyncNRZI,
		AddressingMode:   AddressSOF,
	}
}

// Validate checks every field of the configuration
func (c Config) Validate() error {
	if c.Channel < 0 {
		return NewConfigError("channel", c.Channel, ErrInvalidChannel)
	}
	if c.BitRate < MinBitRate || c.BitRate > MaxBitRate {
		return NewConfigError("bit_rate", c.BitRate, ErrInvalidBitRate)
	}
	if _, ok := transmissionModeNames[c.TransmissionMode]; !ok {
		return NewConfigError("transmission_mode", int(c.TransmissionMode), ErrInvalidTransmissionMode)
	}
	if _, ok := addressingModeNames[c.AddressingMode]; !ok {
		return NewConfigError("addressing_mode", int(c.AddressingMode), ErrInvalidAddressingMode)
	}
	return nil
}

// MinimumSampleRate returns the lowest sample rate that can resolve the
// configured bit rate
func (c Config) MinimumSampleRate() uint64 {
	return uint64(c.BitRate) * 4
}
