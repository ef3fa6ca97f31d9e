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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		modify  func(*Config)
		name    string
	}{
		{name: "default", modify: func(*Config) {}},
		{name: "negative channel", modify: func(c *Config) { c.Channel = -1 }, wantErr: ErrInvalidChannel},
		{name: "zero bit rate", modify: func(c *Config) { c.BitRate = 0 }, wantErr: ErrInvalidBitRate},
		{name: "bit rate too high", modify: func(c *Config) { c.BitRate = MaxBitRate + 1 }, wantErr: ErrInvalidBitRate},
		{name: "unknown transmission", modify: func(c *Config) { c.TransmissionMode = 3 }, wantErr: ErrInvalidTransmissionMode},
		{name: "unknown addressing", modify: func(c *Config) { c.AddressingMode = -1 }, wantErr: ErrInvalidAddressingMode},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.NotEmpty(t, cfgErr.Field)
		})
	}
}

func TestMinimumSampleRate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, uint64(250_000), cfg.MinimumSampleRate())
	cfg.BitRate = MaxBitRate
	assert.Equal(t, uint64(200_000_000), cfg.MinimumSampleRate())
}

func TestParseTransmissionMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    TransmissionMode
		wantErr bool
	}{
		{in: "nrzi", want: BitSyncNRZI},
		{in: "NRZ", want: BitSyncNRZ},
		{in: " async ", want: ByteAsync},
		{in: "byte-async", want: ByteAsync},
		{in: "manchester", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTransmissionMode(tt.in)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrInvalidTransmissionMode)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	assert.True(t, BitSyncNRZ.IsBitSync())
	assert.False(t, ByteAsync.IsBitSync())
	assert.Equal(t, "TransmissionMode(7)", TransmissionMode(7).String())
}

func TestParseAddressingMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]AddressingMode{
		"sof":      AddressSOF,
		"Extended": AddressExtended,
		"ext":      AddressExtended,
		"reserved": AddressReserved,
		"normal":   AddressReserved,
	} {
		got, err := ParseAddressingMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAddressingMode("wide")
	require.ErrorIs(t, err, ErrInvalidAddressingMode)
}

func TestConfigYAML(t *testing.T) {
	t.Parallel()

	var cfg Config
	err := yaml.Unmarshal([]byte("channel: 2\nbit_rate: 375000\ntransmission_mode: async\naddressing_mode: extended\n"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Channel:          2,
		BitRate:          375000,
		TransmissionMode: ByteAsync,
		AddressingMode:   AddressExtended,
	}, cfg)
	require.NoError(t, cfg.Validate())

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "transmission_mode: async")
	assert.Contains(t, string(out), "addressing_mode: extended")

	err = yaml.Unmarshal([]byte("transmission_mode: morse\n"), &cfg)
	require.ErrorIs(t, err, ErrInvalidTransmissionMode)
}

func TestResolveTiming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		want       Timing
		bitRate    uint32
		sampleRate uint32
		mode       TransmissionMode
	}{
		{
			name:       "nrzi",
			bitRate:    62500,
			sampleRate: 2_000_000,
			mode:       BitSyncNRZI,
			want:       Timing{HalfPeriod: 16, Flag: 112, Abort: 112, Byte: 128},
		},
		{
			name:       "nrz flag is one cell shorter",
			bitRate:    62500,
			sampleRate: 2_000_000,
			mode:       BitSyncNRZ,
			want:       Timing{HalfPeriod: 16, Flag: 96, Abort: 112, Byte: 128},
		},
		{
			name:       "rounded",
			bitRate:    1_000_000,
			sampleRate: 5_000_000,
			mode:       ByteAsync,
			want:       Timing{HalfPeriod: 3, Flag: 21, Abort: 21, Byte: 24},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveTiming(tt.bitRate, tt.sampleRate, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ResolveTiming(0, 1000, BitSyncNRZI)
	require.ErrorIs(t, err, ErrInvalidBitRate)
	_, err = ResolveTiming(1000, 100, BitSyncNRZI)
	require.ErrorIs(t, err, ErrSampleRateTooLow)
}
