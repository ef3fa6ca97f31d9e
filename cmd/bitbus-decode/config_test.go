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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
bus:
  bit_rate: 375000
  transmission_mode: async
  addressing_mode: reserved
source:
  type: serial
  port: /dev/ttyUSB3
  sample_rate: 4000000
  read_timeout: 10ms
  match: ["0403:6014"]
sinks:
  csv_path: frames.csv
  metrics_listen: ":9110"
  mqtt:
    broker: tcp://broker:1883
    topic_prefix: plant
    qos: 1
verbose: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bitbus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseArgsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := parseArgs([]string{"capture.bbc"})
	require.NoError(t, err)
	assert.Equal(t, SourceFile, cfg.Source.Type)
	assert.Equal(t, "capture.bbc", cfg.Source.Path)
	assert.Equal(t, bitbus.DefaultConfig(), cfg.Bus)
	assert.False(t, cfg.Verbose)
}

func TestParseArgsConfigFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, testConfigYAML)
	cfg, err := parseArgs([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, bitbus.Config{
		BitRate:          375000,
		TransmissionMode: bitbus.ByteAsync,
		AddressingMode:   bitbus.AddressReserved,
	}, cfg.Bus)
	assert.Equal(t, SourceConfig{
		Type:        SourceSerial,
		Port:        "/dev/ttyUSB3",
		SampleRate:  4_000_000,
		ReadTimeout: 10 * time.Millisecond,
		Match:       []string{"0403:6014"},
	}, cfg.Source)
	assert.Equal(t, "frames.csv", cfg.Sinks.CSVPath)
	assert.Equal(t, ":9110", cfg.Sinks.MetricsListen)
	assert.Equal(t, MQTTConfig{Broker: "tcp://broker:1883", TopicPrefix: "plant", QoS: 1}, cfg.Sinks.MQTT)
	assert.True(t, cfg.Verbose)
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, testConfigYAML)
	cfg, err := parseArgs([]string{
		"-config", path,
		"-mode", "nrz",
		"-addressing", "extended",
		"-port", "/dev/ttyACM0",
		"-sample-rate", "8000000",
		"-mqtt-topic", "lab",
		"-verbose=false",
	})
	require.NoError(t, err)

	assert.Equal(t, bitbus.BitSyncNRZ, cfg.Bus.TransmissionMode)
	assert.Equal(t, bitbus.AddressExtended, cfg.Bus.AddressingMode)
	assert.Equal(t, uint32(375000), cfg.Bus.BitRate)
	assert.Equal(t, "/dev/ttyACM0", cfg.Source.Port)
	assert.Equal(t, uint32(8_000_000), cfg.Source.SampleRate)
	assert.Equal(t, "lab", cfg.Sinks.MQTT.TopicPrefix)
	assert.False(t, cfg.Verbose)
}

func TestParseArgsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contains string
		args     []string
	}{
		{name: "no source", args: nil, contains: "no capture source"},
		{name: "bad mode", args: []string{"-mode", "manchester", "x.bbc"}, contains: "invalid transmission mode"},
		{name: "bad addressing", args: []string{"-addressing", "short", "x.bbc"}, contains: "invalid addressing mode"},
		{name: "bad bit rate", args: []string{"-bit-rate", "0", "x.bbc"}, contains: "bit_rate"},
		{name: "unknown source", args: []string{"-source", "usb"}, contains: "source.type"},
		{name: "gpio without pin", args: []string{"-source", "gpio"}, contains: "source.pin"},
		{
			name:     "live sample rate too low",
			args:     []string{"-source", "serial", "-port", "/dev/ttyUSB0", "-sample-rate", "100000"},
			contains: "source.sample_rate",
		},
		{name: "unknown flag", args: []string{"-bogus"}, contains: "bogus"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseArgs(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParseArgsListPorts(t *testing.T) {
	t.Parallel()

	cfg, err := parseArgs([]string{"-list-ports"})
	require.NoError(t, err)
	assert.True(t, cfg.ListPorts)
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.Error(t, LoadConfigFile(cfg, filepath.Join(t.TempDir(), "missing.yaml")))

	err := LoadConfigFile(cfg, writeConfig(t, "bus:\n  baud: 9600\n"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to parse config"))

	require.NoError(t, LoadConfigFile(cfg, writeConfig(t, "")))
}
