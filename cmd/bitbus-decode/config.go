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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"gopkg.in/yaml.v3"
)

// Source types
const (
	SourceFile   = "file"
	SourceSerial = "serial"
	SourceGPIO   = "gpio"
)

var errNoSource = errors.New("no capture source: pass a capture file or set -source")

// SourceConfig selects where samples come from
type SourceConfig struct {
	Type        string        `yaml:"type"`
	Path        string        `yaml:"path"`
	Port        string        `yaml:"port"`
	Pin         string        `yaml:"pin"`
	Match       []string      `yaml:"match"`
	IgnorePaths []string      `yaml:"ignore_paths"`
	BaudRate    int           `yaml:"baud_rate"`
	SampleRate  uint32        `yaml:"sample_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	InitialHigh bool          `yaml:"initial_high"`
}

// MQTTConfig configures the MQTT sink
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// SinkConfig lists the optional result sinks
type SinkConfig struct {
	MQTT          MQTTConfig `yaml:"mqtt"`
	MetricsListen string     `yaml:"metrics_listen"`
	HDLCPath      string     `yaml:"hdlc_path"`
	CSVPath       string     `yaml:"csv_path"`
}

// Config holds application configuration
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Sinks   SinkConfig    `yaml:"sinks"`
	Bus     bitbus.Config `yaml:"bus"`
	Verbose bool          `yaml:"verbose"`
	NoColor bool          `yaml:"no_color"`
	Debug   bool          `yaml:"debug"`
	// ListPorts prints the serial ports and exits
	ListPorts bool `yaml:"-"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Bus: bitbus.DefaultConfig(),
		Source: SourceConfig{
			SampleRate: 2_000_000,
		},
	}
}

// LoadConfigFile merges a YAML file over cfg
func LoadConfigFile(cfg *Config, path string) error {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return decodeConfig(cfg, f)
}

func decodeConfig(cfg *Config, r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// parseArgs builds the configuration from defaults, an optional -config
// file and the flags that were set explicitly
func parseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bitbus-decode", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	source := fs.String("source", "", "Capture source: file, serial or gpio")
	port := fs.String("port", "", "Serial port of the logic sampler (e.g., /dev/ttyUSB0)")
	pin := fs.String("pin", "", "GPIO pin name (e.g., GPIO17)")
	baud := fs.Int("baud", 0, "Serial baud rate")
	sampleRate := fs.Uint("sample-rate", 0, "Sample rate of live sources in Hz")
	bitRate := fs.Uint("bit-rate", 0, "Bus bit rate")
	mode := fs.String("mode", "", "Transmission mode: nrzi, nrz or async")
	addressing := fs.String("addressing", "", "Addressing mode: sof, extended or reserved")
	csvPath := fs.String("csv", "", "Write a CSV report to this file")
	hdlcPath := fs.String("hdlc", "", "Write verified frames as HDLC to this file")
	metrics := fs.String("metrics", "", "Serve Prometheus metrics on this address (e.g., :9110)")
	broker := fs.String("mqtt", "", "MQTT broker URL (e.g., tcp://localhost:1883)")
	topic := fs.String("mqtt-topic", "", "MQTT topic prefix")
	verbose := fs.Bool("verbose", false, "Print every field")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	debug := fs.Bool("debug", false, "Enable debug output")
	listPorts := fs.Bool("list-ports", false, "List serial ports and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		if err := LoadConfigFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}

	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source.Type = *source
		case "port":
			cfg.Source.Port = *port
		case "pin":
			cfg.Source.Pin = *pin
		case "baud":
			cfg.Source.BaudRate = *baud
		case "sample-rate":
			cfg.Source.SampleRate = uint32(*sampleRate) //nolint:gosec // checked by Validate
		case "bit-rate":
			cfg.Bus.BitRate = uint32(*bitRate) //nolint:gosec // checked by Validate
		case "mode":
			m, err := bitbus.ParseTransmissionMode(*mode)
			parseErr = errors.Join(parseErr, err)
			cfg.Bus.TransmissionMode = m
		case "addressing":
			m, err := bitbus.ParseAddressingMode(*addressing)
			parseErr = errors.Join(parseErr, err)
			cfg.Bus.AddressingMode = m
		case "csv":
			cfg.Sinks.CSVPath = *csvPath
		case "hdlc":
			cfg.Sinks.HDLCPath = *hdlcPath
		case "metrics":
			cfg.Sinks.MetricsListen = *metrics
		case "mqtt":
			cfg.Sinks.MQTT.Broker = *broker
		case "mqtt-topic":
			cfg.Sinks.MQTT.TopicPrefix = *topic
		case "verbose":
			cfg.Verbose = *verbose
		case "no-color":
			cfg.NoColor = *noColor
		case "debug":
			cfg.Debug = *debug
		case "list-ports":
			cfg.ListPorts = *listPorts
		}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if fs.NArg() > 0 {
		cfg.Source.Path = fs.Arg(0)
		if cfg.Source.Type == "" {
			cfg.Source.Type = SourceFile
		}
	}
	cfg.Source.Type = strings.ToLower(cfg.Source.Type)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration before any source is opened
func (c *Config) Validate() error {
	if c.ListPorts {
		return nil
	}
	if err := c.Bus.Validate(); err != nil {
		return err
	}
	switch c.Source.Type {
	case SourceFile:
		if c.Source.Path == "" {
			return bitbus.NewConfigError("source.path", c.Source.Path, errNoSource)
		}
	case SourceSerial:
		if c.Source.Port == "" && len(c.Source.Match) == 0 {
			return bitbus.NewConfigError("source.port", c.Source.Port, errNoSource)
		}
	case SourceGPIO:
		if c.Source.Pin == "" {
			return bitbus.NewConfigError("source.pin", c.Source.Pin, errNoSource)
		}
	case "":
		return errNoSource
	default:
		return bitbus.NewConfigError("source.type", c.Source.Type, errNoSource)
	}
	if c.Source.Type != SourceFile && uint64(c.Source.SampleRate) < c.Bus.MinimumSampleRate() {
		return bitbus.NewConfigError("source.sample_rate", c.Source.SampleRate, bitbus.ErrSampleRateTooLow)
	}
	return nil
}

func (s SourceConfig) initial() bitbus.BitState {
	if s.InitialHigh {
		return bitbus.High
	}
	return bitbus.Low
}
