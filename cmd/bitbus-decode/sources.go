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
	"context"
	"fmt"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/capture/gpio"
	"github.com/ZaparooProject/go-bitbus/capture/serial"
	"github.com/ZaparooProject/go-bitbus/signal"
	"periph.io/x/conn/v3/physic"
)

// Source is an opened sample source. Run is nil for captures that are
// already complete.
type Source struct {
	Channel    bitbus.Channel
	Run        func(ctx context.Context) error
	Name       string
	SampleRate uint32
}

// Discovery handles serial port discovery and source creation
type Discovery struct {
	config *Config
	output *Output
}

// NewDiscovery creates a new discovery handler
func NewDiscovery(config *Config, output *Output) *Discovery {
	return &Discovery{config: config, output: output}
}

func (d *Discovery) filter() serial.Filter {
	return serial.Filter{Match: d.config.Source.Match, IgnorePaths: d.config.Source.IgnorePaths}
}

// ListPorts prints every serial port that passes the configured filter
func (d *Discovery) ListPorts() error {
	ports, err := serial.Discover(d.filter())
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		d.output.Info("no serial ports found")
		return nil
	}
	for _, p := range ports {
		if p.IsUSB {
			d.output.Info("%s  %s  %s %s", p.Path, p.VIDPID, p.Product, p.Serial)
		} else {
			d.output.Info("%s", p.Path)
		}
	}
	return nil
}

// resolvePort picks the configured port or the first discovered match
func (d *Discovery) resolvePort() (string, error) {
	if d.config.Source.Port != "" {
		return d.config.Source.Port, nil
	}
	d.output.Verbose("Discovering samplers...")
	ports, err := serial.Discover(d.filter())
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", bitbus.NewCaptureError("discover", "serial", bitbus.ErrCaptureOpen)
	}
	d.output.Verbose("   Found %d port(s), using %s", len(ports), ports[0].Path)
	return ports[0].Path, nil
}

// OpenSource opens the configured sample source
func (d *Discovery) OpenSource(ctx context.Context) (*Source, error) {
	src := d.config.Source
	switch src.Type {
	case SourceFile:
		c, err := signal.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read capture: %w", err)
		}
		return &Source{Channel: c.Cursor(), Name: src.Path, SampleRate: c.SampleRate}, nil

	case SourceSerial:
		path, err := d.resolvePort()
		if err != nil {
			return nil, err
		}
		sampler, err := serial.Open(ctx, serial.Config{
			Path:        path,
			BaudRate:    src.BaudRate,
			SampleRate:  src.SampleRate,
			Initial:     src.initial(),
			ReadTimeout: src.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &Source{Channel: sampler.Stream(), Run: sampler.Run, Name: path, SampleRate: src.SampleRate}, nil

	case SourceGPIO:
		capture, err := gpio.Open(gpio.Config{
			Pin:        src.Pin,
			SampleRate: physic.Frequency(src.SampleRate) * physic.Hertz,
		})
		if err != nil {
			return nil, err
		}
		return &Source{Channel: capture.Stream(), Run: capture.Run, Name: src.Pin, SampleRate: src.SampleRate}, nil

	default:
		return nil, bitbus.NewConfigError("source.type", src.Type, errNoSource)
	}
}
