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

// Package gpio captures a BITBUS line from a GPIO pin. Every level change
// reported by the pin is timestamped and converted to a sample index at the
// configured sample rate.
package gpio

import (
	"context"
	"fmt"
	"time"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/signal"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	DefaultSampleRate  = 2 * physic.MegaHertz
	DefaultPollTimeout = 20 * time.Millisecond
)

// Pin is the part of gpio.PinIO the capture needs
type Pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
	Name() string
}

// Config describes a GPIO capture
type Config struct {
	Pin         string
	SampleRate  physic.Frequency
	PollTimeout time.Duration
}

// Capture timestamps edges seen on a pin
type Capture struct {
	pin         Pin
	stream      *signal.Stream
	now         func() time.Time
	start       time.Time
	rate        uint64
	pollTimeout time.Duration
	last        gpio.Level
}

// Open initializes the periph host and configures the named pin for
// both-edge detection
func Open(cfg Config) (*Capture, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(cfg.Pin)
	if pin == nil {
		return nil, bitbus.NewConfigError("pin", cfg.Pin, bitbus.ErrCaptureOpen)
	}
	return New(pin, cfg, time.Now)
}

// New configures pin as an edge-triggered input. now supplies timestamps.
func New(pin Pin, cfg Config, now func() time.Time) (*Capture, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	rate := int64(cfg.SampleRate / physic.Hertz)
	if rate <= 0 || rate > int64(^uint32(0)) {
		return nil, bitbus.NewConfigError("sample_rate", cfg.SampleRate.String(), bitbus.ErrSampleRateTooLow)
	}

	if err := pin.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return nil, bitbus.NewCaptureError("configure", pin.Name(), err)
	}

	level := pin.Read()
	c := &Capture{
		pin:         pin,
		stream:      signal.NewStream(uint32(rate), toBitState(level)),
		now:         now,
		start:       now(),
		rate:        uint64(rate),
		pollTimeout: cfg.PollTimeout,
		last:        level,
	}
	bitbus.Debugf("gpio capture on %s at %s, initial %v", pin.Name(), cfg.SampleRate, level)
	return c, nil
}

// Stream returns the stream edges are appended to
func (c *Capture) Stream() *signal.Stream {
	return c.stream
}

// Run waits for edges until ctx is done, then closes the stream
func (c *Capture) Run(ctx context.Context) error {
	defer c.stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !c.pin.WaitForEdge(c.pollTimeout) {
			c.stream.Extend(c.sampleAt(c.now()))
			continue
		}

		at := c.sampleAt(c.now())
		level := c.pin.Read()
		if level == c.last {
			// glitch shorter than the read latency
			continue
		}
		c.last = level

		if known := c.stream.Known(); at < known {
			at = known
		}
		if err := c.stream.AppendEdge(at); err != nil {
			return err
		}
	}
}

// sampleAt converts a timestamp to a sample index
func (c *Capture) sampleAt(t time.Time) uint64 {
	elapsed := t.Sub(c.start)
	if elapsed < 0 {
		return 0
	}
	whole := uint64(elapsed / time.Second)
	frac := uint64(elapsed % time.Second)
	return whole*c.rate + frac*c.rate/uint64(time.Second)
}

func toBitState(level gpio.Level) bitbus.BitState {
	if level == gpio.High {
		return bitbus.High
	}
	return bitbus.Low
}
