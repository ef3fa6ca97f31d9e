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

// Package serial streams 1-bit logic samples from a serial-attached sampler.
// Every byte read from the port carries eight consecutive samples of the bus
// line, least significant bit first.
package serial

import (
	"context"
	"errors"
	"io"
	"time"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/internal/transport"
	"github.com/ZaparooProject/go-bitbus/signal"
	"go.bug.st/serial"
)

const (
	DefaultBaudRate    = 2_000_000
	DefaultReadTimeout = 50 * time.Millisecond
	DefaultOpenRetries = 3
	DefaultRetryDelay  = 200 * time.Millisecond

	readBufferSize = 4096
)

// Config describes a serial sampler
type Config struct {
	Path        string
	BaudRate    int
	SampleRate  uint32
	Initial     bitbus.BitState
	ReadTimeout time.Duration
	OpenRetries int
	RetryDelay  time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.OpenRetries == 0 {
		c.OpenRetries = DefaultOpenRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// Sampler feeds samples read from a port into a signal.Stream
type Sampler struct {
	port   io.ReadCloser
	stream *signal.Stream
	path   string
	total  uint64
}

// Open opens the serial port described by cfg and returns a sampler bound to
// a new stream. A busy port is retried.
func Open(ctx context.Context, cfg Config) (*Sampler, error) {
	cfg.applyDefaults()
	if cfg.Path == "" {
		return nil, bitbus.NewConfigError("path", cfg.Path, bitbus.ErrCaptureOpen)
	}
	if cfg.SampleRate == 0 {
		return nil, bitbus.NewConfigError("sample_rate", cfg.SampleRate, bitbus.ErrSampleRateTooLow)
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := transport.WithRetry(ctx, transport.RetryConfig{
		Description: "open " + cfg.Path,
		MaxRetries:  cfg.OpenRetries,
		RetryDelay:  cfg.RetryDelay,
	}, func() (serial.Port, bool, error) {
		p, openErr := serial.Open(cfg.Path, mode)
		if openErr == nil {
			return p, false, nil
		}
		if isBusy(openErr) {
			return nil, true, nil
		}
		return nil, false, bitbus.NewCaptureError("open", cfg.Path, openErr)
	})
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, bitbus.NewCaptureError("set read timeout", cfg.Path, err)
	}

	bitbus.Debugf("serial sampler open: %s at %d baud, %d samples/s", cfg.Path, cfg.BaudRate, cfg.SampleRate)
	return NewSampler(port, signal.NewStream(cfg.SampleRate, cfg.Initial), cfg.Path), nil
}

func isBusy(err error) bool {
	var portErr *serial.PortError
	return errors.As(err, &portErr) && portErr.Code() == serial.PortBusy
}

// NewSampler wraps an already open reader
func NewSampler(port io.ReadCloser, stream *signal.Stream, path string) *Sampler {
	return &Sampler{port: port, stream: stream, path: path}
}

// Stream returns the stream the sampler appends to
func (s *Sampler) Stream() *signal.Stream {
	return s.stream
}

// Samples returns the number of samples appended so far
func (s *Sampler) Samples() uint64 {
	return s.total
}

// Run reads from the port until ctx is done or the port reports end of
// input. The stream and the port are closed on return.
func (s *Sampler) Run(ctx context.Context) error {
	defer s.stream.Close()
	defer func() {
		if err := s.port.Close(); err != nil {
			bitbus.Debugf("serial sampler close %s: %v", s.path, err)
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.port.Read(buf)
		if n > 0 {
			if appendErr := s.stream.AppendPacked(buf[:n]); appendErr != nil {
				return appendErr
			}
			s.total += uint64(n) * 8
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return bitbus.NewCaptureError("read", s.path, errors.Join(bitbus.ErrCaptureRead, err))
		}
	}
}
