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
	"errors"
	"fmt"
)

// Sample source errors
var (
	// ErrEndOfSamples is returned by a Channel when an advance would move
	// past the last available sample. Run treats it as normal termination.
	ErrEndOfSamples = errors.New("end of samples")
	ErrStreamClosed = errors.New("sample stream closed")
	ErrNoChannel    = errors.New("no sample channel")
)

// Configuration errors
var (
	ErrInvalidBitRate          = errors.New("invalid bit rate")
	ErrSampleRateTooLow        = errors.New("sample rate too low for bit rate")
	ErrInvalidTransmissionMode = errors.New("invalid transmission mode")
	ErrInvalidAddressingMode   = errors.New("invalid addressing mode")
	ErrInvalidChannel          = errors.New("invalid channel")
	ErrNilResults              = errors.New("nil results sink")
)

// Capture errors
var (
	ErrCaptureFormat = errors.New("invalid capture format")
	ErrCaptureOpen   = errors.New("failed to open capture source")
	ErrCaptureRead   = errors.New("capture read failed")
)

// ConfigError describes a rejected configuration value
type ConfigError struct {
	Value any
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error
func NewConfigError(field string, value any, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: err}
}

// CaptureError represents an error from a capture source or results sink
type CaptureError struct {
	Err    error
	Op     string
	Source string
}

func (e *CaptureError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError creates a new capture error
func NewCaptureError(op, source string, err error) *CaptureError {
	return &CaptureError{Op: op, Source: source, Err: err}
}

// IsEndOfSamples reports whether err means the sample source is exhausted
func IsEndOfSamples(err error) bool {
	return errors.Is(err, ErrEndOfSamples)
}
