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

import "sync"

// Status summarizes how a processing cycle ended
type Status uint8

const (
	// StatusOK is a complete frame with a matching checksum
	StatusOK Status = iota
	// StatusChecksumError is a complete frame whose checksum did not match
	StatusChecksumError
	// StatusAborted is a frame cut short by an abort sequence
	StatusAborted
	// StatusTruncated is a frame too short to carry a checksum
	StatusTruncated
	// StatusIdle is a cycle that found line idle instead of a frame
	StatusIdle
)

var statusNames = [...]string{
	StatusOK:            "ok",
	StatusChecksumError: "checksum_error",
	StatusAborted:       "aborted",
	StatusTruncated:     "truncated",
	StatusIdle:          "idle",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Frame is everything decoded during one processing cycle. It is committed
// to the results as one batch.
type Frame struct {
	Fields      []Field
	Markers     []Marker
	Information []byte
	// Payload holds the logical address and information bytes. It excludes the
	// check sequence when one was read.
	Payload    []byte
	Sequence   uint64
	Start      uint64
	End        uint64
	Address    uint64
	State      FrameState
	Status     Status
	HasAddress bool
}

// FieldsOfKind returns the fields of the given kind in emission order
func (f *Frame) FieldsOfKind(kind FieldKind) []Field {
	var out []Field
	for _, field := range f.Fields {
		if field.Kind == kind {
			out = append(out, field)
		}
	}
	return out
}

// Field returns the first field of the given kind
func (f *Frame) Field(kind FieldKind) (Field, bool) {
	for _, field := range f.Fields {
		if field.Kind == kind {
			return field, true
		}
	}
	return Field{}, false
}

// Results receives every decoded frame once all of its fields are known.
// Implementations must not retain the frame's slices beyond Commit unless
// they treat them as read-only.
type Results interface {
	Commit(frame *Frame) error
}

// ResultsFunc adapts a function to the Results interface
type ResultsFunc func(frame *Frame) error

// Commit calls f(frame)
func (f ResultsFunc) Commit(frame *Frame) error {
	return f(frame)
}

// MemoryResults keeps committed frames in memory
type MemoryResults struct {
	frames []*Frame
	mu     sync.RWMutex
}

// NewMemoryResults creates an empty in-memory results store
func NewMemoryResults() *MemoryResults {
	return &MemoryResults{}
}

// Commit stores the frame
func (m *MemoryResults) Commit(frame *Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frame)
	return nil
}

// Frames returns the committed frames
func (m *MemoryResults) Frames() []*Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Frame(nil), m.frames...)
}

// Fields returns the fields of every committed frame in order
func (m *MemoryResults) Fields() []Field {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var fields []Field
	for _, f := range m.frames {
		fields = append(fields, f.Fields...)
	}
	return fields
}

// Markers returns the markers of every committed frame in order
func (m *MemoryResults) Markers() []Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var markers []Marker
	for _, f := range m.frames {
		markers = append(markers, f.Markers...)
	}
	return markers
}

// Decoded returns the committed frames that carry an address, skipping
// idle cycles
func (m *MemoryResults) Decoded() []*Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Frame
	for _, f := range m.frames {
		if f.HasAddress {
			out = append(out, f)
		}
	}
	return out
}

// Reset drops every stored frame
func (m *MemoryResults) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}
