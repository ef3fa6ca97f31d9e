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

import "github.com/ZaparooProject/go-bitbus/internal/frame"

// FrameState represents the finite state machine for one protocol frame
type FrameState uint8

const (
	StateIdle FrameState = iota
	StateReadingFlags
	StateReadingAddress
	StateReadingInformation
	StateReadingChecksum
	StateAborted
	StateCommitted
)

var frameStateNames = [...]string{
	StateIdle:               "idle",
	StateReadingFlags:       "reading_flags",
	StateReadingAddress:     "reading_address",
	StateReadingInformation: "reading_information",
	StateReadingChecksum:    "reading_checksum",
	StateAborted:            "aborted",
	StateCommitted:          "committed",
}

func (s FrameState) String() string {
	if int(s) < len(frameStateNames) {
		return frameStateNames[s]
	}
	return "unknown"
}

var frameTransitions = map[FrameState][]FrameState{
	StateIdle:               {StateReadingFlags},
	StateReadingFlags:       {StateReadingAddress, StateAborted},
	StateReadingAddress:     {StateReadingInformation, StateReadingChecksum, StateAborted},
	StateReadingInformation: {StateReadingChecksum, StateAborted},
	StateReadingChecksum:    {StateCommitted},
}

// CanTransition reports whether a frame may move from one state to another
func CanTransition(from, to FrameState) bool {
	for _, next := range frameTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for the states a processing cycle ends in
func (s FrameState) IsTerminal() bool {
	return s == StateCommitted || s == StateAborted
}

// frameContext is the decode state of one protocol frame. It is created
// fresh for every processing cycle and handed to every codec call.
type frameContext struct {
	fields      []Field
	markers     []Marker
	raw         []byte
	information []byte
	trace       []FrameState
	abortField  Field
	endFlag     Field
	address     uint64

	consecutiveOnes int
	prevBit         BitState
	state           FrameState
	status          Status

	readingFrame bool
	aborted      bool
	foundEndFlag bool
	hasEndFlag   bool
	hasAddress   bool
	hasFCS       bool
}

func newFrameContext() *frameContext {
	return &frameContext{
		state: StateIdle,
		trace: []FrameState{StateIdle},
	}
}

// transition moves to the next state. Moves the state machine does not
// allow are logged and ignored.
func (fc *frameContext) transition(to FrameState) {
	if !CanTransition(fc.state, to) {
		debugf("ignoring frame transition %s -> %s", fc.state, to)
		return
	}
	fc.state = to
	fc.trace = append(fc.trace, to)
}

func (fc *frameContext) emit(f Field) {
	fc.fields = append(fc.fields, f)
}

func (fc *frameContext) mark(sample uint64, t MarkerType) {
	fc.markers = append(fc.markers, Marker{Sample: sample, Type: t})
}

// accumulate appends a logical data byte to the checksum input
func (fc *frameContext) accumulate(b byte) {
	fc.raw = append(fc.raw, b)
}

// abort records the abort field and ends byte assembly
func (fc *frameContext) abort(f Field) {
	fc.aborted = true
	fc.abortField = f
}

func (fc *frameContext) setEndFlag(b decodedByte) {
	fc.hasEndFlag = true
	fc.endFlag = Field{
		Kind:  FieldFlag,
		Start: b.start,
		End:   b.end,
		Data1: uint64(FlagEnd),
	}
}

// emitFlags emits the flags collected by a flag search. When the search
// ended on data the last flag opened the frame; otherwise every flag is fill.
func (fc *frameContext) emitFlags(flags []decodedByte, opening bool) {
	for i, b := range flags {
		kind := FlagFill
		if opening && i == len(flags)-1 {
			kind = FlagStart
		}
		fc.emit(Field{Kind: FieldFlag, Start: b.start, End: b.end, Data1: uint64(kind)})
	}
}

// payload returns the address and information bytes. The trailing check
// sequence is only stripped once one has been read.
func (fc *frameContext) payload() []byte {
	if !fc.hasFCS || len(fc.raw) < frame.FCSLength {
		return fc.raw
	}
	return fc.raw[:len(fc.raw)-frame.FCSLength]
}

func (fc *frameContext) toFrame(sequence uint64) *Frame {
	fr := &Frame{
		Sequence:    sequence,
		Fields:      fc.fields,
		Markers:     fc.markers,
		Information: fc.information,
		Payload:     append([]byte(nil), fc.payload()...),
		Address:     fc.address,
		HasAddress:  fc.hasAddress,
		State:       fc.state,
		Status:      fc.status,
	}
	for i, f := range fc.fields {
		if i == 0 || f.Start < fr.Start {
			fr.Start = f.Start
		}
		if f.End > fr.End {
			fr.End = f.End
		}
	}
	return fr
}
