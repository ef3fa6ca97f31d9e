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

/*
Package bitbus decodes BITBUS frames from a digitized logic signal.

BITBUS is a field bus built on SDLC style framing. Frames are delimited by
flags, carry an address and an information field, and end with a CRC-16
frame check sequence. The analyzer reads samples from a Channel, recovers
bits or bytes for the configured transmission mode and reports each frame
as a batch of Fields and Markers.

Features:
  - Bit synchronous NRZI and NRZ line coding with bit destuffing
  - Byte asynchronous start/stop framing with byte unstuffing
  - SOF, extended and reserved addressing layouts
  - Abort detection and CRC-16 verification
  - Offline captures, live streams and a signal generator for testing

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-bitbus"
	    "github.com/ZaparooProject/go-bitbus/signal"
	)

	capture, err := signal.ReadFile("bus.bbc.zst")
	if err != nil {
	    log.Fatal(err)
	}

	results := bitbus.NewMemoryResults()
	analyzer, err := bitbus.NewAnalyzer(capture.Cursor(), bitbus.DefaultConfig(),
	    capture.SampleRate, bitbus.WithResults(results))
	if err != nil {
	    log.Fatal(err)
	}
	if err := analyzer.Run(ctx); err != nil {
	    log.Fatal(err)
	}

	for _, frame := range results.Decoded() {
	    fmt.Println(frame)
	}

Timing:

One bit cell is round(sampleRate / bitRate / 2) samples. The sample rate must
be at least four times the bit rate.

Error Handling:

Configuration problems are reported as *ConfigError and capture problems as
*CaptureError. Both wrap a sentinel that can be inspected:

	if errors.Is(err, bitbus.ErrSampleRateTooLow) {
	    // pick a faster capture rate
	}

Running out of samples is not an error: Run returns nil.

Capture Sources and Sinks:

Live samples come from capture/serial (a USB logic sampler streaming packed
levels) or capture/gpio (edge interrupts on a GPIO pin). Both feed a
signal.Stream. Decoded frames can be sent to any Results implementation;
metrics, sink/mqtt and sink/hdlc provide Prometheus counters, MQTT JSON
messages and HDLC re-encapsulation.

Thread Safety:

An Analyzer owns its channel and is not safe for concurrent use. A
signal.Stream may be fed from another goroutine while the analyzer runs.
*/
package bitbus
