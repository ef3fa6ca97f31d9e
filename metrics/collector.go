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

// Package metrics exports decoder statistics to Prometheus
package metrics

import (
	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bitbus"

// Collector is a results sink that counts what the analyzer commits
type Collector struct {
	frames         *prometheus.CounterVec
	fields         *prometheus.CounterVec
	information    prometheus.Counter
	aborts         prometheus.Counter
	checksumErrors prometheus.Counter
	stuffedBits    prometheus.Counter
	samplePosition prometheus.Gauge
	lastAddress    prometheus.Gauge
}

var _ bitbus.Results = (*Collector)(nil)

// NewCollector registers the decoder metrics with reg. A nil reg uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		frames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Processing cycles committed, by status",
			},
			[]string{"status"},
		),
		fields: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fields_total",
				Help:      "Decoded fields, by kind",
			},
			[]string{"kind"},
		),
		information: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "information_bytes_total",
			Help:      "Information bytes carried by verified frames",
		}),
		aborts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborts_total",
			Help:      "Abort sequences seen inside frames",
		}),
		checksumErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checksum_errors_total",
			Help:      "Frames whose FCS did not match",
		}),
		stuffedBits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stuffed_bits_total",
			Help:      "Stuffing bits removed by the bit-synchronous decoder",
		}),
		samplePosition: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_position",
			Help:      "Last sample index covered by a committed frame",
		}),
		lastAddress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_address",
			Help:      "Address of the last verified frame",
		}),
	}
}

// Commit updates the counters for one frame
func (c *Collector) Commit(frame *bitbus.Frame) error {
	c.frames.WithLabelValues(frame.Status.String()).Inc()
	for _, f := range frame.Fields {
		c.fields.WithLabelValues(f.Kind.String()).Inc()
	}
	for _, m := range frame.Markers {
		if m.Type == bitbus.MarkerDot {
			c.stuffedBits.Inc()
		}
	}

	switch frame.Status {
	case bitbus.StatusOK:
		c.information.Add(float64(len(frame.Information)))
		c.lastAddress.Set(float64(frame.Address))
	case bitbus.StatusAborted:
		c.aborts.Inc()
	case bitbus.StatusChecksumError:
		c.checksumErrors.Inc()
	case bitbus.StatusTruncated, bitbus.StatusIdle:
	}

	if frame.End > 0 {
		c.samplePosition.Set(float64(frame.End))
	}
	return nil
}
