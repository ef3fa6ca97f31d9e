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

// Command bitbus-decode decodes BITBUS frames from a capture file or a live
// sampler and prints, reports or publishes them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	bitbus "github.com/ZaparooProject/go-bitbus"
	"github.com/ZaparooProject/go-bitbus/metrics"
	"github.com/ZaparooProject/go-bitbus/sink/hdlc"
	"github.com/ZaparooProject/go-bitbus/sink/mqtt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if run(os.Args[1:]) != 0 {
		os.Exit(1)
	}
}

func run(args []string) int {
	cfg, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	if cfg.Debug {
		bitbus.SetDebugEnabled(true)
	}

	output := NewOutput(os.Stdout, cfg.Verbose, cfg.NoColor)
	discovery := NewDiscovery(cfg, output)

	if cfg.ListPorts {
		if err := discovery.ListPorts(); err != nil {
			output.Error("%v", err)
			return 1
		}
		return 0
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := decode(ctx, cfg, output, discovery); err != nil {
		output.Error("%v", err)
		return 1
	}
	return 0
}

// sinks owns every optional results sink and how to shut it down
type sinks struct {
	results []bitbus.Results
	closers []func() error
}

func (s *sinks) add(r bitbus.Results, closer func() error) {
	s.results = append(s.results, r)
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
}

func (s *sinks) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openSinks(cfg *Config, sampleRate uint32, output *Output) (*sinks, error) {
	s := &sinks{}
	s.add(output, nil)

	if cfg.Sinks.CSVPath != "" {
		f, err := os.Create(cfg.Sinks.CSVPath)
		if err != nil {
			return s, fmt.Errorf("failed to create report: %w", err)
		}
		report, err := NewReport(f, cfg.Bus.AddressingMode, sampleRate)
		if err != nil {
			_ = f.Close()
			return s, err
		}
		s.add(report, func() error {
			return errors.Join(report.Flush(), f.Close())
		})
	}

	if cfg.Sinks.HDLCPath != "" {
		f, err := os.Create(cfg.Sinks.HDLCPath)
		if err != nil {
			return s, fmt.Errorf("failed to create hdlc output: %w", err)
		}
		s.add(hdlc.NewWriter(f, cfg.Sinks.HDLCPath, false), f.Close)
	}

	if cfg.Sinks.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		s.add(metrics.NewCollector(reg), nil)
		srv := &http.Server{
			Addr:              cfg.Sinks.MetricsListen,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				output.Error("metrics server: %v", err)
			}
		}()
		s.closers = append(s.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		})
		output.Verbose("Serving metrics on %s/metrics", cfg.Sinks.MetricsListen)
	}

	if cfg.Sinks.MQTT.Broker != "" {
		publisher, err := mqtt.Connect(mqtt.Config{
			Broker:      cfg.Sinks.MQTT.Broker,
			Username:    cfg.Sinks.MQTT.Username,
			Password:    cfg.Sinks.MQTT.Password,
			TopicPrefix: cfg.Sinks.MQTT.TopicPrefix,
			QoS:         cfg.Sinks.MQTT.QoS,
			Retain:      cfg.Sinks.MQTT.Retain,
			SampleRate:  sampleRate,
		})
		if err != nil {
			return s, err
		}
		s.add(publisher, func() error {
			publisher.Close()
			return nil
		})
		output.Verbose("Publishing to %s as run %s", cfg.Sinks.MQTT.Broker, publisher.RunID())
	}

	return s, nil
}

func decode(ctx context.Context, cfg *Config, output *Output, discovery *Discovery) (err error) {
	source, err := discovery.OpenSource(ctx)
	if err != nil {
		return err
	}
	output.SetSampleRate(source.SampleRate)
	output.Verbose("Decoding %s (%s/%s, %d bit/s, %d samples/s)",
		source.Name, cfg.Bus.TransmissionMode, cfg.Bus.AddressingMode, cfg.Bus.BitRate, source.SampleRate)

	s, err := openSinks(cfg, source.SampleRate, output)
	defer func() {
		if closeErr := s.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err != nil {
		return err
	}

	analyzer, err := bitbus.NewAnalyzer(source.Channel, cfg.Bus, source.SampleRate, bitbus.WithResults(s.results...))
	if err != nil {
		return err
	}

	captureCtx, cancelCapture := context.WithCancel(ctx)
	defer cancelCapture()

	captureErr := make(chan error, 1)
	if source.Run != nil {
		go func() { captureErr <- source.Run(captureCtx) }()
	} else {
		captureErr <- nil
	}

	runErr := analyzer.Run(ctx)
	// a live source runs until cancelled
	cancelCapture()
	srcErr := <-captureErr
	output.Summary()

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if errors.Is(srcErr, context.Canceled) {
		srcErr = nil
	}
	return errors.Join(runErr, srcErr)
}
