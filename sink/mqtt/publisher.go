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

// Package mqtt publishes decoded BITBUS frames to an MQTT broker as JSON
package mqtt

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bitbus "github.com/ZaparooProject/go-bitbus"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	DefaultTopicPrefix    = "bitbus"
	DefaultPublishTimeout = 5 * time.Second
	disconnectQuiesceMs   = 250
)

var ErrPublishTimeout = errors.New("publish timed out")

// Client is the part of paho.Client the publisher uses
type Client interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
}

// Config describes the broker connection and publishing behaviour
type Config struct {
	Broker         string
	Username       string
	Password       string
	TopicPrefix    string
	PublishTimeout time.Duration
	SampleRate     uint32
	QoS            byte
	Retain         bool
	// IncludeIdle also publishes cycles that found no frame
	IncludeIdle bool
}

// Message is the JSON document published for each frame
type Message struct {
	RunID       string  `json:"run_id"`
	Status      string  `json:"status"`
	State       string  `json:"state"`
	Information string  `json:"information"`
	Sequence    uint64  `json:"sequence"`
	Address     uint64  `json:"address"`
	StartSample uint64  `json:"start_sample"`
	EndSample   uint64  `json:"end_sample"`
	StartTime   float64 `json:"start_s"`
	HasAddress  bool    `json:"has_address"`
}

// Publisher is a results sink that publishes every committed frame
type Publisher struct {
	client Client
	config Config
	runID  string
}

var _ bitbus.Results = (*Publisher)(nil)

// Connect dials the broker and returns a publisher with a fresh run ID
func Connect(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, bitbus.NewConfigError("broker", cfg.Broker, bitbus.ErrCaptureOpen)
	}
	runID := uuid.NewString()

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("go-bitbus-" + runID[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		bitbus.Debugf("mqtt: connection lost: %v", err)
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, bitbus.NewCaptureError("connect", cfg.Broker, token.Error())
	}
	bitbus.Debugf("mqtt: connected to %s, run %s", cfg.Broker, runID)

	return New(client, cfg, runID), nil
}

// New wraps a connected client
func New(client Client, cfg Config, runID string) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	return &Publisher{client: client, config: cfg, runID: runID}
}

// RunID identifies this publisher's messages
func (p *Publisher) RunID() string {
	return p.runID
}

// Topic returns the topic a frame is published to:
// {prefix}/frames/{address} or {prefix}/idle for cycles without an address.
func (p *Publisher) Topic(frame *bitbus.Frame) string {
	if !frame.HasAddress {
		return p.config.TopicPrefix + "/idle"
	}
	return fmt.Sprintf("%s/frames/%04X", p.config.TopicPrefix, frame.Address)
}

// NewMessage builds the JSON document for frame
func (p *Publisher) NewMessage(frame *bitbus.Frame) Message {
	msg := Message{
		RunID:       p.runID,
		Status:      frame.Status.String(),
		State:       frame.State.String(),
		Information: hex.EncodeToString(frame.Information),
		Sequence:    frame.Sequence,
		Address:     frame.Address,
		StartSample: frame.Start,
		EndSample:   frame.End,
		HasAddress:  frame.HasAddress,
	}
	if p.config.SampleRate > 0 {
		msg.StartTime = float64(frame.Start) / float64(p.config.SampleRate)
	}
	return msg
}

// Commit publishes frame and waits for the broker to accept it
func (p *Publisher) Commit(frame *bitbus.Frame) error {
	if !frame.HasAddress && !p.config.IncludeIdle {
		return nil
	}

	data, err := json.Marshal(p.NewMessage(frame))
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	topic := p.Topic(frame)
	token := p.client.Publish(topic, p.config.QoS, p.config.Retain, data)
	if !token.WaitTimeout(p.config.PublishTimeout) {
		return bitbus.NewCaptureError("publish", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return bitbus.NewCaptureError("publish", topic, err)
	}
	return nil
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesceMs)
}
