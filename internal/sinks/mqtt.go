// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// MQTT publishes each snapshot to a topic so the console, web and display
// monitors can follow the station live. Optional; disabled unless listed in
// SINKS.
type MQTT struct {
	client mqtt.Client
	topic  string
}

// NewMQTT connects to the broker. A connect failure is returned to the
// caller so the sink can be skipped with a warning at startup.
func NewMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect: %w", token.Error())
	}
	return &MQTT{client: client, topic: topic}, nil
}

func (s *MQTT) Name() string { return "mqtt" }

func (s *MQTT) Store(_ context.Context, snap record.Snapshot) error {
	payload, err := json.Marshal(snap.Object())
	if err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkTransportFailure, Sink: s.Name(), Cause: err,
		}
	}

	token := s.client.Publish(s.topic, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return &telemetry.SinkError{
			Kind: telemetry.SinkTransportTimeout, Sink: s.Name(),
			Cause: fmt.Errorf("publish to %s timed out", s.topic),
		}
	}
	if err := token.Error(); err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkTransportFailure, Sink: s.Name(), Cause: err,
		}
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTT) Close() {
	s.client.Disconnect(250)
}
