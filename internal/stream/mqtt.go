// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package stream publishes per-frame records to MQTT and WebSocket clients.
package stream

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gait_feedback/internal/record"
)

// Connect opens an MQTT client the way every component here does.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("stream: MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// MQTTPublisher writes each record as JSON to one topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	owned  bool
}

// DialMQTTPublisher connects to broker and publishes to topic. Close
// disconnects the client.
func DialMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	client, err := Connect(broker, clientID)
	if err != nil {
		return nil, err
	}
	log.Printf("stream: publishing results to %s on %s", topic, broker)
	return &MQTTPublisher{client: client, topic: topic, owned: true}, nil
}

// NewMQTTPublisher publishes on an existing client, which Close leaves
// connected.
func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

// Write implements record.Sink.
func (p *MQTTPublisher) Write(r record.Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("stream: marshal seq %d: %w", r.Seq, err)
	}
	if token := p.client.Publish(p.topic, 0, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("stream: publish %s: %w", p.topic, token.Error())
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	if p.owned {
		p.client.Disconnect(250)
	}
	return nil
}

// SubscribeResults calls fn for every record published on topic.
// Malformed payloads are logged and skipped.
func SubscribeResults(client mqtt.Client, topic string, fn func(record.Record)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r record.Record
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("stream: %s unmarshal error: %v", topic, err)
			return
		}
		fn(r)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("stream: subscribe %s: %w", topic, token.Error())
	}
	return nil
}
