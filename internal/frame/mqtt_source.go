// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"context"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttFrameBuffer = 256

// MQTTSource receives JSON frames published by the sensor hub.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	frames chan Frame

	mu      sync.Mutex
	dropped uint64
	closed  bool
	done    chan struct{}
}

// NewMQTTSource connects to broker and subscribes to topic.
func NewMQTTSource(broker, clientID, topic string) (*MQTTSource, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetOrderMatters(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("frame: MQTT connect %s: %w", broker, token.Error())
	}

	s := newMQTTSource(client, topic)
	token := client.Subscribe(topic, 1, s.handle)
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("frame: MQTT subscribe %s: %w", topic, token.Error())
	}
	log.Printf("frames: subscribed to %s on %s", topic, broker)
	return s, nil
}

func newMQTTSource(client mqtt.Client, topic string) *MQTTSource {
	return &MQTTSource{
		client: client,
		topic:  topic,
		frames: make(chan Frame, mqttFrameBuffer),
		done:   make(chan struct{}),
	}
}

func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	f, err := Decode(msg.Payload())
	if err != nil {
		log.Printf("frames: %s: %v", msg.Topic(), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.frames <- f:
	default:
		// The consumer is behind; later counters will be off by the gap.
		s.dropped++
		log.Printf("frames: buffer full, dropped frame seq=%d (total %d)", f.Seq, s.dropped)
	}
}

// Next returns the next buffered frame.
func (s *MQTTSource) Next(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-s.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Dropped is the number of frames discarded because the buffer was full.
func (s *MQTTSource) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *MQTTSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if s.client != nil {
		s.client.Unsubscribe(s.topic).Wait()
		s.client.Disconnect(250)
	}
	return nil
}
