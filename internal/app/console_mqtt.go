// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gait_feedback/internal/config"
	"github.com/relabs-tech/gait_feedback/internal/record"
	"github.com/relabs-tech/gait_feedback/internal/stream"
)

// RunConsoleMQTT prints every record published by a running session.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := stream.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := stream.SubscribeResults(client, cfg.TopicResults, func(r record.Record) {
		fmt.Println(formatRecord(r))
	}); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", cfg.TopicResults)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
