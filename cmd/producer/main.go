// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/gait_feedback/internal/config"
	"github.com/relabs-tech/gait_feedback/internal/frame"
	"github.com/relabs-tech/gait_feedback/internal/joint"
	"github.com/relabs-tech/gait_feedback/internal/stream"
)

func main() {
	configPath := flag.String("config", "./gait_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting gait-feedback MQTT frame producer (mock walk)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	side, err := joint.ParseLegSide(cfg.WhichLeg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client, err := stream.Connect(cfg.MQTTBroker, cfg.MQTTClientIDApp+"-producer")
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	defer client.Disconnect(250)

	src := frame.NewMockSource(float64(cfg.DataRate), side)
	ticker := time.NewTicker(time.Second / time.Duration(cfg.DataRate))
	defer ticker.Stop()

	ctx := context.Background()
	for range ticker.C {
		f, err := src.Next(ctx)
		if err != nil {
			log.Printf("error from mock source: %v", err)
			continue
		}

		payload, err := frame.Encode(f)
		if err != nil {
			log.Printf("frame encode error: %v", err)
			continue
		}

		if token := client.Publish(cfg.TopicFrames, 1, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error: %v", token.Error())
			continue
		}
		if f.Seq%uint64(cfg.DataRate) == 0 {
			log.Printf("published frame %d to %s", f.Seq, cfg.TopicFrames)
		}
	}
}
