// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"net/http"
	"strconv"

	"github.com/relabs-tech/gait_feedback/internal/config"
	"github.com/relabs-tech/gait_feedback/internal/record"
	"github.com/relabs-tech/gait_feedback/internal/stream"
)

// RunWeb relays records from MQTT to browsers: GET /api/latest, the /ws
// live feed and static files from ./web.
func RunWeb() error {
	cfg := config.Get()

	client, err := stream.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	hub := stream.NewHub()
	if err := stream.SubscribeResults(client, cfg.TopicResults, func(r record.Record) {
		hub.Write(r)
	}); err != nil {
		return err
	}
	log.Printf("web: subscribed to %s", cfg.TopicResults)

	port := cfg.WebServerPort
	if port == 0 {
		port = 8080
	}
	addr := ":" + strconv.Itoa(port)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, hub.Handler("web"))
}
