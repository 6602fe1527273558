// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gait_feedback/internal/config"
	"github.com/relabs-tech/gait_feedback/internal/record"
	"github.com/relabs-tech/gait_feedback/internal/stream"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// latestRecord holds the newest record received over MQTT.
type latestRecord struct {
	mu   sync.RWMutex
	rec  record.Record
	have bool
}

func (l *latestRecord) set(r record.Record) {
	l.mu.Lock()
	l.rec, l.have = r, true
	l.mu.Unlock()
}

func (l *latestRecord) get() (record.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rec, l.have
}

// RunDisplay shows the live joint angles and gait phase on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Println("display: initialized")

	if err := dev.Draw(dev.Bounds(), splashImage(cfg.WhichLeg, cfg.WhichAngle), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := stream.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	latest := &latestRecord{}
	if err := stream.SubscribeResults(client, cfg.TopicResults, latest.set); err != nil {
		return err
	}
	log.Printf("display: subscribed to %s", cfg.TopicResults)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for range ticker.C {
		r, have := latest.get()
		if err := dev.Draw(dev.Bounds(), recordImage(r, have), image.Point{}); err != nil {
			log.Printf("display: error updating: %v", err)
		}
	}
	return nil
}

// drawLines renders up to four lines of 7x13 text onto a blank frame.
func drawLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, l := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(l)
	}
	return img
}

func recordImage(r record.Record, have bool) *image1bit.VerticalLSB {
	if !have {
		return drawLines("", "Gait feedback", "Waiting...")
	}
	fb := " "
	switch {
	case r.MinFeedbackState == 1:
		fb = "v"
	case r.MaxFeedbackState == 1:
		fb = "^"
	}
	return drawLines(
		fmt.Sprintf("%-6s %4d st %s", r.GaitPhase, r.StepCount, fb),
		fmt.Sprintf("Hip:   %6.1f", r.HipFlex),
		fmt.Sprintf("Knee:  %6.1f", r.KneeFlex),
		fmt.Sprintf("Ankle: %6.1f", r.AnkleFlex),
	)
}

func splashImage(leg, angle string) *image1bit.VerticalLSB {
	return drawLines("", "Gait feedback", leg+" leg", angle+" flex")
}
