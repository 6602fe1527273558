// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOActuator drives a vibration motor from one GPIO line.
type GPIOActuator struct {
	pin gpio.PinOut

	mu    sync.Mutex
	timer *time.Timer
	pulse uint64 // bumped by every On and Off; a timer only ends its own pulse
	on    bool
}

// OpenGPIOActuator resolves pin by name (e.g. "GPIO17") and drives it low.
func OpenGPIOActuator(name string) (*GPIOActuator, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("feedback pin %q not found", name)
	}
	return NewGPIOActuator(p)
}

// NewGPIOActuator wraps an already resolved pin and drives it low.
func NewGPIOActuator(pin gpio.PinOut) (*GPIOActuator, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("feedback pin %s: %w", pin, err)
	}
	return &GPIOActuator{pin: pin}, nil
}

func (g *GPIOActuator) On(d time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.pin.Out(gpio.High); err != nil {
		return err
	}
	g.on = true
	if g.timer != nil {
		g.timer.Stop()
	}
	g.pulse++
	pulse := g.pulse
	g.timer = time.AfterFunc(d, func() { g.expire(pulse) })
	return nil
}

func (g *GPIOActuator) expire(pulse uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pulse != g.pulse {
		return
	}
	if err := g.pin.Out(gpio.Low); err != nil {
		log.Printf("feedback: %s: pulse end: %v", g.pin, err)
		return
	}
	g.on = false
}

func (g *GPIOActuator) Off() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.pulse++
	if err := g.pin.Out(gpio.Low); err != nil {
		return err
	}
	g.on = false
	return nil
}

// Active reports whether a pulse is in progress.
func (g *GPIOActuator) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on
}

// LogActuator stands in for hardware and logs edges only.
type LogActuator struct {
	Name string
	on   bool
}

func (l *LogActuator) On(d time.Duration) error {
	if !l.on {
		log.Printf("feedback: %s on (%v pulse)", l.Name, d)
	}
	l.on = true
	return nil
}

func (l *LogActuator) Off() error {
	if l.on {
		log.Printf("feedback: %s off", l.Name)
	}
	l.on = false
	return nil
}
