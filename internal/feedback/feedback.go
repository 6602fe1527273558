// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback decides when to pulse the haptic actuators from the
// per-frame joint angles.
package feedback

import (
	"fmt"
	"strings"
	"time"

	"github.com/relabs-tech/gait_feedback/internal/joint"
)

// Angle selects which joint angle drives feedback.
type Angle int

const (
	Hip Angle = iota
	Knee
	Ankle
)

func (a Angle) String() string {
	switch a {
	case Hip:
		return "Hip"
	case Knee:
		return "Knee"
	case Ankle:
		return "Ankle"
	}
	return fmt.Sprintf("Angle(%d)", int(a))
}

// ParseAngle accepts "Hip", "Knee", "Ankle", optionally with " Flex".
func ParseAngle(s string) (Angle, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), " Flex")) {
	case "hip":
		return Hip, nil
	case "knee":
		return Knee, nil
	case "ankle":
		return Ankle, nil
	}
	return Hip, fmt.Errorf("unknown feedback angle %q", s)
}

// Of picks the selected angle from a frame.
func (a Angle) Of(angles joint.Angles) float64 {
	switch a {
	case Hip:
		return angles.HipFlex
	case Ankle:
		return angles.AnkleFlex
	default:
		return angles.KneeFlex
	}
}

// Actuator is one haptic output.
type Actuator interface {
	// On starts a pulse of length d, restarting any pulse in progress.
	On(d time.Duration) error
	Off() error
}

// Settings configure a Controller.
type Settings struct {
	Angle        Angle
	MinThreshold float64
	MaxThreshold float64
	Enabled      bool
	// GaitGated restricts decisions to frames flagged as in the feedback
	// window. When false every frame is evaluated.
	GaitGated bool
	Pulse     time.Duration
}

// Decision is the outcome for one frame.
type Decision struct {
	MinState  int  `json:"min_feedback_state"`
	MaxState  int  `json:"max_feedback_state"`
	Evaluated bool `json:"-"`
}

// Controller drives a below-minimum and an above-maximum actuator.
type Controller struct {
	settings Settings
	min, max Actuator
}

func NewController(s Settings, minAct, maxAct Actuator) (*Controller, error) {
	if s.MinThreshold >= s.MaxThreshold {
		return nil, fmt.Errorf("feedback: min threshold %g must be below max %g", s.MinThreshold, s.MaxThreshold)
	}
	if s.Enabled && (minAct == nil || maxAct == nil) {
		return nil, fmt.Errorf("feedback: enabled without both actuators")
	}
	return &Controller{settings: s, min: minAct, max: maxAct}, nil
}

func (c *Controller) Settings() Settings { return c.settings }

// Apply evaluates one frame and switches the actuators accordingly.
func (c *Controller) Apply(angles joint.Angles, inWindow bool) (Decision, error) {
	if !c.settings.Enabled {
		return Decision{}, nil
	}
	if c.settings.GaitGated && !inWindow {
		return Decision{}, nil
	}

	v := c.settings.Angle.Of(angles)
	d := Decision{Evaluated: true}
	if v < c.settings.MinThreshold {
		d.MinState = 1
	}
	if v > c.settings.MaxThreshold {
		d.MaxState = 1
	}

	if err := c.toggle(c.min, d.MinState == 1); err != nil {
		return d, fmt.Errorf("feedback: min actuator: %w", err)
	}
	if err := c.toggle(c.max, d.MaxState == 1); err != nil {
		return d, fmt.Errorf("feedback: max actuator: %w", err)
	}
	return d, nil
}

func (c *Controller) toggle(a Actuator, on bool) error {
	if on {
		return a.On(c.settings.Pulse)
	}
	return a.Off()
}

// AllOff switches both actuators off.
func (c *Controller) AllOff() error {
	var firstErr error
	for _, a := range []Actuator{c.min, c.max} {
		if a == nil {
			continue
		}
		if err := a.Off(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
