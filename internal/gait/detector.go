// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gait

import (
	"fmt"
	"math"

	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

// Result is the detector output for one frame.
type Result struct {
	Phase            Phase   `json:"gait_phase"`
	StepCount        int     `json:"step_count"`
	InFeedbackWindow bool    `json:"in_feedback_window"`
	GyroMagnitude    float64 `json:"gyro_magnitude"`
}

// transition advances s by one frame at gyro magnitude mag and returns
// the new phase.
type transition func(d *Detector, mag float64) Phase

// transitions is keyed by the phase the frame starts in.
var transitions = map[Phase]transition{
	Swing:  (*Detector).fromSwing,
	Early:  (*Detector).fromEarly,
	Middle: (*Detector).fromMiddle,
	Late:   (*Detector).fromLate,
}

// Detector is the gait-phase state machine. Frames must arrive in order
// at the configured rate; skipped frames are not detected and shift the
// debounce and stance counters. Not safe for concurrent use.
type Detector struct {
	rate   float64
	params Params
	state  State
}

// NewDetector builds a detector for sample rate hz, starting in Late.
func NewDetector(hz float64) (*Detector, error) {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return nil, fmt.Errorf("gait: invalid sample rate %v", hz)
	}
	d := &Detector{rate: hz, state: initialState()}
	d.params = ParamsFor(hz, d.state.LastStanceTime)
	return d, nil
}

// State returns a copy of the current state.
func (d *Detector) State() State { return d.state }

// Params returns the thresholds currently in force.
func (d *Detector) Params() Params { return d.params }

// Update advances the state machine with one angular-velocity sample
// (deg/s) from the gait sensor.
func (d *Detector) Update(gx, gy, gz float64) (Result, error) {
	for _, c := range []struct {
		axis string
		v    float64
	}{{"x", gx}, {"y", gy}, {"z", gz}} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return Result{}, &orientation.InvalidInputError{
				Field:  "gyro",
				Reason: fmt.Sprintf("non-finite %s component %v", c.axis, c.v),
			}
		}
	}
	return d.UpdateMagnitude(math.Sqrt(gx*gx + gy*gy + gz*gz))
}

// UpdateMagnitude advances the state machine with a precomputed gyro
// magnitude (deg/s).
func (d *Detector) UpdateMagnitude(mag float64) (Result, error) {
	if math.IsNaN(mag) || math.IsInf(mag, 0) || mag < 0 {
		return Result{}, &orientation.InvalidInputError{
			Field:  "gyro",
			Reason: fmt.Sprintf("invalid magnitude %v", mag),
		}
	}

	step, ok := transitions[d.state.Phase]
	if !ok {
		return Result{}, fmt.Errorf("gait: no transition from %v", d.state.Phase)
	}

	d.state.PrevPhase = d.state.Phase
	d.state.Phase = step(d, mag)

	return Result{
		Phase:            d.state.Phase,
		StepCount:        d.state.StepCount,
		InFeedbackWindow: d.state.PrevPhase == Middle && d.state.Phase == Late,
		GyroMagnitude:    mag,
	}, nil
}

func (d *Detector) fromSwing(mag float64) Phase {
	if mag >= GyroThresholdHeelstrike {
		d.state.BelowThresholdIters = 0
		return Swing
	}
	d.state.BelowThresholdIters++
	if float64(d.state.BelowThresholdIters) > d.params.HeelstrikeDebounceIters {
		d.state.BelowThresholdIters = 0
		d.state.StanceIters = 0
		d.state.StepCount++
		return Early
	}
	return Swing
}

func (d *Detector) fromEarly(float64) Phase {
	d.state.StanceIters++
	if float64(d.state.StanceIters) > d.params.MiddleThresholdIters {
		return Middle
	}
	return Early
}

func (d *Detector) fromMiddle(float64) Phase {
	d.state.StanceIters++
	if float64(d.state.StanceIters) > d.params.LateThresholdIters {
		return Late
	}
	return Middle
}

func (d *Detector) fromLate(mag float64) Phase {
	d.state.StanceIters++
	if mag > GyroThresholdToeoff {
		d.state.LastStanceTime = clampStanceTime(float64(d.state.StanceIters) / d.rate)
		d.params = ParamsFor(d.rate, d.state.LastStanceTime)
		return Swing
	}
	return Late
}
