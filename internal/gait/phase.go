// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gait classifies gait-cycle phase from one sensor's angular
// velocity. Stance is split into Early/Middle/Late by elapsed fractions of
// the previous stance duration; heelstrike and toe-off are detected by
// thresholding the gyro magnitude, with a debounce on heelstrike.
package gait

import (
	"encoding/json"
	"fmt"
)

// Phase is a gait-cycle phase.
type Phase int

const (
	Early Phase = iota + 1
	Middle
	Late
	Swing
)

func (p Phase) String() string {
	switch p {
	case Early:
		return "Early"
	case Middle:
		return "Middle"
	case Late:
		return "Late"
	case Swing:
		return "Swing"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range []Phase{Early, Middle, Late, Swing} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown gait phase %q", s)
}

const (
	// InitialStanceTime seeds the adaptive stance thresholds, seconds.
	InitialStanceTime = 0.6
	MinStanceTime     = 0.4
	MaxStanceTime     = 2.0

	// Gyro magnitude thresholds, deg/s.
	GyroThresholdHeelstrike = 45.0
	GyroThresholdToeoff     = 45.0

	middleStanceFraction = 0.25
	lateStanceFraction   = 0.5
	heelstrikeDebounce   = 0.1 // seconds
)

// State is the detector's mutable state. Only the owning Detector
// changes it.
type State struct {
	Phase     Phase
	PrevPhase Phase

	// BelowThresholdIters counts consecutive Swing frames under the
	// heelstrike threshold.
	BelowThresholdIters int
	// StanceIters counts frames since the last heelstrike.
	StanceIters int

	// LastStanceTime is the last measured stance duration, seconds,
	// always within [MinStanceTime, MaxStanceTime].
	LastStanceTime float64
	StepCount      int
}

func initialState() State {
	return State{
		Phase:          Late,
		PrevPhase:      Late,
		LastStanceTime: InitialStanceTime,
	}
}

// Params are the frame-count thresholds derived from the sample rate and
// the last stance duration.
type Params struct {
	SampleRate              float64
	MiddleThresholdIters    float64
	LateThresholdIters      float64
	HeelstrikeDebounceIters float64
}

// ParamsFor derives thresholds for sample rate hz and stance time seconds.
func ParamsFor(hz, lastStanceTime float64) Params {
	return Params{
		SampleRate:              hz,
		MiddleThresholdIters:    middleStanceFraction * lastStanceTime * hz,
		LateThresholdIters:      lateStanceFraction * lastStanceTime * hz,
		HeelstrikeDebounceIters: heelstrikeDebounce * hz,
	}
}

func clampStanceTime(s float64) float64 {
	if s > MaxStanceTime {
		return MaxStanceTime
	}
	if s < MinStanceTime {
		return MinStanceTime
	}
	return s
}
