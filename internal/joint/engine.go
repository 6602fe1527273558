// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joint

import (
	"errors"

	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

// ErrNotCalibrated is returned by ComputeAngles before Calibrate.
var ErrNotCalibrated = errors.New("joint: engine not calibrated")

// Angles holds one frame of flexion angles in degrees, each in (-180, 180].
type Angles struct {
	HipFlex   float64 `json:"hip_flex"`
	KneeFlex  float64 `json:"knee_flex"`
	AnkleFlex float64 `json:"ankle_flex"`
}

// Engine computes joint angles for one leg. It is not safe for
// concurrent use; one goroutine should own it for the session.
type Engine struct {
	side LegSide
	cal  *SegmentCalibration
}

func NewEngine(side LegSide) *Engine {
	return &Engine{side: side}
}

// Calibrate solves a new calibration from ref. Calling it again replaces
// the previous calibration and re-bases every later angle.
func (e *Engine) Calibrate(ref Segments) error {
	cal, err := Calibrate(e.side, ref)
	if err != nil {
		return err
	}
	e.cal = cal
	return nil
}

func (e *Engine) Calibrated() bool { return e.cal != nil }

// Calibration returns the active calibration, or nil.
func (e *Engine) Calibration() *SegmentCalibration { return e.cal }

func (e *Engine) Side() LegSide { return e.side }

// ComputeAngles returns hip, knee and ankle flexion for the current frame.
func (e *Engine) ComputeAngles(cur Segments) (Angles, error) {
	if e.cal == nil {
		return Angles{}, ErrNotCalibrated
	}
	if err := cur.Validate(); err != nil {
		return Angles{}, err
	}

	var roll [numSegments]float64
	for seg := Pelvis; seg < numSegments; seg++ {
		roll[seg] = orientation.EulerZYX(e.cal.GlobalBody(seg, cur.at(seg))).Roll
	}

	return Angles{
		HipFlex: orientation.Wrap180(roll[Pelvis] - roll[Thigh]),
		// Knee and ankle flex opposite to the raw roll difference.
		KneeFlex:  orientation.Wrap180(-(roll[Thigh] - roll[Shank])),
		AnkleFlex: orientation.Wrap180(-(roll[Shank] - roll[Foot])),
	}, nil
}
