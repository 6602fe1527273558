// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package joint turns four segment orientations (pelvis, thigh, shank,
// foot) into hip, knee and ankle flexion angles.
//
// A session starts with Calibrate on a reference pose. That solves the
// sensor-to-segment alignment and the yaw misalignment of each sensor
// against the pelvis heading. Every later frame is mapped into the
// pelvis-heading body frame and flexion is read off as the wrapped roll
// difference between adjacent segments.
package joint

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

// LegSide selects which leg the thigh, shank and foot sensors are on.
type LegSide int

const (
	Right LegSide = iota
	Left
)

func (s LegSide) String() string {
	if s == Left {
		return "Left"
	}
	return "Right"
}

// YawOffset is the fixed heading offset between thigh/shank mounting and
// the pelvis for this leg: -90° on the right, +90° on the left.
func (s LegSide) YawOffset() float64 {
	if s == Left {
		return 90
	}
	return -90
}

// ParseLegSide accepts "left"/"right" (any case, optional " leg" suffix).
func ParseLegSide(v string) (LegSide, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(v)), " leg") {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Right, fmt.Errorf("unknown leg side %q", v)
}

// Segment is one instrumented rigid body part.
type Segment int

const (
	Pelvis Segment = iota
	Thigh
	Shank
	Foot

	numSegments
)

var segmentNames = [numSegments]string{"pelvis", "thigh", "shank", "foot"}

func (s Segment) String() string {
	if s < 0 || s >= numSegments {
		return fmt.Sprintf("segment(%d)", int(s))
	}
	return segmentNames[s]
}

// segmentRule is the per-segment calibration configuration.
//
// legOffset: the leg's ±90° yaw offset is added to the alignment target
// and subtracted from the pelvis-relative yaw correction.
// yawCorrected: the segment gets a yaw-offset quaternion. The pelvis is
// the heading reference and never does.
type segmentRule struct {
	legOffset    bool
	yawCorrected bool
}

var segmentRules = [numSegments]segmentRule{
	Pelvis: {legOffset: false, yawCorrected: false},
	Thigh:  {legOffset: true, yawCorrected: true},
	Shank:  {legOffset: true, yawCorrected: true},
	// The foot is assumed not to yaw against the shank during stance.
	Foot: {legOffset: false, yawCorrected: true},
}

// Segments holds one simultaneous orientation sample per segment
// (sensor frame to world frame).
type Segments struct {
	Pelvis orientation.Quaternion `json:"pelvis"`
	Thigh  orientation.Quaternion `json:"thigh"`
	Shank  orientation.Quaternion `json:"shank"`
	Foot   orientation.Quaternion `json:"foot"`
}

func (s Segments) at(seg Segment) orientation.Quaternion {
	switch seg {
	case Pelvis:
		return s.Pelvis
	case Thigh:
		return s.Thigh
	case Shank:
		return s.Shank
	default:
		return s.Foot
	}
}

// Validate rejects non-finite or non-unit quaternions.
func (s Segments) Validate() error {
	for seg := Pelvis; seg < numSegments; seg++ {
		if err := orientation.CheckQuaternion(seg.String(), s.at(seg)); err != nil {
			return err
		}
	}
	return nil
}
