// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package joint

import (
	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

// SegmentCalibration is the sensor-to-segment solution for one leg.
// It is immutable once built.
type SegmentCalibration struct {
	side      LegSide
	alignment [numSegments]orientation.Quaternion
	yawOffset [numSegments]orientation.Quaternion
}

// Calibrate solves the alignment and yaw-offset quaternions from a single
// reference-pose sample.
func Calibrate(side LegSide, ref Segments) (*SegmentCalibration, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	legOffset := side.YawOffset()
	pelvisYaw := orientation.EulerZYX(ref.Pelvis).Yaw

	cal := &SegmentCalibration{side: side}
	for seg := Pelvis; seg < numSegments; seg++ {
		rule := segmentRules[seg]
		q := ref.at(seg)
		yaw := orientation.EulerZYX(q).Yaw

		offset := 0.0
		if rule.legOffset {
			offset = legOffset
		}

		target := orientation.FromYaw(orientation.Wrap180(yaw + offset))
		cal.alignment[seg] = orientation.Compose(orientation.Inverse(q), target)

		if rule.yawCorrected {
			// Rotates the segment heading back onto the pelvis heading.
			cal.yawOffset[seg] = orientation.FromYaw(-(yaw - offset - pelvisYaw))
		} else {
			cal.yawOffset[seg] = orientation.Identity
		}
	}
	return cal, nil
}

// Side is the leg this calibration was solved for.
func (c *SegmentCalibration) Side() LegSide { return c.side }

// Alignment is the inverse sensor rotation composed with the yaw-only
// target for seg.
func (c *SegmentCalibration) Alignment(seg Segment) orientation.Quaternion {
	return c.alignment[seg]
}

// YawOffset is the heading correction for seg; identity for the pelvis.
// It is FromYaw(-(segYaw - legOffset - pelvisYaw)), the negated offset angle.
func (c *SegmentCalibration) YawOffset(seg Segment) orientation.Quaternion {
	return c.yawOffset[seg]
}

// GlobalBody maps a sensor orientation of seg into the global body frame:
// [yawOffset ⋅] sensor ⋅ alignment.
func (c *SegmentCalibration) GlobalBody(seg Segment, sensor orientation.Quaternion) orientation.Quaternion {
	gb := orientation.Compose(sensor, c.alignment[seg])
	if segmentRules[seg].yawCorrected {
		gb = orientation.Compose(c.yawOffset[seg], gb)
	}
	return gb
}
