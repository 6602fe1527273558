// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"context"
	"math"

	"github.com/relabs-tech/gait_feedback/internal/joint"
	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

// Synthetic gait: one stride per second, 60% stance.
const (
	mockStridePeriod  = 1.0
	mockStanceFrac    = 0.6
	mockPelvisHeading = 10.0
)

type mockSource struct {
	rate float64
	side joint.LegSide
	seq  uint64
}

// NewMockSource creates a source that generates a smooth synthetic walk
// at rate Hz. Frames are produced on demand; pacing is up to the caller.
func NewMockSource(rate float64, side joint.LegSide) Source {
	return &mockSource{rate: rate, side: side}
}

func (m *mockSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	f := MockFrame(float64(m.seq)/m.rate, m.side)
	f.Seq = m.seq
	m.seq++
	return f, nil
}

func (m *mockSource) Close() error { return nil }

// MockFrame is the synthetic frame at t seconds. Thigh and shank sensors
// sit on the side of the leg (heading offset by the leg's yaw offset) and
// the foot sensor faces forward, so after calibrating on t = 0 the joint
// engine reports MockAngles(t).
func MockFrame(t float64, side joint.LegSide) Frame {
	hip, knee, ankle := MockAngles(t)

	// Lateral sensors see sagittal rotation with opposite sign per leg.
	m := 1.0
	if side == joint.Left {
		m = -1
	}
	legHeading := mockPelvisHeading + side.YawOffset()

	// Stance: foot nearly still. Swing: fast foot rotation.
	gyro := [3]float64{2, 1, 0}
	if cycle := strideFraction(t); cycle >= mockStanceFrac {
		s := (cycle - mockStanceFrac) / (1 - mockStanceFrac)
		gyro = [3]float64{150 + 100*math.Sin(math.Pi*s), 20, 5}
	}

	return Frame{
		Segments: joint.Segments{
			Pelvis: orientation.FromYaw(mockPelvisHeading),
			Thigh:  orientation.FromEulerZYX(legHeading, m*hip, 0),
			Shank:  orientation.FromEulerZYX(legHeading, m*(hip-knee), 0),
			Foot:   orientation.FromEulerZYX(mockPelvisHeading, 0, knee-hip+ankle),
		},
		Gyro: gyro,
	}
}

// MockAngles are the hip, knee and ankle flexion the mock walk encodes.
func MockAngles(t float64) (hip, knee, ankle float64) {
	w := 2 * math.Pi * strideFraction(t)
	return 20 * math.Sin(w), 30 * (1 - math.Cos(w)) / 2, 10 * math.Sin(2*w)
}

func strideFraction(t float64) float64 {
	return math.Mod(t, mockStridePeriod) / mockStridePeriod
}
