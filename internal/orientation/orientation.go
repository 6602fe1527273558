// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Pose is an intrinsic Z-Y-X (yaw, pitch, roll) decomposition of a
// rotation, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

const (
	degPerRad = 180.0 / math.Pi
	radPerDeg = math.Pi / 180.0
)

// Wrap180 maps an angle in degrees into (-180, 180].
//
// It applies ((x + 180) mod 360) - 180 with a non-negative modulus, and
// folds the single value -180 that formula yields onto +180.
func Wrap180(deg float64) float64 {
	m := math.Mod(deg+180, 360)
	if m < 0 {
		m += 360
	}
	w := m - 180
	if w == -180 {
		return 180
	}
	return w
}
