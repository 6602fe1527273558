// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// UnitTolerance is how far |q| may drift from 1 before Validate rejects it.
const UnitTolerance = 1e-3

// Quaternion is a unit rotation quaternion, scalar first.
// Nothing in this package renormalizes; callers pass unit quaternions.
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the zero rotation.
var Identity = Quaternion{W: 1}

// FromArray builds a quaternion from a scalar-first [w, x, y, z] array.
func FromArray(a [4]float64) Quaternion {
	return Quaternion{W: a[0], X: a[1], Y: a[2], Z: a[3]}
}

// Array returns the scalar-first components.
func (q Quaternion) Array() [4]float64 {
	return [4]float64{q.W, q.X, q.Y, q.Z}
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

// Compose returns the rotation that applies b first and then a (the
// Hamilton product a*b). It is not commutative.
func Compose(a, b Quaternion) Quaternion {
	return fromNumber(quat.Mul(a.number(), b.number()))
}

// Inverse returns the conjugate of q, which is its inverse for unit q.
func Inverse(q Quaternion) Quaternion {
	return fromNumber(quat.Conj(q.number()))
}

// Norm is the Euclidean length of q.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.number())
}

// Validate reports whether q is finite and of unit length.
func (q Quaternion) Validate() error {
	n := q.number()
	if quat.IsNaN(n) || quat.IsInf(n) {
		return fmt.Errorf("non-finite component in %v", q.Array())
	}
	if norm := quat.Abs(n); math.Abs(norm-1) > UnitTolerance {
		return fmt.Errorf("norm %.6f is not unit", norm)
	}
	return nil
}

// EulerZYX decomposes q into intrinsic Z-Y-X angles in degrees, each
// wrapped into (-180, 180]. At gimbal lock (pitch = ±90°) roll is
// reported as 0 and the whole heading is carried by yaw.
func EulerZYX(q Quaternion) Pose {
	w, x, y, z := q.W, q.X, q.Y, q.Z

	sinp := 2 * (w*y - z*x)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	pitch := math.Asin(sinp)

	var yaw, roll float64
	if math.Abs(sinp) > 1-1e-12 {
		// Yaw and roll are coupled; fold everything into yaw.
		yaw = -2 * math.Copysign(1, sinp) * math.Atan2(x, w)
		roll = 0
	} else {
		yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
		roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	}

	return Pose{
		Yaw:   Wrap180(yaw * degPerRad),
		Pitch: Wrap180(pitch * degPerRad),
		Roll:  Wrap180(roll * degPerRad),
	}
}

// FromYaw builds a pure rotation about Z (pitch = roll = 0).
func FromYaw(deg float64) Quaternion {
	h := deg * radPerDeg / 2
	return Quaternion{W: math.Cos(h), Z: math.Sin(h)}
}

// FromEulerZYX builds the rotation Rz(yaw) * Ry(pitch) * Rx(roll), the
// inverse of EulerZYX away from gimbal lock.
func FromEulerZYX(yaw, pitch, roll float64) Quaternion {
	cy, sy := math.Cos(yaw*radPerDeg/2), math.Sin(yaw*radPerDeg/2)
	cp, sp := math.Cos(pitch*radPerDeg/2), math.Sin(pitch*radPerDeg/2)
	cr, sr := math.Cos(roll*radPerDeg/2), math.Sin(roll*radPerDeg/2)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}
