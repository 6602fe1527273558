// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package frame defines the synchronized per-frame sensor sample and the
// sources that deliver it.
package frame

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relabs-tech/gait_feedback/internal/joint"
	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

// ErrClosed is returned by Next once a source has no more frames.
var ErrClosed = errors.New("frame: source closed")

// Frame is one synchronized sample: four segment orientations and the
// angular velocity (deg/s) of the gait reference sensor.
type Frame struct {
	Seq      uint64
	Segments joint.Segments
	Gyro     [3]float64
}

// Source delivers frames in strict sample order. Next blocks until a
// frame is available, ctx is done, or the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// wireFrame is the JSON form: scalar-first quaternions, gyro in deg/s.
type wireFrame struct {
	Seq    uint64     `json:"seq"`
	Pelvis [4]float64 `json:"pelvis"`
	Thigh  [4]float64 `json:"thigh"`
	Shank  [4]float64 `json:"shank"`
	Foot   [4]float64 `json:"foot"`
	Gyro   [3]float64 `json:"gyro"`
}

// Decode parses a JSON frame. It does not validate the quaternions; the
// joint engine does that per frame.
func Decode(data []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{}, fmt.Errorf("frame: decode: %w", err)
	}
	return Frame{
		Seq: w.Seq,
		Segments: joint.Segments{
			Pelvis: orientation.FromArray(w.Pelvis),
			Thigh:  orientation.FromArray(w.Thigh),
			Shank:  orientation.FromArray(w.Shank),
			Foot:   orientation.FromArray(w.Foot),
		},
		Gyro: w.Gyro,
	}, nil
}

// Encode is the inverse of Decode.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(wireFrame{
		Seq:    f.Seq,
		Pelvis: f.Segments.Pelvis.Array(),
		Thigh:  f.Segments.Thigh.Array(),
		Shank:  f.Segments.Shank.Array(),
		Foot:   f.Segments.Foot.Array(),
		Gyro:   f.Gyro,
	})
}
