// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package record

import (
	"github.com/relabs-tech/gait_feedback/internal/feedback"
	"github.com/relabs-tech/gait_feedback/internal/gait"
	"github.com/relabs-tech/gait_feedback/internal/joint"
)

// Record is the per-frame output that is saved and streamed.
type Record struct {
	Seq  uint64  `json:"seq"`
	Time float64 `json:"time"` // seconds since the first frame

	GaitPhase        gait.Phase `json:"gait_phase"`
	StepCount        int        `json:"step_count"`
	InFeedbackWindow bool       `json:"in_feedback_window"`

	MinThreshold     float64 `json:"min_threshold"`
	MaxThreshold     float64 `json:"max_threshold"`
	MinFeedbackState int     `json:"min_feedback_state"`
	MaxFeedbackState int     `json:"max_feedback_state"`

	HipFlex   float64 `json:"hip_flex"`
	KneeFlex  float64 `json:"knee_flex"`
	AnkleFlex float64 `json:"ankle_flex"`
}

// New assembles a record from one frame's outputs.
func New(seq uint64, t float64, g gait.Result, a joint.Angles, s feedback.Settings, d feedback.Decision) Record {
	return Record{
		Seq:              seq,
		Time:             t,
		GaitPhase:        g.Phase,
		StepCount:        g.StepCount,
		InFeedbackWindow: g.InFeedbackWindow,
		MinThreshold:     s.MinThreshold,
		MaxThreshold:     s.MaxThreshold,
		MinFeedbackState: d.MinState,
		MaxFeedbackState: d.MaxState,
		HipFlex:          a.HipFlex,
		KneeFlex:         a.KneeFlex,
		AnkleFlex:        a.AnkleFlex,
	}
}

// Sink consumes records. Implementations must not retain r past the call.
type Sink interface {
	Write(r Record) error
}
