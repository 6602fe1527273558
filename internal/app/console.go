// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/gait_feedback/internal/config"
	"github.com/relabs-tech/gait_feedback/internal/feedback"
	"github.com/relabs-tech/gait_feedback/internal/frame"
	"github.com/relabs-tech/gait_feedback/internal/joint"
	"github.com/relabs-tech/gait_feedback/internal/record"
)

func formatRecord(r record.Record) string {
	window := ' '
	if r.InFeedbackWindow {
		window = '*'
	}
	return fmt.Sprintf("t=%7.2f %-6s%c steps=%3d  HIP=%6.1f  KNEE=%6.1f  ANKLE=%6.1f  fb=%d/%d",
		r.Time, r.GaitPhase, window, r.StepCount, r.HipFlex, r.KneeFlex, r.AnkleFlex,
		r.MinFeedbackState, r.MaxFeedbackState)
}

// consoleSink prints one line per record.
type consoleSink struct {
	w io.Writer
}

func (c consoleSink) Write(r record.Record) error {
	_, err := fmt.Fprintln(c.w, formatRecord(r))
	return err
}

// RunConsole runs the full pipeline on the synthetic walk and prints every
// record. Feedback goes to the log instead of GPIO.
func RunConsole() error {
	cfg := config.Get()

	side, err := joint.ParseLegSide(cfg.WhichLeg)
	if err != nil {
		return err
	}
	s, err := feedbackSettings(cfg)
	if err != nil {
		return err
	}
	fb, err := feedback.NewController(s, &feedback.LogActuator{Name: "min"}, &feedback.LogActuator{Name: "max"})
	if err != nil {
		return err
	}

	rate := float64(cfg.DataRate)
	p, err := NewPipeline(rate, side, fb, nil, consoleSink{w: os.Stdout})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return p.Run(ctx, frame.NewMockSource(rate, side), time.Second/time.Duration(cfg.DataRate), 0)
}
