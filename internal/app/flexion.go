// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/relabs-tech/gait_feedback/internal/config"
	"github.com/relabs-tech/gait_feedback/internal/feedback"
	"github.com/relabs-tech/gait_feedback/internal/frame"
	"github.com/relabs-tech/gait_feedback/internal/gait"
	"github.com/relabs-tech/gait_feedback/internal/joint"
	"github.com/relabs-tech/gait_feedback/internal/orientation"
	"github.com/relabs-tech/gait_feedback/internal/record"
	"github.com/relabs-tech/gait_feedback/internal/sensors"
	"github.com/relabs-tech/gait_feedback/internal/storage"
	"github.com/relabs-tech/gait_feedback/internal/stream"
)

// Pipeline turns frames into records: calibration on the first valid
// frame, then joint angles, gait phase and the feedback decision.
type Pipeline struct {
	rate     float64
	engine   *joint.Engine
	detector *gait.Detector
	feedback *feedback.Controller
	gyro     sensors.GyroReader // nil: use the gyro carried in each frame
	sinks    []record.Sink

	iter    uint64
	skipped uint64
	last    record.Record
}

func NewPipeline(rate float64, side joint.LegSide, fb *feedback.Controller, gyro sensors.GyroReader, sinks ...record.Sink) (*Pipeline, error) {
	det, err := gait.NewDetector(rate)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		rate:     rate,
		engine:   joint.NewEngine(side),
		detector: det,
		feedback: fb,
		gyro:     gyro,
		sinks:    sinks,
	}, nil
}

// Process handles one frame. An *orientation.InvalidInputError means the
// frame was skipped; any other error is fatal for the session. The gait
// detector advances before calibration and angles so its timing stays
// tied to the frame rate even when a frame's orientations are rejected.
func (p *Pipeline) Process(f frame.Frame) (record.Record, error) {
	iter := p.iter
	p.iter++

	g := f.Gyro
	if p.gyro != nil {
		var err error
		if g, err = p.gyro.ReadGyro(); err != nil {
			return record.Record{}, fmt.Errorf("gait gyro: %w", err)
		}
	}
	res, err := p.detector.Update(g[0], g[1], g[2])
	if err != nil {
		return record.Record{}, err
	}

	if !p.engine.Calibrated() {
		if err := p.engine.Calibrate(f.Segments); err != nil {
			return record.Record{}, err
		}
		log.Printf("flexion: %s leg calibrated on frame %d", p.engine.Side(), f.Seq)
	}

	angles, err := p.engine.ComputeAngles(f.Segments)
	if err != nil {
		return record.Record{}, err
	}

	dec, err := p.feedback.Apply(angles, res.InFeedbackWindow)
	if err != nil {
		return record.Record{}, err
	}

	rec := record.New(f.Seq, float64(iter)/p.rate, res, angles, p.feedback.Settings(), dec)
	for _, s := range p.sinks {
		if err := s.Write(rec); err != nil {
			log.Printf("flexion: sink error: %v", err)
		}
	}
	p.last = rec
	return rec, nil
}

// Run pulls frames from src until it is exhausted or ctx is done. With
// pace > 0 frames are pulled at most once per pace. A status line is
// logged every statusEvery.
func (p *Pipeline) Run(ctx context.Context, src frame.Source, pace, statusEvery time.Duration) error {
	defer func() {
		if err := p.feedback.AllOff(); err != nil {
			log.Printf("flexion: feedback off: %v", err)
		}
	}()

	var tick <-chan time.Time
	if pace > 0 {
		ticker := time.NewTicker(pace)
		defer ticker.Stop()
		tick = ticker.C
	}
	lastStatus := time.Now()

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}

		f, err := src.Next(ctx)
		if errors.Is(err, frame.ErrClosed) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("flexion: frame source: %w", err)
		}

		var invalid *orientation.InvalidInputError
		if _, err := p.Process(f); errors.As(err, &invalid) {
			p.skipped++
			log.Printf("flexion: skipping frame %d: %v", f.Seq, err)
		} else if err != nil {
			return fmt.Errorf("flexion: frame %d: %w", f.Seq, err)
		}

		if statusEvery > 0 && time.Since(lastStatus) >= statusEvery {
			lastStatus = time.Now()
			p.logStatus()
		}
	}
}

func (p *Pipeline) logStatus() {
	r := p.last
	log.Printf("flexion: t=%.2fs phase=%s steps=%d hip=%.1f knee=%.1f ankle=%.1f fb=%d/%d skipped=%d",
		r.Time, r.GaitPhase, r.StepCount, r.HipFlex, r.KneeFlex, r.AnkleFlex,
		r.MinFeedbackState, r.MaxFeedbackState, p.skipped)
}

// Skipped returns how many frames were rejected as invalid input.
func (p *Pipeline) Skipped() uint64 { return p.skipped }

// feedbackSettings maps the config onto feedback.Settings.
func feedbackSettings(cfg *config.Config) (feedback.Settings, error) {
	angle, err := feedback.ParseAngle(cfg.WhichAngle)
	if err != nil {
		return feedback.Settings{}, err
	}
	return feedback.Settings{
		Angle:        angle,
		MinThreshold: cfg.MinThreshold,
		MaxThreshold: cfg.MaxThreshold,
		Enabled:      cfg.FeedbackEnabled,
		GaitGated:    cfg.FeedbackGaitGated,
		Pulse:        time.Duration(cfg.PulseLength) * time.Millisecond,
	}, nil
}

// openSource builds the configured frame source. Failing here is the
// startup status check for the input side.
func openSource(cfg *config.Config, side joint.LegSide) (frame.Source, time.Duration, error) {
	switch cfg.FrameSource {
	case "mock":
		log.Println("flexion: using mock frame source")
		return frame.NewMockSource(float64(cfg.DataRate), side), time.Second / time.Duration(cfg.DataRate), nil
	case "serial":
		src, err := frame.OpenSerialSource(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, 0, fmt.Errorf("status check: sensor hub on %s not reachable: %w", cfg.SerialPort, err)
		}
		return src, 0, nil
	default:
		src, err := frame.NewMQTTSource(cfg.MQTTBroker, cfg.MQTTClientIDApp+"-frames", cfg.TopicFrames)
		if err != nil {
			return nil, 0, fmt.Errorf("status check: frame broker %s not reachable: %w", cfg.MQTTBroker, err)
		}
		return src, 0, nil
	}
}

func openFeedback(cfg *config.Config) (*feedback.Controller, error) {
	s, err := feedbackSettings(cfg)
	if err != nil {
		return nil, err
	}
	if !s.Enabled {
		return feedback.NewController(s, nil, nil)
	}
	lo, err := feedback.OpenGPIOActuator(cfg.FeedbackMinPin)
	if err != nil {
		return nil, fmt.Errorf("status check: min feedback actuator: %w", err)
	}
	hi, err := feedback.OpenGPIOActuator(cfg.FeedbackMaxPin)
	if err != nil {
		return nil, fmt.Errorf("status check: max feedback actuator: %w", err)
	}
	return feedback.NewController(s, lo, hi)
}

// RunFlexion is the main session: frames in, angles, gait phase and
// feedback out, with records saved and streamed as configured.
func RunFlexion() error {
	cfg := config.Get()
	log.Printf("flexion: %s leg, %s feedback at %d Hz", cfg.WhichLeg, cfg.WhichAngle, cfg.DataRate)

	side, err := joint.ParseLegSide(cfg.WhichLeg)
	if err != nil {
		return err
	}

	fb, err := openFeedback(cfg)
	if err != nil {
		return err
	}

	var gyro sensors.GyroReader
	if cfg.GaitGyroSource == "spi" {
		if gyro, err = sensors.NewGyroSource("gait", cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUGyroRange); err != nil {
			return fmt.Errorf("status check: gait gyro: %w", err)
		}
	}

	var sinks []record.Sink
	if cfg.DBPath != "" {
		rec, err := storage.Open(cfg.DBPath, cfg.WhichLeg, cfg.WhichAngle, cfg.DataRate)
		if err != nil {
			return err
		}
		defer rec.Close()
		log.Printf("flexion: recording session %s to %s", rec.Session().ID, cfg.DBPath)
		sinks = append(sinks, rec)
	}
	if cfg.MQTTBroker != "" {
		pub, err := stream.DialMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientIDApp, cfg.TopicResults)
		if err != nil {
			return fmt.Errorf("status check: results broker: %w", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	if cfg.WebServerPort != 0 {
		hub := stream.NewHub()
		sinks = append(sinks, hub)
		addr := ":" + strconv.Itoa(cfg.WebServerPort)
		go func() {
			log.Printf("flexion: live feed on %s", addr)
			if err := http.ListenAndServe(addr, hub.Handler("web")); err != nil {
				log.Printf("flexion: web server: %v", err)
			}
		}()
	}

	src, pace, err := openSource(cfg, side)
	if err != nil {
		return err
	}
	defer src.Close()

	p, err := NewPipeline(float64(cfg.DataRate), side, fb, gyro, sinks...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = p.Run(ctx, src, pace, time.Duration(cfg.ConsoleLogInterval)*time.Millisecond)
	log.Printf("flexion: shutting down")
	return err
}
