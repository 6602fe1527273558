// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gait_feedback/internal/joint"
	"github.com/relabs-tech/gait_feedback/internal/orientation"
)

// TypeGAIT is the proprietary sentence the sensor hub emits once per frame:
//
//	$PGAIT,<seq>,<pelvis w,x,y,z>,<thigh ...>,<shank ...>,<foot ...>,<gx>,<gy>,<gz>*HH
const TypeGAIT = "GAIT"

const gaitFields = 1 + 16 + 3

// GAIT is a parsed $PGAIT sentence.
type GAIT struct {
	nmea.BaseSentence
	Seq   int64
	Quats [16]float64
	Gyro  [3]float64
}

func parseGAIT(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != gaitFields {
		return nil, fmt.Errorf("nmea: PGAIT expects %d fields, got %d", gaitFields, len(s.Fields))
	}
	p := nmea.NewParser(s)
	g := GAIT{BaseSentence: s}
	g.Seq = p.Int64(0, "seq")
	for i := range g.Quats {
		g.Quats[i] = p.Float64(1+i, "quaternion")
	}
	for i := range g.Gyro {
		g.Gyro[i] = p.Float64(17+i, "gyro")
	}
	return g, p.Err()
}

func (g GAIT) frame() Frame {
	q := func(i int) orientation.Quaternion {
		return orientation.FromArray([4]float64{g.Quats[i], g.Quats[i+1], g.Quats[i+2], g.Quats[i+3]})
	}
	return Frame{
		Seq: uint64(g.Seq),
		Segments: joint.Segments{
			Pelvis: q(0),
			Thigh:  q(4),
			Shank:  q(8),
			Foot:   q(12),
		},
		Gyro: g.Gyro,
	}
}

// NMEASource reads $PGAIT sentences line by line. Other sentences on the
// same link are ignored.
type NMEASource struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	parser  nmea.SentenceParser
}

// NewNMEASource wraps r. If r is an io.Closer it is closed by Close.
func NewNMEASource(r io.Reader) *NMEASource {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	return &NMEASource{
		rc:      rc,
		scanner: bufio.NewScanner(rc),
		parser: nmea.SentenceParser{
			CustomParsers: map[string]nmea.ParserFunc{
				TypeGAIT:       parseGAIT,
				"P" + TypeGAIT: parseGAIT,
			},
		},
	}
}

// OpenSerialSource opens the sensor hub's UART.
func OpenSerialSource(portName string, baud int) (*NMEASource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("frame: open serial %s: %w", portName, err)
	}
	log.Printf("frames: serial port opened on %s at %d baud", portName, baud)
	return NewNMEASource(port), nil
}

// Next blocks on the underlying reader; ctx is checked between lines.
func (s *NMEASource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Frame{}, fmt.Errorf("frame: serial read: %w", err)
			}
			return Frame{}, ErrClosed
		}

		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := s.parser.Parse(line)
		if err != nil {
			// Corrupt frames are dropped; the hub keeps streaming.
			log.Printf("frames: NMEA parse error: %v", err)
			continue
		}
		g, ok := sentence.(GAIT)
		if !ok {
			continue
		}
		return g.frame(), nil
	}
}

func (s *NMEASource) Close() error {
	return s.rc.Close()
}
