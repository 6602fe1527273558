// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package storage records sessions of per-frame output to SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/gait_feedback/internal/gait"
	"github.com/relabs-tech/gait_feedback/internal/record"
)

// Session describes one recording.
type Session struct {
	ID        string
	StartedAt time.Time
	Leg       string
	Angle     string
	DataRate  int
}

// Recorder appends records of one session. Writes are batched into a
// transaction that is committed every batchSize records and on Close.
type Recorder struct {
	db      *sql.DB
	session Session

	tx      *sql.Tx
	stmt    *sql.Stmt
	pending int
}

const batchSize = 100

// Open opens (creating if needed) the database at path and starts a new
// session.
func Open(path, leg, angle string, dataRate int) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	s := Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Leg:       leg,
		Angle:     angle,
		DataRate:  dataRate,
	}
	if _, err := db.Exec(`INSERT INTO sessions (id, started_at, leg, angle, datarate) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.StartedAt.Format(time.RFC3339Nano), s.Leg, s.Angle, s.DataRate); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create session: %w", err)
	}
	return &Recorder{db: db, session: s}, nil
}

func (r *Recorder) Session() Session { return r.session }

// Write implements record.Sink.
func (r *Recorder) Write(rec record.Record) error {
	if r.tx == nil {
		tx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("storage: begin: %w", err)
		}
		stmt, err := tx.Prepare(`INSERT INTO frames (session_id, seq, t, gait_phase, step_count, in_feedback_window,
			min_threshold, max_threshold, min_feedback_state, max_feedback_state, hip_flex, knee_flex, ankle_flex)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("storage: prepare: %w", err)
		}
		r.tx, r.stmt = tx, stmt
	}

	if _, err := r.stmt.Exec(r.session.ID, rec.Seq, rec.Time, rec.GaitPhase.String(), rec.StepCount,
		rec.InFeedbackWindow, rec.MinThreshold, rec.MaxThreshold, rec.MinFeedbackState, rec.MaxFeedbackState,
		rec.HipFlex, rec.KneeFlex, rec.AnkleFlex); err != nil {
		return fmt.Errorf("storage: insert seq %d: %w", rec.Seq, err)
	}

	r.pending++
	if r.pending >= batchSize {
		return r.Flush()
	}
	return nil
}

// Flush commits buffered records.
func (r *Recorder) Flush() error {
	if r.tx == nil {
		return nil
	}
	r.stmt.Close()
	err := r.tx.Commit()
	r.tx, r.stmt, r.pending = nil, nil, 0
	if err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// Close flushes and closes the database.
func (r *Recorder) Close() error {
	flushErr := r.Flush()
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	return flushErr
}

// LoadSession reads back every record of a session in sequence order.
func LoadSession(path, sessionID string) ([]record.Record, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT seq, t, gait_phase, step_count, in_feedback_window, min_threshold, max_threshold,
		min_feedback_state, max_feedback_state, hip_flex, knee_flex, ankle_flex
		FROM frames WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: query session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var rec record.Record
		var phase string
		if err := rows.Scan(&rec.Seq, &rec.Time, &phase, &rec.StepCount, &rec.InFeedbackWindow,
			&rec.MinThreshold, &rec.MaxThreshold, &rec.MinFeedbackState, &rec.MaxFeedbackState,
			&rec.HipFlex, &rec.KneeFlex, &rec.AnkleFlex); err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		if rec.GaitPhase, err = gait.ParsePhase(phase); err != nil {
			return nil, fmt.Errorf("storage: seq %d: %w", rec.Seq, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
