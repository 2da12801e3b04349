package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/framesync/internal/synchro"
	"github.com/banshee-data/framesync/internal/timeutil"
)

// ErrRunNotFound is returned when no correction run has the requested ID.
var ErrRunNotFound = errors.New("correction run not found")

// CorrectionRun is the audit record of one correction of a recorded
// segment against its reference stimulus.
type CorrectionRun struct {
	RunID           string          `json:"run_id"`
	TracePath       string          `json:"trace_path"`
	ReferencePath   string          `json:"reference_path"`
	Strategy        string          `json:"strategy"`
	RecordedFrames  int             `json:"recorded_frames"`
	ReferenceFrames int             `json:"reference_frames"`
	Score           int             `json:"score"`      // alignment score, banded strategy only
	MaxOffset       int             `json:"max_offset"` // banded strategy only
	Rowside         int             `json:"rowside"`    // banded strategy only
	Unresolved      int             `json:"unresolved"`
	ParamsJSON      json.RawMessage `json:"params_json,omitempty"`
	CreatedAt       int64           `json:"created_at"` // unix nanoseconds
}

// CorrectionRunStore persists correction runs with their edit and
// replacement logs.
type CorrectionRunStore struct {
	db    *DB
	clock timeutil.Clock
}

// NewCorrectionRunStore creates a new CorrectionRunStore.
func NewCorrectionRunStore(db *DB) *CorrectionRunStore {
	return &CorrectionRunStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used to stamp new runs.
func (s *CorrectionRunStore) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Insert persists run together with its logs in one transaction. If RunID
// is empty, a UUID is generated; if CreatedAt is zero, the current time is
// used.
func (s *CorrectionRunStore) Insert(run *CorrectionRun, edits []synchro.Edit, replacements []synchro.Replacement) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO correction_runs (
			run_id, trace_path, reference_path, strategy,
			recorded_frames, reference_frames, score, max_offset, rowside,
			unresolved_count, params_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.TracePath, run.ReferencePath, run.Strategy,
		run.RecordedFrames, run.ReferenceFrames, run.Score, run.MaxOffset, run.Rowside,
		run.Unresolved, paramsStr, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert correction run: %w", err)
	}

	if len(edits) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO correction_edits (run_id, seq, position, op) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare edit insert: %w", err)
		}
		defer stmt.Close()
		for seq, e := range edits {
			if _, err := stmt.Exec(run.RunID, seq, e.Position, e.Op.String()); err != nil {
				return fmt.Errorf("insert edit %d: %w", seq, err)
			}
		}
	}

	if len(replacements) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO correction_replacements (run_id, frame, source) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare replacement insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range replacements {
			if _, err := stmt.Exec(run.RunID, r.Frame, r.Source); err != nil {
				return fmt.Errorf("insert replacement for frame %d: %w", r.Frame, err)
			}
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, trace_path, reference_path, strategy,
	recorded_frames, reference_frames, score, max_offset, rowside,
	unresolved_count, params_json, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*CorrectionRun, error) {
	var r CorrectionRun
	var paramsStr sql.NullString
	err := row.Scan(
		&r.RunID, &r.TracePath, &r.ReferencePath, &r.Strategy,
		&r.RecordedFrames, &r.ReferenceFrames, &r.Score, &r.MaxOffset, &r.Rowside,
		&r.Unresolved, &paramsStr, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paramsStr.Valid {
		r.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	return &r, nil
}

// Get returns a single correction run by ID.
func (s *CorrectionRunStore) Get(runID string) (*CorrectionRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM correction_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("scan correction run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *CorrectionRunStore) List(limit int) ([]*CorrectionRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM correction_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query correction runs: %w", err)
	}
	defer rows.Close()

	var runs []*CorrectionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan correction run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Edits returns the edit log of a run in application order.
func (s *CorrectionRunStore) Edits(runID string) ([]synchro.Edit, error) {
	rows, err := s.db.Query(`SELECT position, op FROM correction_edits WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query edits: %w", err)
	}
	defer rows.Close()

	edits := []synchro.Edit{}
	for rows.Next() {
		var e synchro.Edit
		var op string
		if err := rows.Scan(&e.Position, &op); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		if e.Op, err = synchro.ParseEditOp(op); err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

// Replacements returns the replacement log of a run ordered by frame.
func (s *CorrectionRunStore) Replacements(runID string) ([]synchro.Replacement, error) {
	rows, err := s.db.Query(`SELECT frame, source FROM correction_replacements WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, fmt.Errorf("query replacements: %w", err)
	}
	defer rows.Close()

	out := []synchro.Replacement{}
	for rows.Next() {
		var r synchro.Replacement
		if err := rows.Scan(&r.Frame, &r.Source); err != nil {
			return nil, fmt.Errorf("scan replacement: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a run; its logs are removed by cascade.
func (s *CorrectionRunStore) Delete(runID string) error {
	result, err := s.db.Exec(`DELETE FROM correction_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete correction run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
