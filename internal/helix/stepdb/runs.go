package stepdb

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/helixmc/internal/helix"
)

// flushEvery is the number of buffered draws written per transaction.
const flushEvery = 512

// SamplingRun is one recorded sampling session.
type SamplingRun struct {
	RunID     string
	CreatedAt time.Time
	Source    string
	Mode      string
	DrawCount int
	Status    string
}

// RunRecorder buffers draws for one sampling run and flushes them to the
// store in batches. Lifecycle: StartRun, Record xN, then Complete or Fail.
type RunRecorder struct {
	store   *Store
	run     *SamplingRun
	buf     []helix.StepParams
	ordinal int
}

// StartRun registers a new sampling run and returns its recorder.
func (s *Store) StartRun(source string, mode helix.Mode) (*RunRecorder, error) {
	run := &SamplingRun{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now(),
		Source:    source,
		Mode:      mode.String(),
		Status:    "running",
	}
	_, err := s.Exec(`INSERT INTO sampling_runs (run_id, created_at, source, mode, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt, run.Source, run.Mode, run.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sampling run: %w", err)
	}

	log.Printf("[RunRecorder] Started run %s (source=%s mode=%s)", run.RunID, source, mode)
	return &RunRecorder{store: s, run: run}, nil
}

// RunID returns the identifier of the recorded run.
func (r *RunRecorder) RunID() string { return r.run.RunID }

// Record buffers one draw, flushing to the store when the buffer is full.
func (r *RunRecorder) Record(p helix.StepParams) error {
	r.buf = append(r.buf, p)
	if len(r.buf) >= flushEvery {
		return r.flush()
	}
	return nil
}

// Complete flushes outstanding draws and marks the run finished.
func (r *RunRecorder) Complete() error {
	if err := r.flush(); err != nil {
		return err
	}
	r.run.Status = "completed"
	r.run.DrawCount = r.ordinal
	_, err := r.store.Exec(`UPDATE sampling_runs SET status = ?, draw_count = ? WHERE run_id = ?`,
		r.run.Status, r.run.DrawCount, r.run.RunID)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", r.run.RunID, err)
	}
	log.Printf("[RunRecorder] Completed run %s: %d draws", r.run.RunID, r.run.DrawCount)
	return nil
}

// Fail marks the run failed with a reason; buffered draws are discarded.
func (r *RunRecorder) Fail(reason string) error {
	r.buf = nil
	r.run.Status = "failed"
	_, err := r.store.Exec(`UPDATE sampling_runs SET status = ?, draw_count = ? WHERE run_id = ?`,
		r.run.Status, r.ordinal, r.run.RunID)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", r.run.RunID, err)
	}
	log.Printf("[RunRecorder] Failed run %s: %s", r.run.RunID, reason)
	return nil
}

// Run returns a snapshot of the run metadata.
func (r *RunRecorder) Run() SamplingRun { return *r.run }

func (r *RunRecorder) flush() error {
	if len(r.buf) == 0 {
		return nil
	}
	tx, err := r.store.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin draw flush: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO run_draws
		(run_id, ordinal, shift, slide, rise, tilt, roll, twist)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare draw insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range r.buf {
		if _, err := stmt.Exec(r.run.RunID, r.ordinal,
			p[helix.Shift], p[helix.Slide], p[helix.Rise],
			p[helix.Tilt], p[helix.Roll], p[helix.Twist]); err != nil {
			return fmt.Errorf("failed to insert draw %d: %w", r.ordinal, err)
		}
		r.ordinal++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit draw flush: %w", err)
	}
	r.buf = r.buf[:0]
	return nil
}

// GetRun loads run metadata by ID.
func (s *Store) GetRun(runID string) (*SamplingRun, error) {
	row := s.QueryRow(`SELECT run_id, created_at, source, mode, draw_count, status
		FROM sampling_runs WHERE run_id = ?`, runID)
	var run SamplingRun
	if err := row.Scan(&run.RunID, &run.CreatedAt, &run.Source, &run.Mode,
		&run.DrawCount, &run.Status); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return &run, nil
}

// CountRunDraws returns the number of draws persisted for a run.
func (s *Store) CountRunDraws(runID string) (int, error) {
	var n int
	if err := s.QueryRow(`SELECT COUNT(*) FROM run_draws WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count draws for run %s: %w", runID, err)
	}
	return n, nil
}
