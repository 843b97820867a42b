// Package stepdb persists curated step parameter collections and sampling
// runs in sqlite. Schema changes go through golang-migrate (see
// migrations/); Init exists for ad-hoc and test databases.
package stepdb

import (
	"database/sql"
	"fmt"
	"math/rand/v2"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/helixmc/internal/helix"
)

// Store wraps the sqlite database holding contexts, their step parameter
// rows and recorded sampling runs.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open step database: %w", err)
	}
	return &Store{db}, nil
}

// Init creates the schema directly, bypassing migrations. Production
// databases should use MigrateUp instead so the version table is kept.
func (s *Store) Init() error {
	_, err := s.Exec(`
		CREATE TABLE IF NOT EXISTS contexts (
			context_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS step_params (
			context_id INTEGER NOT NULL,
			shift DOUBLE NOT NULL,
			slide DOUBLE NOT NULL,
			rise DOUBLE NOT NULL,
			tilt DOUBLE NOT NULL,
			roll DOUBLE NOT NULL,
			twist DOUBLE NOT NULL,
			FOREIGN KEY(context_id) REFERENCES contexts(context_id)
		);
		CREATE TABLE IF NOT EXISTS sampling_runs (
			run_id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			source TEXT,
			mode TEXT,
			draw_count INTEGER DEFAULT 0,
			status TEXT
		);
		CREATE TABLE IF NOT EXISTS run_draws (
			run_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			shift DOUBLE NOT NULL,
			slide DOUBLE NOT NULL,
			rise DOUBLE NOT NULL,
			tilt DOUBLE NOT NULL,
			roll DOUBLE NOT NULL,
			twist DOUBLE NOT NULL,
			FOREIGN KEY(run_id) REFERENCES sampling_runs(run_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialise schema: %w", err)
	}
	return nil
}

// SaveContext stores one named dataset. The whole insert is transactional;
// a context name that already exists fails the save.
func (s *Store) SaveContext(name string, rows []helix.StepParams) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO contexts (name) VALUES (?)", name)
	if err != nil {
		return fmt.Errorf("failed to insert context %q: %w", name, err)
	}
	contextID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get context id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO step_params
		(context_id, shift, slide, rise, tilt, roll, twist)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(contextID, r[helix.Shift], r[helix.Slide], r[helix.Rise],
			r[helix.Tilt], r[helix.Roll], r[helix.Twist]); err != nil {
			return fmt.Errorf("failed to insert row for %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// SaveCollection stores every context of a collection. Insertion order
// follows the given names slice so the on-disk order is explicit.
func (s *Store) SaveCollection(names []string, byName map[string][]helix.StepParams) error {
	for _, name := range names {
		rows, ok := byName[name]
		if !ok {
			return fmt.Errorf("context %q not present in collection", name)
		}
		if err := s.SaveContext(name, rows); err != nil {
			return err
		}
	}
	return nil
}

// ListContexts returns the stored context names in insertion order.
func (s *Store) ListContexts() ([]string, error) {
	rows, err := s.Query("SELECT name FROM contexts ORDER BY context_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list contexts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan context name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LoadContext returns the step parameter rows stored under name.
func (s *Store) LoadContext(name string) ([]helix.StepParams, error) {
	rows, err := s.Query(`SELECT shift, slide, rise, tilt, roll, twist
		FROM step_params
		JOIN contexts USING (context_id)
		WHERE contexts.name = ?
		ORDER BY step_params.rowid`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load context %q: %w", name, err)
	}
	defer rows.Close()

	var out []helix.StepParams
	for rows.Next() {
		var p helix.StepParams
		if err := rows.Scan(&p[helix.Shift], &p[helix.Slide], &p[helix.Rise],
			&p[helix.Tilt], &p[helix.Roll], &p[helix.Twist]); err != nil {
			return nil, fmt.Errorf("failed to scan row for %q: %w", name, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return out, nil
}

// LoadAggregate builds an AggregateSampler with one member per stored
// context, in insertion order, all sharing src and the given mode. The
// first malformed context aborts the load.
func (s *Store) LoadAggregate(mode helix.Mode, src rand.Source) (*helix.AggregateSampler, error) {
	names, err := s.ListContexts()
	if err != nil {
		return nil, err
	}

	agg := helix.NewAggregateSampler(mode, src)
	for _, name := range names {
		rows, err := s.LoadContext(name)
		if err != nil {
			return nil, err
		}
		data, err := helix.NewDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("context %q: %w", name, err)
		}
		member, err := helix.NewSimpleSampler(data, mode, src)
		if err != nil {
			return nil, fmt.Errorf("context %q: %w", name, err)
		}
		if err := agg.Append(name, member); err != nil {
			return nil, err
		}
	}
	return agg, nil
}
