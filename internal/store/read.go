package store

import (
	"context"
	"fmt"

	"github.com/roach88/hqp/internal/ir"
)

const solveColumns = `id, seq, stack_hash, settings_hash, solution_hash, stack, settings, command, feasible, engine_version, ir_version`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ReadSolve reads a single solve by ID, without levels or trace.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadSolve(ctx context.Context, id string) (SolveRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+solveColumns+` FROM solves WHERE id = ?`, id)
	rec, err := scanSolve(row)
	if err != nil {
		return SolveRecord{}, fmt.Errorf("read solve %s: %w", id, err)
	}
	return rec, nil
}

// ListSolves returns every stored solve ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListSolves(ctx context.Context) ([]SolveRecord, error) {
	return s.querySolves(ctx, `SELECT `+solveColumns+` FROM solves ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// FindSolves returns the solves of one stack, in seq order.
func (s *Store) FindSolves(ctx context.Context, stackHash string) ([]SolveRecord, error) {
	return s.querySolves(ctx, `
		SELECT `+solveColumns+` FROM solves
		WHERE stack_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, stackHash)
}

func (s *Store) querySolves(ctx context.Context, query string, args ...any) ([]SolveRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query solves: %w", err)
	}
	defer rows.Close()

	out := []SolveRecord{}
	for rows.Next() {
		rec, err := scanSolve(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solves: %w", err)
	}
	return out, nil
}

func scanSolve(sc scanner) (SolveRecord, error) {
	var rec SolveRecord
	var stackJSON, settingsJSON, commandJSON string
	err := sc.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.StackHash,
		&rec.SettingsHash,
		&rec.SolutionHash,
		&stackJSON,
		&settingsJSON,
		&commandJSON,
		&rec.Feasible,
		&rec.EngineVersion,
		&rec.IRVersion,
	)
	if err != nil {
		return SolveRecord{}, fmt.Errorf("scan solve: %w", err)
	}

	if rec.Stack, err = unmarshalStack(stackJSON); err != nil {
		return SolveRecord{}, err
	}
	if rec.Settings, err = unmarshalSettings(settingsJSON); err != nil {
		return SolveRecord{}, err
	}
	if rec.Command, err = unmarshalFloats("command", commandJSON); err != nil {
		return SolveRecord{}, err
	}
	return rec, nil
}

// ReadLevels returns the level reports of a solve in level order.
// Projectors are never stored.
func (s *Store) ReadLevels(ctx context.Context, solveID string) ([]ir.LevelReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, name, kind, rank, null_rank, residual, final_residual, slack, final_slack,
		       feasible, fully_constrained, iterations, active_constraints, singular_values, diagnostics
		FROM levels
		WHERE solve_id = ?
		ORDER BY level ASC
	`, solveID)
	if err != nil {
		return nil, fmt.Errorf("query levels: %w", err)
	}
	defer rows.Close()

	out := []ir.LevelReport{}
	for rows.Next() {
		var l ir.LevelReport
		var kind, singularJSON, diagJSON string
		err := rows.Scan(
			&l.Index,
			&l.Name,
			&kind,
			&l.Rank,
			&l.NullRank,
			&l.Residual,
			&l.FinalResidual,
			&l.Slack,
			&l.FinalSlack,
			&l.Feasible,
			&l.FullyConstrained,
			&l.Iterations,
			&l.ActiveConstraints,
			&singularJSON,
			&diagJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("scan level: %w", err)
		}
		l.Kind = ir.TaskKind(kind)
		if l.SingularValues, err = unmarshalFloats("singular values", singularJSON); err != nil {
			return nil, err
		}
		if l.Diagnostics, err = unmarshalDiagnostics(diagJSON); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate levels: %w", err)
	}
	return out, nil
}

// ReadTrace returns the state transitions of a solve in seq order.
func (s *Store) ReadTrace(ctx context.Context, solveID string) ([]ir.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, level, from_state, to_state
		FROM trace
		WHERE solve_id = ?
		ORDER BY seq ASC
	`, solveID)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	out := []ir.TraceEvent{}
	for rows.Next() {
		var ev ir.TraceEvent
		if err := rows.Scan(&ev.Seq, &ev.Level, &ev.From, &ev.To); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return out, nil
}
