package store

import (
	"context"
	"fmt"

	"github.com/roach88/hqp/internal/ir"
)

// SolveFunc runs one cascade. Replay passes the stored stack and settings.
type SolveFunc func(stack ir.TaskStack, settings ir.SolverSettings) (*ir.Solution, error)

// ReplayResult compares a stored solve with its re-run.
type ReplayResult struct {
	ID       string
	Seq      int64
	Expected string // stored solution hash
	Actual   string // hash of the re-run, empty when Err is set
	Err      error
}

// Match reports whether the re-run reproduced the stored solution.
func (r ReplayResult) Match() bool {
	return r.Err == nil && r.Expected == r.Actual
}

// ReplaySolves re-runs every stored solve in seq order.
//
// A solve error is recorded in its ReplayResult rather than aborting, so one
// bad record does not hide the others. Only storage errors are returned.
func (s *Store) ReplaySolves(ctx context.Context, solve SolveFunc) ([]ReplayResult, error) {
	recs, err := s.ListSolves(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	out := make([]ReplayResult, 0, len(recs))
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res := ReplayResult{ID: rec.ID, Seq: rec.Seq, Expected: rec.SolutionHash}
		sol, err := solve(rec.Stack, rec.Settings)
		if err != nil {
			res.Err = err
			out = append(out, res)
			continue
		}
		if res.Actual, err = ir.SolutionHash(sol); err != nil {
			res.Err = err
		}
		out = append(out, res)
	}
	return out, nil
}

// LastSeq returns the highest seq used in the store, 0 when empty.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM solves`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}
