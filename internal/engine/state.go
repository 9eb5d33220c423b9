package engine

import (
	"fmt"

	"github.com/roach88/hqp/internal/ir"
)

// LevelState is the position of the cascade within one level.
type LevelState string

const (
	StatePending   LevelState = "pending"
	StateProjected LevelState = "projected"
	StateSolved    LevelState = "solved"
	StateDone      LevelState = "done"
)

// IsTerminal reports whether the cascade has finished.
func IsTerminal(s LevelState) bool {
	return s == StateDone
}

func isAllowedTransition(from, to LevelState) bool {
	switch from {
	case StatePending:
		return to == StateProjected
	case StateProjected:
		return to == StateSolved
	case StateSolved:
		return to == StatePending || to == StateDone
	default:
		return false
	}
}

// cascade tracks the state machine of one solve and records each validated
// transition, stamped by its own logical clock.
type cascade struct {
	levels int
	level  int
	state  LevelState
	clock  *Clock
	trace  []ir.TraceEvent
}

func newCascade(levels int) *cascade {
	return &cascade{levels: levels, state: StatePending, clock: NewClock()}
}

// transition moves from the expected state to the next one. Leaving Solved
// for Pending starts the next level; Done is only reachable from the last.
func (c *cascade) transition(from, to LevelState) error {
	if c.state != from {
		return fmt.Errorf("invalid transition at level %d: expected %s, got %s", c.level, from, c.state)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition at level %d: %s -> %s", c.level, from, to)
	}
	last := c.level == c.levels-1
	if to == StatePending && last {
		return fmt.Errorf("no level after %d", c.level)
	}
	if to == StateDone && !last {
		return fmt.Errorf("cannot finish at level %d of %d", c.level, c.levels)
	}

	c.trace = append(c.trace, ir.TraceEvent{
		Seq:   c.clock.Next(),
		Level: c.level,
		From:  string(from),
		To:    string(to),
	})
	c.state = to
	if to == StatePending {
		c.level++
	}
	return nil
}

// finish advances past a solved level to the next one or to Done.
func (c *cascade) finish() error {
	if c.level == c.levels-1 {
		return c.transition(StateSolved, StateDone)
	}
	return c.transition(StateSolved, StatePending)
}
