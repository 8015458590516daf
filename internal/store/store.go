// Package store persists classification runs and their partitioned
// outcomes, with SQLite and PostgreSQL backends.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/leadcheck/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run history.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, inputs model.RunInputs) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Outcomes
	SaveOutcome(ctx context.Context, runID string, outcome *model.Outcome) error
	OutcomeTable(ctx context.Context, runID string, disposition model.Disposition) (*model.Table, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err describes a missing run or outcome.
// Both backends phrase these errors the same way.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

// outcomeColumns returns the shared header of a partitioned outcome.
// All three partitions carry the same columns.
func outcomeColumns(o *model.Outcome) []string {
	for _, d := range model.Dispositions {
		if t := o.TableFor(d); t != nil && len(t.Columns) > 0 {
			return t.Columns
		}
	}
	return nil
}
