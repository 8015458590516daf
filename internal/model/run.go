package model

import "time"

// RunStatus tracks a classification run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunInputs records where each source table came from.
type RunInputs struct {
	Deals     string `json:"deals"`
	Alignment string `json:"alignment"`
	Leads     string `json:"leads"`
}

// RunResult summarizes a finished run.
type RunResult struct {
	Total       int        `json:"total"`
	New         int        `json:"new"`
	Existing    int        `json:"existing"`
	DoubleCheck int        `json:"double_check"`
	Thresholds  Thresholds `json:"thresholds"`
	DurationMS  int64      `json:"duration_ms"`
	OutputDir   string     `json:"output_dir,omitempty"`
}

// Run is one classification run as persisted in the run history.
type Run struct {
	ID        string     `json:"id"`
	Inputs    RunInputs  `json:"inputs"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Duration returns the recorded run duration, zero when unfinished.
func (r *Run) Duration() time.Duration {
	if r.Result == nil {
		return 0
	}
	return time.Duration(r.Result.DurationMS) * time.Millisecond
}
