package models

import "time"

// Outcome classifies what happened to a single record during a run
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped" // already on the target base model
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored" // invalid or duplicate id, not counted in totals
)

// RecordResult is the per-record entry of a run report
type RecordResult struct {
	ID                string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string  `json:"name,omitempty" yaml:"name,omitempty"`
	PreviousBaseModel string  `json:"previous_base_model,omitempty" yaml:"previous_base_model,omitempty"`
	Outcome           Outcome `json:"outcome" yaml:"outcome"`
	Path              string  `json:"path,omitempty" yaml:"path,omitempty"` // update path that confirmed success
	Error             string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary aggregates a whole run. A record whose id repeats an earlier one is
// counted once under Ignored and never sent, so with duplicate ids Updated and
// Failed are lower than a tool that updates every copy would report.
type Summary struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	TargetModel string         `json:"target_model" yaml:"target_model"`
	Mode        string         `json:"mode" yaml:"mode"`
	Workers     int            `json:"workers,omitempty" yaml:"workers,omitempty"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time      `json:"finished_at" yaml:"finished_at"`
	Total       int            `json:"total" yaml:"total"`
	Updated     int            `json:"updated" yaml:"updated"`
	Skipped     int            `json:"skipped" yaml:"skipped"`
	Failed      int            `json:"failed" yaml:"failed"`
	Ignored     int            `json:"ignored" yaml:"ignored"`
	Results     []RecordResult `json:"results" yaml:"results"`
}

// Duration returns how long the run took
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
