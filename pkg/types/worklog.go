package types

import "time"

// Worklog is a single time entry against an issue. Records read into a
// report are treated as immutable; every change goes through the worklog
// mutator.
type Worklog struct {
	ID              string    `json:"id"`
	IssueKey        string    `json:"issue_key"`
	AuthorKey       string    `json:"author_key"`
	Date            time.Time `json:"date"`
	Start           time.Time `json:"start"`
	DurationSeconds int64     `json:"duration_seconds"`
	Comment         string    `json:"comment,omitempty"`
}

// End is the moment the logged work finished.
func (w Worklog) End() time.Time {
	return w.Start.Add(time.Duration(w.DurationSeconds) * time.Second)
}

// WorklogInput carries the fields a create or update submits to the
// worklog store.
type WorklogInput struct {
	IssueKey        string
	Comment         string
	Start           time.Time
	DurationSeconds int64
}
