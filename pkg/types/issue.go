package types

// Issue is a trackable work item identified by its key, subject to
// permission checks before any worklog mutation.
type Issue struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Summary   string `json:"summary,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}
