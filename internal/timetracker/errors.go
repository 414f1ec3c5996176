package timetracker

import "errors"

// Error taxonomy of the scan and report paths. Mutation operations do
// not use these for expected rejections; those come back as a FAIL
// ActionResult the caller has to branch on.
var (
	ErrValidation = errors.New("validation error")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
)
