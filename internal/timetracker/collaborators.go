package timetracker

import (
	"context"
	"time"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// WorklogStore is the external worklog persistence boundary. Query
// methods return records whose start falls in [from, to). When projectIDs
// is non-nil, ByUserAndRange restricts the query to those projects.
//
// Mutations return a nil record with a nil error when the store rejects
// the validation step; a non-nil error is a store failure and fatal for
// the operation in flight.
type WorklogStore interface {
	ByUserAndRange(ctx context.Context, userKey string, from, to time.Time, projectIDs []string) ([]types.Worklog, error)
	ByRange(ctx context.Context, from, to time.Time) ([]types.Worklog, error)
	ByID(ctx context.Context, id string) (*types.Worklog, error)
	Create(ctx context.Context, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error)
	Update(ctx context.Context, id string, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error)
	Delete(ctx context.Context, id string, autoAdjustEstimate bool) (*types.Worklog, error)
}

// IssueRepository resolves issues by key. A nil issue with a nil error
// means the key is unknown.
type IssueRepository interface {
	ByKey(ctx context.Context, key string) (*types.Issue, error)
}

// PermissionService answers the permission questions the core asks.
type PermissionService interface {
	HasWorkPermission(ctx context.Context, userKey, issueKey string) (bool, error)
	CanBrowseUsers(ctx context.Context, userKey string) (bool, error)
	VisibleProjects(ctx context.Context, userKey string) ([]string, error)
}

// Notifier delivers the estimated-time warnings and feedback messages.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// DurationFormatter renders a second count as human readable text.
type DurationFormatter interface {
	ExactDuration(seconds int64) string
}
