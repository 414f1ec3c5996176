package jira

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// IssueRepository resolves issues through the Jira issue resource.
type IssueRepository struct {
	client *Client
	logger *zap.Logger
}

// NewIssueRepository wraps the shared client.
func NewIssueRepository(c *Client, logger *zap.Logger) *IssueRepository {
	return &IssueRepository{client: c, logger: logger}
}

// ByKey returns the issue, or nil without an error when the key is
// unknown.
func (r *IssueRepository) ByKey(ctx context.Context, key string) (*types.Issue, error) {
	issue, resp, err := r.client.jira.Issue.GetWithContext(ctx, key, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	out := &types.Issue{ID: issue.ID, Key: issue.Key}
	if issue.Fields != nil {
		out.Summary = issue.Fields.Summary
		out.ProjectID = issue.Fields.Project.ID
	}
	return out, nil
}
