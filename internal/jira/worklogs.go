package jira

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

const jqlDateLayout = "2006-01-02"

// WorklogStore implements the core's worklog persistence boundary on the
// Jira worklog REST resources. Queries go through a JQL search for
// candidate issues and then read each issue's worklog list.
type WorklogStore struct {
	client *Client
	logger *zap.Logger
}

// NewWorklogStore wraps the shared client.
func NewWorklogStore(c *Client, logger *zap.Logger) *WorklogStore {
	return &WorklogStore{client: c, logger: logger}
}

// ByUserAndRange returns the user's worklogs started in [from, to),
// optionally restricted to the given project ids.
func (s *WorklogStore) ByUserAndRange(ctx context.Context, userKey string, from, to time.Time, projectIDs []string) ([]types.Worklog, error) {
	jql := fmt.Sprintf("worklogAuthor = %q AND worklogDate >= %q AND worklogDate < %q",
		userKey, from.Format(jqlDateLayout), to.Format(jqlDateLayout))
	if len(projectIDs) > 0 {
		jql += fmt.Sprintf(" AND project in (%s)", strings.Join(projectIDs, ", "))
	}
	return s.collect(ctx, jql, func(w types.Worklog) bool {
		return w.AuthorKey == userKey && !w.Start.Before(from) && w.Start.Before(to)
	})
}

// ByRange returns every worklog started in [from, to).
func (s *WorklogStore) ByRange(ctx context.Context, from, to time.Time) ([]types.Worklog, error) {
	jql := fmt.Sprintf("worklogDate >= %q AND worklogDate < %q",
		from.Format(jqlDateLayout), to.Format(jqlDateLayout))
	return s.collect(ctx, jql, func(w types.Worklog) bool {
		return !w.Start.Before(from) && w.Start.Before(to)
	})
}

// ByID resolves one worklog. Jira has no single-worklog lookup without
// the issue key, so this goes through the bulk worklog/list resource and
// then resolves the issue key from the record's issue id.
func (s *WorklogStore) ByID(ctx context.Context, id string) (*types.Worklog, error) {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, nil
	}
	body := struct {
		IDs []int64 `json:"ids"`
	}{IDs: []int64{numericID}}

	req, err := s.client.jira.NewRequestWithContext(ctx, http.MethodPost, "rest/api/2/worklog/list", body)
	if err != nil {
		return nil, fmt.Errorf("worklog %s: %w", id, err)
	}
	var records []jira.WorklogRecord
	resp, err := s.client.jira.Do(req, &records)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("worklog %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	record := records[0]

	issue, _, err := s.client.jira.Issue.GetWithContext(ctx, record.IssueID, nil)
	if err != nil {
		return nil, fmt.Errorf("issue of worklog %s: %w", id, err)
	}
	w := toWorklog(issue.Key, record)
	return &w, nil
}

// Create submits a new worklog. A rejected validation comes back as a
// nil record without an error, per the store contract.
func (s *WorklogStore) Create(ctx context.Context, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error) {
	started := jira.Time(in.Start)
	record := &jira.WorklogRecord{
		Comment:          in.Comment,
		Started:          &started,
		TimeSpentSeconds: int(in.DurationSeconds),
	}
	created, resp, err := s.client.jira.Issue.AddWorklogRecordWithContext(ctx, in.IssueKey, record, adjustOption(autoAdjustEstimate))
	if err != nil {
		if rejected(resp) {
			s.logger.Warn("worklog create rejected",
				zap.String("issue", in.IssueKey), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("create worklog on %s: %w", in.IssueKey, err)
	}
	w := toWorklog(in.IssueKey, *created)
	return &w, nil
}

// Update rewrites an existing worklog in place.
func (s *WorklogStore) Update(ctx context.Context, id string, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error) {
	started := jira.Time(in.Start)
	record := &jira.WorklogRecord{
		Comment:          in.Comment,
		Started:          &started,
		TimeSpentSeconds: int(in.DurationSeconds),
	}
	u := fmt.Sprintf("rest/api/2/issue/%s/worklog/%s?adjustEstimate=%s",
		in.IssueKey, id, adjustMode(autoAdjustEstimate))
	req, err := s.client.jira.NewRequestWithContext(ctx, http.MethodPut, u, record)
	if err != nil {
		return nil, fmt.Errorf("update worklog %s: %w", id, err)
	}
	var updated jira.WorklogRecord
	resp, err := s.client.jira.Do(req, &updated)
	if err != nil {
		if rejected(resp) {
			s.logger.Warn("worklog update rejected",
				zap.String("worklog", id), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("update worklog %s: %w", id, err)
	}
	w := toWorklog(in.IssueKey, updated)
	return &w, nil
}

// Delete resolves the record first, since the delete resource needs the
// issue key, and returns the removed snapshot.
func (s *WorklogStore) Delete(ctx context.Context, id string, autoAdjustEstimate bool) (*types.Worklog, error) {
	current, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		s.logger.Warn("worklog delete rejected, unknown id", zap.String("worklog", id))
		return nil, nil
	}
	u := fmt.Sprintf("rest/api/2/issue/%s/worklog/%s?adjustEstimate=%s",
		current.IssueKey, id, adjustMode(autoAdjustEstimate))
	req, err := s.client.jira.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return nil, fmt.Errorf("delete worklog %s: %w", id, err)
	}
	resp, err := s.client.jira.Do(req, nil)
	if err != nil {
		if rejected(resp) {
			s.logger.Warn("worklog delete rejected",
				zap.String("worklog", id), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("delete worklog %s: %w", id, err)
	}
	return current, nil
}

func (s *WorklogStore) collect(ctx context.Context, jql string, keep func(types.Worklog) bool) ([]types.Worklog, error) {
	issues, _, err := s.client.jira.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{MaxResults: 1000})
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	var out []types.Worklog
	for i := range issues {
		wl, _, err := s.client.jira.Issue.GetWorklogsWithContext(ctx, issues[i].Key)
		if err != nil {
			return nil, fmt.Errorf("worklogs of %s: %w", issues[i].Key, err)
		}
		for _, record := range wl.Worklogs {
			w := toWorklog(issues[i].Key, record)
			if keep(w) {
				out = append(out, w)
			}
		}
	}
	return out, nil
}

func toWorklog(issueKey string, r jira.WorklogRecord) types.Worklog {
	var start time.Time
	if r.Started != nil {
		start = time.Time(*r.Started)
	}
	author := ""
	if r.Author != nil {
		author = r.Author.Key
		if author == "" {
			author = r.Author.AccountID
		}
		if author == "" {
			author = r.Author.Name
		}
	}
	return types.Worklog{
		ID:              r.ID,
		IssueKey:        issueKey,
		AuthorKey:       author,
		Date:            time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()),
		Start:           start,
		DurationSeconds: int64(r.TimeSpentSeconds),
		Comment:         r.Comment,
	}
}

type adjustEstimateQuery struct {
	AdjustEstimate string `url:"adjustEstimate"`
}

func adjustMode(auto bool) string {
	if auto {
		return "auto"
	}
	return "leave"
}

func adjustOption(auto bool) func(*http.Request) error {
	return jira.WithQueryOptions(adjustEstimateQuery{AdjustEstimate: adjustMode(auto)})
}
