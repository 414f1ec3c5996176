package timetracker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory WorklogStore. Reject flags make mutations
// come back as nil-without-error validation rejections; fail flags make
// them hard errors.
type fakeStore struct {
	records []types.Worklog
	nextID  int

	queryCalls   int
	lastProjects []string

	failQueries bool
	failForUser string

	rejectCreateIssues map[string]bool
	rejectUpdate       bool
	failUpdate         bool
}

func (f *fakeStore) ByUserAndRange(ctx context.Context, userKey string, from, to time.Time, projectIDs []string) ([]types.Worklog, error) {
	f.queryCalls++
	f.lastProjects = projectIDs
	if f.failQueries || (f.failForUser != "" && userKey == f.failForUser) {
		return nil, errStoreDown
	}
	var out []types.Worklog
	for _, w := range f.records {
		if w.AuthorKey == userKey && !w.Start.Before(from) && w.Start.Before(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) ByRange(ctx context.Context, from, to time.Time) ([]types.Worklog, error) {
	f.queryCalls++
	if f.failQueries {
		return nil, errStoreDown
	}
	var out []types.Worklog
	for _, w := range f.records {
		if !w.Start.Before(from) && w.Start.Before(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) ByID(ctx context.Context, id string) (*types.Worklog, error) {
	if f.failQueries {
		return nil, errStoreDown
	}
	for _, w := range f.records {
		if w.ID == id {
			found := w
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Create(ctx context.Context, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error) {
	if f.rejectCreateIssues[in.IssueKey] {
		return nil, nil
	}
	f.nextID++
	w := types.Worklog{
		ID:              strconv.Itoa(f.nextID),
		IssueKey:        in.IssueKey,
		Date:            startOfDay(in.Start),
		Start:           in.Start,
		DurationSeconds: in.DurationSeconds,
		Comment:         in.Comment,
	}
	f.records = append(f.records, w)
	return &w, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error) {
	if f.failUpdate {
		return nil, errStoreDown
	}
	if f.rejectUpdate {
		return nil, nil
	}
	for i, w := range f.records {
		if w.ID == id {
			f.records[i].IssueKey = in.IssueKey
			f.records[i].Comment = in.Comment
			f.records[i].Start = in.Start
			f.records[i].Date = startOfDay(in.Start)
			f.records[i].DurationSeconds = in.DurationSeconds
			updated := f.records[i]
			return &updated, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string, autoAdjustEstimate bool) (*types.Worklog, error) {
	for i, w := range f.records {
		if w.ID == id {
			deleted := w
			f.records = append(f.records[:i], f.records[i+1:]...)
			return &deleted, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) countOn(issueKey string) int {
	n := 0
	for _, w := range f.records {
		if w.IssueKey == issueKey {
			n++
		}
	}
	return n
}

type fakeIssues struct {
	issues map[string]types.Issue
	err    error
}

func (f *fakeIssues) ByKey(ctx context.Context, key string) (*types.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	if issue, ok := f.issues[key]; ok {
		return &issue, nil
	}
	return nil, nil
}

type fakePerms struct {
	work     bool
	browse   bool
	projects []string
	err      error
}

func (f *fakePerms) HasWorkPermission(ctx context.Context, userKey, issueKey string) (bool, error) {
	return f.work, f.err
}

func (f *fakePerms) CanBrowseUsers(ctx context.Context, userKey string) (bool, error) {
	return f.browse, f.err
}

func (f *fakePerms) VisibleProjects(ctx context.Context, userKey string) ([]string, error) {
	return f.projects, f.err
}

type sentMessage struct {
	subject string
	body    string
}

type fakeNotifier struct {
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{subject: subject, body: body})
	return nil
}

func wl(id, issue, author, date, start string, seconds int64) types.Worklog {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	st, err := time.Parse(DateTimeLayout, date+" "+start)
	if err != nil {
		panic(err)
	}
	return types.Worklog{
		ID:              id,
		IssueKey:        issue,
		AuthorKey:       author,
		Date:            day,
		Start:           st,
		DurationSeconds: seconds,
	}
}

func day(date string) time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	return t
}
