package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/internal/settings"
	"github.com/SharXeniX/jira-timetracker-plugin/internal/timetracker"
	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

func TestMain(m *testing.M) {
	// Worklog form fields parse in local time; pin it for determinism.
	time.Local = time.UTC
	os.Exit(m.Run())
}

type memStore struct {
	records []types.Worklog
	nextID  int
}

func (m *memStore) ByUserAndRange(ctx context.Context, userKey string, from, to time.Time, projectIDs []string) ([]types.Worklog, error) {
	var out []types.Worklog
	for _, w := range m.records {
		if w.AuthorKey == userKey && !w.Start.Before(from) && w.Start.Before(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) ByRange(ctx context.Context, from, to time.Time) ([]types.Worklog, error) {
	return nil, nil
}

func (m *memStore) ByID(ctx context.Context, id string) (*types.Worklog, error) {
	for _, w := range m.records {
		if w.ID == id {
			found := w
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) Create(ctx context.Context, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error) {
	m.nextID++
	w := types.Worklog{
		ID:              strconv.Itoa(m.nextID),
		IssueKey:        in.IssueKey,
		AuthorKey:       "alice",
		Date:            time.Date(in.Start.Year(), in.Start.Month(), in.Start.Day(), 0, 0, 0, 0, in.Start.Location()),
		Start:           in.Start,
		DurationSeconds: in.DurationSeconds,
		Comment:         in.Comment,
	}
	m.records = append(m.records, w)
	return &w, nil
}

func (m *memStore) Update(ctx context.Context, id string, in types.WorklogInput, autoAdjustEstimate bool) (*types.Worklog, error) {
	return nil, nil
}

func (m *memStore) Delete(ctx context.Context, id string, autoAdjustEstimate bool) (*types.Worklog, error) {
	for i, w := range m.records {
		if w.ID == id {
			deleted := w
			m.records = append(m.records[:i], m.records[i+1:]...)
			return &deleted, nil
		}
	}
	return nil, nil
}

type allowAll struct{}

func (allowAll) HasWorkPermission(ctx context.Context, userKey, issueKey string) (bool, error) {
	return true, nil
}
func (allowAll) CanBrowseUsers(ctx context.Context, userKey string) (bool, error) { return true, nil }
func (allowAll) VisibleProjects(ctx context.Context, userKey string) ([]string, error) {
	return nil, nil
}

type oneIssue struct{ key string }

func (o oneIssue) ByKey(ctx context.Context, key string) (*types.Issue, error) {
	if key == o.key {
		return &types.Issue{ID: "1", Key: key}, nil
	}
	return nil, nil
}

type captureNotifier struct{ sent []string }

func (c *captureNotifier) Send(ctx context.Context, subject, body string) error {
	c.sent = append(c.sent, subject)
	return nil
}

type testEnv struct {
	router   chi.Router
	store    *memStore
	notifier *captureNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	settingsStore, err := settings.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { settingsStore.Close() })

	store := &memStore{}
	perms := allowAll{}
	cache := timetracker.NewReportCache()
	builder := timetracker.NewReportBuilder(store, perms, timetracker.ExactDurationFormatter{}, cache, logger)
	mutator := timetracker.NewWorklogMutator(store, oneIssue{key: "DEV-1"}, perms, logger)
	notifier := &captureNotifier{}

	h := NewHandler(settingsStore, builder, mutator, store, cache, notifier, logger)
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) { h.RegisterRoutes(r) })

	return &testEnv{router: router, store: store, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-User-Key", "alice")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestMissingUserHeader(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report?from=2024-06-10&to=2024-06-10", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndReport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/worklogs",
		`{"issue_key":"DEV-1","comment":"work","date":"2024-06-10","start_time":"09:00","duration_seconds":3600}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.ActionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, types.ActionSuccess, result.Status)

	rec = env.do(t, http.MethodGet, "/api/v1/report?from=2024-06-10&to=2024-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Worklogs, 1)
	assert.Equal(t, "DEV-1", report.Worklogs[0].IssueKey)
	require.Len(t, report.Days, 1)
	assert.Equal(t, int64(3600), report.Days[0].Seconds)
	assert.Equal(t, "1h", report.Days[0].Formatted)
	assert.Equal(t, "10:00", report.LastEndTime)
}

func TestCreateUnknownIssueFails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/worklogs",
		`{"issue_key":"DEV-404","comment":"","date":"2024-06-10","start_time":"09:00","duration_seconds":600}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result types.ActionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, types.ActionFail, result.Status)
	assert.Equal(t, "plugin.invalid_issue", result.MessageKey)
}

func TestReportRejectsReversedRange(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/report?from=2024-06-20&to=2024-06-10", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingDates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/missing?from=2024-06-10&to=2024-06-11", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"2024-06-11", "2024-06-10"}, resp.Missing)
}

func TestPutSettingsValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/settings",
		`{"calendar_popup":1,"start_time_change":7,"end_time_change":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/settings",
		`{"calendar_popup":1,"start_time_change":10,"end_time_change":10,"exclude_dates":"2024-06-10"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/months/2024-06/excluded-days", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var days struct {
		Days []int `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
	assert.Equal(t, []int{10}, days.Days)
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/feedback", `{"summary":"idea","body":"more reports"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.notifier.sent, 1)
	assert.Contains(t, env.notifier.sent[0], "alice")

	rec = env.do(t, http.MethodPost, "/api/v1/feedback", `{"summary":"empty"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
