package timetracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

func newTestScanner(store *fakeStore, cal WorkdayCalendar, filter *IssueFilter) *GapScanner {
	return NewGapScanner(store, cal, filter, zap.NewNop())
}

func TestMissingDatesSkipsNonWorkingDays(t *testing.T) {
	// 2024-06-07 is a Friday, 06-08 is an excluded Saturday, 06-09 a
	// Sunday: only the Friday can be missing.
	store := &fakeStore{}
	cal := NewWorkdayCalendar([]string{"2024-06-08"}, nil)
	scanner := newTestScanner(store, cal, nil)

	missing, err := scanner.MissingDates(context.Background(), "alice", day("2024-06-07"), day("2024-06-09"), false, false)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "2024-06-07", missing[0].Format(DateLayout))
}

func TestMissingDatesMostRecentFirst(t *testing.T) {
	store := &fakeStore{}
	scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), nil)

	missing, err := scanner.MissingDates(context.Background(), "alice", day("2024-06-10"), day("2024-06-12"), false, false)
	require.NoError(t, err)
	require.Len(t, missing, 3)
	assert.Equal(t, "2024-06-12", missing[0].Format(DateLayout))
	assert.Equal(t, "2024-06-11", missing[1].Format(DateLayout))
	assert.Equal(t, "2024-06-10", missing[2].Format(DateLayout))
}

func TestMissingDatesAnyWorklogCovers(t *testing.T) {
	store := &fakeStore{records: []types.Worklog{
		wl("1", "DEV-1", "alice", "2024-06-10", "09:00", 600),
	}}
	scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), nil)

	missing, err := scanner.MissingDates(context.Background(), "alice", day("2024-06-10"), day("2024-06-11"), false, false)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "2024-06-11", missing[0].Format(DateLayout))
}

func TestMissingDatesMinHours(t *testing.T) {
	store := &fakeStore{records: []types.Worklog{
		wl("1", "DEV-1", "alice", "2024-06-10", "09:00", 7*60*60),
		wl("2", "DEV-1", "alice", "2024-06-11", "09:00", EightHoursSeconds),
	}}
	scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), nil)

	missing, err := scanner.MissingDates(context.Background(), "alice", day("2024-06-10"), day("2024-06-11"), true, false)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "2024-06-10", missing[0].Format(DateLayout))
}

func TestMissingDatesMinHoursExcludesFilteredIssues(t *testing.T) {
	// Eight hours logged, but one of them on a non-working issue: with
	// excludeNonWorking the day drops below the threshold.
	store := &fakeStore{records: []types.Worklog{
		wl("1", "DEV-1", "alice", "2024-06-10", "09:00", 7*60*60),
		wl("2", "SUP-1", "alice", "2024-06-10", "16:00", 60*60),
	}}
	filter := MustCompileIssueFilter("SUP-.*")
	scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), filter)

	missing, err := scanner.MissingDates(context.Background(), "alice", day("2024-06-10"), day("2024-06-10"), true, true)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	missing, err = scanner.MissingDates(context.Background(), "alice", day("2024-06-10"), day("2024-06-10"), true, false)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMissingDatesStoreFailureAborts(t *testing.T) {
	store := &fakeStore{failQueries: true}
	scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), nil)

	missing, err := scanner.MissingDates(context.Background(), "alice", day("2024-06-10"), day("2024-06-12"), false, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	assert.Nil(t, missing)
}

func TestFirstMissingWorklogDate(t *testing.T) {
	// now pinned to Wednesday 2024-06-19: the window is 06-12..06-18.
	now := time.Date(2024, 6, 19, 10, 30, 0, 0, time.UTC)

	t.Run("earliest uncovered working day", func(t *testing.T) {
		store := &fakeStore{records: []types.Worklog{
			wl("1", "DEV-1", "alice", "2024-06-12", "09:00", 3600),
		}}
		scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), nil)
		scanner.now = func() time.Time { return now }

		missing, err := scanner.FirstMissingWorklogDate(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-13", missing.Format(DateLayout))
	})

	t.Run("caught up returns today", func(t *testing.T) {
		store := &fakeStore{}
		for _, d := range []string{"2024-06-12", "2024-06-13", "2024-06-14", "2024-06-17", "2024-06-18"} {
			store.records = append(store.records, wl("w"+d, "DEV-1", "alice", d, "09:00", 3600))
		}
		scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), nil)
		scanner.now = func() time.Time { return now }

		missing, err := scanner.FirstMissingWorklogDate(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-19", missing.Format(DateLayout))
	})

	t.Run("store failure", func(t *testing.T) {
		store := &fakeStore{failQueries: true}
		scanner := newTestScanner(store, NewWorkdayCalendar(nil, nil), nil)
		scanner.now = func() time.Time { return now }

		_, err := scanner.FirstMissingWorklogDate(context.Background(), "alice")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStore)
	})
}
