package timetracker

import (
	"time"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// BucketKey identifies one aggregation slot. Ordinal is the day of year,
// ISO week or month number depending on the granularity; Year keeps
// buckets from colliding across year boundaries.
type BucketKey struct {
	Year    int `json:"year"`
	Ordinal int `json:"ordinal"`
}

// Bucket holds the running total of one slot.
type Bucket struct {
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

func dayKey(t time.Time) BucketKey {
	return BucketKey{Year: t.Year(), Ordinal: t.YearDay()}
}

func weekKey(t time.Time) BucketKey {
	y, w := t.ISOWeek()
	return BucketKey{Year: y, Ordinal: w}
}

func monthKey(t time.Time) BucketKey {
	return BucketKey{Year: t.Year(), Ordinal: int(t.Month())}
}

// SummaryTable buckets worklog durations by day, week and month. Each
// granularity carries a second "real" map that leaves out worklogs whose
// issue matches the summary filter, so for every key the real total is
// at most the unconditional one. Tables are built fresh per report and
// never persisted.
type SummaryTable struct {
	filter    *IssueFilter
	formatter DurationFormatter

	day   map[BucketKey]Bucket
	week  map[BucketKey]Bucket
	month map[BucketKey]Bucket

	realDay   map[BucketKey]Bucket
	realWeek  map[BucketKey]Bucket
	realMonth map[BucketKey]Bucket
}

// NewSummaryTable returns an empty table. filter may be nil, in which
// case every worklog counts as real.
func NewSummaryTable(filter *IssueFilter, formatter DurationFormatter) *SummaryTable {
	return &SummaryTable{
		filter:    filter,
		formatter: formatter,
		day:       make(map[BucketKey]Bucket),
		week:      make(map[BucketKey]Bucket),
		month:     make(map[BucketKey]Bucket),
		realDay:   make(map[BucketKey]Bucket),
		realWeek:  make(map[BucketKey]Bucket),
		realMonth: make(map[BucketKey]Bucket),
	}
}

// Consume adds one worklog to every granularity. Totals are commutative,
// so consumption order does not change them; callers sort the worklog
// list by date for presentation only.
func (s *SummaryTable) Consume(w types.Worklog) {
	real := !s.filter.Matches(w.IssueKey)

	s.add(s.day, dayKey(w.Date), w.DurationSeconds)
	s.add(s.week, weekKey(w.Date), w.DurationSeconds)
	s.add(s.month, monthKey(w.Date), w.DurationSeconds)

	s.addReal(s.realDay, dayKey(w.Date), w.DurationSeconds, real)
	s.addReal(s.realWeek, weekKey(w.Date), w.DurationSeconds, real)
	s.addReal(s.realMonth, monthKey(w.Date), w.DurationSeconds, real)
}

func (s *SummaryTable) add(m map[BucketKey]Bucket, k BucketKey, seconds int64) {
	b := m[k]
	b.Seconds += seconds
	b.Formatted = s.formatter.ExactDuration(b.Seconds)
	m[k] = b
}

// addReal materializes the bucket even when the worklog is filtered out,
// so every touched key has an entry in both maps.
func (s *SummaryTable) addReal(m map[BucketKey]Bucket, k BucketKey, seconds int64, real bool) {
	b := m[k]
	if real {
		b.Seconds += seconds
	}
	b.Formatted = s.formatter.ExactDuration(b.Seconds)
	m[k] = b
}

func (s *SummaryTable) DaySum() map[BucketKey]Bucket   { return s.day }
func (s *SummaryTable) WeekSum() map[BucketKey]Bucket  { return s.week }
func (s *SummaryTable) MonthSum() map[BucketKey]Bucket { return s.month }

func (s *SummaryTable) RealDaySum() map[BucketKey]Bucket   { return s.realDay }
func (s *SummaryTable) RealWeekSum() map[BucketKey]Bucket  { return s.realWeek }
func (s *SummaryTable) RealMonthSum() map[BucketKey]Bucket { return s.realMonth }
