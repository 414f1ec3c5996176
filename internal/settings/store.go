package settings

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/internal/timetracker"
	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// Setting names, kept identical to the legacy property names so an
// existing installation's values survive a migration.
const (
	keySummaryFilters  = "SummaryFilters"
	keyNonEstimated    = "NonEstimated"
	keyExcludeDates    = "ExcludeDates"
	keyIncludeDates    = "IncludeDates"
	keyCalendarPopup   = "isCalendarPopup"
	keyActualDate      = "isActualDate"
	keyColoring        = "isColoring"
	keyStartTimeChange = "startTimeChange"
	keyEndTimeChange   = "endTimeChange"
)

// globalKey is the user_key bucket for installation-wide settings.
const globalKey = ""

var timeChangeSteps = map[int]struct{}{5: {}, 10: {}, 15: {}, 20: {}, 30: {}}

// Store persists per-user and global plugin settings in sqlite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and if needed creates) the settings database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS plugin_settings (
		user_key TEXT NOT NULL,
		name     TEXT NOT NULL,
		value    TEXT NOT NULL,
		PRIMARY KEY (user_key, name)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the effective settings for the user. Per-user values
// override the global bucket, which overrides the defaults. A malformed
// stored value is logged and replaced by its default, never an error.
func (s *Store) Load(userKey string) (types.PluginSettings, error) {
	out := types.DefaultPluginSettings()

	for _, bucket := range []string{globalKey, userKey} {
		values, err := s.bucket(bucket)
		if err != nil {
			return out, err
		}
		s.apply(&out, values)
	}
	return out, nil
}

// Save writes the user's settings, overwriting any previous values.
// Calendar and coloring preferences are per-user; the date lists,
// filter patterns and time increments go to the global bucket, matching
// how the settings page scopes them.
func (s *Store) Save(userKey string, ps types.PluginSettings) error {
	perUser := map[string]string{
		keyCalendarPopup: strconv.Itoa(ps.CalendarPopup),
		keyActualDate:    strconv.FormatBool(ps.ActualDate),
		keyColoring:      strconv.FormatBool(ps.Coloring),
	}
	global := map[string]string{
		keySummaryFilters:  joinPatterns(ps.FilterPatterns),
		keyNonEstimated:    joinPatterns(ps.CollectorPatterns),
		keyExcludeDates:    ps.ExcludeDates,
		keyIncludeDates:    ps.IncludeDates,
		keyStartTimeChange: strconv.Itoa(ps.StartTimeChange),
		keyEndTimeChange:   strconv.Itoa(ps.EndTimeChange),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer tx.Rollback()

	for name, value := range perUser {
		if err := upsert(tx, userKey, name, value); err != nil {
			return err
		}
	}
	for name, value := range global {
		if err := upsert(tx, globalKey, name, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ValidateTimeChange reports whether v is an accepted time increment.
func ValidateTimeChange(v int) bool {
	_, ok := timeChangeSteps[v]
	return ok
}

func upsert(tx *sql.Tx, userKey, name, value string) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO plugin_settings (user_key, name, value) VALUES (?, ?, ?)`,
		userKey, name, value)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", name, err)
	}
	return nil
}

func (s *Store) bucket(userKey string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT name, value FROM plugin_settings WHERE user_key = ?`, userKey)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[name] = value
	}
	return values, rows.Err()
}

func (s *Store) apply(out *types.PluginSettings, values map[string]string) {
	for name, value := range values {
		switch name {
		case keyCalendarPopup:
			n, err := strconv.Atoi(value)
			if err != nil || (n != types.PopupCalendarCode && n != types.InlineCalendarCode) {
				s.warnValue(name, value)
				continue
			}
			out.CalendarPopup = n
		case keyActualDate:
			b, err := strconv.ParseBool(value)
			if err != nil {
				s.warnValue(name, value)
				continue
			}
			out.ActualDate = b
		case keyColoring:
			b, err := strconv.ParseBool(value)
			if err != nil {
				s.warnValue(name, value)
				continue
			}
			out.Coloring = b
		case keyExcludeDates:
			out.ExcludeDates = s.normalizeDates(name, value)
		case keyIncludeDates:
			out.IncludeDates = s.normalizeDates(name, value)
		case keySummaryFilters:
			out.FilterPatterns = s.validPatterns(name, value)
		case keyNonEstimated:
			out.CollectorPatterns = s.validPatterns(name, value)
		case keyStartTimeChange:
			n, err := strconv.Atoi(value)
			if err != nil || !ValidateTimeChange(n) {
				s.warnValue(name, value)
				continue
			}
			out.StartTimeChange = n
		case keyEndTimeChange:
			n, err := strconv.Atoi(value)
			if err != nil || !ValidateTimeChange(n) {
				s.warnValue(name, value)
				continue
			}
			out.EndTimeChange = n
		}
	}
}

// normalizeDates reparses a date CSV so legacy values like "2024-6-8"
// come out zero padded; entries that are not dates at all are dropped.
func (s *Store) normalizeDates(name, csv string) string {
	var kept []string
	for _, raw := range timetracker.SplitCSV(csv) {
		t, err := time.Parse("2006-1-2", raw)
		if err != nil {
			s.warnValue(name, raw)
			continue
		}
		kept = append(kept, t.Format(timetracker.DateLayout))
	}
	return joinPatterns(kept)
}

func (s *Store) validPatterns(name, csv string) []string {
	var kept []string
	for _, raw := range timetracker.SplitCSV(csv) {
		if _, err := regexp.Compile(raw); err != nil {
			s.warnValue(name, raw)
			continue
		}
		kept = append(kept, raw)
	}
	return kept
}

func (s *Store) warnValue(name, value string) {
	s.logger.Warn("ignoring malformed setting",
		zap.String("name", name), zap.String("value", value))
}

func joinPatterns(parts []string) string {
	return strings.Join(parts, ",")
}
