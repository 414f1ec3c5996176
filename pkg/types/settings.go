package types

// Calendar picker codes kept from the legacy setting values.
const (
	PopupCalendarCode  = 1
	InlineCalendarCode = 2
)

// PluginSettings is the persisted timetracker configuration. The pattern
// lists and the exclude/include date CSVs are installation wide; the
// calendar and time increment values are per user.
type PluginSettings struct {
	CalendarPopup int  `json:"calendar_popup"`
	ActualDate    bool `json:"actual_date"`
	Coloring      bool `json:"coloring"`

	// ExcludeDates and IncludeDates are comma separated YYYY-MM-DD
	// calendar exceptions. Exclude wins over include.
	ExcludeDates string `json:"exclude_dates"`
	IncludeDates string `json:"include_dates"`

	// FilterPatterns name the issues left out of "real" summaries and
	// the enough-hours check; CollectorPatterns name the non-estimated
	// issues. Both are anchored regular expressions over issue keys.
	FilterPatterns    []string `json:"filter_patterns"`
	CollectorPatterns []string `json:"collector_patterns"`

	StartTimeChange int `json:"start_time_change"`
	EndTimeChange   int `json:"end_time_change"`
}

// DefaultPluginSettings returns the documented defaults substituted for
// missing or malformed persisted values.
func DefaultPluginSettings() PluginSettings {
	return PluginSettings{
		CalendarPopup:     PopupCalendarCode,
		ActualDate:        true,
		Coloring:          true,
		CollectorPatterns: []string{".*"},
		StartTimeChange:   5,
		EndTimeChange:     5,
	}
}
