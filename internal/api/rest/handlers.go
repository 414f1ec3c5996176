package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/internal/settings"
	"github.com/SharXeniX/jira-timetracker-plugin/internal/timetracker"
	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// userHeader carries the acting user's key, set by the fronting proxy
// after authentication.
const userHeader = "X-User-Key"

// Handler handles REST API requests
type Handler struct {
	settings *settings.Store
	builder  *timetracker.ReportBuilder
	mutator  *timetracker.WorklogMutator
	store    timetracker.WorklogStore
	cache    *timetracker.ReportCache
	notifier timetracker.Notifier
	logger   *zap.Logger
}

// NewHandler creates a new REST handler
func NewHandler(
	settingsStore *settings.Store,
	builder *timetracker.ReportBuilder,
	mutator *timetracker.WorklogMutator,
	store timetracker.WorklogStore,
	cache *timetracker.ReportCache,
	notifier timetracker.Notifier,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		settings: settingsStore,
		builder:  builder,
		mutator:  mutator,
		store:    store,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRoutes registers REST API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/report", h.GetReport)
	r.Get("/summary", h.GetSummary)
	r.Get("/missing", h.GetMissingDates)
	r.Get("/months/{month}/logged-days", h.GetLoggedDays)
	r.Get("/months/{month}/excluded-days", h.GetExcludedDays)
	r.Post("/worklogs", h.CreateWorklog)
	r.Put("/worklogs/{id}", h.EditWorklog)
	r.Delete("/worklogs/{id}", h.DeleteWorklog)
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Post("/feedback", h.PostFeedback)
	r.Get("/health", h.Health)
}

// bucketEntry is one aggregation slot in a response, flattened from the
// summary maps so the JSON stays an ordered list.
type bucketEntry struct {
	Year      int    `json:"year"`
	Ordinal   int    `json:"ordinal"`
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

// ReportResponse is the payload of GET /report.
type ReportResponse struct {
	Worklogs    []types.Worklog `json:"worklogs"`
	LastEndTime string          `json:"last_end_time"`

	Days   []bucketEntry `json:"days"`
	Weeks  []bucketEntry `json:"weeks"`
	Months []bucketEntry `json:"months"`

	RealDays   []bucketEntry `json:"real_days"`
	RealWeeks  []bucketEntry `json:"real_weeks"`
	RealMonths []bucketEntry `json:"real_months"`
}

// GetReport handles GET /report?user&from&to
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	ps, err := h.settings.Load(requester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	filter, err := timetracker.CompileIssueFilter(ps.FilterPatterns)
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.builder.Build(r.Context(), requester, r.URL.Query().Get("user"), from, to, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := ReportResponse{
		Worklogs:    report.Worklogs,
		LastEndTime: timetracker.LastEndTime(report.Worklogs),
		Days:        flatten(report.Summary.DaySum()),
		Weeks:       flatten(report.Summary.WeekSum()),
		Months:      flatten(report.Summary.MonthSum()),
		RealDays:    flatten(report.Summary.RealDaySum()),
		RealWeeks:   flatten(report.Summary.RealWeekSum()),
		RealMonths:  flatten(report.Summary.RealMonthSum()),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetSummary handles GET /summary?user&from&to
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	ps, err := h.settings.Load(requester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	filter, err := timetracker.CompileIssueFilter(ps.FilterPatterns)
	if err != nil {
		h.writeError(w, err)
		return
	}

	user := r.URL.Query().Get("user")
	if user == "" {
		user = requester
	}
	total, err := h.builder.Summary(r.Context(), user, from, to, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"summary": total})
}

// GetMissingDates handles GET /missing?user&from&to&minHours&excludeNonWorking
func (h *Handler) GetMissingDates(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	scanner, err := h.scanner(requester)
	if err != nil {
		h.writeError(w, err)
		return
	}

	user := r.URL.Query().Get("user")
	if user == "" {
		user = requester
	}
	minHours := r.URL.Query().Get("minHours") == "true"
	excludeNonWorking := r.URL.Query().Get("excludeNonWorking") == "true"

	missing, err := scanner.MissingDates(r.Context(), user, from, to, minHours, excludeNonWorking)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dates := make([]string, 0, len(missing))
	for _, d := range missing {
		dates = append(dates, d.Format(timetracker.DateLayout))
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"missing": dates})
}

// GetLoggedDays handles GET /months/{month}/logged-days?user
func (h *Handler) GetLoggedDays(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	month, err := time.Parse("2006-01", chi.URLParam(r, "month"))
	if err != nil {
		h.badRequest(w, "month must be YYYY-MM")
		return
	}

	user := r.URL.Query().Get("user")
	if user == "" {
		user = requester
	}
	days, err := h.builder.LoggedDaysOfMonth(r.Context(), user, month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if days == nil {
		days = []int{}
	}
	h.writeJSON(w, http.StatusOK, map[string][]int{"days": days})
}

// GetExcludedDays handles GET /months/{month}/excluded-days
func (h *Handler) GetExcludedDays(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	month := chi.URLParam(r, "month")
	if _, err := time.Parse("2006-01", month); err != nil {
		h.badRequest(w, "month must be YYYY-MM")
		return
	}

	ps, err := h.settings.Load(requester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	calendar := timetracker.NewWorkdayCalendarFromCSV(ps.ExcludeDates, ps.IncludeDates)
	days := calendar.ExcludedDaysOfMonth(month)
	if days == nil {
		days = []int{}
	}
	h.writeJSON(w, http.StatusOK, map[string][]int{"days": days})
}

// WorklogRequest carries the create/edit form fields.
type WorklogRequest struct {
	IssueKey        string `json:"issue_key"`
	Comment         string `json:"comment"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// CreateWorklog handles POST /worklogs
func (h *Handler) CreateWorklog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	var req WorklogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	result, err := h.mutator.Create(r.Context(), requester, req.IssueKey, req.Comment, req.Date, req.StartTime, req.DurationSeconds)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !result.Failed() {
		h.cache.Invalidate(requester)
	}
	h.writeJSON(w, http.StatusOK, result)
}

// EditWorklog handles PUT /worklogs/{id}
func (h *Handler) EditWorklog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	var req WorklogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.mutator.Edit(r.Context(), requester, id, req.IssueKey, req.Comment, req.Date, req.StartTime, req.DurationSeconds)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !result.Failed() {
		h.cache.Invalidate(requester)
	}
	h.writeJSON(w, http.StatusOK, result)
}

// DeleteWorklog handles DELETE /worklogs/{id}
func (h *Handler) DeleteWorklog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	result, err := h.mutator.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !result.Failed() {
		h.cache.Invalidate(requester)
	}
	h.writeJSON(w, http.StatusOK, result)
}

// GetSettings handles GET /settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		user = requester
	}
	ps, err := h.settings.Load(user)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ps)
}

// PutSettings handles PUT /settings
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	var ps types.PluginSettings
	if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if !settings.ValidateTimeChange(ps.StartTimeChange) || !settings.ValidateTimeChange(ps.EndTimeChange) {
		h.badRequest(w, "time change increment must be one of 5, 10, 15, 20, 30")
		return
	}
	if _, err := timetracker.CompileIssueFilter(ps.FilterPatterns); err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := timetracker.CompileIssueFilter(ps.CollectorPatterns); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.settings.Save(requester, ps); err != nil {
		h.writeError(w, err)
		return
	}
	// Calendar or filter changes invalidate every cached report.
	h.cache.InvalidateAll()
	h.writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	Summary string `json:"summary"`
	Body    string `json:"body"`
}

// PostFeedback handles POST /feedback
func (h *Handler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if req.Body == "" {
		h.badRequest(w, "feedback body is required")
		return
	}
	subject := req.Summary
	if subject == "" {
		subject = "Timetracker feedback"
	}
	subject += " (from " + requester + ")"
	if err := h.notifier.Send(r.Context(), subject, req.Body); err != nil {
		h.logger.Error("feedback delivery failed", zap.Error(err))
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scanner assembles a gap scanner from the requester's current settings.
func (h *Handler) scanner(requester string) (*timetracker.GapScanner, error) {
	ps, err := h.settings.Load(requester)
	if err != nil {
		return nil, err
	}
	filter, err := timetracker.CompileIssueFilter(ps.CollectorPatterns)
	if err != nil {
		return nil, err
	}
	calendar := timetracker.NewWorkdayCalendarFromCSV(ps.ExcludeDates, ps.IncludeDates)
	return timetracker.NewGapScanner(h.store, calendar, filter, h.logger), nil
}

func (h *Handler) requester(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.Header.Get(userHeader)
	if user == "" {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userHeader + " header"})
		return "", false
	}
	return user, true
}

func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse(timetracker.DateLayout, r.URL.Query().Get("from"))
	if err != nil {
		h.badRequest(w, "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(timetracker.DateLayout, r.URL.Query().Get("to"))
	if err != nil {
		h.badRequest(w, "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func flatten(m map[timetracker.BucketKey]timetracker.Bucket) []bucketEntry {
	out := make([]bucketEntry, 0, len(m))
	for k, b := range m {
		out = append(out, bucketEntry{Year: k.Year, Ordinal: k.Ordinal, Seconds: b.Seconds, Formatted: b.Formatted})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, timetracker.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, timetracker.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, timetracker.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, timetracker.ErrStore):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
