package timetracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// Message keys returned to the presentation layer. The keys match the
// legacy plugin resource bundle.
const (
	MsgInvalidIssue   = "plugin.invalid_issue"
	MsgNoPermission   = "plugin.nopermission_issue"
	MsgDateParse      = "plugin.date_parse"
	MsgInvalidWorklog = "plugin.invalid_worklog"
	MsgCreateFail     = "plugin.worklog.create.fail"
	MsgCreateSuccess  = "plugin.worklog.create.success"
	MsgDeleteFail     = "plugin.worklog.delete.fail"
	MsgDeleteSuccess  = "plugin.worklog.delete.success"
	MsgUpdateFail     = "plugin.worklog.update.fail"
	MsgUpdateSuccess  = "plugin.worklog.update.success"
	MsgMovePartial    = "plugin.worklog.move.partial"
)

// DateTimeLayout joins the report date and start time form fields.
const DateTimeLayout = "2006-01-02 15:04"

// WorklogMutator runs the create, edit and delete workflows against the
// worklog store. Every operation validates first and either executes or
// returns a FAIL result with no side effect; only unexpected store
// failures surface as errors.
type WorklogMutator struct {
	store  WorklogStore
	issues IssueRepository
	perms  PermissionService
	logger *zap.Logger
}

// NewWorklogMutator wires the mutator to its collaborators.
func NewWorklogMutator(store WorklogStore, issues IssueRepository, perms PermissionService, logger *zap.Logger) *WorklogMutator {
	return &WorklogMutator{store: store, issues: issues, perms: perms, logger: logger}
}

// Create logs new work on an issue. Validation order: issue exists, the
// user may work on it, the date and start time parse. The store call
// runs with estimate auto-adjustment enabled.
func (m *WorklogMutator) Create(ctx context.Context, userKey, issueKey, comment, date, startTime string, durationSeconds int64) (types.ActionResult, error) {
	issue, err := m.issues.ByKey(ctx, issueKey)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: issue %s: %v", ErrStore, issueKey, err)
	}
	if issue == nil {
		return types.FailResult(MsgInvalidIssue, issueKey), nil
	}
	ok, err := m.perms.HasWorkPermission(ctx, userKey, issueKey)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: work permission on %s: %v", ErrStore, issueKey, err)
	}
	if !ok {
		return types.FailResult(MsgNoPermission, issueKey), nil
	}
	start, result := parseDateAndTime(date, startTime)
	if result != nil {
		return *result, nil
	}
	created, err := m.store.Create(ctx, types.WorklogInput{
		IssueKey:        issueKey,
		Comment:         comment,
		Start:           start,
		DurationSeconds: durationSeconds,
	}, true)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: create worklog on %s: %v", ErrStore, issueKey, err)
	}
	if created == nil {
		return types.FailResult(MsgCreateFail), nil
	}
	m.logger.Info("worklog created",
		zap.String("user", userKey),
		zap.String("issue", issueKey),
		zap.String("worklog", created.ID),
	)
	return types.SuccessResult(MsgCreateSuccess), nil
}

// Delete removes a worklog. The store call runs with estimate
// auto-adjustment disabled.
func (m *WorklogMutator) Delete(ctx context.Context, id string) (types.ActionResult, error) {
	deleted, err := m.store.Delete(ctx, id, false)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: delete worklog %s: %v", ErrStore, id, err)
	}
	if deleted == nil {
		return types.FailResult(MsgDeleteFail, id), nil
	}
	m.logger.Info("worklog deleted", zap.String("worklog", id))
	return types.SuccessResult(MsgDeleteSuccess, id), nil
}

// Edit updates an existing worklog. When the target issue differs from
// the current one the edit becomes a move; otherwise the record is
// re-validated and updated in place with estimate auto-adjustment.
func (m *WorklogMutator) Edit(ctx context.Context, userKey, id, issueKey, comment, date, startTime string, durationSeconds int64) (types.ActionResult, error) {
	current, err := m.store.ByID(ctx, id)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: worklog %s: %v", ErrStore, id, err)
	}
	if current == nil {
		return types.FailResult(MsgInvalidWorklog, id), nil
	}
	issue, err := m.issues.ByKey(ctx, issueKey)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: issue %s: %v", ErrStore, issueKey, err)
	}
	if issue == nil {
		return types.FailResult(MsgInvalidIssue, issueKey), nil
	}
	if current.IssueKey != issueKey {
		return m.move(ctx, userKey, *current, issueKey, comment, date, startTime, durationSeconds)
	}
	start, result := parseDateAndTime(date, startTime)
	if result != nil {
		return *result, nil
	}
	updated, err := m.store.Update(ctx, id, types.WorklogInput{
		IssueKey:        issueKey,
		Comment:         comment,
		Start:           start,
		DurationSeconds: durationSeconds,
	}, true)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: update worklog %s: %v", ErrStore, id, err)
	}
	if updated == nil {
		return types.FailResult(MsgUpdateFail), nil
	}
	m.logger.Info("worklog updated", zap.String("worklog", id), zap.String("issue", issueKey))
	return types.SuccessResult(MsgUpdateSuccess), nil
}

// move reissues the worklog on the new issue as delete-then-create: two
// independent store transactions. When the create fails the original is
// recreated from the snapshot read by Edit; if even that fails the
// caller gets the distinct partial-failure result so manual recovery can
// happen instead of the record silently vanishing.
func (m *WorklogMutator) move(ctx context.Context, userKey string, original types.Worklog, issueKey, comment, date, startTime string, durationSeconds int64) (types.ActionResult, error) {
	ok, err := m.perms.HasWorkPermission(ctx, userKey, issueKey)
	if err != nil {
		return types.ActionResult{}, fmt.Errorf("%w: work permission on %s: %v", ErrStore, issueKey, err)
	}
	if !ok {
		return types.FailResult(MsgNoPermission, issueKey), nil
	}
	// Parse before deleting so a bad date cannot orphan the record.
	start, result := parseDateAndTime(date, startTime)
	if result != nil {
		return *result, nil
	}

	deleted, err := m.Delete(ctx, original.ID)
	if err != nil {
		return types.ActionResult{}, err
	}
	if deleted.Failed() {
		return deleted, nil
	}

	created, err := m.store.Create(ctx, types.WorklogInput{
		IssueKey:        issueKey,
		Comment:         comment,
		Start:           start,
		DurationSeconds: durationSeconds,
	}, true)
	if err == nil && created != nil {
		m.logger.Info("worklog moved",
			zap.String("worklog", original.ID),
			zap.String("from", original.IssueKey),
			zap.String("to", issueKey),
		)
		return types.SuccessResult(MsgUpdateSuccess), nil
	}
	if err != nil {
		m.logger.Error("move create failed after delete",
			zap.String("worklog", original.ID),
			zap.String("to", issueKey),
			zap.Error(err),
		)
	}

	restored, rerr := m.store.Create(ctx, types.WorklogInput{
		IssueKey:        original.IssueKey,
		Comment:         original.Comment,
		Start:           original.Start,
		DurationSeconds: original.DurationSeconds,
	}, true)
	if rerr != nil || restored == nil {
		m.logger.Error("move compensation failed, original worklog lost",
			zap.String("worklog", original.ID),
			zap.String("issue", original.IssueKey),
			zap.Error(rerr),
		)
		return types.FailResult(MsgMovePartial, original.ID, issueKey), nil
	}
	m.logger.Warn("move create failed, original worklog restored",
		zap.String("worklog", original.ID),
		zap.String("restored", restored.ID),
	)
	return types.FailResult(MsgCreateFail), nil
}

// parseDateAndTime combines the two form fields into a timestamp and
// yields the FAIL result for unparseable input.
func parseDateAndTime(date, startTime string) (time.Time, *types.ActionResult) {
	joined := date + " " + startTime
	start, err := time.ParseInLocation(DateTimeLayout, joined, time.Local)
	if err != nil {
		fail := types.FailResult(MsgDateParse, joined)
		return time.Time{}, &fail
	}
	return start, nil
}
