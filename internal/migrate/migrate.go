// Package migrate moves one Redmine issue into a ClickUp task.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dt-pm-tools/r2c/internal/clickup"
	"github.com/dt-pm-tools/r2c/internal/ledger"
	"github.com/dt-pm-tools/r2c/internal/logging"
	"github.com/dt-pm-tools/r2c/internal/mapping"
	"github.com/dt-pm-tools/r2c/internal/redmine"
	"github.com/dt-pm-tools/r2c/internal/textile"
)

// ErrAlreadyMigrated is returned when the ledger already holds a task for
// the issue and Force is not set.
var ErrAlreadyMigrated = errors.New("issue already migrated")

// IssueSource reads and updates Redmine issues.
type IssueSource interface {
	GetIssue(ctx context.Context, id int) (*redmine.Issue, error)
	UpdateIssue(ctx context.Context, id int, update redmine.IssueUpdate) error
	IssueURL(id int) string
}

// TaskSink creates and updates ClickUp tasks.
type TaskSink interface {
	CreateTask(ctx context.Context, listID string, task clickup.TaskRequest) (*clickup.Task, error)
	SetCustomField(ctx context.Context, taskID, fieldID string, value any) error
}

// History remembers completed migrations.
type History interface {
	Lookup(ctx context.Context, issueID int) (*ledger.Record, error)
	Record(ctx context.Context, r ledger.Record) error
}

// Migrator runs migrations. History may be nil.
type Migrator struct {
	Issues  IssueSource
	Tasks   TaskSink
	History History
	Mapping mapping.Mapping
	Logger  *slog.Logger

	// DryRun fetches the issue and builds the payload without writing anything.
	DryRun bool
	// Force migrates issues the ledger already knows about.
	Force bool
}

// Run migrates one issue into the given list.
//
// A failure to fetch the issue, or an earlier migration recorded in the
// ledger, aborts the run and is returned as an error. Every later failure is
// recorded in the report and the remaining steps decide for themselves
// whether they can still run.
func (m *Migrator) Run(ctx context.Context, issueID int, listID string) (*Report, error) {
	log := m.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("issue", issueID, "list", listID)
	report := &Report{IssueID: issueID, ListID: listID, DryRun: m.DryRun}

	if m.History != nil && !m.Force {
		prev, err := m.History.Lookup(ctx, issueID)
		if err != nil {
			log.Warn("ledger lookup failed", "error", err)
		} else if prev != nil {
			return nil, fmt.Errorf("%w: issue %d is task %s (%s)", ErrAlreadyMigrated, issueID, prev.TaskID, prev.TaskURL)
		}
	}

	log.Debug("fetching issue")
	issue, err := m.Issues.GetIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("fetching issue %d: %w", issueID, err)
	}
	report.Issue = issue
	report.ok(StepFetch, issue.Subject)

	report.Payload = BuildPayload(issue, m.Issues.IssueURL(issueID), m.Mapping)

	if m.DryRun {
		for _, step := range []string{StepCreate, StepResource, StepAutomation, StepClose} {
			report.skip(step, "dry run")
		}
		return report, nil
	}

	log.Debug("creating task")
	task, err := m.Tasks.CreateTask(ctx, listID, report.Payload)
	if err != nil {
		log.Error("creating task failed", "error", err)
		report.fail(StepCreate, err)
		return report, nil
	}
	report.Task = task
	report.ok(StepCreate, task.URL)
	log = log.With("task", task.ID)

	m.setResource(ctx, log, report)
	m.setBlocksAutomation(ctx, log, report)
	m.closeIssue(ctx, log, report)
	m.record(ctx, log, report)

	return report, nil
}

// BuildPayload maps a Redmine issue onto a ClickUp task request.
func BuildPayload(issue *redmine.Issue, issueURL string, mp mapping.Mapping) clickup.TaskRequest {
	req := clickup.TaskRequest{
		Name:        issue.Subject,
		Description: fmt.Sprintf("Migrated from a Redmine ticket\n%s\n\n%s", issueURL, textile.Convert(issue.Description)),
	}
	if issue.Tracker.ID != 0 {
		typ := mp.TaskType(issue.Tracker.ID)
		req.CustomItemID = &typ
	}
	return req
}

func (m *Migrator) setResource(ctx context.Context, log *slog.Logger, report *Report) {
	repo, ok := report.Issue.CustomFieldValue(m.Mapping.Resource.SourceFieldID)
	if !ok || repo == "" {
		log.Warn("issue has no repository, resource not set")
		report.skip(StepResource, "no repository on the issue")
		return
	}
	group, ok := m.Mapping.ResourceFor(repo)
	if !ok {
		log.Warn("repository has no resource group", "repository", repo)
		report.skip(StepResource, fmt.Sprintf("repository %q has no resource group", repo))
		return
	}
	if err := m.Tasks.SetCustomField(ctx, report.Task.ID, m.Mapping.Resource.FieldID, group.OptionID); err != nil {
		log.Error("setting resource failed", "error", err)
		report.fail(StepResource, err)
		return
	}
	report.ok(StepResource, group.Name)
}

func (m *Migrator) setBlocksAutomation(ctx context.Context, log *slog.Logger, report *Report) {
	value, present := report.Issue.CustomFieldValue(m.Mapping.BlocksAutomation.SourceFieldID)
	if !mapping.BlocksAutomationSet(value, present) {
		report.skip(StepAutomation, "flag not set on the issue")
		return
	}
	if err := m.Tasks.SetCustomField(ctx, report.Task.ID, m.Mapping.BlocksAutomation.FieldID, true); err != nil {
		log.Error("setting blocks automation failed", "error", err)
		report.fail(StepAutomation, err)
		return
	}
	report.ok(StepAutomation, "yes")
}

func (m *Migrator) closeIssue(ctx context.Context, log *slog.Logger, report *Report) {
	update := redmine.IssueUpdate{
		StatusID: m.Mapping.ClosedStatusID,
		Notes:    "Migrated to a ClickUp task " + report.Task.URL,
	}
	if err := m.Issues.UpdateIssue(ctx, report.IssueID, update); err != nil {
		log.Error("closing issue failed", "error", err)
		report.fail(StepClose, err)
		return
	}
	report.ok(StepClose, m.Issues.IssueURL(report.IssueID))
}

func (m *Migrator) record(ctx context.Context, log *slog.Logger, report *Report) {
	if m.History == nil {
		return
	}
	err := m.History.Record(ctx, ledger.Record{
		IssueID: report.IssueID,
		TaskID:  report.Task.ID,
		TaskURL: report.Task.URL,
		ListID:  report.ListID,
		Subject: report.Issue.Subject,
	})
	if err != nil {
		log.Warn("recording migration failed", "error", err)
		report.fail(StepLedger, err)
		return
	}
	report.ok(StepLedger, "")
}
