package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dt-pm-tools/r2c/internal/clickup"
	"github.com/dt-pm-tools/r2c/internal/ledger"
	"github.com/dt-pm-tools/r2c/internal/mapping"
	"github.com/dt-pm-tools/r2c/internal/redmine"
)

type fakeIssues struct {
	issue     *redmine.Issue
	getErr    error
	updateErr error
	updates   []redmine.IssueUpdate
}

func (f *fakeIssues) GetIssue(_ context.Context, id int) (*redmine.Issue, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.issue, nil
}

func (f *fakeIssues) UpdateIssue(_ context.Context, id int, u redmine.IssueUpdate) error {
	f.updates = append(f.updates, u)
	return f.updateErr
}

func (f *fakeIssues) IssueURL(id int) string {
	return fmt.Sprintf("https://redmine.example.com/issues/%d", id)
}

type fieldUpdate struct {
	taskID, fieldID string
	value           any
}

type fakeTasks struct {
	createErr error
	fieldErr  error
	created   []clickup.TaskRequest
	fields    []fieldUpdate
}

func (f *fakeTasks) CreateTask(_ context.Context, listID string, t clickup.TaskRequest) (*clickup.Task, error) {
	f.created = append(f.created, t)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &clickup.Task{ID: "86abc", Name: t.Name, URL: clickup.TaskURL("86abc")}, nil
}

func (f *fakeTasks) SetCustomField(_ context.Context, taskID, fieldID string, value any) error {
	f.fields = append(f.fields, fieldUpdate{taskID, fieldID, value})
	return f.fieldErr
}

type fakeHistory struct {
	prev    *ledger.Record
	records []ledger.Record
}

func (f *fakeHistory) Lookup(_ context.Context, issueID int) (*ledger.Record, error) {
	return f.prev, nil
}

func (f *fakeHistory) Record(_ context.Context, r ledger.Record) error {
	f.records = append(f.records, r)
	return nil
}

func val(s string) redmine.FieldValue { return redmine.FieldValue{s} }

func sampleIssue() *redmine.Issue {
	return &redmine.Issue{
		ID:          4242,
		Subject:     "Crash on launch",
		Description: "h2. Steps\n\n# open the app\n# watch it crash",
		Tracker:     redmine.Ref{ID: 1, Name: "Bug"},
		CustomFields: []redmine.CustomField{
			{ID: 41, Name: "Repository", Value: val("go-api")},
			{ID: 16, Name: "Blocks automation", Value: val("1")},
		},
	}
}

func TestRunHappyPath(t *testing.T) {
	issues := &fakeIssues{issue: sampleIssue()}
	tasks := &fakeTasks{}
	history := &fakeHistory{}
	m := &Migrator{Issues: issues, Tasks: tasks, History: history, Mapping: mapping.Default()}

	report, err := m.Run(context.Background(), 4242, "901")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Created() {
		t.Fatal("task not created")
	}
	if len(report.Failures()) != 0 {
		t.Errorf("unexpected failures: %+v", report.Failures())
	}

	if len(tasks.created) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks.created))
	}
	payload := tasks.created[0]
	wantDesc := "Migrated from a Redmine ticket\nhttps://redmine.example.com/issues/4242\n\n## Steps\n1. open the app\n1. watch it crash"
	if payload.Description != wantDesc {
		t.Errorf("description\n got: %q\nwant: %q", payload.Description, wantDesc)
	}
	if payload.CustomItemID == nil || *payload.CustomItemID != 1012 {
		t.Errorf("CustomItemID = %v, want 1012", payload.CustomItemID)
	}

	if len(tasks.fields) != 2 {
		t.Fatalf("expected two field updates, got %+v", tasks.fields)
	}
	if tasks.fields[0].value != "d12a5f55-1364-4d8e-a458-95afdca8b6b6" {
		t.Errorf("resource value = %v", tasks.fields[0].value)
	}
	if tasks.fields[1].value != true {
		t.Errorf("automation value = %v", tasks.fields[1].value)
	}

	if len(issues.updates) != 1 {
		t.Fatalf("expected one issue update, got %d", len(issues.updates))
	}
	if u := issues.updates[0]; u.StatusID != 20 || u.Notes != "Migrated to a ClickUp task https://app.clickup.com/t/86abc" {
		t.Errorf("unexpected close update: %+v", u)
	}

	if len(history.records) != 1 || history.records[0].TaskID != "86abc" {
		t.Errorf("ledger not updated: %+v", history.records)
	}
}

func TestRunFetchFailureAborts(t *testing.T) {
	issues := &fakeIssues{getErr: &redmine.APIError{StatusCode: 404, Body: "not found"}}
	tasks := &fakeTasks{}
	m := &Migrator{Issues: issues, Tasks: tasks, Mapping: mapping.Default()}

	report, err := m.Run(context.Background(), 1, "901")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *redmine.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("error does not wrap APIError: %v", err)
	}
	if report != nil {
		t.Errorf("expected no report, got %+v", report)
	}
	if len(tasks.created) != 0 {
		t.Error("task created despite fetch failure")
	}
}

func TestRunCreateFailureLeavesIssueOpen(t *testing.T) {
	issues := &fakeIssues{issue: sampleIssue()}
	tasks := &fakeTasks{createErr: errors.New("boom")}
	history := &fakeHistory{}
	m := &Migrator{Issues: issues, Tasks: tasks, History: history, Mapping: mapping.Default()}

	report, err := m.Run(context.Background(), 4242, "901")
	if err != nil {
		t.Fatalf("soft failure returned as error: %v", err)
	}
	if report.Created() {
		t.Error("report claims a task was created")
	}
	if s, ok := report.Step(StepCreate); !ok || s.Status != StatusFailed {
		t.Errorf("create step = %+v", s)
	}
	if len(issues.updates) != 0 {
		t.Error("issue closed although no task exists")
	}
	if len(tasks.fields) != 0 || len(history.records) != 0 {
		t.Error("follow-up steps ran without a task")
	}
}

func TestRunFieldFailuresAreSoft(t *testing.T) {
	issues := &fakeIssues{issue: sampleIssue()}
	tasks := &fakeTasks{fieldErr: errors.New("field locked")}
	m := &Migrator{Issues: issues, Tasks: tasks, Mapping: mapping.Default()}

	report, err := m.Run(context.Background(), 4242, "901")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Failures()) != 2 {
		t.Errorf("expected resource and automation failures, got %+v", report.Failures())
	}
	if s, _ := report.Step(StepClose); s.Status != StatusOK {
		t.Errorf("issue not closed after soft failures: %+v", s)
	}
}

func TestRunSkipsUnsetFields(t *testing.T) {
	issue := sampleIssue()
	issue.CustomFields = []redmine.CustomField{
		{ID: 41, Value: val("cobol-mainframe")},
		{ID: 16, Value: val("0")},
	}
	tasks := &fakeTasks{}
	m := &Migrator{Issues: &fakeIssues{issue: issue}, Tasks: tasks, Mapping: mapping.Default()}

	report, err := m.Run(context.Background(), 4242, "901")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks.fields) != 0 {
		t.Errorf("no field should be set, got %+v", tasks.fields)
	}
	for _, name := range []string{StepResource, StepAutomation} {
		if s, _ := report.Step(name); s.Status != StatusSkipped {
			t.Errorf("%s = %+v, want skipped", name, s)
		}
	}
}

func TestRunNullAutomationValue(t *testing.T) {
	issue := sampleIssue()
	issue.CustomFields = []redmine.CustomField{{ID: 16, Value: nil}}
	tasks := &fakeTasks{}
	m := &Migrator{Issues: &fakeIssues{issue: issue}, Tasks: tasks, Mapping: mapping.Default()}

	if _, err := m.Run(context.Background(), 4242, "901"); err != nil {
		t.Fatal(err)
	}
	if len(tasks.fields) != 0 {
		t.Errorf("null flag should not set anything, got %+v", tasks.fields)
	}
}

func TestRunDryRun(t *testing.T) {
	issues := &fakeIssues{issue: sampleIssue()}
	tasks := &fakeTasks{}
	m := &Migrator{Issues: issues, Tasks: tasks, Mapping: mapping.Default(), DryRun: true}

	report, err := m.Run(context.Background(), 4242, "901")
	if err != nil {
		t.Fatal(err)
	}
	if report.Payload.Name != "Crash on launch" {
		t.Errorf("payload not built: %+v", report.Payload)
	}
	if len(tasks.created) != 0 || len(issues.updates) != 0 {
		t.Error("dry run wrote to an API")
	}
}

func TestRunAlreadyMigrated(t *testing.T) {
	history := &fakeHistory{prev: &ledger.Record{IssueID: 4242, TaskID: "old", TaskURL: "https://app.clickup.com/t/old"}}
	issues := &fakeIssues{issue: sampleIssue()}
	m := &Migrator{Issues: issues, Tasks: &fakeTasks{}, History: history, Mapping: mapping.Default()}

	_, err := m.Run(context.Background(), 4242, "901")
	if !errors.Is(err, ErrAlreadyMigrated) {
		t.Fatalf("expected ErrAlreadyMigrated, got %v", err)
	}
	if !strings.Contains(err.Error(), "old") {
		t.Errorf("error should name the existing task: %v", err)
	}

	m.Force = true
	if _, err := m.Run(context.Background(), 4242, "901"); err != nil {
		t.Fatalf("forced run: %v", err)
	}
}

func TestBuildPayloadUnknownTracker(t *testing.T) {
	issue := &redmine.Issue{Subject: "x", Tracker: redmine.Ref{ID: 99}}
	p := BuildPayload(issue, "u", mapping.Default())
	if p.CustomItemID == nil || *p.CustomItemID != 0 {
		t.Errorf("CustomItemID = %v, want 0", p.CustomItemID)
	}
	if p.Description != "Migrated from a Redmine ticket\nu\n\n" {
		t.Errorf("description = %q", p.Description)
	}

	issue.Tracker = redmine.Ref{}
	if p := BuildPayload(issue, "u", mapping.Default()); p.CustomItemID != nil {
		t.Errorf("missing tracker should leave type unset, got %d", *p.CustomItemID)
	}
}
