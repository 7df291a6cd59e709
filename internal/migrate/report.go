package migrate

import (
	"github.com/dt-pm-tools/r2c/internal/clickup"
	"github.com/dt-pm-tools/r2c/internal/redmine"
)

// Step names, in the order Run performs them.
const (
	StepFetch      = "fetch issue"
	StepCreate     = "create task"
	StepResource   = "set resource"
	StepAutomation = "set blocks automation"
	StepClose      = "close issue"
	StepLedger     = "record migration"
)

// Status is the outcome of one step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StepResult is the outcome of one migration step. Err is set only when
// Status is StatusFailed.
type StepResult struct {
	Step   string
	Status Status
	Detail string
	Err    error
}

// Report describes what a migration run did.
type Report struct {
	IssueID int
	ListID  string
	DryRun  bool

	Issue   *redmine.Issue
	Payload clickup.TaskRequest
	// Task is nil when no task was created.
	Task *clickup.Task

	Steps []StepResult
}

// Created reports whether the ClickUp task exists.
func (r *Report) Created() bool {
	return r.Task != nil
}

// Failures returns the steps that failed.
func (r *Report) Failures() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Step returns the result of the named step, if it ran.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

func (r *Report) ok(step, detail string) {
	r.Steps = append(r.Steps, StepResult{Step: step, Status: StatusOK, Detail: detail})
}

func (r *Report) skip(step, detail string) {
	r.Steps = append(r.Steps, StepResult{Step: step, Status: StatusSkipped, Detail: detail})
}

func (r *Report) fail(step string, err error) {
	r.Steps = append(r.Steps, StepResult{Step: step, Status: StatusFailed, Detail: err.Error(), Err: err})
}
