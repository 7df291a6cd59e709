package redmine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dt-pm-tools/r2c/internal/config"
)

const issueJSON = `{"issue": {
	"id": 4242,
	"subject": "Crash on launch",
	"description": "h2. Steps\n# open\n# crash",
	"project": {"id": 3, "name": "Mobile"},
	"tracker": {"id": 1, "name": "Bug"},
	"status": {"id": 1, "name": "New"},
	"custom_fields": [
		{"id": 41, "name": "Repository", "multiple": true, "value": ["go-api"]},
		{"id": 16, "name": "Blocks automation", "value": "1"},
		{"id": 7, "name": "Notes", "value": null}
	]
}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.Config{RedmineURL: srv.URL + "/", RedmineAPIKey: "secret"})
}

func TestGetIssue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet || req.URL.Path != "/issues/4242.json" {
			http.NotFound(w, req)
			return
		}
		if got := req.Header.Get("X-Redmine-API-Key"); got != "secret" {
			http.Error(w, "bad key "+got, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, issueJSON)
	})

	issue, err := c.GetIssue(context.Background(), 4242)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue.Subject != "Crash on launch" || issue.Tracker.ID != 1 {
		t.Errorf("unexpected issue: %+v", issue)
	}
	if v, ok := issue.CustomFieldValue(41); !ok || v != "go-api" {
		t.Errorf("repository = %q, %v", v, ok)
	}
	if v, ok := issue.CustomFieldValue(16); !ok || v != "1" {
		t.Errorf("blocks automation = %q, %v", v, ok)
	}
	if _, ok := issue.CustomFieldValue(7); ok {
		t.Error("null custom field reported as set")
	}
	if _, ok := issue.CustomFieldValue(99); ok {
		t.Error("absent custom field reported as set")
	}
}

func TestGetIssueNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	})

	_, err := c.GetIssue(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestUpdateIssue(t *testing.T) {
	var got UpdatePayload
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut || req.URL.Path != "/issues/4242.json" {
			http.NotFound(w, req)
			return
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.UpdateIssue(context.Background(), 4242, IssueUpdate{StatusID: 20, Notes: "moved"})
	if err != nil {
		t.Fatalf("UpdateIssue: %v", err)
	}
	if got.Issue.StatusID != 20 || got.Issue.Notes != "moved" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestUpdateIssueFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"errors":["Status is invalid"]}`, http.StatusUnprocessableEntity)
	})

	err := c.UpdateIssue(context.Background(), 1, IssueUpdate{StatusID: 20})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 APIError, got %v", err)
	}
}

func TestIssueURL(t *testing.T) {
	c := NewClient(config.Config{RedmineURL: "https://redmine.example.com/"})
	if got := c.IssueURL(7); got != "https://redmine.example.com/issues/7" {
		t.Errorf("IssueURL = %q", got)
	}
}

func TestParseIssueID(t *testing.T) {
	for in, want := range map[string]int{"42": 42, "#42": 42} {
		got, err := ParseIssueID(in)
		if err != nil || got != want {
			t.Errorf("ParseIssueID(%q) = %d, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "#", "abc", "-3", "0"} {
		if _, err := ParseIssueID(in); err == nil {
			t.Errorf("ParseIssueID(%q) should fail", in)
		}
	}
}
