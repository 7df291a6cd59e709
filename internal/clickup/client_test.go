package clickup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dt-pm-tools/r2c/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.Config{ClickUpURL: srv.URL, ClickUpAPIKey: "pk_test", ClickUpTeamID: "77"})
}

func TestCreateTask(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost || req.URL.Path != "/list/901/task" {
			http.NotFound(w, req)
			return
		}
		if req.URL.Query().Get("team_id") != "77" {
			http.Error(w, "missing team", http.StatusBadRequest)
			return
		}
		if req.Header.Get("Authorization") != "pk_test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"id": "86abc", "name": "Crash on launch"}`)
	})

	typ := 1012
	task, err := c.CreateTask(context.Background(), "901", TaskRequest{
		Name:         "Crash on launch",
		Description:  "# Steps",
		CustomItemID: &typ,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "86abc" {
		t.Errorf("ID = %q", task.ID)
	}
	if task.URL != "https://app.clickup.com/t/86abc" {
		t.Errorf("URL = %q", task.URL)
	}

	if body["name"] != "Crash on launch" || body["description"] != "# Steps" || body["markdown_description"] != "# Steps" {
		t.Errorf("unexpected body: %v", body)
	}
	if body["custom_item_id"] != float64(1012) {
		t.Errorf("custom_item_id = %v", body["custom_item_id"])
	}
}

func TestCreateTaskOmitsTypeWhenUnset(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "1"}`)
	})

	if _, err := c.CreateTask(context.Background(), "1", TaskRequest{Name: "n"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["custom_item_id"]; ok {
		t.Errorf("custom_item_id should be omitted: %v", body)
	}
}

func TestCreateTaskFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"err":"List not found","ECODE":"ITEM_013"}`, http.StatusNotFound)
	})

	task, err := c.CreateTask(context.Background(), "404", TaskRequest{Name: "n"})
	if task != nil {
		t.Errorf("expected no task, got %+v", task)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestSetCustomField(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/task/86abc/field/e6bd7f7e-3b86-4d7d-91a0-f4c9f4654584" {
			http.NotFound(w, req)
			return
		}
		json.NewDecoder(req.Body).Decode(&got)
		fmt.Fprint(w, `{}`)
	})

	if err := c.SetCustomField(context.Background(), "86abc", "e6bd7f7e-3b86-4d7d-91a0-f4c9f4654584", true); err != nil {
		t.Fatalf("SetCustomField: %v", err)
	}
	if got["value"] != true {
		t.Errorf("value = %v", got["value"])
	}
}
