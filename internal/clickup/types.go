package clickup

import "fmt"

// TaskRequest is the body for POST /list/{list_id}/task. Description is
// Markdown; it is sent both as the plain and the markdown description so the
// task renders formatted where supported.
type TaskRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	CustomItemID *int   `json:"custom_item_id,omitempty"`
}

type createTaskBody struct {
	TaskRequest
	MarkdownDescription string `json:"markdown_description,omitempty"`
}

// Task is the subset of a ClickUp task returned on creation.
type Task struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	URL    string     `json:"url"`
	Status TaskStatus `json:"status"`
}

// TaskStatus is the workflow status of a task.
type TaskStatus struct {
	Status string `json:"status"`
}

// fieldValue is the body for POST /task/{task_id}/field/{field_id}.
type fieldValue struct {
	Value any `json:"value"`
}

// APIError is returned when ClickUp answers with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ClickUp API returned %d: %s", e.StatusCode, e.Body)
}
