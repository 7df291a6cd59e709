package redmine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Issue represents a Redmine issue from the REST API.
type Issue struct {
	ID           int           `json:"id"`
	Subject      string        `json:"subject"`
	Description  string        `json:"description"`
	Project      Ref           `json:"project"`
	Tracker      Ref           `json:"tracker"`
	Status       Ref           `json:"status"`
	Priority     Ref           `json:"priority"`
	Author       Ref           `json:"author"`
	AssignedTo   *Ref          `json:"assigned_to,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
	CreatedOn    string        `json:"created_on,omitempty"`
	UpdatedOn    string        `json:"updated_on,omitempty"`
}

// Ref is the id/name pair Redmine uses for related records.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CustomField is a custom field value on an issue.
type CustomField struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Multiple bool       `json:"multiple,omitempty"`
	Value    FieldValue `json:"value"`
}

// FieldValue holds a custom field value. Redmine sends null for empty
// fields, a string for single-value fields and an array for multi-value ones.
type FieldValue []string

// UnmarshalJSON accepts null, a string or an array of strings.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("decoding custom field values: %w", err)
		}
		*v = values
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding custom field value: %w", err)
		}
		*v = FieldValue{s}
		return nil
	}
}

// CustomFieldValue returns the first value of a custom field and whether the
// field is present with a value.
func (i *Issue) CustomFieldValue(id int) (string, bool) {
	for _, f := range i.CustomFields {
		if f.ID == id {
			if len(f.Value) == 0 {
				return "", false
			}
			return f.Value[0], true
		}
	}
	return "", false
}

// issueEnvelope wraps the issue object in GET/PUT bodies.
type issueEnvelope struct {
	Issue Issue `json:"issue"`
}

// IssueUpdate is the subset of issue attributes we write back.
type IssueUpdate struct {
	StatusID int    `json:"status_id,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// UpdatePayload is the body for PUT /issues/{id}.json.
type UpdatePayload struct {
	Issue IssueUpdate `json:"issue"`
}

// APIError is returned when Redmine answers with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Redmine API returned %d: %s", e.StatusCode, e.Body)
}

// ParseIssueID parses an issue number, accepting a leading '#'.
func ParseIssueID(s string) (int, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id %q", s)
	}
	return id, nil
}
