// Package mapping holds the tables that turn Redmine issue fields into
// ClickUp task fields.
package mapping

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Mapping describes how Redmine fields map onto ClickUp fields.
type Mapping struct {
	// ClosedStatusID is the Redmine status set on a migrated issue.
	ClosedStatusID int `yaml:"closed_status_id"`

	// TaskTypes maps Redmine tracker IDs to ClickUp custom item IDs.
	TaskTypes       map[int]int `yaml:"task_types"`
	DefaultTaskType int         `yaml:"default_task_type"`

	Resource         ResourceField `yaml:"resource"`
	BlocksAutomation FlagField     `yaml:"blocks_automation"`
}

// ResourceField maps the Redmine repository field to the ClickUp resource
// dropdown.
type ResourceField struct {
	SourceFieldID int             `yaml:"source_field_id"`
	FieldID       string          `yaml:"field_id"`
	Groups        []ResourceGroup `yaml:"groups"`
}

// ResourceGroup is one ClickUp resource option and the repositories it owns.
type ResourceGroup struct {
	Name         string   `yaml:"name"`
	OptionID     string   `yaml:"option_id"`
	Repositories []string `yaml:"repositories"`
}

// FlagField maps a Redmine yes/no field to a ClickUp checkbox.
type FlagField struct {
	SourceFieldID int    `yaml:"source_field_id"`
	FieldID       string `yaml:"field_id"`
}

// Default returns the built-in mapping.
func Default() Mapping {
	return Mapping{
		ClosedStatusID: 20,
		TaskTypes: map[int]int{
			1: 1012, // bug -> bug
			2: 0,    // feature -> task
			5: 0,    // automation -> task
			6: 1014, // operation -> operation
			7: 0,    // ideas -> task
			8: 1016, // incident -> incident
		},
		DefaultTaskType: 0,
		Resource: ResourceField{
			SourceFieldID: 41,
			FieldID:       "b5db13c7-2e07-4f52-b2a7-941abcd8dee0",
			Groups: []ResourceGroup{
				{Name: "iOS", OptionID: "4a49dd8c-4e4d-4827-965e-d5801386e493", Repositories: []string{"iOS"}},
				{Name: "Android", OptionID: "c9359502-a2f9-4d8b-994e-f4d1ee5f5146", Repositories: []string{"Android"}},
				{Name: "Web", OptionID: "006d4929-177b-4edd-97f1-88c7149ef6ca", Repositories: []string{
					"ruby-lib-api", "ruby-merchant-admin", "ruby-merchants", "ruby-order-admin", "ruby-user-admin",
					"ruby-web", "ruby-wine-admin", "js-react-common-ui", "js-web", "js-web-common",
				}},
				{Name: "Backend", OptionID: "d12a5f55-1364-4d8e-a458-95afdca8b6b6", Repositories: []string{
					"go-api", "go-common", "go-content", "go-oauth", "go-premium-services", "go-promotions-api",
					"go-ranks", "go-recommender-api", "go-retail", "go-sendout", "go-wine-matching", "go-tools",
				}},
			},
		},
		BlocksAutomation: FlagField{
			SourceFieldID: 16,
			FieldID:       "e6bd7f7e-3b86-4d7d-91a0-f4c9f4654584",
		},
	}
}

// Load reads a mapping file on top of the defaults. An empty path returns
// the defaults.
func Load(path string) (Mapping, error) {
	m := Default()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("reading mapping file: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mapping{}, fmt.Errorf("parsing mapping file: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Mapping{}, fmt.Errorf("invalid mapping file %s: %w", path, err)
	}
	return m, nil
}

// Validate checks that every ClickUp identifier is a UUID and that group
// names are unique.
func (m Mapping) Validate() error {
	if _, err := uuid.Parse(m.Resource.FieldID); err != nil {
		return fmt.Errorf("resource field_id %q: %w", m.Resource.FieldID, err)
	}
	if _, err := uuid.Parse(m.BlocksAutomation.FieldID); err != nil {
		return fmt.Errorf("blocks_automation field_id %q: %w", m.BlocksAutomation.FieldID, err)
	}
	seen := make(map[string]bool)
	for _, g := range m.Resource.Groups {
		if g.Name == "" {
			return fmt.Errorf("resource group without a name")
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate resource group %q", g.Name)
		}
		seen[g.Name] = true
		if _, err := uuid.Parse(g.OptionID); err != nil {
			return fmt.Errorf("resource group %q option_id %q: %w", g.Name, g.OptionID, err)
		}
	}
	return nil
}

// TaskType returns the ClickUp custom item ID for a Redmine tracker.
// Unknown trackers get the default type.
func (m Mapping) TaskType(trackerID int) int {
	if t, ok := m.TaskTypes[trackerID]; ok {
		return t
	}
	return m.DefaultTaskType
}

// ResourceFor returns the group owning the given repository.
func (m Mapping) ResourceFor(repository string) (ResourceGroup, bool) {
	for _, g := range m.Resource.Groups {
		for _, r := range g.Repositories {
			if r == repository {
				return g, true
			}
		}
	}
	return ResourceGroup{}, false
}

// BlocksAutomationSet reports whether a Redmine field value turns the
// ClickUp flag on. Only the literal "1" does.
func BlocksAutomationSet(value string, present bool) bool {
	return present && value == "1"
}
