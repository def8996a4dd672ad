// Package registry holds the component type catalog: for every component
// type the editor can place on a page, the registry knows its display
// metadata, editable fields, capabilities and default props.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownType is returned when a component type is not registered.
// Adding a component of an unregistered type is a hard error.
var ErrUnknownType = errors.New("unknown component type")

// FieldType enumerates the semantic types an editable field can have.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldRichText FieldType = "richtext"
	FieldImage    FieldType = "image"
	FieldContent  FieldType = "content"
	FieldLink     FieldType = "link"
	FieldSelect   FieldType = "select"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
)

// Option is a selectable value for a FieldSelect field.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// EditableField describes one editable prop of a component type.
type EditableField struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label" yaml:"label"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	MaxLength   int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Capabilities declares what the editor is allowed to do with a component.
type Capabilities struct {
	Draggable    bool `json:"draggable" yaml:"draggable"`
	Resizable    bool `json:"resizable" yaml:"resizable"`
	Deletable    bool `json:"deletable" yaml:"deletable"`
	Duplicatable bool `json:"duplicatable" yaml:"duplicatable"`
	HasChildren  bool `json:"hasChildren" yaml:"hasChildren"`
}

// Config is the full registration record for a component type.
type Config struct {
	Type           string          `json:"type" yaml:"type"`
	DisplayName    string          `json:"displayName" yaml:"displayName"`
	Icon           string          `json:"icon" yaml:"icon"`
	Category       string          `json:"category" yaml:"category"`
	EditableFields []EditableField `json:"editableFields" yaml:"editableFields"`
	Capabilities   Capabilities    `json:"capabilities" yaml:"capabilities"`
	DefaultProps   map[string]any  `json:"defaultProps" yaml:"defaultProps"`
}

// Registry resolves component type configuration.
// The tree store treats this as a read-only schema lookup.
type Registry interface {
	Get(componentType string) (*Config, error)
	All() []Config
}

// Static is a fixed in-memory Registry.
type Static struct {
	mu      sync.RWMutex
	configs map[string]Config
}

// NewStatic builds a Static registry from the given configs.
func NewStatic(configs ...Config) *Static {
	m := make(map[string]Config, len(configs))
	for _, c := range configs {
		m[c.Type] = c
	}
	return &Static{configs: m}
}

func (s *Static) Get(componentType string) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.configs[componentType]
	if !ok {
		return nil, fmt.Errorf("component type %q: %w", componentType, ErrUnknownType)
	}
	return &c, nil
}

func (s *Static) All() []Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Config, 0, len(s.configs))
	for _, c := range s.configs {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// replace swaps the full config set. Used by FileRegistry on reload.
func (s *Static) replace(configs map[string]Config) {
	s.mu.Lock()
	s.configs = configs
	s.mu.Unlock()
}
