// Package form renders HTML forms from declarative field schemas, keeps the
// submitted values as typed state, and validates them on submit.
package form

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind is the input widget a field is rendered as.
type Kind string

const (
	KindLineText      Kind = "line-text"
	KindMultilineText Kind = "multiline-text"
	KindCheckbox      Kind = "checkbox"
	KindHidden        Kind = "hidden"
	KindPassword      Kind = "password"
	KindSingleSelect  Kind = "single-select"
	KindRadioGroup    Kind = "radio-group"
)

func (k Kind) valid() bool {
	switch k {
	case KindLineText, KindMultilineText, KindCheckbox, KindHidden, KindPassword, KindSingleSelect, KindRadioGroup:
		return true
	}
	return false
}

// HasChoices is true for kinds that need an options list at render time.
func (k Kind) HasChoices() bool { return k == KindSingleSelect || k == KindRadioGroup }

// Field describes one input. Its Kind doesn't change once the schema is built.
type Field struct {
	Name  string
	Kind  Kind
	Label string
	Rules []Rule

	// NoPrompt suppresses the empty "select one" choice of select and radio
	// fields. The first choice becomes the default value instead.
	NoPrompt bool
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field
}

// NewSchema validates the fields and returns a schema.
func NewSchema(fields ...Field) (*Schema, error) {
	seen := map[string]struct{}{}
	for _, f := range fields {
		if f.Name == "" {
			return nil, errors.New("form: field name is required")
		}
		if !f.Kind.valid() {
			return nil, fmt.Errorf("form: field %q has unknown type %q", f.Name, f.Kind)
		}
		if _, ok := seen[f.Name]; ok {
			return nil, fmt.Errorf("form: duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return &Schema{Fields: fields}, nil
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

type rawSchema struct {
	Fields []rawField `yaml:"fields"`
}

type rawField struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Label    string    `yaml:"label"`
	NoPrompt bool      `yaml:"noPrompt"`
	Rules    []rawRule `yaml:"validationRules"`
}

type rawRule struct {
	Rule    string `yaml:"rule"`
	Value   int    `yaml:"value"`
	Message string `yaml:"message"`
}

// LoadSchema parses a YAML field list:
//
//	fields:
//	  - name: title
//	    type: line-text
//	    label: Title
//	    validationRules:
//	      - rule: required
//	      - rule: minLength
//	        value: 3
func LoadSchema(data []byte) (*Schema, error) {
	raw := rawSchema{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("form: parsing schema: %w", err)
	}

	fields := make([]Field, len(raw.Fields))
	for i, rf := range raw.Fields {
		fields[i] = Field{
			Name:     rf.Name,
			Kind:     Kind(rf.Type),
			Label:    rf.Label,
			NoPrompt: rf.NoPrompt,
		}
		for _, rr := range rf.Rules {
			rule, err := rr.build()
			if err != nil {
				return nil, fmt.Errorf("form: field %q: %w", rf.Name, err)
			}
			fields[i].Rules = append(fields[i].Rules, rule)
		}
	}
	return NewSchema(fields...)
}

// MustLoadSchema is LoadSchema for schemas embedded at build time.
func MustLoadSchema(data []byte) *Schema {
	s, err := LoadSchema(data)
	if err != nil {
		panic(err)
	}
	return s
}

func (r rawRule) build() (Rule, error) {
	switch r.Rule {
	case "required":
		return Required{Message: r.Message}, nil
	case "minLength":
		if r.Value <= 0 {
			return nil, fmt.Errorf("minLength requires a positive value, got %d", r.Value)
		}
		return MinLength{Value: r.Value, Message: r.Message}, nil
	case "email":
		return Email{Message: r.Message}, nil
	default:
		return nil, fmt.Errorf("unknown validation rule %q", r.Rule)
	}
}
