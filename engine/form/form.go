package form

import (
	"fmt"
	"maps"
	"net/url"
	"strconv"
)

// Choice is one entry of a select or radio field.
type Choice struct {
	Value string
	Label string
}

// Submission is the validated value map handed to the caller.
// Checkbox values are bools, everything else is a string.
type Submission map[string]any

func (s Submission) String(name string) string {
	v, _ := s[name].(string)
	return v
}

func (s Submission) Bool(name string) bool {
	v, _ := s[name].(bool)
	return v
}

// Form is the state of one rendered form: current values, choices for
// select fields, and the two error sets (local validation and external).
type Form struct {
	schema *Schema
	values map[string]any

	choices        map[string][]Choice
	localErrors    map[string]string
	externalErrors map[string]string
	hidden         []hiddenInput

	disabled    bool
	action      string
	submitLabel string
}

type hiddenInput struct {
	Name  string
	Value string
}

type Option func(*Form)

// WithInitialData overrides the default value of each field present in data with a non-nil value.
func WithInitialData(data map[string]any) Option {
	return func(f *Form) {
		for _, field := range f.schema.Fields {
			if v, ok := data[field.Name]; ok && v != nil {
				f.values[field.Name] = coerce(field.Kind, v)
			}
		}
	}
}

// WithExternalErrors sets errors that came from outside the form, e.g. the storage layer.
func WithExternalErrors(errs map[string]string) Option {
	return func(f *Form) { f.externalErrors = maps.Clone(errs) }
}

// WithChoices supplies the options of a select or radio field.
func WithChoices(field string, choices []Choice) Option {
	return func(f *Form) { f.choices[field] = choices }
}

func WithDisabled(disabled bool) Option {
	return func(f *Form) { f.disabled = disabled }
}

func WithAction(action string) Option {
	return func(f *Form) { f.action = action }
}

func WithSubmitLabel(label string) Option {
	return func(f *Form) { f.submitLabel = label }
}

// WithHidden adds a hidden input that isn't part of the schema (e.g. a return URL).
func WithHidden(name, value string) Option {
	return func(f *Form) { f.hidden = append(f.hidden, hiddenInput{Name: name, Value: value}) }
}

// New initializes the form state from the schema. Every field starts at its
// kind's default (empty string, or false for checkboxes) unless initial data
// overrides it. Select and radio fields without a prompt default to their
// first choice.
//
// A select or radio field without choices is a configuration error.
func New(schema *Schema, opts ...Option) (*Form, error) {
	f := &Form{
		schema:      schema,
		values:      make(map[string]any, len(schema.Fields)),
		choices:     map[string][]Choice{},
		localErrors: map[string]string{},
		submitLabel: "Submit",
	}

	for _, field := range schema.Fields {
		f.values[field.Name] = zeroValue(field.Kind)
	}
	for _, opt := range opts {
		opt(f)
	}

	for _, field := range schema.Fields {
		if !field.Kind.HasChoices() {
			continue
		}
		choices := f.choices[field.Name]
		if len(choices) == 0 {
			return nil, fmt.Errorf("form: field %q (%s) requires a list of options", field.Name, field.Kind)
		}
		if field.NoPrompt && f.values[field.Name] == "" {
			f.values[field.Name] = choices[0].Value
		}
	}

	return f, nil
}

// MustNew is New for statically known schemas. Missing options are a
// programming mistake so they panic instead of rendering an empty control.
func MustNew(schema *Schema, opts ...Option) *Form {
	f, err := New(schema, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func zeroValue(k Kind) any {
	if k == KindCheckbox {
		return false
	}
	return ""
}

// Set changes the value of exactly one field. Unknown names are ignored.
// Updates are accepted while the form is disabled.
func (f *Form) Set(name, value string) {
	field, ok := f.schema.Field(name)
	if !ok {
		return
	}
	f.values[name] = coerce(field.Kind, value)
}

// SetChecked changes a checkbox field.
func (f *Form) SetChecked(name string, checked bool) {
	field, ok := f.schema.Field(name)
	if !ok || field.Kind != KindCheckbox {
		return
	}
	f.values[name] = checked
}

// Bind applies a posted HTML form. Checkboxes are checked when present,
// other fields are only changed when the form carries them.
func (f *Form) Bind(values url.Values) {
	for _, field := range f.schema.Fields {
		_, present := values[field.Name]
		if field.Kind == KindCheckbox {
			f.SetChecked(field.Name, present && values.Get(field.Name) != "false")
			continue
		}
		if present {
			f.Set(field.Name, values.Get(field.Name))
		}
	}
}

// BindJSON applies a decoded JSON object. Fields missing from the object keep their value.
func (f *Form) BindJSON(values map[string]any) {
	for _, field := range f.schema.Fields {
		if v, ok := values[field.Name]; ok {
			f.values[field.Name] = coerce(field.Kind, v)
		}
	}
}

// Value returns the current value: a bool for checkboxes and a string otherwise.
func (f *Form) Value(name string) any { return f.values[name] }

// Submit validates every field. When a rule fails the local error map is
// replaced and ok is false. Otherwise the returned submission holds every
// field (not just the validated ones); the local errors from the previous
// attempt are left as they were.
func (f *Form) Submit() (sub Submission, ok bool) {
	if errs := f.schema.Validate(f.values); len(errs) > 0 {
		f.localErrors = errs
		return nil, false
	}
	return Submission(maps.Clone(f.values)), true
}

// SetExternalErrors replaces the external error set.
func (f *Form) SetExternalErrors(errs map[string]string) { f.externalErrors = maps.Clone(errs) }

// LocalErrors returns a copy of the errors found by the last failed Submit.
func (f *Form) LocalErrors() map[string]string { return maps.Clone(f.localErrors) }

func (f *Form) LocalError(name string) string { return f.localErrors[name] }

func (f *Form) ExternalError(name string) string { return f.externalErrors[name] }

func (f *Form) Disabled() bool { return f.disabled }

// SetDisabled toggles interactivity without touching values.
func (f *Form) SetDisabled(disabled bool) { f.disabled = disabled }

func coerce(k Kind, v any) any {
	if k != KindCheckbox {
		return stringify(v)
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return val == "on"
		}
		return b
	case nil:
		return false
	default:
		return stringify(v) != ""
	}
}

// stringify is the string form rules are evaluated against.
// Checkboxes become "true" or "false".
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
