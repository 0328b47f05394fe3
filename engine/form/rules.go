package form

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is one validation rule. The set of rules is closed: Required, MinLength and Email.
type Rule interface {
	// check returns the failure message when value violates the rule.
	check(value string) (string, bool)
}

// Required fails when the trimmed value is empty.
type Required struct {
	Message string
}

// MinLength fails when the trimmed value has fewer than Value characters.
type MinLength struct {
	Value   int
	Message string
}

// Email fails when the trimmed, lower-cased value isn't a conventional email address.
type Email struct {
	Message string
}

var emailPattern = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}])|(([a-z\-0-9]+\.)+[a-z]{2,}))$`)

func (r Required) check(value string) (string, bool) {
	if strings.TrimSpace(value) != "" {
		return "", false
	}
	return messageOr(r.Message, "field is required"), true
}

func (r MinLength) check(value string) (string, bool) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) >= r.Value {
		return "", false
	}
	return messageOr(r.Message, fmt.Sprintf("field's length must be at least %d symbols", r.Value)), true
}

func (r Email) check(value string) (string, bool) {
	if emailPattern.MatchString(strings.ToLower(strings.TrimSpace(value))) {
		return "", false
	}
	return messageOr(r.Message, "field must be a valid email address"), true
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

// Validate evaluates each field's rules in declared order against values.
// When several rules fail for a field the message of the last one is kept.
func (s *Schema) Validate(values map[string]any) map[string]string {
	errs := map[string]string{}
	for _, f := range s.Fields {
		value := stringify(values[f.Name])
		for _, rule := range f.Rules {
			if msg, failed := rule.check(value); failed {
				errs[f.Name] = msg
			}
		}
	}
	return errs
}
