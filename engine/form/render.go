package form

import (
	"embed"

	"github.com/TheLab-ms/bookcase/internal/templates"
)

//go:embed templates/*.html
var templateFS embed.FS

var formTemplates = templates.MustParseFS(templateFS, nil, "templates/*.html")

type formView struct {
	Action      string
	SubmitLabel string
	Disabled    bool
	Hidden      []hiddenInput
	Fields      []fieldView
}

type fieldView struct {
	Name     string
	Kind     string
	Label    string
	Value    string
	Checked  bool
	Disabled bool
	Prompt   bool
	Choices  []choiceView

	Error        string
	InitialError string
}

type choiceView struct {
	Value    string
	Label    string
	Selected bool
}

// Component renders the form with its current values and both error sets.
func (f *Form) Component() templates.Component {
	return formTemplates.Execute("form", f.view())
}

func (f *Form) view() *formView {
	v := &formView{
		Action:      f.action,
		SubmitLabel: f.submitLabel,
		Disabled:    f.disabled,
		Hidden:      f.hidden,
	}

	for _, field := range f.schema.Fields {
		fv := fieldView{
			Name:         field.Name,
			Kind:         string(field.Kind),
			Label:        field.Label,
			Disabled:     f.disabled,
			Error:        f.localErrors[field.Name],
			InitialError: f.externalErrors[field.Name],
		}

		switch field.Kind {
		case KindCheckbox:
			fv.Checked, _ = f.values[field.Name].(bool)
		case KindPassword:
			// never echo secrets back into the page
		case KindSingleSelect, KindRadioGroup:
			fv.Value = stringify(f.values[field.Name])
			fv.Prompt = !field.NoPrompt
			for _, c := range f.choices[field.Name] {
				fv.Choices = append(fv.Choices, choiceView{Value: c.Value, Label: c.Label, Selected: c.Value == fv.Value})
			}
		default:
			fv.Value = stringify(f.values[field.Name])
		}

		v.Fields = append(v.Fields, fv)
	}

	return v
}
