package planner

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed prompts/plan_prompt.md
var planPrompt string

//go:embed prompts/day_prompt.md
var dayPrompt string

var promptFuncs = template.FuncMap{"join": strings.Join}

var (
	planTemplate = template.Must(template.New("plan").Funcs(promptFuncs).Parse(planPrompt))
	dayTemplate  = template.Must(template.New("day").Funcs(promptFuncs).Parse(dayPrompt))
)

type promptDay struct {
	Name  string
	Style string
}

type planPromptData struct {
	Tags []string
	Days []promptDay
	// ExampleDay is used in the sample response and is always a requested day.
	ExampleDay string
}

type dayPromptData struct {
	Tags    []string
	Day     promptDay
	Current string
}

// BuildPlanPrompt renders the prompt for a full weekly plan. The output
// depends only on p.
func BuildPlanPrompt(p Preferences) (string, error) {
	data := planPromptData{Tags: p.Tags, ExampleDay: Monday.String()}
	for _, day := range p.Days {
		data.Days = append(data.Days, promptDay{Name: day.String(), Style: p.StyleFor(day).promptText()})
	}
	if len(p.Days) > 0 {
		data.ExampleDay = p.Days[0].String()
	}
	return render(planTemplate, data)
}

// BuildDayPrompt renders the prompt that regenerates a single day. When
// current is not nil its name is given so the model proposes something
// else.
func BuildDayPrompt(p Preferences, day Weekday, current *Meal) (string, error) {
	data := dayPromptData{
		Tags: p.Tags,
		Day:  promptDay{Name: day.String(), Style: p.StyleFor(day).promptText()},
	}
	if current != nil {
		data.Current = current.Name
	}
	return render(dayTemplate, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
