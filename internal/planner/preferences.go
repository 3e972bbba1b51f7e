package planner

import (
	"sort"
	"strings"
)

// Defaults carried over from the first version of the planner form.
const DefaultDietary = "gluten-free, low-acid, no nuts, high-protein, meat-focused"

// DefaultDays are preselected when a session starts.
var DefaultDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// PreferenceForm is the raw input of the preference form.
type PreferenceForm struct {
	Dietary string
	Days    []string
	// Styles maps a day name to "quick" or "full".
	Styles map[string]string
}

// Preferences is a validated set of planning inputs. A new value is
// built on every form submission and never modified afterwards.
type Preferences struct {
	Tags   []string              `json:"tags"`
	Days   []Weekday             `json:"days"`
	Styles map[Weekday]CookStyle `json:"styles,omitempty"`
}

// StyleFor returns the cook style chosen for day, quick by default.
func (p Preferences) StyleFor(day Weekday) CookStyle {
	if s, ok := p.Styles[day]; ok {
		return s
	}
	return StyleQuick
}

// Selected reports whether day is part of the plan.
func (p Preferences) Selected(day Weekday) bool {
	for _, d := range p.Days {
		if d == day {
			return true
		}
	}
	return false
}

// DietaryText joins the tags back into the form's free-text format.
func (p Preferences) DietaryText() string {
	return strings.Join(p.Tags, ", ")
}

// Form converts p back into form input, so a change to one field can be
// validated together with the rest.
func (p Preferences) Form() PreferenceForm {
	form := PreferenceForm{
		Dietary: p.DietaryText(),
		Styles:  make(map[string]string, len(p.Days)),
	}
	for _, day := range p.Days {
		form.Days = append(form.Days, day.String())
		form.Styles[day.String()] = string(p.StyleFor(day))
	}
	return form
}

// DefaultPreferences is what a fresh session shows in the form.
func DefaultPreferences() Preferences {
	return Preferences{
		Tags: ParseTags(DefaultDietary),
		Days: append([]Weekday(nil), DefaultDays...),
	}
}

// CollectPreferences validates the form. At least one day must be
// selected.
func CollectPreferences(form PreferenceForm) (Preferences, error) {
	seen := make(map[Weekday]struct{})
	var days []Weekday
	for _, name := range form.Days {
		if strings.TrimSpace(name) == "" {
			continue
		}
		day, err := ParseWeekday(name)
		if err != nil {
			return Preferences{}, &ValidationError{Field: "days", Message: "unknown day: " + strings.TrimSpace(name)}
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return Preferences{}, &ValidationError{Field: "days", Message: "select at least one day to plan"}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	styles := make(map[Weekday]CookStyle, len(days))
	for name, raw := range form.Styles {
		// Styles of days that are not planned are ignored, valid or not.
		day, err := ParseWeekday(name)
		if err != nil {
			continue
		}
		if _, selected := seen[day]; !selected {
			continue
		}
		style, err := ParseCookStyle(raw)
		if err != nil {
			return Preferences{}, &ValidationError{Field: "style", Message: "unknown cook style for " + day.String() + ": " + raw}
		}
		styles[day] = style
	}
	for _, day := range days {
		if _, ok := styles[day]; !ok {
			styles[day] = StyleQuick
		}
	}

	return Preferences{
		Tags:   ParseTags(form.Dietary),
		Days:   days,
		Styles: styles,
	}, nil
}

// ParseTags splits comma-separated dietary text, dropping blanks and
// case-insensitive duplicates. The first spelling of a tag wins.
func ParseTags(text string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(text, ",") {
		tag := strings.Join(strings.Fields(part), " ")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
