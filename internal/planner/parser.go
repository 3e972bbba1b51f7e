package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

type rawPlan struct {
	Days []rawDay `json:"days"`
}

type rawDay struct {
	Day          string       `json:"day"`
	Name         string       `json:"name"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions string       `json:"instructions"`
}

// ParsePlan turns provider output into a MealPlan covering exactly the
// requested days. The expected format is
//
//	{"days": [{"day": "Monday", "name": "...", "ingredients": [{"item": "...", "quantity": 1, "unit": "..."}], "instructions": "..."}]}
//
// optionally wrapped in a Markdown code fence. Day names may use any case
// or a three-letter abbreviation. Anything else is a *ParseError and no
// plan is returned.
func ParsePlan(raw string, days []Weekday) (*MealPlan, error) {
	var parsed rawPlan
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, &ParseError{Reason: "response is not valid JSON", Raw: raw, Err: err}
	}

	requested := make(map[Weekday]bool, len(days))
	for _, d := range days {
		requested[d] = true
	}

	meals := make(map[Weekday]Meal, len(parsed.Days))
	for _, rd := range parsed.Days {
		day, err := ParseWeekday(rd.Day)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("unknown day %q", rd.Day), Raw: raw}
		}
		if !requested[day] {
			return nil, &ParseError{Reason: fmt.Sprintf("%s was not requested", day), Raw: raw}
		}
		if _, dup := meals[day]; dup {
			return nil, &ParseError{Reason: fmt.Sprintf("%s appears more than once", day), Raw: raw}
		}
		meal, err := normalizeMeal(rd)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("%s: %v", day, err), Raw: raw}
		}
		meals[day] = meal
	}

	plan := &MealPlan{Days: make([]DayPlan, 0, len(days))}
	for _, day := range days {
		meal, ok := meals[day]
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("no meal for %s", day), Raw: raw}
		}
		plan.Days = append(plan.Days, DayPlan{Day: day, Meal: meal})
	}
	return plan, nil
}

func normalizeMeal(rd rawDay) (Meal, error) {
	meal := Meal{
		Name:         strings.TrimSpace(rd.Name),
		Instructions: strings.TrimSpace(rd.Instructions),
	}
	if meal.Name == "" {
		return Meal{}, fmt.Errorf("meal has no name")
	}
	for _, ing := range rd.Ingredients {
		ing.Item = strings.TrimSpace(ing.Item)
		ing.Unit = strings.TrimSpace(ing.Unit)
		if ing.Item == "" {
			return Meal{}, fmt.Errorf("ingredient without an item in %q", meal.Name)
		}
		if ing.Quantity < 0 {
			return Meal{}, fmt.Errorf("negative quantity for %q", ing.Item)
		}
		meal.Ingredients = append(meal.Ingredients, ing)
	}
	return meal, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
