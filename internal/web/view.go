package web

import (
	"strings"

	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/session"
	"weekly-meal-planner/internal/shopping"
)

type dayOption struct {
	Name     string
	Selected bool
	Full     bool
}

type plannedDay struct {
	Day         string
	Style       string
	Meal        planner.Meal
	Ingredients []string
}

type pageData struct {
	Error        string
	Dietary      string
	Days         []dayOption
	QuickLabel   string
	FullLabel    string
	Plan         []plannedDay
	Pantry       string
	HasList      bool
	ShoppingList []string
	EmptyMessage string
}

// newPageData builds the view of a session. form, when not nil, holds
// the values the user just submitted and takes precedence over the
// stored preferences.
func newPageData(state *session.State, form *planner.PreferenceForm) pageData {
	prefs := state.Preferences
	data := pageData{
		Dietary:      prefs.DietaryText(),
		QuickLabel:   planner.StyleQuick.Label(),
		FullLabel:    planner.StyleFull.Label(),
		Pantry:       strings.Join(state.Pantry, "\n"),
		EmptyMessage: shopping.EmptyMessage,
	}

	for _, day := range planner.AllWeekdays() {
		data.Days = append(data.Days, dayOption{
			Name:     day.String(),
			Selected: prefs.Selected(day),
			Full:     prefs.StyleFor(day) == planner.StyleFull,
		})
	}
	if form != nil {
		data.Dietary = form.Dietary
		for i := range data.Days {
			data.Days[i].Selected = false
			data.Days[i].Full = strings.EqualFold(form.Styles[data.Days[i].Name], string(planner.StyleFull))
		}
		for _, name := range form.Days {
			if day, err := planner.ParseWeekday(name); err == nil {
				data.Days[day].Selected = true
			}
		}
	}

	if state.Plan != nil {
		for _, dp := range state.Plan.Days {
			pd := plannedDay{
				Day:   dp.Day.String(),
				Style: prefs.StyleFor(dp.Day).Label(),
				Meal:  dp.Meal,
			}
			for _, ing := range dp.Meal.Ingredients {
				pd.Ingredients = append(pd.Ingredients, ingredientLine(ing))
			}
			data.Plan = append(data.Plan, pd)
		}
	}

	if state.ShoppingList != nil {
		data.HasList = true
		for _, it := range state.ShoppingList.Items {
			for _, a := range it.Amounts {
				data.ShoppingList = append(data.ShoppingList, shopping.DisplayName(it.Name)+": "+shopping.FormatAmount(a))
			}
		}
	}
	return data
}

func ingredientLine(ing planner.Ingredient) string {
	return shopping.FormatAmount(shopping.Amount{Quantity: ing.Quantity, Unit: ing.Unit}) + " " + ing.Item
}
