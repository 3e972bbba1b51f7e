package shopping

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"weekly-meal-planner/internal/planner"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EmptyMessage is rendered when the pantry already covers the plan.
const EmptyMessage = "You have everything you need!"

// DefaultPantry is offered to a fresh session.
var DefaultPantry = []string{"Olive Oil", "Salt", "Black Pepper", "Garlic", "Onion Powder"}

// normalize is the comparison key for ingredients and pantry entries.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParsePantry splits the pantry text box on newlines and commas.
func ParsePantry(text string) []string {
	var items []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ',' }) {
		if item := strings.TrimSpace(line); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Derive lists every ingredient of plan that is not in pantry, with
// quantities summed per unit. The result depends only on its inputs.
func Derive(plan *planner.MealPlan, pantry []string) List {
	have := make(map[string]struct{}, len(pantry))
	for _, p := range pantry {
		if key := normalize(p); key != "" {
			have[key] = struct{}{}
		}
	}

	type key struct{ name, unit string }
	totals := make(map[key]float64)
	if plan != nil {
		for _, dp := range plan.Days {
			for _, ing := range dp.Meal.Ingredients {
				name := normalize(ing.Item)
				if name == "" {
					continue
				}
				if _, ok := have[name]; ok {
					continue
				}
				totals[key{name, strings.TrimSpace(ing.Unit)}] += ing.Quantity
			}
		}
	}

	keys := make([]key, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].unit < keys[j].unit
	})

	list := List{CreatedAt: time.Now().UTC()}
	for _, k := range keys {
		amount := Amount{Quantity: totals[k], Unit: k.unit}
		if n := len(list.Items); n > 0 && list.Items[n-1].Name == k.name {
			list.Items[n-1].Amounts = append(list.Items[n-1].Amounts, amount)
			continue
		}
		list.Items = append(list.Items, Item{Name: k.name, Amounts: []Amount{amount}})
	}
	return list
}

// Render formats the list one line per item and unit:
//
//	- Chicken Breast: 2 pieces
func Render(l *List) string {
	if l.Empty() {
		return EmptyMessage
	}
	var sb strings.Builder
	for _, it := range l.Items {
		for _, a := range it.Amounts {
			sb.WriteString("- ")
			sb.WriteString(DisplayName(it.Name))
			sb.WriteString(": ")
			sb.WriteString(FormatAmount(a))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// DisplayName title-cases a normalized item name for display.
func DisplayName(name string) string {
	return cases.Title(language.English).String(name)
}

// FormatAmount prints a quantity with its unit, pluralizing units longer
// than one character when the quantity is above one.
func FormatAmount(a Amount) string {
	qty := strconv.FormatFloat(a.Quantity, 'f', -1, 64)
	unit := a.Unit
	if unit == "" {
		return qty
	}
	if a.Quantity > 1 && len(unit) > 1 && !strings.HasSuffix(unit, "s") {
		unit += "s"
	}
	return qty + " " + unit
}
