package planner

// Ingredient is one line of a meal's ingredient list.
type Ingredient struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Meal is the dish planned for a day.
type Meal struct {
	Name         string       `json:"name"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions string       `json:"instructions"`
}

// DayPlan represents the plan for a single day.
type DayPlan struct {
	Day  Weekday `json:"day"`
	Meal Meal    `json:"meal"`
}

// MealPlan represents a full weekly meal plan, one entry per planned day
// in week order. Plans are values: operations return a new plan instead
// of changing an existing one.
type MealPlan struct {
	Days []DayPlan `json:"days"`
}

// Meal returns the meal planned for day.
func (p *MealPlan) Meal(day Weekday) (Meal, bool) {
	if p == nil {
		return Meal{}, false
	}
	for _, dp := range p.Days {
		if dp.Day == day {
			return dp.Meal, true
		}
	}
	return Meal{}, false
}

// Has reports whether day is part of the plan.
func (p *MealPlan) Has(day Weekday) bool {
	_, ok := p.Meal(day)
	return ok
}

// PlannedDays lists the days of the plan in order.
func (p *MealPlan) PlannedDays() []Weekday {
	if p == nil {
		return nil
	}
	days := make([]Weekday, 0, len(p.Days))
	for _, dp := range p.Days {
		days = append(days, dp.Day)
	}
	return days
}

// Clone returns a deep copy of the plan.
func (p *MealPlan) Clone() *MealPlan {
	if p == nil {
		return nil
	}
	out := &MealPlan{Days: make([]DayPlan, len(p.Days))}
	for i, dp := range p.Days {
		out.Days[i] = DayPlan{Day: dp.Day, Meal: dp.Meal.clone()}
	}
	return out
}

// WithMeal returns a copy of the plan where only day's meal is replaced.
// If day is not in the plan the copy is returned unchanged.
func (p *MealPlan) WithMeal(day Weekday, meal Meal) *MealPlan {
	out := p.Clone()
	if out == nil {
		return nil
	}
	for i := range out.Days {
		if out.Days[i].Day == day {
			out.Days[i].Meal = meal.clone()
		}
	}
	return out
}

func (m Meal) clone() Meal {
	if m.Ingredients != nil {
		m.Ingredients = append([]Ingredient(nil), m.Ingredients...)
	}
	return m
}
