package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	monWed := []Weekday{Monday, Wednesday}

	t.Run("OrdersByRequestedDays", func(t *testing.T) {
		raw := planJSON(
			dayJSON("Wednesday", "Lentil Curry", "lentils"),
			dayJSON("Monday", "Veggie Wrap", "tortilla"),
		)

		plan, err := ParsePlan(raw, monWed)
		require.NoError(t, err)
		assert.Equal(t, []Weekday{Monday, Wednesday}, plan.PlannedDays())
	})

	t.Run("ToleratesCodeFenceAndAbbreviations", func(t *testing.T) {
		raw := "```json\n" + planJSON(
			dayJSON("MON", "Veggie Wrap", "tortilla"),
			dayJSON("wed", "Lentil Curry", "lentils"),
		) + "\n```"

		plan, err := ParsePlan(raw, monWed)
		require.NoError(t, err)
		meal, ok := plan.Meal(Wednesday)
		require.True(t, ok)
		assert.Equal(t, "Lentil Curry", meal.Name)
	})

	t.Run("TrimsFields", func(t *testing.T) {
		raw := `{"days": [{"day": "Monday", "name": "  Omelette ", "ingredients": [{"item": " eggs ", "quantity": 3, "unit": " piece "}], "instructions": " Whisk. "}]}`

		plan, err := ParsePlan(raw, []Weekday{Monday})
		require.NoError(t, err)
		meal, _ := plan.Meal(Monday)
		assert.Equal(t, "Omelette", meal.Name)
		assert.Equal(t, "Whisk.", meal.Instructions)
		assert.Equal(t, Ingredient{Item: "eggs", Quantity: 3, Unit: "piece"}, meal.Ingredients[0])
	})

	rejected := []struct {
		name string
		raw  string
	}{
		{"NotJSON", "Monday: pasta"},
		{"TruncatedJSON", `{"days": [{"day": "Monday"`},
		{"UnknownDay", planJSON(dayJSON("Funday", "Cake", "flour"), dayJSON("Wednesday", "Soup", "leek"))},
		{"UnrequestedDay", planJSON(dayJSON("Monday", "Wrap", "tortilla"), dayJSON("Wednesday", "Soup", "leek"), dayJSON("Friday", "Fish", "cod"))},
		{"DuplicateDay", planJSON(dayJSON("Monday", "Wrap", "tortilla"), dayJSON("monday", "Soup", "leek"))},
		{"MissingDay", planJSON(dayJSON("Monday", "Wrap", "tortilla"))},
		{"EmptyName", planJSON(dayJSON("Monday", "  ", "tortilla"), dayJSON("Wednesday", "Soup", "leek"))},
		{"BlankItem", planJSON(dayJSON("Monday", "Wrap", " "), dayJSON("Wednesday", "Soup", "leek"))},
		{"NegativeQuantity", `{"days": [{"day": "Monday", "name": "Wrap", "ingredients": [{"item": "tortilla", "quantity": -1, "unit": "piece"}], "instructions": ""}, ` + dayJSON("Wednesday", "Soup", "leek") + `]}`},
	}

	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := ParsePlan(tc.raw, monWed)
			assert.Nil(t, plan)

			var pErr *ParseError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tc.raw, pErr.Raw)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
