package shopping

import "time"

// Amount is a summed quantity in one unit.
type Amount struct {
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Item is one ingredient that still has to be bought. Name is the
// normalized lower-case ingredient name.
type Item struct {
	Name    string   `json:"name"`
	Amounts []Amount `json:"amounts"`
}

// List represents a shopping list for a meal plan, sorted by item name.
type List struct {
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Empty reports whether nothing needs to be bought.
func (l *List) Empty() bool {
	return l == nil || len(l.Items) == 0
}

// Names returns the item names in list order.
func (l *List) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		names = append(names, it.Name)
	}
	return names
}
