package planner

import (
	"fmt"
	"strings"
)

// Weekday is a day of the planning week. Monday is the first day.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// AllWeekdays returns the days of the week in order.
func AllWeekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// String returns the full English name of the day.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Valid reports whether d is one of Monday..Sunday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseWeekday accepts a full day name or its three-letter abbreviation,
// in any case.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty weekday")
	}
	for i, name := range weekdayNames {
		lower := strings.ToLower(name)
		if s == lower || s == lower[:3] {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// MarshalText encodes the day as its full name, which also makes
// Weekday usable as a JSON object key.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a day name.
func (d *Weekday) UnmarshalText(text []byte) error {
	day, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// CookStyle describes how much effort a day's meal may take.
type CookStyle string

const (
	StyleQuick CookStyle = "quick"
	StyleFull  CookStyle = "full"
)

// ParseCookStyle parses "quick" or "full"; an empty string means quick.
func ParseCookStyle(s string) (CookStyle, error) {
	switch CookStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleQuick:
		return StyleQuick, nil
	case StyleFull:
		return StyleFull, nil
	}
	return "", fmt.Errorf("unknown cook style %q", s)
}

// Label is the human-readable name shown in the UI.
func (s CookStyle) Label() string {
	if s == StyleFull {
		return "Full Cook (longer prep)"
	}
	return "Quick Cook (<30 mins)"
}

// promptText is how the style is described to the model.
func (s CookStyle) promptText() string {
	if s == StyleFull {
		return "a 'full cook' meal, more involved with a longer preparation"
	}
	return "a quick-cook meal, ready in under 30 minutes"
}
