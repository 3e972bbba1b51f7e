// Package session keeps per-user planner state between requests. State
// lives only as long as the session TTL and is never written to durable
// storage.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/shopping"
)

// State is everything the planner remembers for one session.
type State struct {
	Preferences  planner.Preferences `json:"preferences"`
	Plan         *planner.MealPlan   `json:"plan,omitempty"`
	Pantry       []string            `json:"pantry"`
	ShoppingList *shopping.List      `json:"shopping_list,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewState returns the state of a session that has not done anything yet.
func NewState() *State {
	return &State{
		Preferences: planner.DefaultPreferences(),
		Pantry:      append([]string(nil), shopping.DefaultPantry...),
	}
}

// Store persists session state by session ID.
type Store interface {
	// Get returns nil and no error when the session does not exist or
	// has expired.
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, state *State) error
	Delete(ctx context.Context, id string) error
}

func encode(state *State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}
