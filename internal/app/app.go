package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/session"
	"weekly-meal-planner/internal/shared"
	"weekly-meal-planner/internal/shopping"

	"go.uber.org/zap"
)

// App holds the application's dependencies and runs every user action
// against a session's state. State is only saved after an action
// succeeds, so a failed action leaves the previous plan in place.
type App struct {
	mealPlanner *planner.Planner
	sessions    session.Store
	usage       *metrics.Store
	collector   *metrics.Collector
	logger      *zap.Logger
	now         func() time.Time
}

// NewApp creates and initializes a new App instance. usage and collector
// may be nil.
func NewApp(
	mealPlanner *planner.Planner,
	sessions session.Store,
	usage *metrics.Store,
	collector *metrics.Collector,
	logger *zap.Logger,
) *App {
	return &App{
		mealPlanner: mealPlanner,
		sessions:    sessions,
		usage:       usage,
		collector:   collector,
		logger:      logger,
		now:         time.Now,
	}
}

// State loads the session state, or a fresh default state for a new
// session.
func (a *App) State(ctx context.Context, sessionID string) (*session.State, error) {
	state, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil {
		return session.NewState(), nil
	}
	return state, nil
}

// GeneratePlan validates the form and asks for a plan covering every
// selected day. A new plan replaces the previous one and discards the
// shopping list derived from it.
func (a *App) GeneratePlan(ctx context.Context, sessionID string, form planner.PreferenceForm) (*session.State, error) {
	state, err := a.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prefs, err := planner.CollectPreferences(form)
	if err != nil {
		return nil, err
	}

	plan, meta, err := a.mealPlanner.GeneratePlan(ctx, prefs)
	a.observe(ctx, meta, err)
	if err != nil {
		a.logger.Warn("meal plan generation failed", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}

	next := *state
	next.Preferences = prefs
	next.Plan = plan
	next.ShoppingList = nil
	if err := a.save(ctx, sessionID, &next); err != nil {
		return nil, err
	}

	a.logger.Info("meal plan generated",
		zap.String("session", sessionID),
		zap.Int("days", len(plan.Days)),
		zap.Duration("latency", meta.Latency),
	)
	return &next, nil
}

// SavePreferences validates and stores preferences without generating a
// plan. The current plan is kept.
func (a *App) SavePreferences(ctx context.Context, sessionID string, form planner.PreferenceForm) (*session.State, error) {
	state, err := a.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prefs, err := planner.CollectPreferences(form)
	if err != nil {
		return nil, err
	}

	next := *state
	next.Preferences = prefs
	if err := a.save(ctx, sessionID, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// RegenerateDay replaces the meal of one day. The other days are kept
// exactly as they were.
func (a *App) RegenerateDay(ctx context.Context, sessionID string, day planner.Weekday) (*session.State, error) {
	state, err := a.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Plan == nil {
		return nil, &planner.ValidationError{Field: "plan", Message: "generate a meal plan first"}
	}

	plan, meta, err := a.mealPlanner.RegenerateDay(ctx, state.Preferences, state.Plan, day)
	a.observe(ctx, meta, err)
	if err != nil {
		a.logger.Warn("day regeneration failed", zap.String("session", sessionID), zap.Stringer("day", day), zap.Error(err))
		return nil, err
	}

	next := *state
	next.Plan = plan
	next.ShoppingList = nil
	if err := a.save(ctx, sessionID, &next); err != nil {
		return nil, err
	}

	a.logger.Info("day regenerated", zap.String("session", sessionID), zap.Stringer("day", day))
	return &next, nil
}

// UpdatePantry stores the pantry typed by the user. The shopping list is
// discarded because it no longer matches.
func (a *App) UpdatePantry(ctx context.Context, sessionID, text string) (*session.State, error) {
	state, err := a.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next := *state
	next.Pantry = shopping.ParsePantry(text)
	next.ShoppingList = nil
	if err := a.save(ctx, sessionID, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// DeriveShoppingList computes what still has to be bought for the
// current plan.
func (a *App) DeriveShoppingList(ctx context.Context, sessionID string) (*session.State, error) {
	state, err := a.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Plan == nil {
		return nil, &planner.ValidationError{Field: "plan", Message: "generate a meal plan first"}
	}

	list := shopping.Derive(state.Plan, state.Pantry)
	next := *state
	next.ShoppingList = &list
	if err := a.save(ctx, sessionID, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Reset forgets everything stored for the session.
func (a *App) Reset(ctx context.Context, sessionID string) error {
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}

func (a *App) save(ctx context.Context, sessionID string, state *session.State) error {
	state.UpdatedAt = a.now().UTC()
	if err := a.sessions.Save(ctx, sessionID, state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// observe records a generation attempt. Calls rejected before reaching
// the provider carry no agent name and are not counted.
func (a *App) observe(ctx context.Context, meta shared.AgentMeta, err error) {
	if meta.AgentName == "" {
		return
	}
	outcome := Outcome(err)
	a.collector.Observe(meta, outcome)
	if a.usage == nil {
		return
	}
	if err := a.usage.RecordMeta(ctx, meta, outcome); err != nil {
		a.logger.Warn("failed to record usage", zap.String("agent", meta.AgentName), zap.Error(err))
	}
}

// Outcome classifies the result of a generation call for metrics.
func Outcome(err error) string {
	var generationErr *planner.GenerationError
	var parseErr *planner.ParseError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &generationErr) && generationErr.RateLimited:
		return metrics.OutcomeRateLimited
	case errors.As(err, &parseErr):
		return metrics.OutcomeParseFailed
	}
	return metrics.OutcomeFailed
}
