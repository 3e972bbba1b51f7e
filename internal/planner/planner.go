package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weekly-meal-planner/internal/llm"
	"weekly-meal-planner/internal/shared"
)

const (
	agentPlanGenerator = "PlanGenerator"
	agentDayRegen      = "DayRegenerator"
)

// Planner handles the generation of meal plans.
type Planner struct {
	textGen llm.TextGenerator
	timeout time.Duration
}

// NewPlanner creates a new Planner instance. Every provider call is
// bounded by timeout.
func NewPlanner(textGen llm.TextGenerator, timeout time.Duration) *Planner {
	return &Planner{
		textGen: textGen,
		timeout: timeout,
	}
}

// GeneratePlan creates a meal plan for every selected day.
func (p *Planner) GeneratePlan(ctx context.Context, prefs Preferences) (*MealPlan, shared.AgentMeta, error) {
	if len(prefs.Days) == 0 {
		return nil, shared.AgentMeta{}, &ValidationError{Field: "days", Message: "select at least one day to plan"}
	}

	prompt, err := BuildPlanPrompt(prefs)
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to build plan prompt: %w", err)
	}

	return p.generate(ctx, agentPlanGenerator, prompt, prefs.Days)
}

// RegenerateDay asks for a new meal for day and returns a new plan in
// which every other day is carried over unchanged. plan itself is not
// modified.
func (p *Planner) RegenerateDay(ctx context.Context, prefs Preferences, plan *MealPlan, day Weekday) (*MealPlan, shared.AgentMeta, error) {
	current, ok := plan.Meal(day)
	if !ok {
		return nil, shared.AgentMeta{}, &ValidationError{Field: "day", Message: fmt.Sprintf("%s is not part of the current plan", day)}
	}

	prompt, err := BuildDayPrompt(prefs, day, &current)
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to build day prompt: %w", err)
	}

	single, meta, err := p.generate(ctx, agentDayRegen, prompt, []Weekday{day})
	if err != nil {
		return nil, meta, err
	}

	meal, _ := single.Meal(day)
	return plan.WithMeal(day, meal), meta, nil
}

func (p *Planner) generate(ctx context.Context, agent, prompt string, days []Weekday) (*MealPlan, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: agent}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.textGen.GenerateContent(callCtx, prompt)
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("no response within %s: %w", p.timeout, err)
		}
		return nil, meta, &GenerationError{
			Op:          agent,
			RateLimited: errors.Is(err, llm.ErrRateLimited),
			Err:         err,
		}
	}

	plan, err := ParsePlan(resp.Content, days)
	if err != nil {
		return nil, meta, err
	}
	return plan, meta, nil
}
