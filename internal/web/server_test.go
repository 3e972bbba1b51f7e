package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"weekly-meal-planner/internal/app"
	"weekly-meal-planner/internal/llm"
	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/session"
	"weekly-meal-planner/internal/shared"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockTextGen struct {
	responses []string
	err       error
	calls     int
}

func (m *mockTextGen) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	if len(m.responses) == 0 {
		return llm.ContentResponse{}, errors.New("no response queued")
	}
	res := m.responses[0]
	m.responses = m.responses[1:]
	return llm.ContentResponse{Content: res, Usage: shared.TokenUsage{PromptTokens: 5, CompletionTokens: 7}}, nil
}

func mealJSON(day, name string, items ...string) string {
	var ings []string
	for _, it := range items {
		ings = append(ings, fmt.Sprintf(`{"item": %q, "quantity": 2, "unit": "piece"}`, it))
	}
	return fmt.Sprintf(`{"day": %q, "name": %q, "ingredients": [%s], "instructions": "Cook."}`, day, name, strings.Join(ings, ","))
}

func planJSON(days ...string) string {
	return `{"days": [` + strings.Join(days, ",") + `]}`
}

var monWedPlan = planJSON(mealJSON("Monday", "Veggie Wrap", "tortilla", "garlic"), mealJSON("Wednesday", "Lentil Curry", "lentils"))

var monWedForm = url.Values{
	"dietary":         {"vegetarian"},
	"days":            {"Monday", "Wednesday"},
	"style_Wednesday": {"full"},
}

type testEnv struct {
	handler http.Handler
	gen     *mockTextGen
	reg     *prometheus.Registry
}

func newTestEnv(t *testing.T, gen *mockTextGen, perMinute int) *testEnv {
	t.Helper()
	return newTestEnvWith(t, gen, func(o *Options) { o.RateLimitPerMinute = perMinute })
}

func newTestEnvWith(t *testing.T, gen *mockTextGen, configure func(*Options)) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	a := app.NewApp(
		planner.NewPlanner(gen, time.Second),
		session.NewMemoryStore(time.Hour),
		nil,
		metrics.NewCollector(reg),
		zap.NewNop(),
	)
	opts := Options{
		App:                a,
		Logger:             zap.NewNop(),
		SessionSecret:      []byte("test-secret"),
		SessionTTL:         time.Hour,
		RateLimitPerMinute: 10,
		Gatherer:           reg,
	}
	configure(&opts)
	srv := NewServer(opts)
	t.Cleanup(srv.Close)
	return &testEnv{handler: srv.Routes(), gen: gen, reg: reg}
}

// browser keeps the session cookie between requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, handler: e.handler}
}

func (b *browser) do(method, path string, form url.Values) (*httptest.ResponseRecorder, *goquery.Document) {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			b.cookie = c
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(b.t, err)
	return rec, doc
}

func mealNames(doc *goquery.Document) []string {
	var names []string
	doc.Find("article.meal .name").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.Text())
	})
	return names
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, &mockTextGen{}, 10)
	b := env.browser(t)

	rec, doc := b.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, b.cookie)
	assert.True(t, b.cookie.HttpOnly)

	assert.Equal(t, 7, doc.Find(`input[name="days"]`).Length())
	assert.Equal(t, 5, doc.Find(`input[name="days"][checked]`).Length())
	assert.Contains(t, doc.Find("#dietary").Text(), "gluten-free")
	assert.Contains(t, doc.Find("#pantry-items").Text(), "Olive Oil")
	assert.Equal(t, 0, doc.Find("article.meal").Length())
	_, disabled := doc.Find("#shopping button").Attr("disabled")
	assert.True(t, disabled)
}

func TestPlanFlow(t *testing.T) {
	gen := &mockTextGen{responses: []string{
		monWedPlan,
		planJSON(mealJSON("Wednesday", "Chickpea Stew", "chickpeas")),
	}}
	env := newTestEnv(t, gen, 10)
	b := env.browser(t)

	rec, doc := b.do(http.MethodPost, "/plan", monWedForm)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Veggie Wrap", "Lentil Curry"}, mealNames(doc))
	assert.Equal(t, "Full Cook (longer prep)", doc.Find(`article[data-day="Wednesday"] .style`).Text())
	assert.Equal(t, "2 pieces tortilla", doc.Find(`article[data-day="Monday"] .ingredients li`).First().Text())

	rec, doc = b.do(http.MethodPost, "/plan/days/wed/regenerate", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Veggie Wrap", "Chickpea Stew"}, mealNames(doc))

	rec, doc = b.do(http.MethodPost, "/pantry", url.Values{"pantry": {"Garlic\ntortilla"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, doc = b.do(http.MethodPost, "/shopping-list", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	var items []string
	doc.Find(".shopping-list li").Each(func(_ int, s *goquery.Selection) { items = append(items, s.Text()) })
	assert.Equal(t, []string{"Chickpeas: 2 pieces"}, items)
	assert.Equal(t, 2, gen.calls)
}

func TestShoppingListEverythingInPantry(t *testing.T) {
	env := newTestEnv(t, &mockTextGen{responses: []string{monWedPlan}}, 10)
	b := env.browser(t)

	b.do(http.MethodPost, "/plan", monWedForm)
	b.do(http.MethodPost, "/pantry", url.Values{"pantry": {"tortilla, garlic, lentils"}})
	rec, doc := b.do(http.MethodPost, "/shopping-list", url.Values{})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You have everything you need!", doc.Find(".shopping-empty").Text())
}

func TestInvalidFormIsRejectedWithoutGenerating(t *testing.T) {
	gen := &mockTextGen{}
	env := newTestEnv(t, gen, 10)
	b := env.browser(t)

	rec, doc := b.do(http.MethodPost, "/plan", url.Values{"dietary": {"vegan, keto"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "select at least one day to plan", doc.Find(".error").Text())
	assert.Equal(t, "vegan, keto", doc.Find("#dietary").Text())
	assert.Equal(t, 0, doc.Find(`input[name="days"][checked]`).Length())
	assert.Equal(t, 0, gen.calls)
}

func TestFailuresKeepPreviousPlan(t *testing.T) {
	gen := &mockTextGen{responses: []string{monWedPlan}}
	env := newTestEnv(t, gen, 10)
	b := env.browser(t)

	b.do(http.MethodPost, "/plan", monWedForm)

	tests := []struct {
		name   string
		setup  func()
		path   string
		form   url.Values
		status int
	}{
		{
			name:   "UpstreamRateLimit",
			setup:  func() { gen.err = fmt.Errorf("quota: %w", llm.ErrRateLimited) },
			path:   "/plan",
			form:   monWedForm,
			status: http.StatusTooManyRequests,
		},
		{
			name:   "ProviderDown",
			setup:  func() { gen.err = errors.New("connection reset") },
			path:   "/plan/days/Monday/regenerate",
			form:   url.Values{},
			status: http.StatusBadGateway,
		},
		{
			name:   "Unparsable",
			setup:  func() { gen.err = nil; gen.responses = []string{"Monday: soup"} },
			path:   "/plan/days/Monday/regenerate",
			form:   url.Values{},
			status: http.StatusBadGateway,
		},
		{
			name:   "UnknownDay",
			setup:  func() {},
			path:   "/plan/days/Caturday/regenerate",
			form:   url.Values{},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			rec, doc := b.do(http.MethodPost, tt.path, tt.form)

			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, doc.Find(".error").Text())
			assert.Equal(t, []string{"Veggie Wrap", "Lentil Curry"}, mealNames(doc))
		})
	}
}

func TestShoppingListWithoutPlan(t *testing.T) {
	env := newTestEnv(t, &mockTextGen{}, 10)
	rec, doc := env.browser(t).do(http.MethodPost, "/shopping-list", url.Values{})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "generate a meal plan first", doc.Find(".error").Text())
}

func TestLocalRateLimit(t *testing.T) {
	gen := &mockTextGen{responses: []string{monWedPlan, monWedPlan}}
	env := newTestEnv(t, gen, 1)
	b := env.browser(t)

	rec, _ := b.do(http.MethodPost, "/plan", monWedForm)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, doc := b.do(http.MethodPost, "/plan", monWedForm)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, rateLimitMessage, doc.Find(".error").Text())
	assert.Len(t, mealNames(doc), 2)
	assert.Equal(t, 1, gen.calls)
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	postPlan := func(env *testEnv, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(monWedForm.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "203.0.113.7:41000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.Header.Set("X-Real-IP", forwardedFor)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("Untrusted", func(t *testing.T) {
		gen := &mockTextGen{responses: []string{monWedPlan, monWedPlan, monWedPlan}}
		env := newTestEnv(t, gen, 1)

		var statuses []int
		for i := 0; i < 3; i++ {
			statuses = append(statuses, postPlan(env, fmt.Sprintf("198.51.100.%d", i)))
		}

		assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, statuses)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("TrustedProxy", func(t *testing.T) {
		gen := &mockTextGen{responses: []string{monWedPlan, monWedPlan}}
		env := newTestEnvWith(t, gen, func(o *Options) {
			o.RateLimitPerMinute = 1
			o.TrustProxyHeaders = true
		})

		assert.Equal(t, http.StatusOK, postPlan(env, "198.51.100.1"))
		assert.Equal(t, http.StatusOK, postPlan(env, "198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, postPlan(env, "198.51.100.2"))
		assert.Equal(t, 2, gen.calls)
	})
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t, &mockTextGen{responses: []string{monWedPlan}}, 10)
	alice := env.browser(t)
	bob := env.browser(t)

	alice.do(http.MethodPost, "/plan", monWedForm)
	_, doc := bob.do(http.MethodGet, "/", nil)

	assert.Empty(t, mealNames(doc))
	assert.NotEqual(t, alice.cookie.Value, bob.cookie.Value)
}

func TestTamperedCookieStartsNewSession(t *testing.T) {
	env := newTestEnv(t, &mockTextGen{responses: []string{monWedPlan}}, 10)
	b := env.browser(t)
	b.do(http.MethodPost, "/plan", monWedForm)

	b.cookie = &http.Cookie{Name: CookieName, Value: b.cookie.Value + "x"}
	_, doc := b.do(http.MethodGet, "/", nil)

	assert.Empty(t, mealNames(doc))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, &mockTextGen{responses: []string{monWedPlan}}, 10)
	b := env.browser(t)
	b.do(http.MethodPost, "/plan", monWedForm)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health metrics.SysHealth
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `meal_planner_generation_requests_total{op="PlanGenerator",outcome="ok"} 1`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&planner.ValidationError{}))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(&planner.GenerationError{RateLimited: true}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&planner.GenerationError{}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&planner.ParseError{}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk full")))
}
