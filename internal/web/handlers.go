package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const rateLimitMessage = "Too many requests. Please wait a minute before generating again."

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.State(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, http.StatusOK, newPageData(state, nil))
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.", nil)
		return
	}
	form := preferenceForm(r)

	if !s.limiter.Allow(clientKey(r)) {
		s.renderError(w, r, http.StatusTooManyRequests, rateLimitMessage, &form)
		return
	}

	state, err := s.app.GeneratePlan(r.Context(), SessionID(r.Context()), form)
	if err != nil {
		s.renderFailure(w, r, err, &form)
		return
	}
	s.render(w, http.StatusOK, newPageData(state, nil))
}

func (s *Server) handleRegenerateDay(w http.ResponseWriter, r *http.Request) {
	day, err := planner.ParseWeekday(chi.URLParam(r, "day"))
	if err != nil {
		s.renderFailure(w, r, &planner.ValidationError{Field: "day", Message: "unknown day: " + chi.URLParam(r, "day")}, nil)
		return
	}

	if !s.limiter.Allow(clientKey(r)) {
		s.renderError(w, r, http.StatusTooManyRequests, rateLimitMessage, nil)
		return
	}

	state, err := s.app.RegenerateDay(r.Context(), SessionID(r.Context()), day)
	if err != nil {
		s.renderFailure(w, r, err, nil)
		return
	}
	s.render(w, http.StatusOK, newPageData(state, nil))
}

func (s *Server) handleUpdatePantry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.", nil)
		return
	}
	state, err := s.app.UpdatePantry(r.Context(), SessionID(r.Context()), r.PostFormValue("pantry"))
	if err != nil {
		s.renderFailure(w, r, err, nil)
		return
	}
	s.render(w, http.StatusOK, newPageData(state, nil))
}

func (s *Server) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	state, err := s.app.DeriveShoppingList(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.renderFailure(w, r, err, nil)
		return
	}
	s.render(w, http.StatusOK, newPageData(state, nil))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metrics.GetSysHealth(s.dataPath)); err != nil {
		s.logger.Error("failed to encode health", zap.Error(err))
	}
}

func preferenceForm(r *http.Request) planner.PreferenceForm {
	form := planner.PreferenceForm{
		Dietary: r.PostFormValue("dietary"),
		Days:    r.PostForm["days"],
		Styles:  make(map[string]string),
	}
	for _, day := range planner.AllWeekdays() {
		if v := r.PostFormValue("style_" + day.String()); v != "" {
			form.Styles[day.String()] = v
		}
	}
	return form
}

// statusFor maps an action error to the HTTP status of the re-rendered
// page.
func statusFor(err error) int {
	var validationErr *planner.ValidationError
	var generationErr *planner.GenerationError
	var parseErr *planner.ParseError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &generationErr) && generationErr.RateLimited:
		return http.StatusTooManyRequests
	case errors.As(err, &generationErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, err error, form *planner.PreferenceForm) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	var parseErr *planner.ParseError
	if errors.As(err, &parseErr) {
		s.logger.Warn("unparsable provider response", zap.String("reason", parseErr.Reason), zap.String("raw", parseErr.Raw))
	}
	s.renderError(w, r, status, planner.UserMessage(err), form)
}

// renderError shows msg above the session's last good state.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string, form *planner.PreferenceForm) {
	state, err := s.app.State(r.Context(), SessionID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := newPageData(state, form)
	data.Error = msg
	s.render(w, status, data)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
