package todos

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

type createTodoRequest struct {
	Title string `json:"title"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

// RegisterAPIRoutes mounts the JSON API under /api/todos. Unlike the
// fragment routes, store failures surface here as 500.
func RegisterAPIRoutes(r chi.Router, svc *Service) {
	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", listTodos(svc))
		r.Post("/", createTodo(svc))
		r.Put("/{id:[0-9]+}", toggleTodo(svc))
		r.Delete("/{id:[0-9]+}", deleteTodo(svc))
	})
}

func createTodo(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTodoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		if vErrs := validateCreateTodo(req.Title, MaxTitleLen); len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		res := svc.Add(r.Context(), req.Title)
		switch res.Outcome {
		case OutcomeApplied:
			writeJSON(w, http.StatusCreated, res.Todo)
		case OutcomeSkipped:
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: []fieldError{{Field: "title", Message: "title is required"}},
			})
		default:
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
		}
	}
}

func listTodos(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func toggleTodo(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := todoID(w, r)
		if !ok {
			return
		}
		res := svc.Toggle(r.Context(), id)
		if writeOutcome(w, res) {
			writeJSON(w, http.StatusOK, res.Todo)
		}
	}
}

func deleteTodo(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := todoID(w, r)
		if !ok {
			return
		}
		if writeOutcome(w, svc.Remove(r.Context(), id)) {
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// writeOutcome writes the error response for a failed mutation and reports
// whether the caller should write the success response.
func writeOutcome(w http.ResponseWriter, res Result) bool {
	switch res.Outcome {
	case OutcomeApplied:
		return true
	case OutcomeNotFound:
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
	return false
}

func validateCreateTodo(title string, maxLen int) []fieldError {
	var errs []fieldError

	title = strings.TrimSpace(title)
	if title == "" {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: "title is required",
		})
	}

	if l := utf8.RuneCountInString(title); l > maxLen {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxLen),
		})
	}

	return errs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
