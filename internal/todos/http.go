package todos

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// OutcomeHeader carries the mutation outcome on fragment responses, which
// are 200 even when the store failed.
const OutcomeHeader = "X-Todo-Outcome"

// RegisterRoutes mounts the HTML page and the fragment routes.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	h := &pageHandler{svc: svc, logger: logger}
	r.Get("/", h.home)
	r.Post("/add", h.add)
	r.Put("/update/{id:[0-9]+}", h.update)
	r.Delete("/delete/{id:[0-9]+}", h.delete)
}

type pageHandler struct {
	svc    *Service
	logger *slog.Logger
}

func (h *pageHandler) home(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, "list_todos", err)
		return
	}
	if err := render(w, http.StatusOK, pageTemplate, list); err != nil {
		h.fail(w, r, "render_page", err)
	}
}

func (h *pageHandler) add(w http.ResponseWriter, r *http.Request) {
	res := h.svc.Add(r.Context(), r.FormValue("title"))
	h.fragment(w, r, res)
}

func (h *pageHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	h.fragment(w, r, h.svc.Toggle(r.Context(), id))
}

func (h *pageHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	h.fragment(w, r, h.svc.Remove(r.Context(), id))
}

// fragment answers a mutation with the current list. Store failures were
// already rolled back and logged by the service; the list is still served.
func (h *pageHandler) fragment(w http.ResponseWriter, r *http.Request, res Result) {
	w.Header().Set(OutcomeHeader, res.Outcome.String())
	if res.Outcome == OutcomeNotFound {
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	list, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, "list_todos", err)
		return
	}
	if err := render(w, http.StatusOK, fragmentTemplate, list); err != nil {
		h.fail(w, r, "render_fragment", err)
	}
}

func (h *pageHandler) fail(w http.ResponseWriter, r *http.Request, step string, err error) {
	h.logger.ErrorContext(r.Context(), "page_error",
		slog.String("step", step),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// todoID parses the {id} URL param. The route pattern already restricts it
// to digits, so only overflow can fail here.
func todoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
