package todos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

var errDiskFull = errors.New("disk full")

// failingStore fails every insert, and every toggle or delete of an existing
// todo, the way a failed commit would. The wrapped store is left untouched.
type failingStore struct {
	Store
}

func (s failingStore) Create(ctx context.Context, title string) (Todo, error) {
	return Todo{}, errDiskFull
}

func (s failingStore) Toggle(ctx context.Context, id int64) (Todo, error) {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return Todo{}, err
	}
	return Todo{}, errDiskFull
}

func (s failingStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return err
	}
	return errDiskFull
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestServer(store Store) *chi.Mux {
	r := chi.NewRouter()
	RegisterRoutes(r, NewService(store, discardLogger()), discardLogger())
	return r
}

func postTitle(r http.Handler, title string) *httptest.ResponseRecorder {
	form := url.Values{"title": {title}}
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func count(t *testing.T, store Store) int {
	t.Helper()
	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return len(list)
}

func TestHome_RendersFullPage(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Create(context.Background(), "buy <milk>"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := newTestServer(store)

	rec := do(r, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("expected text/html, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Errorf("expected full page, got %s", body)
	}
	if !strings.Contains(body, "buy &lt;milk&gt;") {
		t.Errorf("expected escaped title in page, got %s", body)
	}
}

func TestHome_StoreUnavailable(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Close()
	r := newTestServer(store)

	rec := do(r, http.MethodGet, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAdd_InsertsIncompleteTodo(t *testing.T) {
	store := NewMemoryStore()
	r := newTestServer(store)

	for i, title := range []string{"Test Todo", "  padded  ", "ünïcode"} {
		rec := postTitle(r, title)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := rec.Header().Get(OutcomeHeader); got != "applied" {
			t.Errorf("expected outcome applied, got %q", got)
		}
		if n := count(t, store); n != i+1 {
			t.Fatalf("expected %d todos, got %d", i+1, n)
		}
	}

	list, _ := store.List(context.Background())
	if list[1].Title != "padded" {
		t.Errorf("expected trimmed title, got %q", list[1].Title)
	}
	for _, td := range list {
		if td.Complete {
			t.Errorf("new todo should be incomplete: %v", td)
		}
	}
}

func TestAdd_ReturnsFragment(t *testing.T) {
	r := newTestServer(NewMemoryStore())

	rec := postTitle(r, "fragment")
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE") {
		t.Errorf("expected a fragment, got a full page")
	}
	if !strings.Contains(body, `id="todo-list"`) || !strings.Contains(body, "fragment") {
		t.Errorf("unexpected fragment body: %s", body)
	}
}

func TestAdd_BlankTitleIsNoop(t *testing.T) {
	store := NewMemoryStore()
	r := newTestServer(store)

	for _, title := range []string{"", "   ", "\t", "\n"} {
		rec := postTitle(r, title)
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", title, rec.Code)
		}
		if got := rec.Header().Get(OutcomeHeader); got != "skipped" {
			t.Errorf("%q: expected outcome skipped, got %q", title, got)
		}
	}
	if n := count(t, store); n != 0 {
		t.Fatalf("expected no todos, got %d", n)
	}
}

func TestUpdate_Toggles(t *testing.T) {
	store := NewMemoryStore()
	td, _ := store.Create(context.Background(), "toggle")
	r := newTestServer(store)
	path := fmt.Sprintf("/update/%d", td.ID)

	want := []bool{true, false, true, false}
	for i, w := range want {
		rec := do(r, http.MethodPut, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i, rec.Code)
		}
		got, err := store.Get(context.Background(), td.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Complete != w {
			t.Fatalf("call %d: expected complete=%v", i, w)
		}
	}
}

func TestUpdateDelete_UnknownID(t *testing.T) {
	store := NewMemoryStore()
	td, _ := store.Create(context.Background(), "bystander")
	r := newTestServer(store)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/update/999"},
		{http.MethodDelete, "/delete/999"},
		{http.MethodPut, "/update/abc"},
		{http.MethodDelete, "/delete/abc"},
	} {
		rec := do(r, tc.method, tc.path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}

	got, err := store.Get(context.Background(), td.ID)
	if err != nil || got.Complete {
		t.Fatalf("bystander changed: %+v err=%v", got, err)
	}
	if n := count(t, store); n != 1 {
		t.Fatalf("expected 1 todo, got %d", n)
	}
}

func TestDelete_Removes(t *testing.T) {
	store := NewMemoryStore()
	td, _ := store.Create(context.Background(), "doomed")
	r := newTestServer(store)

	rec := do(r, http.MethodDelete, fmt.Sprintf("/delete/%d", td.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "doomed") {
		t.Errorf("deleted todo still rendered")
	}
	if _, err := store.Get(context.Background(), td.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutations_StoreFailureIsMasked(t *testing.T) {
	mem := NewMemoryStore()
	td, _ := mem.Create(context.Background(), "survivor")
	r := newTestServer(failingStore{Store: mem})

	for _, rec := range []*httptest.ResponseRecorder{
		postTitle(r, "never stored"),
		do(r, http.MethodPut, fmt.Sprintf("/update/%d", td.ID)),
		do(r, http.MethodDelete, fmt.Sprintf("/delete/%d", td.ID)),
	} {
		if rec.Code != http.StatusOK {
			t.Fatalf("expected masked 200, got %d", rec.Code)
		}
		if got := rec.Header().Get(OutcomeHeader); got != "store_error" {
			t.Errorf("expected outcome store_error, got %q", got)
		}
		if !strings.Contains(rec.Body.String(), "survivor") {
			t.Errorf("expected unchanged list in body: %s", rec.Body.String())
		}
	}

	list, _ := mem.List(context.Background())
	if len(list) != 1 || list[0].Complete {
		t.Fatalf("store should be unchanged: %+v", list)
	}
}

func TestEndToEnd_AddUpdateDelete(t *testing.T) {
	store := newTempDB(t)
	r := newTestServer(store)
	ctx := context.Background()

	postTitle(r, "E2E Test")

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var id int64
	for _, td := range list {
		if td.Title == "E2E Test" {
			id = td.ID
		}
	}
	if id == 0 {
		t.Fatalf("E2E todo not found in %+v", list)
	}

	if rec := do(r, http.MethodPut, fmt.Sprintf("/update/%d", id)); rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	if rec := do(r, http.MethodDelete, fmt.Sprintf("/delete/%d", id)); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// rejectWrites makes SQLite abort every write to todos mid-transaction.
func rejectWrites(t *testing.T, store *SQLStore) (restore func()) {
	t.Helper()
	ctx := context.Background()
	for _, op := range []string{"INSERT", "UPDATE", "DELETE"} {
		stmt := fmt.Sprintf(`CREATE TRIGGER reject_%s BEFORE %s ON todos
			BEGIN SELECT RAISE(ABORT, 'writes disabled'); END`, strings.ToLower(op), op)
		if _, err := store.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("create trigger: %v", err)
		}
	}
	return func() {
		for _, op := range []string{"insert", "update", "delete"} {
			if _, err := store.db.ExecContext(ctx, "DROP TRIGGER reject_"+op); err != nil {
				t.Fatalf("drop trigger: %v", err)
			}
		}
	}
}

func TestSQLStore_FailedWriteIsRolledBackAndMasked(t *testing.T) {
	store := newTempDB(t)
	ctx := context.Background()
	td, err := store.Create(ctx, "steady")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := newTestServer(store)
	restore := rejectWrites(t, store)

	for _, rec := range []*httptest.ResponseRecorder{
		postTitle(r, "rejected"),
		do(r, http.MethodPut, fmt.Sprintf("/update/%d", td.ID)),
		do(r, http.MethodDelete, fmt.Sprintf("/delete/%d", td.ID)),
	} {
		if rec.Code != http.StatusOK {
			t.Fatalf("expected masked 200, got %d", rec.Code)
		}
		if got := rec.Header().Get(OutcomeHeader); got != "store_error" {
			t.Errorf("expected outcome store_error, got %q", got)
		}
		if !strings.Contains(rec.Body.String(), "steady") {
			t.Errorf("expected unchanged list in body: %s", rec.Body.String())
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list after rollback: %v", err)
	}
	if len(list) != 1 || list[0] != td {
		t.Fatalf("store should be unchanged: %+v", list)
	}

	// the connection pool is usable once writes are allowed again
	restore()
	rec := do(r, http.MethodPut, fmt.Sprintf("/update/%d", td.ID))
	if got := rec.Header().Get(OutcomeHeader); rec.Code != http.StatusOK || got != "applied" {
		t.Fatalf("toggle after rollback: status %d outcome %q", rec.Code, got)
	}
	got, err := store.Get(ctx, td.ID)
	if err != nil || !got.Complete {
		t.Fatalf("expected toggled todo, got %+v err=%v", got, err)
	}
}
