package todos

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var views = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	pageTemplate     = "base.html"
	fragmentTemplate = "todo_list"
)

type listView struct {
	Todos []Todo
}

// render executes name into a buffer first so a template failure still
// produces a clean 500.
func render(w http.ResponseWriter, status int, name string, todos []Todo) error {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, listView{Todos: todos}); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
