package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestDefaultLayout(t *testing.T) {
	layout, err := LoadLayout("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var categories []string
	for _, col := range layout.Columns {
		categories = append(categories, col.Category)
	}
	if strings.Join(categories, ",") != "todo,doing,done" {
		t.Fatalf("unexpected columns: %v", categories)
	}
}

func TestLoadLayoutFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte("columns:\n  - category: backlog\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	layout, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if layout.Title != "Kanban Board" || len(layout.Columns) != 1 || layout.Columns[0].Label != "backlog" {
		t.Fatalf("unexpected layout: %#v", layout)
	}
	if _, err := LoadLayout(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseLayoutRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":       "title: x\n",
		"no category": "columns:\n  - label: Todo\n",
		"duplicate":   "columns:\n  - category: a\n  - category: a\n",
		"bad yaml":    "columns: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseLayout([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRegisterServesBoard(t *testing.T) {
	layout, err := ParseLayout([]byte("title: Team\ncolumns:\n  - category: todo\n    label: To Do\n  - category: done\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e := echo.New()
	if err := Register(e, layout, Options{CardStoreURL: "https://cards.example"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<title>Team</title>`,
		`data-card-category="todo"`,
		`data-card-category="done"`,
		`class="card-container"`,
		`cards.example`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q:\n%s", want, body)
		}
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board/static/style.css", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ".card-container.hoverable") {
		t.Fatalf("stylesheet not served: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board", nil))
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected redirect got %d", rec.Code)
	}
}
