// Package web serves the browser board page.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*.css
var staticFS embed.FS

//go:embed board.yaml
var defaultLayout []byte

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Column is one lane of the board.
type Column struct {
	Category string `yaml:"category"`
	Label    string `yaml:"label"`
}

// Layout describes the columns rendered on the board page.
type Layout struct {
	Title   string   `yaml:"title"`
	Columns []Column `yaml:"columns"`
}

// LoadLayout reads a layout file, or the built-in layout when path is empty.
func LoadLayout(path string) (Layout, error) {
	data := defaultLayout
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Layout{}, fmt.Errorf("read board layout: %w", err)
		}
	}
	return ParseLayout(data)
}

// ParseLayout decodes a YAML layout. Categories must be unique and non-empty.
func ParseLayout(data []byte) (Layout, error) {
	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("parse board layout: %w", err)
	}
	if len(layout.Columns) == 0 {
		return Layout{}, fmt.Errorf("board layout has no columns")
	}
	seen := make(map[string]bool, len(layout.Columns))
	for i, col := range layout.Columns {
		col.Category = strings.TrimSpace(col.Category)
		if col.Category == "" {
			return Layout{}, fmt.Errorf("board layout column %d has no category", i)
		}
		if seen[col.Category] {
			return Layout{}, fmt.Errorf("board layout repeats category %q", col.Category)
		}
		seen[col.Category] = true
		if col.Label == "" {
			col.Label = col.Category
		}
		layout.Columns[i] = col
	}
	if layout.Title == "" {
		layout.Title = "Kanban Board"
	}
	return layout, nil
}

// Options controls how the board page is served.
type Options struct {
	// AssetsDir holds board.wasm and wasm_exec.js. When empty the page is
	// served without them.
	AssetsDir string
	// CardStoreURL overrides the card store origin used by the page.
	CardStoreURL string
}

type pageData struct {
	Layout
	CardStoreURL string
}

// Register serves the board page under /board/.
func Register(e *echo.Echo, layout Layout, opts Options) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", pageData{Layout: layout, CardStoreURL: opts.CardStoreURL}); err != nil {
		return fmt.Errorf("render board page: %w", err)
	}
	page := buf.Bytes()

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}

	index := func(c echo.Context) error {
		return c.HTMLBlob(http.StatusOK, page)
	}
	e.GET("/board", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/board/")
	})
	e.GET("/board/", index)
	e.StaticFS("/board/static", static)
	if opts.AssetsDir != "" {
		e.Static("/board/assets", opts.AssetsDir)
	}
	return nil
}
