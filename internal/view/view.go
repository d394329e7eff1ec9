// Package view renders the server-side HTML pages through Fiber's Views interface.
package view

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Pages lists every page template; each is parsed together with layout.html.
var Pages = []string{
	"login",
	"begin",
	"scan_location",
	"scan_product",
	"sessions",
	"review",
	"inventory",
	"error",
}

// Page is the base data passed to all templates.
type Page struct {
	Title string
	User  *Viewer
	Error string
}

// Viewer is the signed-in user as the templates see it.
type Viewer struct {
	ID         string
	Username   string
	Name       string
	Role       string
	Privileges []string
}

func (v *Viewer) Can(privilege string) bool {
	if v == nil {
		return false
	}
	for _, p := range v.Privileges {
		if p == privilege {
			return true
		}
	}
	return false
}

// Engine implements fiber.Views over a template file system.
type Engine struct {
	fsys    fs.FS
	appName string

	mu        sync.RWMutex
	templates map[string]*template.Template
}

func New(fsys fs.FS, appName string) *Engine {
	return &Engine{fsys: fsys, appName: appName}
}

func (e *Engine) funcs() template.FuncMap {
	return template.FuncMap{
		"appName": func() string { return e.appName },
		"shortID": shortID,
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"deref":      deref,
		"signed":     func(n int) string { return fmt.Sprintf("%+d", n) },
		"deltaClass": deltaClass,
	}
}

// Load parses the layout and all pages. Fiber calls it once at startup.
func (e *Engine) Load() error {
	layout, err := fs.ReadFile(e.fsys, "layout.html")
	if err != nil {
		return fmt.Errorf("reading layout template: %w", err)
	}

	templates := make(map[string]*template.Template, len(Pages))
	for _, page := range Pages {
		body, err := fs.ReadFile(e.fsys, page+".html")
		if err != nil {
			return fmt.Errorf("reading template %s: %w", page, err)
		}
		tmpl, err := template.New(page).Funcs(e.funcs()).Parse(string(layout))
		if err != nil {
			return fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		if tmpl, err = tmpl.Parse(string(body)); err != nil {
			return fmt.Errorf("parsing template %s: %w", page, err)
		}
		templates[page] = tmpl
	}

	e.mu.Lock()
	e.templates = templates
	e.mu.Unlock()
	return nil
}

// Render executes the named page inside the layout. Layout arguments are ignored.
func (e *Engine) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	e.mu.RLock()
	loaded := e.templates != nil
	e.mu.RUnlock()
	if !loaded {
		if err := e.Load(); err != nil {
			return err
		}
	}

	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

func shortID(id fmt.Stringer) string {
	s := id.String()
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return v
	}
	if rv.IsNil() {
		return ""
	}
	return rv.Elem().Interface()
}

func deltaClass(n int) string {
	switch {
	case n > 0:
		return "delta-pos"
	case n < 0:
		return "delta-neg"
	default:
		return ""
	}
}
