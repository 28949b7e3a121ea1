package response

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Renderer executes page templates. Every page is parsed together with the
// shared layout so pages can define the blocks the layout references.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses layoutGlob as the shared layout and each file matching
// pageGlob as a page named after its base name without extension.
func NewRenderer(fsys fs.FS, layoutGlob, pageGlob string, funcs template.FuncMap) (*Renderer, error) {
	pages, err := fs.Glob(fsys, pageGlob)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no templates match %q", pageGlob)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		tmpl, err := template.New("layout").Funcs(funcs).ParseFS(fsys, layoutGlob, page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		name := strings.TrimSuffix(path.Base(page), path.Ext(page))
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes page into a buffer first so template errors never send a
// half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data interface{}) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether page was parsed
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}
