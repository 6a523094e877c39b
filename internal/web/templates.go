package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
)

//go:embed tpl/*.tmpl tpl/partials/*.tmpl tpl/pages/*.tmpl
var tplFS embed.FS

// Renderer holds the parsed template sets: one per page, each sharing the
// base layout and partials, plus the bare partial set for fragments.
type Renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"nowUTC": func() time.Time { return time.Now().UTC() },
	}
}

func NewRenderer() (*Renderer, error) {
	base := template.New("root").Funcs(sprig.FuncMap()).Funcs(funcs())
	if _, err := base.ParseFS(tplFS, "tpl/base.tmpl", "tpl/partials/*.tmpl"); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	names, err := fs.Glob(tplFS, "tpl/pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, p := range names {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(tplFS, p); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[strings.TrimSuffix(path.Base(p), ".tmpl")] = t
	}
	// Cloning is not allowed once a set has executed, so base is only
	// handed out for fragments after every page has been cloned.
	r.fragments = base
	return r, nil
}

// Render executes the page template name (tpl/pages/<name>.tmpl).
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, name, data)
}

// RenderFragment executes a single partial, e.g. "catalog_body".
func (r *Renderer) RenderFragment(w io.Writer, name string, data any) error {
	return r.fragments.ExecuteTemplate(w, name, data)
}
