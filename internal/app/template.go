package app

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin/render"

	"github.com/tsam/console/internal/resource"
)

// Renderer executes the console templates for gin.
//
// Every file under templates/ outside layouts/ and partials/ is a page,
// compiled on top of a shared set of layouts and partials. A name of the
// form "console/list.html#region" executes only the named block of that
// page, so htmx fragments reuse the page's own definitions without the
// layout around them.
//
// In debug mode the set is re-parsed on every render.
type Renderer struct {
	fs    fs.FS
	debug bool
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// NewRenderer compiles the templates found in fsys.
func NewRenderer(fsys fs.FS, debug bool) (*Renderer, error) {
	r := &Renderer{fs: fsys, debug: debug}
	if debug {
		return r, nil
	}
	pages, err := r.parse()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.pages = pages
	return r, nil
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	pages := r.pages
	if r.debug {
		var err error
		if pages, err = r.parse(); err != nil {
			return &pageRender{err: err}
		}
	}
	page, block, _ := strings.Cut(name, "#")
	if block == "" {
		block = page
	}
	return &pageRender{tmpl: pages[page], name: name, block: block, data: data}
}

func (r *Renderer) parse() (map[string]*template.Template, error) {
	base := template.New("").Funcs(templateFuncs())
	for _, dir := range []string{"layouts", "partials"} {
		files, err := fs.Glob(r.fs, path.Join("templates", dir, "*.html"))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if err := parseFile(base, r.fs, f, f); err != nil {
				return nil, err
			}
		}
	}

	pages := map[string]*template.Template{}
	err := fs.WalkDir(r.fs, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return err
		}
		name := strings.TrimPrefix(p, "templates/")
		if strings.HasPrefix(name, "layouts/") || strings.HasPrefix(name, "partials/") {
			return nil
		}
		set, err := base.Clone()
		if err != nil {
			return err
		}
		if err := parseFile(set, r.fs, p, name); err != nil {
			return err
		}
		pages[name] = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func parseFile(set *template.Template, fsys fs.FS, file, name string) error {
	b, err := fs.ReadFile(fsys, file)
	if err != nil {
		return err
	}
	if _, err := set.New(name).Parse(string(b)); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"add":       func(a, b int) int { return a + b },
		"inputType": inputType,
	}
}

// inputType is the type attribute of the <input> rendering a field kind.
func inputType(kind resource.Kind) string {
	switch kind {
	case resource.KindNumber, resource.KindDecimal:
		return "number"
	case resource.KindDate:
		return "date"
	case resource.KindUpload:
		return "url"
	default:
		return "text"
	}
}

type pageRender struct {
	tmpl  *template.Template
	name  string
	block string
	data  any
	err   error
}

func (p *pageRender) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	if p.err != nil {
		return p.err
	}
	if p.tmpl == nil || p.tmpl.Lookup(p.block) == nil {
		return fmt.Errorf("template %q not found", p.name)
	}
	return p.tmpl.ExecuteTemplate(w, p.block, p.data)
}

func (p *pageRender) WriteContentType(w http.ResponseWriter) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
}
