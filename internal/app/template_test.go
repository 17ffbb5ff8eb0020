package app

import (
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/tsam/console/internal/resource"
	"github.com/tsam/console/web"
)

// testFS mirrors the web/templates layout: a base layout, a partial, a list
// page with a fragment block and an error page.
func testFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/base.html": &fstest.MapFile{
			Data: []byte(
				`{{ define "base" }}<!DOCTYPE html><html>` +
					`<head><title>{{ block "title" . }}Default{{ end }}</title></head>` +
					`<body>{{ template "nav" . }}{{ block "content" . }}{{ end }}</body>` +
					`</html>{{ end }}`),
		},
		"templates/partials/nav.html": &fstest.MapFile{
			Data: []byte(`{{ define "nav" }}<nav>Navigation</nav>{{ end }}`),
		},
		"templates/console/list.html": &fstest.MapFile{
			Data: []byte(
				`{{ template "base" . }}` +
					`{{ define "title" }}Technologies{{ end }}` +
					`{{ define "content" }}{{ template "region" . }}{{ end }}` +
					`{{ define "region" }}<section id="list-region">{{ .Page }}</section>{{ end }}`),
		},
		"templates/errors/404.html": &fstest.MapFile{
			Data: []byte(
				`{{ template "base" . }}` +
					`{{ define "title" }}Not Found{{ end }}` +
					`{{ define "content" }}<h1>404 Not Found</h1>{{ end }}`),
		},
	}
}

func renderPage(t *testing.T, r *Renderer, name string, data any) string {
	t.Helper()
	w := httptest.NewRecorder()
	if err := r.Instance(name, data).Render(w); err != nil {
		t.Fatalf("Render(%q) error: %v", name, err)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	return w.Body.String()
}

func TestInputType(t *testing.T) {
	tests := map[resource.Kind]string{
		resource.KindNumber:   "number",
		resource.KindDecimal:  "number",
		resource.KindDate:     "date",
		resource.KindUpload:   "url",
		resource.KindText:     "text",
		resource.KindCheckbox: "text",
	}
	for kind, want := range tests {
		if got := inputType(kind); got != want {
			t.Errorf("inputType(%q) = %q; want %q", kind, got, want)
		}
	}
}

func TestRenderer_FullPage(t *testing.T) {
	for _, debug := range []bool{false, true} {
		r, err := NewRenderer(testFS(), debug)
		if err != nil {
			t.Fatalf("NewRenderer(debug=%v) error: %v", debug, err)
		}
		body := renderPage(t, r, "console/list.html", map[string]any{"Page": "1 - 5 of 7"})
		for _, want := range []string{
			"<!DOCTYPE html>",
			"<title>Technologies</title>",
			"<nav>Navigation</nav>",
			`<section id="list-region">1 - 5 of 7</section>`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("debug=%v: body missing %q:\n%s", debug, want, body)
			}
		}
	}
}

func TestRenderer_Fragment(t *testing.T) {
	r, err := NewRenderer(testFS(), false)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	body := renderPage(t, r, "console/list.html#region", map[string]any{"Page": "6 - 7 of 7"})
	if body != `<section id="list-region">6 - 7 of 7</section>` {
		t.Errorf("fragment body = %q", body)
	}
}

func TestRenderer_Missing(t *testing.T) {
	r, err := NewRenderer(testFS(), false)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	for _, name := range []string{"console/missing.html", "console/list.html#missing", "layouts/base.html"} {
		if err := r.Instance(name, nil).Render(httptest.NewRecorder()); err == nil {
			t.Errorf("Render(%q) should fail", name)
		}
	}
}

func TestRenderer_InvalidTemplate(t *testing.T) {
	fsys := testFS()
	fsys["templates/console/bad.html"] = &fstest.MapFile{Data: []byte(`{{ invalid_syntax `)}

	if _, err := NewRenderer(fsys, false); err == nil {
		t.Fatal("expected error for invalid template syntax")
	}

	r, err := NewRenderer(fsys, true)
	if err != nil {
		t.Fatalf("debug renderer defers parsing, got %v", err)
	}
	err = r.Instance("console/list.html", nil).Render(httptest.NewRecorder())
	if err == nil || !strings.Contains(err.Error(), "bad.html") {
		t.Errorf("debug render error = %v; want parse error naming bad.html", err)
	}
}

func TestRenderer_DebugReloads(t *testing.T) {
	fsys := testFS()
	r, err := NewRenderer(fsys, true)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	if body := renderPage(t, r, "errors/404.html", nil); !strings.Contains(body, "404 Not Found") {
		t.Fatalf("body = %q", body)
	}

	fsys["templates/errors/404.html"] = &fstest.MapFile{
		Data: []byte(`{{ template "base" . }}{{ define "content" }}<h1>Gone</h1>{{ end }}`),
	}
	if body := renderPage(t, r, "errors/404.html", nil); !strings.Contains(body, "<h1>Gone</h1>") {
		t.Errorf("debug renderer served a stale page: %q", body)
	}
}

func TestRenderer_ShippedTemplates(t *testing.T) {
	r, err := NewRenderer(web.EmbeddedFS, false)
	if err != nil {
		t.Fatalf("shipped templates do not parse: %v", err)
	}
	for _, name := range []string{
		"home.html",
		"console/list.html",
		"console/modal.html",
		"console/confirm.html",
		"console/upload.html",
		"errors/404.html",
		"errors/500.html",
	} {
		if r.pages[name] == nil {
			t.Errorf("page %q not compiled", name)
		}
	}
	if r.pages["console/list.html"].Lookup("region") == nil {
		t.Error(`console/list.html has no "region" block`)
	}
	if _, ok := r.pages["console/region.html"]; ok {
		t.Error("stale console/region.html still shipped")
	}
}
