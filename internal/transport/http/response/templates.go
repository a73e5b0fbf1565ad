package response

import (
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/gin-gonic/gin/render"
)

const (
	layoutFile    = "layout.html"
	ErrorTemplate = "error.html"
)

var funcMap = template.FuncMap{
	"percent": func(v float32) string {
		return fmt.Sprintf("%.1f%%", v*100)
	},
}

// Templates is a gin HTMLRender keyed by "{lang}/{page}.html". Every page
// is parsed together with the shared layout.
type Templates struct {
	set map[string]*template.Template
}

var _ render.HTMLRender = (*Templates)(nil)

// LoadTemplates parses layout.html, error.html and every */*.html file
// under fsys.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	t := &Templates{set: make(map[string]*template.Template)}

	pages, err := fs.Glob(fsys, "*/*.html")
	if err != nil {
		return nil, err
	}
	pages = append(pages, ErrorTemplate)

	for _, page := range pages {
		tmpl, err := template.New(path.Base(page)).Funcs(funcMap).ParseFS(fsys, layoutFile, page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		t.set[page] = tmpl
	}
	return t, nil
}

func (t *Templates) Has(name string) bool {
	_, ok := t.set[name]
	return ok
}

func (t *Templates) Instance(name string, data any) render.Render {
	tmpl, ok := t.set[name]
	if !ok {
		tmpl = t.set[ErrorTemplate]
		data = map[string]any{"Status": 404, "Text": "Not Found", "Lang": "en", "Page": "index"}
	}
	return render.HTML{
		Template: tmpl,
		Name:     "layout",
		Data:     data,
	}
}

// PageName maps a language and page slug to a template key.
func PageName(lang, page string) string {
	return lang + "/" + strings.TrimSuffix(page, ".html") + ".html"
}
