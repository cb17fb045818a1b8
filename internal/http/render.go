package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/auth"
	"github.com/kjstillabower/weatherlog/internal/http/payload"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// view is the data every page template receives. Data holds the page-specific model.
type view struct {
	Title   string
	User    *auth.Principal
	Error   string
	Success string
	Data    interface{}
}

var funcs = template.FuncMap{
	"ts": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(payload.TimestampLayout)
	},
	"day": func(t time.Time) string {
		return t.UTC().Format("Mon 02 Jan")
	},
	"temp": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"owner": func(e repository.WeatherEntry) string {
		if e.User != nil {
			return e.User.Username
		}
		if e.UserID == nil {
			return "imported"
		}
		return fmt.Sprintf("#%d", *e.UserID)
	},
	"icon": func(code string) string {
		if code == "" {
			return ""
		}
		return "https://openweathermap.org/img/wn/" + code + "@2x.png"
	},
}

// Renderer executes page templates, each composed with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := strings.TrimSuffix(path.Base(name), ".html")
		if base == "layout" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", base, err)
		}
		pages[base] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render writes page with status. Execution happens into a buffer so a template
// error still produces a clean 500.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	t, ok := rn.pages[page]
	if !ok {
		observability.LoggerFrom(r.Context()).Error("unknown template", zap.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if p, ok := auth.FromContext(r.Context()); ok {
		v.User = &p
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		observability.LoggerFrom(r.Context()).Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// StaticHandler serves the embedded static assets under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
