package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"currency": func(amount float64) string {
		return "₹" + humanize.CommafWithDigits(amount, 2)
	},
	"count": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"bytes": func(n int64) string {
		return humanize.IBytes(uint64(n))
	},
	"relative": relativeTime,
}

// relativeTime renders t relative to now, e.g. "3 hours from now".
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, NowTimeFunc(), "ago", "from now")
}

// ParseTemplate parses templates from the embedded filesystem. Later files
// may redefine blocks declared by earlier ones.
func ParseTemplate(names ...string) (*template.Template, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("[ParseTemplate] no template named")
	}
	return template.New(names[0]).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), names...)
}

// viewTemplates holds the parsed login page and one template set per
// dashboard section.
type viewTemplates struct {
	login    *template.Template
	sections map[Section]*template.Template
}

func parseViewTemplates() (*viewTemplates, error) {
	login, err := ParseTemplate("base.html", "login.html")
	if err != nil {
		return nil, err
	}
	v := &viewTemplates{login: login, sections: make(map[Section]*template.Template)}
	for _, section := range Sections {
		tmpl, err := ParseTemplate("base.html", "dashboard.html", string(section)+".html")
		if err != nil {
			return nil, err
		}
		v.sections[section] = tmpl
	}
	return v, nil
}

func (v *viewTemplates) renderLogin(w http.ResponseWriter, data LoginPageData) {
	render(w, v.login, data)
}

func (v *viewTemplates) renderDashboard(w http.ResponseWriter, page *dashboardPage) {
	render(w, v.sections[page.Shell.Active], page)
}

// render executes into a buffer first so a template failure never leaves
// a half written page.
func render(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	_, _ = buf.WriteTo(w)
}
