// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses the embedded HTML templates and renders pages and
// HTML fragments with the common layout data.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/seo"
	"github.com/petrpacas/spiritevents-sub000/internal/middleware"
	"github.com/petrpacas/spiritevents-sub000/internal/session"
)

// Flash types.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
	FlashWarning = "warning"
)

const (
	baseLayout  = "layouts/base.html"
	adminLayout = "layouts/admin.html"
)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	imageURL       func(key string) string
	siteName       string
	isDev          bool
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	// ImageURL turns a storage key into a public URL.
	ImageURL func(key string) string
	SiteName string
	IsDev    bool
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		imageURL:       cfg.ImageURL,
		siteName:       cfg.SiteName,
		isDev:          cfg.IsDev,
	}
	if r.imageURL == nil {
		r.imageURL = func(key string) string { return "/uploads/" + key }
	}
	if r.siteName == "" {
		r.siteName = "Spirit Events"
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

// parseTemplates parses every page group. Pages are named "<dir>/<file>"
// without the extension.
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := r.getTemplateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	groups := []struct {
		dir     string
		layouts []string
	}{
		{"public", []string{baseLayout}},
		{"auth", []string{baseLayout}},
		{"admin", []string{baseLayout, adminLayout}},
		{"errors", []string{baseLayout}},
		{"fragments", nil},
	}

	for _, g := range groups {
		pages, err := r.getTemplateFiles(templatesFS, g.dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", g.dir, err)
		}

		for _, tmplPath := range pages {
			name := g.dir + "/" + strings.TrimSuffix(path.Base(tmplPath), ".html")

			// Parse in order: layouts, partials, page template
			files := append([]string{}, g.layouts...)
			files = append(files, partials...)
			files = append(files, tmplPath)

			tmpl, err := template.New("").Funcs(r.templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}

			r.templates[name] = tmpl
		}
	}

	return nil
}

// getTemplateFiles returns all .html files in a directory.
func (r *Renderer) getTemplateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	var files []string

	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		// A group without templates is allowed
		return files, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// Has reports whether a template called name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title string
	Data  any
	// Form holds submitted values re-rendered after a validation error.
	Form any
	// Errors maps form fields to messages.
	Errors      map[string]string
	Warnings    []string
	Flash       string
	FlashType   string
	CurrentYear int
	CurrentPath string
	SiteName    string
	Principal   auth.Principal
	IsDev       bool
	// Meta fills the description, canonical and Open Graph tags.
	Meta *seo.Meta
}

// ImageURL returns the public URL of a stored image.
func (r *Renderer) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return r.imageURL(key)
}

// Render renders page name with the base layout and writes it with status.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	r.fill(req, &data)

	// Get flash message from session
	if r.sessionManager != nil {
		if flash := r.sessionManager.PopString(req.Context(), session.KeyFlash); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), session.KeyFlashType)
			if data.FlashType == "" {
				data.FlashType = FlashInfo
			}
		}
	}

	return r.execute(w, tmpl, "base", status, data)
}

// RenderFragment renders a template from the fragments group without a
// layout. It is used for htmx partial updates.
func (r *Renderer) RenderFragment(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates["fragments/"+name]
	if !ok {
		return fmt.Errorf("fragment %s not found", name)
	}
	r.fill(req, &data)
	return r.execute(w, tmpl, "fragment", status, data)
}

func (r *Renderer) fill(req *http.Request, data *TemplateData) {
	data.CurrentYear = time.Now().Year()
	data.CurrentPath = req.URL.Path
	data.SiteName = r.siteName
	data.Principal = middleware.GetPrincipal(req)
	data.IsDev = r.isDev
}

func (r *Renderer) execute(w http.ResponseWriter, tmpl *template.Template, entry string, status int, data TemplateData) error {
	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, entry, data); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		r.sessionManager.Put(req.Context(), session.KeyFlash, message)
		r.sessionManager.Put(req.Context(), session.KeyFlashType, flashType)
	}
}
