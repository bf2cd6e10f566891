// Package views renders the site's pages and HTMX fragments from embedded templates.
package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
)

var (
	// baseTmpl holds the layout and partials; fragments render from it.
	baseTmpl *template.Template
	// pageTmpls maps a page file name (e.g. "home.html") to layout + partials + that page.
	pageTmpls map[string]*template.Template
)

var errNotLoaded = errors.New("templates not loaded: call views.LoadTemplates during startup")

// loadTemplatesFromFS loads the layout, partials and pages from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(sub, "layout.html", "partials/*.html")
	if err != nil {
		return err
	}
	pages, err := fs.Glob(sub, "pages/*.html")
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errors.New("no page templates found")
	}
	parsed := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		clone, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := clone.ParseFS(sub, p); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		parsed[path.Base(p)] = clone
	}
	baseTmpl = base
	pageTmpls = parsed
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

func renderPage(w io.Writer, page string, data any) error {
	if pageTmpls == nil {
		return errNotLoaded
	}
	t, ok := pageTmpls[page]
	if !ok {
		return fmt.Errorf("unknown page template %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func renderPartial(w io.Writer, name string, data any) error {
	if baseTmpl == nil {
		return errNotLoaded
	}
	return baseTmpl.ExecuteTemplate(w, name, data)
}

func RenderHome(w io.Writer, data *HomeData) error {
	return renderPage(w, "home.html", data)
}

func RenderDirectory(w io.Writer, data *DirectoryData) error {
	return renderPage(w, "directory.html", data)
}

// RenderResultsPartial executes only the station results list into w.
// Use for HTMX fragment refresh when the filter bar changes.
func RenderResultsPartial(w io.Writer, data *ResultsData) error {
	return renderPartial(w, "results", data)
}

func RenderStation(w io.Writer, data *StationData) error {
	return renderPage(w, "station.html", data)
}

func RenderMap(w io.Writer, data *MapData) error {
	return renderPage(w, "map.html", data)
}

func RenderBlogIndex(w io.Writer, data *BlogIndexData) error {
	return renderPage(w, "blog.html", data)
}

func RenderArticle(w io.Writer, data *ArticleData) error {
	return renderPage(w, "article.html", data)
}

func RenderAbout(w io.Writer, data *StaticData) error {
	return renderPage(w, "about.html", data)
}

func RenderPrivacy(w io.Writer, data *StaticData) error {
	return renderPage(w, "privacy.html", data)
}

func RenderContact(w io.Writer, data *ContactData) error {
	return renderPage(w, "contact.html", data)
}

// RenderContactForm executes only the contact form, for HTMX submissions.
func RenderContactForm(w io.Writer, data *ContactData) error {
	return renderPartial(w, "contact-form", data)
}

func RenderNotFound(w io.Writer, data *ErrorData) error {
	return renderPage(w, "notfound.html", data)
}
