package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/theme"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

type MuxDeps struct {
	DB        *sql.DB
	StaticDir string
	// Registry is served at /metrics. Nil disables the endpoint.
	Registry *prometheus.Registry
	Site     views.Site
}

// NewMux registers the routes shared by every feature: health, metrics,
// static files, theme switching and the fallback 404 page.
func NewMux(deps MuxDeps) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, deps.DB)

	if deps.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	}
	if deps.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", staticFiles(deps.StaticDir)))
	}
	theme.RegisterRoutes(mux)

	// GET only, so a wrong method on a known path still answers 405.
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		views.NotFound(w, r, deps.Site, "")
	})
	return mux
}

// staticFiles serves dir without directory listings.
func staticFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fs.ServeHTTP(w, r)
	})
}
