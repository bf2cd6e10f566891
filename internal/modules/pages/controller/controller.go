package controller

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/debounce"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/blog/posts"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/pages/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

// StationSource is the part of the stations service the home page and sitemap read.
type StationSource interface {
	Stations() ([]types.Station, error)
}

// PostSource is the part of the blog store the home page and sitemap read.
type PostSource interface {
	All() []posts.Post
	Latest(n int) []posts.Post
}

type PagesController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type Options struct {
	Site  views.Site
	Clock clockwork.Clock
	// ContactThrottle is the minimum gap between two accepted messages from one client.
	ContactThrottle time.Duration
	// NewID generates contact message ids. Defaults to uuid.NewString.
	NewID func() string
	// TrustedProxies may set X-Forwarded-For when identifying a client.
	TrustedProxies []netip.Prefix
}

type pagesControllerImpl struct {
	stations StationSource
	posts    PostSource
	messages repository.ContactRepository
	site     views.Site
	clock    clockwork.Clock
	throttle *debounce.Throttle
	newID    func() string
	proxies  []netip.Prefix
}

func NewPagesController(stations StationSource, posts PostSource, messages repository.ContactRepository, opts Options) PagesController {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ContactThrottle <= 0 {
		opts.ContactThrottle = time.Minute
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &pagesControllerImpl{
		stations: stations,
		posts:    posts,
		messages: messages,
		site:     opts.Site,
		clock:    opts.Clock,
		throttle: debounce.NewThrottle(opts.Clock, opts.ContactThrottle),
		newID:    opts.NewID,
		proxies:  opts.TrustedProxies,
	}
}

func (c *pagesControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleHome)
	mux.HandleFunc("GET /about", c.handleAbout)
	mux.HandleFunc("GET /privacy", c.handlePrivacy)
	mux.HandleFunc("GET /contact", c.handleContact)
	mux.HandleFunc("POST /contact", c.handleContactSubmit)
	mux.HandleFunc("GET /robots.txt", c.handleRobots)
	mux.HandleFunc("GET /sitemap.xml", c.handleSitemap)
}

func (c *pagesControllerImpl) handleAbout(w http.ResponseWriter, r *http.Request) {
	meta := c.site.Meta(r, "About", "Who we are and where our Melbourne fuel prices come from.")
	meta.Active = "about"
	meta.Breadcrumbs = []views.Crumb{{Label: "Home", URL: "/"}, {Label: "About"}}

	var buf bytes.Buffer
	if err := views.RenderAbout(&buf, &views.StaticData{Meta: meta}); err != nil {
		slog.Error("pages: render about failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}

func (c *pagesControllerImpl) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	meta := c.site.Meta(r, "Privacy", "How we handle the information you share with us.")
	meta.Breadcrumbs = []views.Crumb{{Label: "Home", URL: "/"}, {Label: "Privacy"}}

	var buf bytes.Buffer
	if err := views.RenderPrivacy(&buf, &views.StaticData{Meta: meta}); err != nil {
		slog.Error("pages: render privacy failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}
