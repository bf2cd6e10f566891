package pages

import (
	"database/sql"
	"net/http"
	"net/netip"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/pages/controller"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/pages/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

type Deps struct {
	DB              *sql.DB
	Stations        controller.StationSource
	Posts           controller.PostSource
	Site            views.Site
	Clock           clockwork.Clock
	ContactThrottle time.Duration
	TrustedProxies  []netip.Prefix
}

// RegisterFeature mounts the home, static, contact and SEO routes.
func RegisterFeature(mux *http.ServeMux, deps Deps) {
	contactRepository := repository.NewRepository(deps.DB)
	pagesController := controller.NewPagesController(deps.Stations, deps.Posts, contactRepository, controller.Options{
		Site:            deps.Site,
		Clock:           deps.Clock,
		ContactThrottle: deps.ContactThrottle,
		TrustedProxies:  deps.TrustedProxies,
	})
	pagesController.RegisterRoutes(mux)
}
