package blog

import (
	"net/http"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/blog/controller"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/blog/posts"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

// RegisterFeature loads the embedded posts and mounts the blog pages. The
// store is returned for the home page and the sitemap.
func RegisterFeature(mux *http.ServeMux, site views.Site) (*posts.Store, error) {
	store, err := posts.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	controller.NewBlogController(store, site).RegisterRoutes(mux)
	return store, nil
}
