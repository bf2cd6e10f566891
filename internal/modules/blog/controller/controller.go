package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/blog/posts"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

// PostStore is the read side of the post store.
type PostStore interface {
	All() []posts.Post
	Get(slug string) (posts.Post, bool)
}

type BlogController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type blogControllerImpl struct {
	store PostStore
	site  views.Site
}

func NewBlogController(store PostStore, site views.Site) BlogController {
	return &blogControllerImpl{store: store, site: site}
}

func (c *blogControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /blog", c.handleIndex)
	mux.HandleFunc("GET /blog/{slug}", c.handleArticle)
}

// Summary converts a post to its list view model.
func Summary(p posts.Post) views.PostSummary {
	return views.PostSummary{
		Slug:    p.Slug,
		Title:   p.Title,
		Summary: p.Summary,
		Date:    format.Date(p.Date),
		Author:  p.Author,
		Tags:    p.Tags,
		URL:     "/blog/" + p.Slug,
	}
}

func (c *blogControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	all := c.store.All()
	summaries := make([]views.PostSummary, 0, len(all))
	for _, p := range all {
		summaries = append(summaries, Summary(p))
	}
	meta := c.site.Meta(r, "Blog", "Fuel price news, guides and money-saving tips.")
	meta.Active = "blog"
	meta.Breadcrumbs = []views.Crumb{{Label: "Blog"}}
	data := views.BlogIndexData{Meta: meta, Posts: summaries}

	var buf bytes.Buffer
	if err := views.RenderBlogIndex(&buf, &data); err != nil {
		slog.Error("blog index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}

func (c *blogControllerImpl) handleArticle(w http.ResponseWriter, r *http.Request) {
	post, ok := c.store.Get(r.PathValue("slug"))
	if !ok {
		views.NotFound(w, r, c.site, "That article doesn't exist.")
		return
	}
	meta := c.site.Meta(r, post.Title, post.Summary)
	meta.Active = "blog"
	meta.Breadcrumbs = []views.Crumb{{Label: "Blog", URL: "/blog"}, {Label: post.Title}}
	data := views.ArticleData{Meta: meta, Post: Summary(post), Body: post.HTML}

	var buf bytes.Buffer
	if err := views.RenderArticle(&buf, &data); err != nil {
		slog.Error("article template render failed", "slug", post.Slug, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}
