package controller

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

var staticPages = []sitemapURL{
	{Loc: "/", ChangeFreq: "hourly", Priority: "1.0"},
	{Loc: "/stations", ChangeFreq: "hourly", Priority: "0.9"},
	{Loc: "/map", ChangeFreq: "daily", Priority: "0.7"},
	{Loc: "/blog", ChangeFreq: "weekly", Priority: "0.6"},
	{Loc: "/about", ChangeFreq: "monthly", Priority: "0.3"},
	{Loc: "/contact", ChangeFreq: "monthly", Priority: "0.3"},
	{Loc: "/privacy", ChangeFreq: "yearly", Priority: "0.1"},
}

func (c *pagesControllerImpl) baseURL() string {
	return strings.TrimRight(c.site.BaseURL, "/")
}

func (c *pagesControllerImpl) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := fmt.Fprintf(w, "User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: %s/sitemap.xml\n", c.baseURL())
	if err != nil {
		slog.Error("pages: write robots.txt failed", "error", err)
	}
}

func (c *pagesControllerImpl) handleSitemap(w http.ResponseWriter, _ *http.Request) {
	stations, err := c.stations.Stations()
	if err != nil {
		slog.Error("pages: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}

	base := c.baseURL()
	set := urlSet{XMLNS: sitemapNS}
	for _, u := range staticPages {
		u.Loc = base + u.Loc
		set.URLs = append(set.URLs, u)
	}
	for _, s := range stations {
		u := sitemapURL{
			Loc:        base + "/stations/" + format.StationSlug(s.ID, s.Name, s.Suburb),
			ChangeFreq: "daily",
			Priority:   "0.8",
		}
		if t, ok := format.ParseTimestamp(s.LastUpdated); ok {
			u.LastMod = t.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	for _, p := range c.posts.All() {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:      base + "/blog/" + p.Slug,
			LastMod:  p.Date.Format("2006-01-02"),
			Priority: "0.5",
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		slog.Error("pages: encode sitemap failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build sitemap")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("pages: write sitemap failed", "error", err)
	}
}
