package views

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
)

// NotFound renders the 404 page. message may be empty.
func NotFound(w http.ResponseWriter, r *http.Request, site Site, message string) {
	meta := site.Meta(r, "Page not found", "")
	data := ErrorData{Meta: meta, Message: message}
	var buf bytes.Buffer
	if err := RenderNotFound(&buf, &data); err != nil {
		slog.Error("not found template render failed", "error", err)
		http.NotFound(w, r)
		return
	}
	utils.WriteHTML(w, http.StatusNotFound, &buf)
}
