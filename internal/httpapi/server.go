package httpapi

import (
	"net/http"
	"time"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/theme"
)

// NewHandler wraps mux with request ids, logging, theme resolution and metrics.
func NewHandler(mux *http.ServeMux, m *metrics.Metrics) http.Handler {
	if m == nil {
		m = metrics.NewNop()
	}
	var h http.Handler = instrument(m, mux)
	h = theme.Middleware(h)
	h = requestLogger(h)
	return requestID(h)
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
