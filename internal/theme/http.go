package theme

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
)

const (
	CookieName = "theme"
	// ClientHint carries the browser's prefers-color-scheme when the server asked for it via Accept-CH.
	ClientHint = "Sec-CH-Prefers-Color-Scheme"

	cookieMaxAge = 365 * 24 * time.Hour
)

var errNoCookie = errors.New("no theme cookie")

// CookieStore keeps the preference in the theme cookie of one request/response pair.
type CookieStore struct {
	r *http.Request
	w http.ResponseWriter
}

func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{r: r, w: w}
}

func (s *CookieStore) Load() (Preference, error) {
	c, err := s.r.Cookie(CookieName)
	if err != nil {
		return "", errNoCookie
	}
	return ParsePreference(c.Value)
}

func (s *CookieStore) Save(p Preference) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    string(p),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SystemPrefersDark reads the colour scheme client hint. The header value is a
// structured-field string, so it arrives quoted.
func SystemPrefersDark(r *http.Request) bool {
	v := strings.Trim(strings.TrimSpace(r.Header.Get(ClientHint)), `"`)
	return strings.EqualFold(v, "dark")
}

// ForRequest builds a Manager backed by the request's cookie and client hint.
func ForRequest(w http.ResponseWriter, r *http.Request) *Manager {
	return NewManager(NewCookieStore(w, r), SystemPrefersDark(r))
}

type ctxKey struct{}

// State is what templates need to render the html element and the toggle.
type State struct {
	Preference Preference
	Resolved   Theme
}

// Middleware asks browsers for the colour scheme hint and puts the request's
// theme State in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-CH", ClientHint)
		w.Header().Add("Vary", ClientHint)
		w.Header().Add("Critical-CH", ClientHint)
		m := ForRequest(w, r)
		st := State{Preference: m.Preference(), Resolved: m.Resolved()}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, st)))
	})
}

// FromContext returns the State set by Middleware, or the system/light default.
func FromContext(ctx context.Context) State {
	if st, ok := ctx.Value(ctxKey{}).(State); ok {
		return st
	}
	return State{Preference: PreferenceSystem, Resolved: Light}
}

// RegisterRoutes mounts the preference endpoints.
func RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /theme", handleSet)
	mux.HandleFunc("POST /theme/toggle", handleToggle)
}

func handleSet(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePreference(r.FormValue("theme"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	m := ForRequest(w, r)
	if err := m.SetPreference(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Debug("theme preference set", "preference", p, "resolved", m.Resolved())
	redirectBack(w, r)
}

func handleToggle(w http.ResponseWriter, r *http.Request) {
	m := ForRequest(w, r)
	resolved := m.Toggle()
	slog.Debug("theme toggled", "resolved", resolved)
	redirectBack(w, r)
}

// redirectBack returns the user to the page they came from. Only same-host
// referers are honoured.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	if utils.IsHTMX(r) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, backTarget(r), http.StatusSeeOther)
}

func backTarget(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") {
		return "/"
	}
	if ref.Host != "" && ref.Host != r.Host {
		return "/"
	}
	target := ref.Path
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	return target
}
