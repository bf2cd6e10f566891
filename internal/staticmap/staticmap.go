// Package staticmap builds Mapbox Static Images API URLs for station maps.
package staticmap

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultBaseURL    = "https://api.mapbox.com/styles/v1"
	DefaultMaxMarkers = 50
	maxDimension      = 1280
	defaultColor      = "e11d48"
)

var (
	ErrDisabled  = errors.New("static maps disabled: no access token")
	ErrNoContent = errors.New("static map needs a centre or at least one marker")
)

type Point struct {
	Lat float64
	Lng float64
}

// Marker is a small pin. Label is one or two alphanumerics; Color is a hex
// colour with or without the leading #.
type Marker struct {
	Point
	Label string
	Color string
}

type Options struct {
	Width  int
	Height int
	Retina bool
	// Center and Zoom pin the viewport; without a centre the API fits all markers.
	Center  *Point
	Zoom    float64
	Markers []Marker
}

type Builder struct {
	token      string
	style      string
	baseURL    string
	maxMarkers int
}

func New(token, style string) *Builder {
	if style == "" {
		style = "mapbox/streets-v12"
	}
	return &Builder{
		token:      strings.TrimSpace(token),
		style:      strings.Trim(style, "/"),
		baseURL:    DefaultBaseURL,
		maxMarkers: DefaultMaxMarkers,
	}
}

// WithMaxMarkers caps the overlay; markers beyond n are dropped.
func (b *Builder) WithMaxMarkers(n int) *Builder {
	if n > 0 {
		b.maxMarkers = n
	}
	return b
}

func (b *Builder) Enabled() bool {
	return b != nil && b.token != ""
}

func (b *Builder) URL(opts Options) (string, error) {
	if !b.Enabled() {
		return "", ErrDisabled
	}
	if opts.Center == nil && len(opts.Markers) == 0 {
		return "", ErrNoContent
	}

	markers := opts.Markers
	if len(markers) > b.maxMarkers {
		markers = markers[:b.maxMarkers]
	}
	overlays := make([]string, 0, len(markers))
	for _, m := range markers {
		overlays = append(overlays, pin(m))
	}

	position := "auto"
	if opts.Center != nil {
		position = fmt.Sprintf("%s,%s,%s", coord(opts.Center.Lng), coord(opts.Center.Lat),
			strconv.FormatFloat(clampZoom(opts.Zoom), 'f', -1, 64))
	}

	size := fmt.Sprintf("%dx%d", clampDim(opts.Width, 600), clampDim(opts.Height, 400))
	if opts.Retina {
		size += "@2x"
	}

	segments := []string{b.baseURL, b.style, "static"}
	if len(overlays) > 0 {
		segments = append(segments, url.PathEscape(strings.Join(overlays, ",")))
	}
	segments = append(segments, position, size)

	q := url.Values{"access_token": {b.token}}
	if position == "auto" {
		q.Set("padding", "40")
	}
	return strings.Join(segments, "/") + "?" + q.Encode(), nil
}

func pin(m Marker) string {
	var b strings.Builder
	b.WriteString("pin-s")
	if label := sanitizeLabel(m.Label); label != "" {
		b.WriteString("-" + label)
	}
	b.WriteString("+" + sanitizeColor(m.Color))
	fmt.Fprintf(&b, "(%s,%s)", coord(m.Lng), coord(m.Lat))
	return b.String()
}

func sanitizeLabel(s string) string {
	var out []rune
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

func sanitizeColor(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "#"))
	if len(s) != 3 && len(s) != 6 {
		return defaultColor
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return defaultColor
		}
	}
	return s
}

func coord(f float64) string {
	return strconv.FormatFloat(f, 'f', 5, 64)
}

func clampDim(v, def int) int {
	switch {
	case v <= 0:
		return def
	case v > maxDimension:
		return maxDimension
	default:
		return v
	}
}

func clampZoom(z float64) float64 {
	switch {
	case z <= 0:
		return 13
	case z > 22:
		return 22
	default:
		return z
	}
}
