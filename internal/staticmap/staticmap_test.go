package staticmap

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_disabledWithoutToken(t *testing.T) {
	b := New("  ", "")
	assert.False(t, b.Enabled())

	_, err := b.URL(Options{Markers: []Marker{{Point: Point{Lat: -37.8, Lng: 144.9}}}})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestBuilder_markersWithAutoPosition(t *testing.T) {
	b := New("pk.test", "mapbox/light-v11")
	u, err := b.URL(Options{
		Width:  400,
		Height: 300,
		Markers: []Marker{
			{Point: Point{Lat: -37.81361, Lng: 144.96332}, Label: "1", Color: "#1D4ED8"},
			{Point: Point{Lat: -37.8236, Lng: 144.9983}, Label: "Shell!", Color: "zz"},
		},
	})
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "api.mapbox.com", parsed.Host)
	assert.Equal(t, "pk.test", parsed.Query().Get("access_token"))
	assert.Equal(t, "40", parsed.Query().Get("padding"))

	path, err := url.PathUnescape(parsed.EscapedPath())
	require.NoError(t, err)
	assert.Equal(t,
		"/styles/v1/mapbox/light-v11/static/pin-s-1+1d4ed8(144.96332,-37.81361),pin-s-sh+e11d48(144.99830,-37.82360)/auto/400x300",
		path)
}

func TestBuilder_centredRetinaNoMarkers(t *testing.T) {
	b := New("pk.test", "")
	u, err := b.URL(Options{Center: &Point{Lat: -37.8, Lng: 145}, Zoom: 14.5, Retina: true, Width: 5000})
	require.NoError(t, err)
	assert.Contains(t, u, "/mapbox/streets-v12/static/145.00000,-37.80000,14.5/1280x400@2x?")
	assert.NotContains(t, u, "padding")
}

func TestBuilder_capsMarkers(t *testing.T) {
	b := New("pk.test", "").WithMaxMarkers(3)
	markers := make([]Marker, 10)
	for i := range markers {
		markers[i] = Marker{Point: Point{Lat: -37.8, Lng: 144.9 + float64(i)/100}}
	}
	u, err := b.URL(Options{Markers: markers})
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	path, err := url.PathUnescape(parsed.EscapedPath())
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(path, "pin-s"))
}

func TestBuilder_needsContent(t *testing.T) {
	_, err := New("pk.test", "").URL(Options{})
	require.ErrorIs(t, err, ErrNoContent)
}
