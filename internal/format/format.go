// Package format renders prices, distances and dates for the site, and builds
// URL slugs and sanitized user text.
package format

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unknown is shown wherever a value is missing or invalid.
const Unknown = "—"

func known(cents *float64) bool {
	return cents != nil && !math.IsNaN(*cents) && !math.IsInf(*cents, 0) && *cents >= 0
}

// Price renders cents per litre as dollars per litre with three decimals: 185.5 -> "$1.855".
func Price(cents *float64) string {
	if !known(cents) {
		return Unknown
	}
	return "$" + decimal.NewFromFloat(*cents).Shift(-2).StringFixed(3)
}

// Cents renders cents per litre with one decimal: 185.5 -> "185.5¢".
func Cents(cents *float64) string {
	if !known(cents) {
		return Unknown
	}
	return decimal.NewFromFloat(*cents).StringFixed(1) + "¢"
}

// Distance renders kilometres, switching to whole metres below 1 km.
func Distance(km float64) string {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return Unknown
	}
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}
	return strconv.FormatFloat(km, 'f', 1, 64) + " km"
}

// Date renders a calendar date like "3 Mar 2026". The zero time renders Unknown.
func Date(t time.Time) string {
	if t.IsZero() {
		return Unknown
	}
	return t.Format("2 Jan 2006")
}

// RelativeTime describes t relative to clock.Now(). Anything older than a week,
// or in the future, falls back to Date.
func RelativeTime(clock clockwork.Clock, t time.Time) string {
	if t.IsZero() {
		return Unknown
	}
	d := clock.Since(t)
	switch {
	case d < 0:
		return Date(t)
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d/time.Hour))
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
	default:
		return Date(t)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes found in station data files.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Slug lower-cases s, folds accented letters to their base letter, keeps
// ASCII letters and digits, and collapses everything else to single dashes.
func Slug(s string) string {
	if folded, _, err := transform.String(foldMarks(), s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// foldMarks decomposes s and drops combining marks, so "é" becomes "e".
// Transformers are stateful, so each call gets its own chain.
func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// StationSlug builds "{id}-{name}-{suburb}". The id prefix is what ParseStationSlug reads back.
func StationSlug(id int, name, suburb string) string {
	slug := strconv.Itoa(id)
	if rest := Slug(name + " " + suburb); rest != "" {
		slug += "-" + rest
	}
	return slug
}

// ParseStationSlug extracts the station id from a slug built by StationSlug.
func ParseStationSlug(slug string) (int, bool) {
	head, _, _ := strings.Cut(slug, "-")
	id, err := strconv.Atoi(head)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Sanitize strips markup and control characters, collapses whitespace and caps
// the result at max runes (max <= 0 means no cap).
func Sanitize(s string, max int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s
}
