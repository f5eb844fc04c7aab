package slug

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MinLength = 3
	MaxLength = 60

	suffixLength = 6
	fallback     = "link"
)

var (
	pattern    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	separators = regexp.MustCompile(`[^a-z0-9]+`)
)

// Generate turns a free-text title into a URL token: accents folded,
// lowercase, hyphen separated, at most MaxLength characters.
func Generate(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	s := separators.ReplaceAllString(strings.ToLower(folded), "-")
	s = truncate(strings.Trim(s, "-"), MaxLength)
	if len(s) < MinLength {
		return fallback
	}
	return s
}

// WithSuffix appends a short random token so repeated titles stay unique.
func WithSuffix(base string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLength]
	base = truncate(base, MaxLength-suffixLength-1)
	if base == "" {
		base = fallback
	}
	return base + "-" + suffix
}

// Valid reports whether s is an acceptable link token.
func Valid(s string) bool {
	return len(s) >= MinLength && len(s) <= MaxLength && pattern.MatchString(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimRight(s[:max], "-")
}
