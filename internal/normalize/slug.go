package normalize

import (
	"strings"

	"golang.org/x/text/transform"
)

// Slug turns a raw name into a URL-safe slug: the same lowercase/diacritic
// rules as Name, but keeping stop tokens and years (a slug must stay
// distinguishable between "Gnaoua Festival 2024" and "Gnaoua Festival
// 2025"), with non-alphanumeric runs collapsed to single hyphens instead of
// spaces.
//
// No slugify library appears anywhere in the retrieved pack; this reuses
// Name's diacritic-stripping machinery rather than reaching for the
// standard library alone.
func Slug(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	stripped, _, err := transform.String(diacriticStrip, lowered)
	if err != nil {
		stripped = lowered
	}

	collapsed := nonAlnumRun.ReplaceAllString(stripped, "-")
	return strings.Trim(collapsed, "-")
}
