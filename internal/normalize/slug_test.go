package normalize

import "testing"

func TestSlugKeepsYearAndStopTokens(t *testing.T) {
	t.Parallel()
	if got := Slug("Festival Gnaoua 2025 — 27e édition"); got != "festival-gnaoua-2025-27e-edition" {
		t.Fatalf("Slug() = %q", got)
	}
}

func TestSlugTrimsLeadingTrailingHyphens(t *testing.T) {
	t.Parallel()
	if got := Slug("  -- Essaouira! -- "); got != "essaouira" {
		t.Fatalf("Slug() = %q", got)
	}
}
