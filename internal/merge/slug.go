package merge

import (
	"encoding/json"
	"fmt"
	"time"

	"gnaoua.dev/catalog/internal/normalize"
)

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func nilIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// uniqueSlug derives an event slug from its name and start date: the date
// suffix keeps recurring annual events (same name, different year) from
// colliding on the slug unique constraint.
func uniqueSlug(name string, startDate *time.Time) string {
	slug := normalize.Slug(name)
	if startDate == nil {
		return slug
	}
	return fmt.Sprintf("%s-%s", slug, startDate.Format("2006-01-02"))
}

func uniqueVenueSlug(name string, cityID *int32) string {
	slug := normalize.Slug(name)
	if cityID == nil {
		return slug
	}
	return fmt.Sprintf("%s-c%d", slug, *cityID)
}
