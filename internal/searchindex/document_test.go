package searchindex

import (
	"testing"
	"time"
)

func TestTransformDerivesYearMonthAndUnixSeconds(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 29, 0, 0, 0, 0, time.UTC)
	row := &eventProjectionRow{
		EventID:    42,
		Name:       "Gnaoua Festival",
		Slug:       "gnaoua-festival-2025-06-26",
		EventType:  "festival",
		StartDate:  start,
		EndDate:    &end,
		CityID:     1,
		RegionID:   2,
		CityName:   "Essaouira",
		RegionName: "Marrakech-Safi",
		CitySlug:   "essaouira",
		RegionSlug: "marrakech-safi",
		Status:     "confirmed",
		UpdatedAt:  start,
	}

	doc := transform(row)

	if doc.ID != "42" {
		t.Fatalf("ID = %q, want 42", doc.ID)
	}
	if doc.Year != 2025 || doc.Month != 6 {
		t.Fatalf("Year/Month = %d/%d, want 2025/6", doc.Year, doc.Month)
	}
	if doc.StartDate != start.Unix() {
		t.Fatalf("StartDate = %d, want %d", doc.StartDate, start.Unix())
	}
	if doc.EndDate == nil || *doc.EndDate != end.Unix() {
		t.Fatalf("EndDate = %v, want %d", doc.EndDate, end.Unix())
	}
	if len(doc.Genres) != 0 || doc.Genres == nil {
		t.Fatalf("Genres = %v, want non-nil empty slice", doc.Genres)
	}
}

func TestTransformOmitsGeoLocationWithoutBothCoordinates(t *testing.T) {
	t.Parallel()
	lat := 31.5
	row := &eventProjectionRow{StartDate: time.Now().UTC(), UpdatedAt: time.Now().UTC(), Latitude: &lat}
	doc := transform(row)
	if doc.GeoLocation != nil {
		t.Fatalf("GeoLocation = %v, want nil when longitude is missing", doc.GeoLocation)
	}
}

func TestIsIndexableStatus(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"announced", "confirmed"} {
		if !isIndexableStatus(s) {
			t.Fatalf("status %q should be indexable", s)
		}
	}
	for _, s := range []string{"cancelled", "postponed", "archived"} {
		if isIndexableStatus(s) {
			t.Fatalf("status %q should not be indexable", s)
		}
	}
}
