package searchindex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gnaoua.dev/catalog/internal/db"
)

// indexableStatuses are the event statuses the projection carries: only
// announced and confirmed events are searchable.
var indexableStatuses = map[string]bool{
	"announced": true,
	"confirmed": true,
}

// Document is the fixed search-document shape, with date-like
// fields as 64-bit Unix seconds.
type Document struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	EventType   string  `json:"event_type"`
	Description string  `json:"description,omitempty"`
	StartDate   int64   `json:"start_date"`
	EndDate     *int64  `json:"end_date,omitempty"`
	Year        int32   `json:"year"`
	Month       int32   `json:"month"`

	CityID     int32  `json:"city_id"`
	RegionID   int32  `json:"region_id"`
	CityName   string `json:"city_name"`
	RegionName string `json:"region_name"`
	CitySlug   string `json:"city_slug"`
	RegionSlug string `json:"region_slug"`

	VenueName string `json:"venue_name,omitempty"`
	VenueSlug string `json:"venue_slug,omitempty"`

	GeoLocation []float64 `json:"geo_location,omitempty"`

	Genres      []string `json:"genres"`
	GenreSlugs  []string `json:"genre_slugs"`
	Artists     []string `json:"artists"`
	ArtistSlugs []string `json:"artist_slugs"`

	OrganizerName   string `json:"organizer_name,omitempty"`
	OfficialWebsite string `json:"official_website,omitempty"`

	Status               string  `json:"status"`
	ConfidenceScore      float64 `json:"confidence_score"`
	IsVerified           bool    `json:"is_verified"`
	IsPinned             bool    `json:"is_pinned"`
	CulturalSignificance int32   `json:"cultural_significance"`
	HasTickets           bool    `json:"has_tickets"`
	UpdatedAt            int64   `json:"updated_at"`
}

// eventProjectionRow is what loadEventProjection scans out of the
// authoritative store before transform() derives the search document.
type eventProjectionRow struct {
	EventID              int64
	Name                 string
	Slug                 string
	EventType            string
	Description          *string
	StartDate            time.Time
	EndDate              *time.Time
	CityID               int32
	RegionID             int32
	CityName             string
	RegionName           string
	CitySlug             string
	RegionSlug           string
	VenueName            *string
	VenueSlug            *string
	Latitude             *float64
	Longitude            *float64
	OrganizerName        *string
	OfficialWebsite      *string
	Status               string
	ConfidenceScore      float64
	IsVerified           bool
	IsPinned             bool
	CulturalSignificance int16
	HasTickets           bool
	UpdatedAt            time.Time
	Genres               []string
	GenreSlugs           []string
	Artists              []string
	ArtistSlugs          []string
}

const eventProjectionQuery = `
SELECT
	e.event_id, e.name, e.slug, e.event_type, e.description, e.start_date, e.end_date,
	e.city_id, e.region_id, c.name, r.name, c.slug, r.slug,
	v.name, v.slug, c.latitude, c.longitude,
	o.name, e.official_website,
	e.status, e.confidence_score, e.is_verified, e.is_pinned, e.cultural_significance, e.has_tickets, e.updated_at,
	COALESCE(array_agg(DISTINCT g.name) FILTER (WHERE g.name IS NOT NULL), '{}'),
	COALESCE(array_agg(DISTINCT g.slug) FILTER (WHERE g.slug IS NOT NULL), '{}'),
	COALESCE(array_agg(DISTINCT a.name) FILTER (WHERE a.name IS NOT NULL), '{}'),
	COALESCE(array_agg(DISTINCT a.slug) FILTER (WHERE a.slug IS NOT NULL), '{}')
FROM catalog.events e
JOIN catalog.cities c ON c.city_id = e.city_id
JOIN catalog.regions r ON r.region_id = e.region_id
LEFT JOIN catalog.venues v ON v.venue_id = e.venue_id
LEFT JOIN catalog.organizers o ON o.organizer_id = e.organizer_id
LEFT JOIN catalog.event_genres eg ON eg.event_id = e.event_id
LEFT JOIN catalog.genres g ON g.genre_id = eg.genre_id
LEFT JOIN catalog.event_artists ea ON ea.event_id = e.event_id
LEFT JOIN catalog.artists a ON a.artist_id = ea.artist_id
WHERE e.event_id = $1
GROUP BY e.event_id, c.name, r.name, c.slug, r.slug, v.name, v.slug, c.latitude, c.longitude, o.name
`

// loadEventProjection loads one event with its joined reference data, or
// (nil, nil) if the event does not exist.
func loadEventProjection(ctx context.Context, pool *db.Pool, eventID int64) (*eventProjectionRow, error) {
	var row eventProjectionRow
	err := pool.QueryRow(ctx, eventProjectionQuery, eventID).Scan(
		&row.EventID, &row.Name, &row.Slug, &row.EventType, &row.Description, &row.StartDate, &row.EndDate,
		&row.CityID, &row.RegionID, &row.CityName, &row.RegionName, &row.CitySlug, &row.RegionSlug,
		&row.VenueName, &row.VenueSlug, &row.Latitude, &row.Longitude,
		&row.OrganizerName, &row.OfficialWebsite,
		&row.Status, &row.ConfidenceScore, &row.IsVerified, &row.IsPinned, &row.CulturalSignificance, &row.HasTickets, &row.UpdatedAt,
		&row.Genres, &row.GenreSlugs, &row.Artists, &row.ArtistSlugs,
	)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load event projection for event %d: %w", eventID, err)
	}
	return &row, nil
}

// transform derives the denormalized search document: year/month
// from start_date, dates as Unix seconds.
func transform(row *eventProjectionRow) Document {
	start := row.StartDate.UTC()

	doc := Document{
		ID:        strconv.FormatInt(row.EventID, 10),
		Name:      row.Name,
		Slug:      row.Slug,
		EventType: row.EventType,
		StartDate: start.Unix(),
		Year:      int32(start.Year()),
		Month:     int32(start.Month()),

		CityID:     row.CityID,
		RegionID:   row.RegionID,
		CityName:   row.CityName,
		RegionName: row.RegionName,
		CitySlug:   row.CitySlug,
		RegionSlug: row.RegionSlug,

		Genres:      orEmpty(row.Genres),
		GenreSlugs:  orEmpty(row.GenreSlugs),
		Artists:     orEmpty(row.Artists),
		ArtistSlugs: orEmpty(row.ArtistSlugs),

		Status:               row.Status,
		ConfidenceScore:      row.ConfidenceScore,
		IsVerified:           row.IsVerified,
		IsPinned:             row.IsPinned,
		CulturalSignificance: int32(row.CulturalSignificance),
		HasTickets:           row.HasTickets,
		UpdatedAt:            row.UpdatedAt.UTC().Unix(),
	}

	if row.Description != nil {
		doc.Description = *row.Description
	}
	if row.EndDate != nil {
		end := row.EndDate.UTC().Unix()
		doc.EndDate = &end
	}
	if row.VenueName != nil {
		doc.VenueName = *row.VenueName
	}
	if row.VenueSlug != nil {
		doc.VenueSlug = *row.VenueSlug
	}
	if row.Latitude != nil && row.Longitude != nil {
		doc.GeoLocation = []float64{*row.Latitude, *row.Longitude}
	}
	if row.OrganizerName != nil {
		doc.OrganizerName = *row.OrganizerName
	}
	if row.OfficialWebsite != nil {
		doc.OfficialWebsite = *row.OfficialWebsite
	}

	return doc
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isIndexableStatus(status string) bool {
	return indexableStatuses[status]
}
