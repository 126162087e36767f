package searchindex

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
)

func ptrBool(b bool) *bool       { return &b }
func ptrString(s string) *string { return &s }

// collectionSchema builds the fixed search-document schema: facet
// and infix flags are set per field exactly as the external-interface table
// specifies, with start_date as the default sort.
func collectionSchema(name string) *api.CollectionSchema {
	stringField := func(fieldName string, facet, optional, infix, index bool) api.Field {
		f := api.Field{
			Name:     fieldName,
			Type:     "string",
			Facet:    ptrBool(facet),
			Optional: ptrBool(optional),
			Index:    ptrBool(index),
		}
		if infix {
			f.Infix = ptrBool(true)
		}
		return f
	}

	fields := []api.Field{
		stringField("id", false, false, false, true),
		stringField("name", false, false, true, true),
		stringField("slug", false, false, false, false),
		stringField("event_type", true, false, false, true),
		stringField("description", false, true, false, true),
		{Name: "start_date", Type: "int64", Facet: ptrBool(true)},
		{Name: "end_date", Type: "int64", Optional: ptrBool(true)},
		{Name: "year", Type: "int32", Facet: ptrBool(true)},
		{Name: "month", Type: "int32", Facet: ptrBool(true)},
		{Name: "city_id", Type: "int32", Facet: ptrBool(true)},
		{Name: "region_id", Type: "int32", Facet: ptrBool(true)},
		stringField("city_name", true, false, false, true),
		stringField("region_name", true, false, false, true),
		stringField("city_slug", false, false, false, false),
		stringField("region_slug", false, false, false, false),
		stringField("venue_name", false, true, false, true),
		stringField("venue_slug", false, true, false, false),
		{Name: "geo_location", Type: "geopoint", Optional: ptrBool(true)},
		{Name: "genres", Type: "string[]", Facet: ptrBool(true)},
		{Name: "genre_slugs", Type: "string[]", Facet: ptrBool(true)},
		{Name: "artists", Type: "string[]", Infix: ptrBool(true)},
		{Name: "artist_slugs", Type: "string[]", Index: ptrBool(false)},
		stringField("organizer_name", false, true, false, true),
		stringField("official_website", false, true, false, false),
		stringField("status", true, false, false, true),
		{Name: "confidence_score", Type: "float"},
		{Name: "is_verified", Type: "bool", Facet: ptrBool(true)},
		{Name: "is_pinned", Type: "bool"},
		{Name: "cultural_significance", Type: "int32"},
		{Name: "has_tickets", Type: "bool", Facet: ptrBool(true)},
		{Name: "updated_at", Type: "int64"},
	}

	return &api.CollectionSchema{
		Name:                name,
		Fields:              fields,
		DefaultSortingField: ptrString("start_date"),
		TokenSeparators:     &[]string{"-", "_"},
	}
}

// EnsureSchema creates the collection with the declared schema if it does
// not already exist. An existing collection is left untouched: schema changes go
// through full_rebuild, not an in-place alter.
func (s *Synchronizer) EnsureSchema(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("searchindex: synchronizer is not initialized")
	}

	_, err := s.client.Collection(s.collectionName).Retrieve(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("retrieve collection %q: %w", s.collectionName, err)
	}

	if _, err := s.client.Collections().Create(ctx, collectionSchema(s.collectionName)); err != nil {
		return fmt.Errorf("create collection %q: %w", s.collectionName, err)
	}
	return nil
}

// isNotFound reports whether err is typesense's 404 for a missing
// collection/document, the case both EnsureSchema and the idempotent delete
// operations need to treat as success rather than failure.
func isNotFound(err error) bool {
	var apiErr *typesense.HTTPError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}
