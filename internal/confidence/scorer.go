// Package confidence implements the per-event confidence recomputation:
// a weighted blend of source reliability, field
// completeness, cross-source agreement, recency, and historical accuracy.
package confidence

import (
	"context"
	"fmt"
	"time"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/globaltime"
)

const (
	weightReliability = 0.35
	weightCompleteness = 0.25
	weightAgreement    = 0.20
	weightRecency      = 0.10
	weightHistorical   = 0.10

	defaultReliability = 0.3
	defaultHistorical  = 0.5
	recencyWindowDays  = 90
)

// EventFields is the subset of an event's attributes the completeness term
// inspects.
type EventFields struct {
	Name            string
	StartDate       bool
	CityID          *int32
	Status          string
	EndDate         *time.Time
	VenueID         *int64
	Description     string
	OfficialWebsite string
}

// SourceSignal is one source linked to the event, carrying what the
// scorer needs from catalog.sources and catalog.event_sources.
type SourceSignal struct {
	ReliabilityScore    float64
	HistoricalAccuracy  *float64
	ReportedStartDate   *time.Time
	ReportedVenueName   *string
	IsPrimary           bool
}

// Scorer holds a database pool and has no methods of its own; RecomputeTx
// is what recomputes and writes back an event's confidence_score and
// last_verified_at.
type Scorer struct {
	pool *db.Pool
}

func NewScorer(pool *db.Pool) *Scorer {
	return &Scorer{pool: pool}
}

// Compute implements the scoring formula in isolation, given already
// loaded inputs; RecomputeTx below wires it to the database.
func Compute(fields EventFields, sources []SourceSignal, lastVerifiedAt time.Time, now time.Time) float64 {
	r := reliabilityScore(sources)
	c := completenessScore(fields)
	a := agreementScore(sources)
	t := recencyScore(lastVerifiedAt, now)
	h := historicalScore(sources)

	return weightReliability*r + weightCompleteness*c + weightAgreement*a + weightRecency*t + weightHistorical*h
}

func reliabilityScore(sources []SourceSignal) float64 {
	best := defaultReliability
	found := false
	for _, s := range sources {
		if !found || s.ReliabilityScore > best {
			best = s.ReliabilityScore
			found = true
		}
	}
	if !found {
		return defaultReliability
	}
	return best
}

func completenessScore(fields EventFields) float64 {
	const requiredTotal = 4.0
	requiredPresent := 0.0
	if fields.Name != "" {
		requiredPresent++
	}
	if fields.StartDate {
		requiredPresent++
	}
	if fields.CityID != nil {
		requiredPresent++
	}
	if fields.Status != "" {
		requiredPresent++
	}

	const optionalTotal = 4.0
	optionalPresent := 0.0
	if fields.EndDate != nil {
		optionalPresent++
	}
	if fields.VenueID != nil {
		optionalPresent++
	}
	if fields.Description != "" {
		optionalPresent++
	}
	if fields.OfficialWebsite != "" {
		optionalPresent++
	}

	return 0.7*(requiredPresent/requiredTotal) + 0.3*(optionalPresent/optionalTotal)
}

// agreementScore compares reported start_date and venue_name across
// sources: for each of start date and venue name, it compares the
// value reported by each source, scoring 1 per attribute if all sources agree,
// 0 otherwise; averaged over attributes where at least two sources carry a
// value. 0.5 when only one source exists.
func agreementScore(sources []SourceSignal) float64 {
	if len(sources) <= 1 {
		return 0.5
	}

	scores := make([]float64, 0, 2)

	if score, counted := dateAgreement(sources); counted {
		scores = append(scores, score)
	}
	if score, counted := venueAgreement(sources); counted {
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		return 0.5
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func dateAgreement(sources []SourceSignal) (float64, bool) {
	var first *time.Time
	count := 0
	agree := true
	for _, s := range sources {
		if s.ReportedStartDate == nil {
			continue
		}
		count++
		if first == nil {
			first = s.ReportedStartDate
			continue
		}
		if !first.Equal(*s.ReportedStartDate) {
			agree = false
		}
	}
	if count < 2 {
		return 0, false
	}
	if agree {
		return 1, true
	}
	return 0, true
}

func venueAgreement(sources []SourceSignal) (float64, bool) {
	var first *string
	count := 0
	agree := true
	for _, s := range sources {
		if s.ReportedVenueName == nil {
			continue
		}
		count++
		if first == nil {
			first = s.ReportedVenueName
			continue
		}
		if *first != *s.ReportedVenueName {
			agree = false
		}
	}
	if count < 2 {
		return 0, false
	}
	if agree {
		return 1, true
	}
	return 0, true
}

func recencyScore(lastVerifiedAt, now time.Time) float64 {
	days := now.Sub(lastVerifiedAt).Hours() / 24
	score := 1 - days/recencyWindowDays
	if score < 0 {
		return 0
	}
	return score
}

func historicalScore(sources []SourceSignal) float64 {
	for _, s := range sources {
		if s.IsPrimary {
			if s.HistoricalAccuracy != nil {
				return *s.HistoricalAccuracy
			}
			return defaultHistorical
		}
	}
	return defaultHistorical
}

// RecomputeTx reads event fields and linked sources inside the caller's
// transaction and writes back confidence_score/last_verified_at.
func RecomputeTx(ctx context.Context, tx db.Tx, eventID int64) error {
	const eventQ = `
SELECT name, start_date, city_id, status, end_date, venue_id, description, official_website, last_verified_at
FROM catalog.events
WHERE event_id = $1
`
	var (
		fields         EventFields
		startDate      time.Time
		lastVerifiedAt time.Time
	)
	err := tx.QueryRow(ctx, eventQ, eventID).Scan(
		&fields.Name, &startDate, &fields.CityID, &fields.Status, &fields.EndDate,
		&fields.VenueID, &fields.Description, &fields.OfficialWebsite, &lastVerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("load event %d for confidence recompute: %w", eventID, err)
	}
	fields.StartDate = !startDate.IsZero()

	const sourcesQ = `
SELECT s.reliability_score, s.historical_accuracy, es.reported_start_date, es.reported_venue_name,
	es.event_source_id = (
		SELECT es2.event_source_id FROM catalog.event_sources es2
		WHERE es2.event_id = $1
		ORDER BY es2.created_at ASC
		LIMIT 1
	)
FROM catalog.event_sources es
JOIN catalog.sources s ON s.source_id = es.source_id
WHERE es.event_id = $1
`
	rows, err := tx.Query(ctx, sourcesQ, eventID)
	if err != nil {
		return fmt.Errorf("load sources for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var sources []SourceSignal
	for rows.Next() {
		var s SourceSignal
		if err := rows.Scan(&s.ReliabilityScore, &s.HistoricalAccuracy, &s.ReportedStartDate, &s.ReportedVenueName, &s.IsPrimary); err != nil {
			return fmt.Errorf("scan source signal for event %d: %w", eventID, err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sources for event %d: %w", eventID, err)
	}

	now := globaltime.UTC()
	score := Compute(fields, sources, lastVerifiedAt, now)

	const updateQ = `UPDATE catalog.events SET confidence_score = $2, last_verified_at = $3, updated_at = $3 WHERE event_id = $1`
	if _, err := tx.Exec(ctx, updateQ, eventID, score, now); err != nil {
		return fmt.Errorf("write confidence score for event %d: %w", eventID, err)
	}
	return nil
}
