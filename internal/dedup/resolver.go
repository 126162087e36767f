// Package dedup implements the deduplication resolver: an ordered,
// read-only lookup cascade that maps a normalized candidate to a
// create/merge/review decision against the authoritative store.
package dedup

import (
	"context"
	"fmt"
	"time"

	"gnaoua.dev/catalog/internal/fingerprint"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionMerge  Action = "merge"
	ActionReview Action = "review"
)

type MatchType string

const (
	MatchExact        MatchType = "exact"
	MatchFuzzyName    MatchType = "fuzzy_name"
	MatchDateLocation MatchType = "date_location"
	MatchNone         MatchType = "none"
)

const (
	exactMergeConfidence     = 0.95
	fuzzyNameMergeThreshold  = 0.85
	dateLocationReviewThresh = 0.70
	createConfidence         = 1.0
)

// Candidate is the subset of a normalized candidate the resolver needs.
type Candidate struct {
	NormalizedName string
	StartDate      time.Time
	CityID         int32
	VenueName      *string
}

// Result is the resolver's decision, read-only: it performs no writes of
// its own, leaving all mutation to the merge & provenance writer.
type Result struct {
	Action         Action
	ExistingEventID int64
	Confidence     float64
	MatchType      MatchType
}

// EventLookup is the narrow read interface the resolver needs from the
// authoritative store: find events sharing a fingerprint, and load the
// comparison fields for a bucket of event ids, ordered by the tie-break
// rule (highest source reliability, then earliest created_at).
type EventLookup interface {
	EventsByFingerprint(ctx context.Context, kind fingerprint.Kind, hash string) ([]EventCandidate, error)
}

// EventCandidate is a potential match surfaced from a fingerprint bucket,
// pre-ordered by the tie-break rule. Name must already be normalize.Name-d
// by the EventLookup implementation; the resolver never normalizes on its
// own, to keep it a pure read-only consumer of already-canonical data.
type EventCandidate struct {
	EventID   int64
	Name      string
	StartDate time.Time
	CityID    int32
	VenueName *string
}

type Resolver struct {
	lookup EventLookup
}

func New(lookup EventLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve runs the ordered cascade: exact fingerprint, then
// fuzzy_name weighted similarity, then date_location Jaro-Winkler review
// gate, else create. The first bucket with any row at or above its
// threshold wins; an empty or all-below-threshold bucket falls through to
// the next signal.
func (r *Resolver) Resolve(ctx context.Context, candidate Candidate, fingerprints map[fingerprint.Kind]string) (Result, error) {
	if r == nil || r.lookup == nil {
		return Result{}, fmt.Errorf("resolver is not initialized")
	}

	if hash, ok := fingerprints[fingerprint.Exact]; ok {
		matches, err := r.lookup.EventsByFingerprint(ctx, fingerprint.Exact, hash)
		if err != nil {
			return Result{}, fmt.Errorf("lookup exact fingerprint: %w", err)
		}
		if len(matches) > 0 {
			return Result{
				Action:          ActionMerge,
				ExistingEventID: matches[0].EventID,
				Confidence:      exactMergeConfidence,
				MatchType:       MatchExact,
			}, nil
		}
	}

	if hash, ok := fingerprints[fingerprint.FuzzyName]; ok {
		matches, err := r.lookup.EventsByFingerprint(ctx, fingerprint.FuzzyName, hash)
		if err != nil {
			return Result{}, fmt.Errorf("lookup fuzzy_name fingerprint: %w", err)
		}
		if best, bestScore, ok := bestBySimilarity(matches, candidate); ok && bestScore >= fuzzyNameMergeThreshold {
			return Result{
				Action:          ActionMerge,
				ExistingEventID: best.EventID,
				Confidence:      bestScore,
				MatchType:       MatchFuzzyName,
			}, nil
		}
	}

	if hash, ok := fingerprints[fingerprint.DateLocation]; ok {
		matches, err := r.lookup.EventsByFingerprint(ctx, fingerprint.DateLocation, hash)
		if err != nil {
			return Result{}, fmt.Errorf("lookup date_location fingerprint: %w", err)
		}
		if best, bestScore, ok := bestByNameSimilarity(matches, candidate.NormalizedName); ok && bestScore >= dateLocationReviewThresh {
			return Result{
				Action:          ActionReview,
				ExistingEventID: best.EventID,
				Confidence:      bestScore,
				MatchType:       MatchDateLocation,
			}, nil
		}
	}

	return Result{
		Action:     ActionCreate,
		Confidence: createConfidence,
		MatchType:  MatchNone,
	}, nil
}

// bestBySimilarity picks the matches entry with the highest weighted
// similarity to candidate. matches is assumed pre-ordered by the tie-break
// rule, so the first maximum encountered during iteration is the correct
// winner on a similarity tie.
func bestBySimilarity(matches []EventCandidate, candidate Candidate) (EventCandidate, float64, bool) {
	var best EventCandidate
	bestScore := -1.0
	found := false

	for _, m := range matches {
		score := WeightedSimilarity(
			candidate.NormalizedName, candidate.StartDate, candidate.CityID, candidate.VenueName,
			m.Name, m.StartDate, m.CityID, m.VenueName,
		)
		if score > bestScore {
			best = m
			bestScore = score
			found = true
		}
	}

	return best, bestScore, found
}

func bestByNameSimilarity(matches []EventCandidate, normalizedName string) (EventCandidate, float64, bool) {
	var best EventCandidate
	bestScore := -1.0
	found := false

	for _, m := range matches {
		score := JaroWinkler(normalizedName, m.Name)
		if score > bestScore {
			best = m
			bestScore = score
			found = true
		}
	}

	return best, bestScore, found
}
