// Package orchestrator drives a full ingestion run: bounded-parallel
// fetch across active sources, then sequential normalize/resolve/apply per
// fetched record, aggregating into a per-source report.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gnaoua.dev/catalog/internal/candidate"
	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/dedup"
	"gnaoua.dev/catalog/internal/errorkind"
	"gnaoua.dev/catalog/internal/fingerprint"
	"gnaoua.dev/catalog/internal/globaltime"
	"gnaoua.dev/catalog/internal/merge"
	"gnaoua.dev/catalog/internal/normalize"
	"gnaoua.dev/catalog/internal/source"
)

// Orchestrator owns the active source registry and the components a run
// wires together; it performs no normalization or dedup logic itself.
type Orchestrator struct {
	pool       *db.Pool
	registry   *source.Registry
	candidates *candidate.Store
	writer     *merge.Writer
	cities     CityLister

	maxFetchConcurrency int
}

func New(pool *db.Pool, registry *source.Registry, candidates *candidate.Store, writer *merge.Writer, cities CityLister, maxFetchConcurrency int) *Orchestrator {
	if maxFetchConcurrency < 1 {
		maxFetchConcurrency = 1
	}
	return &Orchestrator{
		pool:                pool,
		registry:            registry,
		candidates:          candidates,
		writer:              writer,
		cities:              cities,
		maxFetchConcurrency: maxFetchConcurrency,
	}
}

type fetchOutcome struct {
	source  *source.Registered
	records []source.RawRecord
	err     error
}

// Run drives one full ingestion pass over every active source.
func (o *Orchestrator) Run(ctx context.Context) (*IngestionReport, error) {
	if o == nil || o.pool == nil || o.registry == nil || o.candidates == nil || o.writer == nil {
		return nil, fmt.Errorf("orchestrator is not initialized")
	}

	active := o.registry.Active()
	if len(active) == 0 {
		return &IngestionReport{}, nil
	}

	cityCandidates, err := o.cities.ListCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cities for run: %w", err)
	}

	fetchStarted := globaltime.UTC()
	outcomes := o.fetchAll(ctx, active)

	report := &IngestionReport{Sources: make([]SourceReport, 0, len(active))}
	for _, fo := range outcomes {
		sr := o.processSource(ctx, fo, cityCandidates)
		report.Sources = append(report.Sources, sr)

		if sr.CursorAdvanced {
			if err := o.updateLastFetchAtTx(ctx, fo.source.SourceID, fetchStarted); err != nil {
				sr.FetchErr = err
			}
		}
	}

	return report, nil
}

// fetchAll runs each source's Fetch concurrently, capped at
// maxFetchConcurrency so a slow or hung source can't starve the others.
// A fetch that fails with a retriable error is tried up to three times in
// all, waiting 1s and then 2s between attempts.
func (o *Orchestrator) fetchAll(ctx context.Context, active []*source.Registered) []fetchOutcome {
	const maxFetchAttempts = 3
	outcomes := make([]fetchOutcome, len(active))
	sem := make(chan struct{}, o.maxFetchConcurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i, reg := range active {
		i, reg := i, reg
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := reg.Adapter.Fetch(gctx, reg.LastFetchedAt)
			backoff := time.Second
			for attempt := 1; attempt < maxFetchAttempts && errorkind.Retriable(err); attempt++ {
				select {
				case <-gctx.Done():
				case <-time.After(backoff):
				}
				if gctx.Err() != nil {
					break
				}
				backoff *= 2
				records, err = reg.Adapter.Fetch(gctx, reg.LastFetchedAt)
			}
			outcomes[i] = fetchOutcome{source: reg, records: records, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// processSource normalizes, resolves, and applies every record an already
// completed fetch produced. A record-level failure is recorded and does not
// abort the source.
func (o *Orchestrator) processSource(ctx context.Context, fo fetchOutcome, cities []normalize.CityCandidate) SourceReport {
	reg := fo.source
	report := SourceReport{SourceName: reg.Name}

	if fo.err != nil {
		report.FetchErr = fo.err
		report.CursorAdvanced = errorkind.AdvancesCursor(fo.err)
		return report
	}
	report.Fetched = len(fo.records)

	lookup := dedup.NewDBLookup(o.pool)
	resolver := dedup.New(lookup)

	for _, rec := range fo.records {
		if err := o.processRecord(ctx, reg, rec, cities, resolver, &report); err != nil {
			report.Errors = append(report.Errors, RecordError{
				SourceName: reg.Name,
				ExternalID: rec.ExternalID,
				Kind:       errorkind.KindOf(err),
				Err:        err,
			})
		}
	}

	report.CursorAdvanced = true
	return report
}

func (o *Orchestrator) processRecord(ctx context.Context, reg *source.Registered, rec source.RawRecord, cities []normalize.CityCandidate, resolver *dedup.Resolver, report *SourceReport) error {
	sc, err := reg.Adapter.Normalize(rec)
	if err != nil {
		return errorkind.New(errorkind.ParseError, fmt.Errorf("normalize record %s: %w", rec.ExternalID, err))
	}

	cand, err := toCandidate(reg.SourceID, rec, sc)
	if err != nil {
		return errorkind.New(errorkind.ValidationError, err)
	}

	var cityID *int32
	if trimmed := strings.TrimSpace(sc.CityName); trimmed != "" {
		if match, ok := normalize.MatchCity(normalize.Name(trimmed), cities); ok {
			id := match.CityID
			cityID = &id
		}
	}
	cand.CityID = cityID

	candidateID, err := o.candidates.Insert(ctx, cand)
	if err != nil {
		return errorkind.New(errorkind.DatabaseError, fmt.Errorf("insert candidate %s: %w", rec.ExternalID, err))
	}
	cand.CandidateID = candidateID

	if cityID == nil {
		// Retained with null city and not resolved (events.city_id is NOT
		// NULL): the candidate stays unprocessed and without fingerprints.
		// No later run re-resolves it; the gc command deletes it once it is
		// older than the candidate retention window.
		return errorkind.New(errorkind.UnknownCity, fmt.Errorf("candidate %d: city %q did not resolve", candidateID, sc.CityName))
	}

	fingerprints := fingerprint.Generate(fingerprint.Input{
		NormalizedName: cand.NormalizedName,
		StartDate:      cand.StartDate,
		CityID:         cand.CityID,
	})

	result, err := resolver.Resolve(ctx, dedup.Candidate{
		NormalizedName: cand.NormalizedName,
		StartDate:      *cand.StartDate,
		CityID:         *cand.CityID,
		VenueName:      cand.VenueName,
	}, fingerprints)
	if err != nil {
		return errorkind.New(errorkind.DatabaseError, fmt.Errorf("resolve candidate %d: %w", candidateID, err))
	}

	outcome, err := o.writer.Apply(ctx, cand, result, fingerprints, merge.SourceMeta{SourceID: reg.SourceID, Reliability: reg.Reliability})
	if err != nil {
		return errorkind.New(errorkind.DatabaseError, fmt.Errorf("apply merge decision for candidate %d: %w", candidateID, err))
	}

	switch outcome.Action {
	case dedup.ActionCreate:
		report.Created++
	case dedup.ActionMerge:
		report.Merged++
	case dedup.ActionReview:
		report.ReviewNeeded++
	}

	return nil
}

// toCandidate builds a staged candidate.Candidate from an adapter's
// source.Candidate, applying the text normalizer and date parser ahead of
// storage: adapters never normalize, the
// orchestrator does it once on the way into the candidate store.
func toCandidate(sourceID int64, rec source.RawRecord, sc source.Candidate) (candidate.Candidate, error) {
	name := strings.TrimSpace(sc.Name)
	if name == "" {
		return candidate.Candidate{}, fmt.Errorf("record %s has no name", rec.ExternalID)
	}

	var startDate *time.Time
	if trimmed := strings.TrimSpace(sc.StartDate); trimmed != "" {
		parsed, err := normalize.ParseDate(trimmed)
		if err != nil {
			return candidate.Candidate{}, fmt.Errorf("record %s start_date: %w", rec.ExternalID, err)
		}
		startDate = &parsed
	}

	var endDate *time.Time
	if trimmed := strings.TrimSpace(sc.EndDate); trimmed != "" {
		parsed, err := normalize.ParseDate(trimmed)
		if err != nil {
			return candidate.Candidate{}, fmt.Errorf("record %s end_date: %w", rec.ExternalID, err)
		}
		endDate = &parsed
	}

	var sourceURL *string
	if u := strings.TrimSpace(sc.SourceURL); u != "" {
		sourceURL = &u
	}

	return candidate.Candidate{
		SourceID:   sourceID,
		ExternalID: rec.ExternalID,
		SourceURL:  sourceURL,
		RawPayload: rec.Payload,

		RawName:            name,
		RawEventType:       ptrOrNil(sc.EventType),
		RawStartDate:       ptrOrNil(sc.StartDate),
		RawEndDate:         ptrOrNil(sc.EndDate),
		RawCityName:        ptrOrNil(sc.CityName),
		RawVenueName:       ptrOrNil(sc.VenueName),
		RawOrganizerName:   ptrOrNil(sc.OrganizerName),
		RawDescription:     ptrOrNil(sc.Description),
		RawOfficialWebsite: ptrOrNil(sc.OfficialWebsite),
		RawHasTickets:      sc.HasTickets,

		NormalizedName: normalize.Name(name),
		EventType:      strings.TrimSpace(sc.EventType),
		StartDate:      startDate,
		EndDate:        endDate,
		VenueName:      ptrOrNil(sc.VenueName),
	}, nil
}

func ptrOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func (o *Orchestrator) updateLastFetchAtTx(ctx context.Context, sourceID int64, fetchedAt time.Time) error {
	const q = `UPDATE catalog.sources SET last_fetch_at = $2, updated_at = $2 WHERE source_id = $1`
	if _, err := o.pool.Exec(ctx, q, sourceID, fetchedAt); err != nil {
		return fmt.Errorf("update last_fetch_at for source %d: %w", sourceID, err)
	}
	return nil
}
