package dedup

import (
	"context"
	"fmt"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/fingerprint"
	"gnaoua.dev/catalog/internal/normalize"
)

// DBLookup is the db.Pool/db.Tx-backed EventLookup used in production. It is
// read-only: the resolver never writes, it only reads candidate matches —
// grounded on the teacher's pattern of issuing raw SQL directly
// through the Tx interface rather than GORM's query builder.
type DBLookup struct {
	q interface {
		Query(ctx context.Context, query string, args ...any) (*db.Rows, error)
	}
}

func NewDBLookup(tx interface {
	Query(ctx context.Context, query string, args ...any) (*db.Rows, error)
}) *DBLookup {
	return &DBLookup{q: tx}
}

const eventsByFingerprintQuery = `
SELECT
	e.event_id,
	e.name,
	e.start_date,
	e.city_id,
	v.name
FROM catalog.fingerprints fp
JOIN catalog.events e ON e.event_id = fp.event_id
LEFT JOIN catalog.venues v ON v.venue_id = e.venue_id
LEFT JOIN catalog.event_sources es ON es.event_id = e.event_id
LEFT JOIN catalog.sources s ON s.source_id = es.source_id
WHERE fp.kind = $1 AND fp.hash = $2 AND e.status != 'archived'
GROUP BY e.event_id, e.name, e.start_date, e.city_id, v.name, e.created_at
ORDER BY COALESCE(MAX(s.reliability_score), 0.3) DESC, e.created_at ASC
`

func (l *DBLookup) EventsByFingerprint(ctx context.Context, kind fingerprint.Kind, hash string) ([]EventCandidate, error) {
	if l == nil || l.q == nil {
		return nil, fmt.Errorf("dedup store is not initialized")
	}

	rows, err := l.q.Query(ctx, eventsByFingerprintQuery, string(kind), hash)
	if err != nil {
		return nil, fmt.Errorf("query events by fingerprint: %w", err)
	}
	defer rows.Close()

	var out []EventCandidate
	for rows.Next() {
		var (
			c         EventCandidate
			rawName   string
			venueName *string
		)
		if err := rows.Scan(&c.EventID, &rawName, &c.StartDate, &c.CityID, &venueName); err != nil {
			return nil, fmt.Errorf("scan event candidate: %w", err)
		}
		c.Name = normalize.Name(rawName)
		c.VenueName = venueName
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event candidates: %w", err)
	}
	return out, nil
}
