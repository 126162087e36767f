package orchestrator

import (
	"context"
	"fmt"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/normalize"
)

// CityLister loads the canonical city set MatchCity fuzzy-resolves candidate
// city names against. Pulled fresh per run rather than cached indefinitely,
// so a newly added city is picked up without a restart.
type CityLister interface {
	ListCities(ctx context.Context) ([]normalize.CityCandidate, error)
}

type dbCityLister struct {
	pool *db.Pool
}

func NewDBCityLister(pool *db.Pool) CityLister {
	return &dbCityLister{pool: pool}
}

func (l *dbCityLister) ListCities(ctx context.Context) ([]normalize.CityCandidate, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("city lister is not initialized")
	}

	rows, err := l.pool.Query(ctx, `SELECT city_id, normalized_name FROM catalog.cities`)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	var out []normalize.CityCandidate
	for rows.Next() {
		var c normalize.CityCandidate
		if err := rows.Scan(&c.CityID, &c.NormalizedName); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
