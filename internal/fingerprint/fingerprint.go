// Package fingerprint produces the four content-addressed lookup keys the
// deduplication resolver queries against the authoritative store.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"gnaoua.dev/catalog/internal/normalize"
)

type Kind string

const (
	Exact        Kind = "exact"
	FuzzyName    Kind = "fuzzy_name"
	DateLocation Kind = "date_location"
	WeekLocation Kind = "week_location"
)

// separator is a byte that cannot appear in any fingerprint component: all
// components are either normalized text (lowercase alphanumerics and single
// spaces only, by construction of normalize.Name) or decimal integers/dates.
const separator = "\x00"

// Input is the normalized, resolved shape a candidate or event must present
// for fingerprints to be computed from it.
type Input struct {
	NormalizedName string
	StartDate      *time.Time
	CityID         *int32
}

// Generate emits every fingerprint derivable from in. A fingerprint whose
// required component is missing (most commonly an unresolved city) is
// omitted rather than computed with a placeholder: missing
// components suppress fingerprints that require them.
func Generate(in Input) map[Kind]string {
	out := make(map[Kind]string, 4)

	hasName := in.NormalizedName != ""
	hasDate := in.StartDate != nil
	hasCity := in.CityID != nil

	dateStr := ""
	if hasDate {
		dateStr = in.StartDate.UTC().Format("2006-01-02")
	}
	cityStr := ""
	if hasCity {
		cityStr = strconv.Itoa(int(*in.CityID))
	}

	if hasName && hasDate && hasCity {
		out[Exact] = digest(in.NormalizedName, dateStr, cityStr)
		out[FuzzyName] = digest(normalize.FirstTokens(in.NormalizedName, 3), dateStr, cityStr)
	}
	if hasDate && hasCity {
		out[DateLocation] = digest(dateStr, cityStr)
		weekStart := normalize.ISOWeekStart(*in.StartDate).Format("2006-01-02")
		out[WeekLocation] = digest(weekStart, cityStr)
	}

	return out
}

// digest hashes the ⊕-joined components with SHA-256, hex-encoded to a
// uniform 64-character lookup key.
func digest(components ...string) string {
	sum := sha256.Sum256([]byte(join(components)))
	return hex.EncodeToString(sum[:])
}

func join(components []string) string {
	out := ""
	for i, c := range components {
		if i > 0 {
			out += separator
		}
		out += c
	}
	return out
}
