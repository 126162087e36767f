// Package source implements the uniform adapter contract over each
// source_type, and the registry of active sources adapters are fetched
// through.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RawRecord is one upstream record as an adapter's Fetch returns it, before
// normalization.
type RawRecord struct {
	ExternalID string
	SourceURL  string
	Payload    []byte
	FetchedAt  time.Time
}

// Candidate is an adapter's normalized view of a RawRecord, ahead of the
// text normalizer's canonicalization pass. Adapters must be idempotent: the
// same RawRecord fetched twice must normalize to an identical Candidate,
// modulo FetchedAt.
type Candidate struct {
	ExternalID string
	SourceURL  string
	RawPayload []byte

	Name            string
	EventType       string
	StartDate       string
	EndDate         string
	CityName        string
	VenueName       string
	OrganizerName   string
	Description     string
	OfficialWebsite string
	HasTickets      *bool
}

// Adapter is the two-operation contract every source_type implements.
type Adapter interface {
	SourceType() string
	DefaultReliability() float64
	Fetch(ctx context.Context, since time.Time) ([]RawRecord, error)
	Normalize(record RawRecord) (Candidate, error)
}

// Registered holds one active source alongside its adapter.
type Registered struct {
	SourceID      int64
	Name          string
	Adapter       Adapter
	Reliability   float64
	LastFetchedAt time.Time
}

// Registry holds the set of active sources with their adapters, keyed by
// source name, the way the teacher's translation registry resolves
// providers by name.
type Registry struct {
	sources map[string]*Registered
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*Registered)}
}

// Register adds or replaces an active source under its name.
func (r *Registry) Register(entry Registered) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if entry.Adapter == nil {
		return fmt.Errorf("adapter is nil")
	}
	name := normalizeSourceName(entry.Name)
	if name == "" {
		return fmt.Errorf("source name is required")
	}
	r.sources[name] = &entry
	return nil
}

// Get resolves an active source by name.
func (r *Registry) Get(name string) (*Registered, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	resolved, ok := r.sources[normalizeSourceName(name)]
	if !ok {
		return nil, fmt.Errorf("source %q is not registered (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return resolved, nil
}

// Active returns all registered sources, sorted by name for deterministic
// scheduling order.
func (r *Registry) Active() []*Registered {
	if r == nil {
		return nil
	}
	names := r.Names()
	out := make([]*Registered, 0, len(names))
	for _, name := range names {
		out = append(out, r.sources[name])
	}
	return out
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeSourceName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
