package source

import (
	"context"
	"testing"
	"time"
)

type stubAdapter struct{ sourceType string }

func (s *stubAdapter) SourceType() string                                     { return s.sourceType }
func (s *stubAdapter) DefaultReliability() float64                            { return 0.5 }
func (s *stubAdapter) Fetch(context.Context, time.Time) ([]RawRecord, error)  { return nil, nil }
func (s *stubAdapter) Normalize(RawRecord) (Candidate, error)                 { return Candidate{}, nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(Registered{Name: "Festival API", Adapter: &stubAdapter{sourceType: "api"}, Reliability: 0.8}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := r.Get("festival api")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Adapter.SourceType() != "api" {
		t.Fatalf("Get() adapter type = %q, want api", got.Adapter.SourceType())
	}
}

func TestRegistryGetUnknownSource(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if _, err := r.Get("nope"); err == nil {
		t.Fatalf("Get(unknown) expected error, got nil")
	}
}

func TestRegistryActiveIsSortedByName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_ = r.Register(Registered{Name: "zeta", Adapter: &stubAdapter{sourceType: "api"}})
	_ = r.Register(Registered{Name: "alpha", Adapter: &stubAdapter{sourceType: "api"}})

	active := r.Active()
	if len(active) != 2 || active[0].Name != "alpha" || active[1].Name != "zeta" {
		t.Fatalf("Active() = %+v, want sorted [alpha, zeta]", active)
	}
}
