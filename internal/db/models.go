package db

import (
	"encoding/json"
	"time"
)

// Region maps catalog.regions.
type Region struct {
	RegionID       int32     `gorm:"column:region_id;primaryKey;autoIncrement"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null;unique"`
	Slug           string    `gorm:"column:slug;type:text;not null;unique"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Region) TableName() string { return "catalog.regions" }

// City maps catalog.cities.
type City struct {
	CityID         int32     `gorm:"column:city_id;primaryKey;autoIncrement"`
	RegionID       int32     `gorm:"column:region_id;type:integer;not null"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null"`
	Slug           string    `gorm:"column:slug;type:text;not null;unique"`
	Latitude       *float64  `gorm:"column:latitude;type:double precision"`
	Longitude      *float64  `gorm:"column:longitude;type:double precision"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (City) TableName() string { return "catalog.cities" }

// Venue maps catalog.venues.
type Venue struct {
	VenueID        int64     `gorm:"column:venue_id;primaryKey;autoIncrement"`
	CityID         *int32    `gorm:"column:city_id;type:integer"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null"`
	Slug           string    `gorm:"column:slug;type:text;not null;unique"`
	Address        *string   `gorm:"column:address;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Venue) TableName() string { return "catalog.venues" }

// Organizer maps catalog.organizers.
type Organizer struct {
	OrganizerID    int64     `gorm:"column:organizer_id;primaryKey;autoIncrement"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Organizer) TableName() string { return "catalog.organizers" }

// Genre maps catalog.genres.
type Genre struct {
	GenreID   int32     `gorm:"column:genre_id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null;unique"`
	Slug      string    `gorm:"column:slug;type:text;not null;unique"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Genre) TableName() string { return "catalog.genres" }

// Artist maps catalog.artists.
type Artist struct {
	ArtistID  int64     `gorm:"column:artist_id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Slug      string    `gorm:"column:slug;type:text;not null;unique"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Artist) TableName() string { return "catalog.artists" }

// Source maps catalog.sources.
type Source struct {
	SourceID           int64      `gorm:"column:source_id;primaryKey;autoIncrement"`
	Name               string     `gorm:"column:name;type:text;not null;unique"`
	SourceType         string     `gorm:"column:source_type;type:catalog.source_type;not null"`
	ReliabilityScore   float64    `gorm:"column:reliability_score;type:double precision;not null"`
	HistoricalAccuracy *float64   `gorm:"column:historical_accuracy;type:double precision"`
	IsActive           bool       `gorm:"column:is_active;type:boolean;not null;default:true"`
	LastFetchAt        *time.Time `gorm:"column:last_fetch_at;type:timestamptz"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "catalog.sources" }

// Event maps catalog.events.
type Event struct {
	EventID              int64      `gorm:"column:event_id;primaryKey;autoIncrement"`
	Slug                 string     `gorm:"column:slug;type:text;not null;unique"`
	Name                 string     `gorm:"column:name;type:text;not null"`
	EventType            string     `gorm:"column:event_type;type:catalog.event_type;not null"`
	Description          *string    `gorm:"column:description;type:text"`
	StartDate            time.Time  `gorm:"column:start_date;type:date;not null"`
	EndDate              *time.Time `gorm:"column:end_date;type:date"`
	CityID               int32      `gorm:"column:city_id;type:integer;not null"`
	RegionID             int32      `gorm:"column:region_id;type:integer;not null"`
	VenueID              *int64     `gorm:"column:venue_id;type:bigint"`
	OrganizerID          *int64     `gorm:"column:organizer_id;type:bigint"`
	OfficialWebsite      *string    `gorm:"column:official_website;type:text"`
	HasTickets           bool       `gorm:"column:has_tickets;type:boolean;not null;default:false"`
	Status               string     `gorm:"column:status;type:catalog.event_status;not null;default:announced"`
	IsVerified           bool       `gorm:"column:is_verified;type:boolean;not null;default:false"`
	IsPinned             bool       `gorm:"column:is_pinned;type:boolean;not null;default:false"`
	CulturalSignificance int16      `gorm:"column:cultural_significance;type:smallint;not null;default:0"`
	ConfidenceScore      float64    `gorm:"column:confidence_score;type:double precision;not null;default:0"`
	CreatedAt            time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
	LastVerifiedAt       *time.Time `gorm:"column:last_verified_at;type:timestamptz"`
}

func (Event) TableName() string { return "catalog.events" }

// EventSource maps catalog.event_sources, the provenance linkage.
type EventSource struct {
	EventSourceID int64           `gorm:"column:event_source_id;primaryKey;autoIncrement"`
	EventID       int64           `gorm:"column:event_id;type:bigint;not null"`
	SourceID      int64           `gorm:"column:source_id;type:bigint;not null"`
	ExternalID    string          `gorm:"column:external_id;type:text;not null"`
	SourceURL     *string         `gorm:"column:source_url;type:text"`
	RawPayload    json.RawMessage `gorm:"column:raw_payload;type:jsonb"`
	// ReportedStartDate/ReportedVenueName capture what this source claimed
	// at ingestion time, independent of whatever the event row currently
	// holds; the confidence scorer's source-agreement term compares
	// these across an event's sources.
	ReportedStartDate *time.Time `gorm:"column:reported_start_date;type:date"`
	ReportedVenueName *string    `gorm:"column:reported_venue_name;type:text"`
	FetchedAt         time.Time  `gorm:"column:fetched_at;type:timestamptz;not null"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (EventSource) TableName() string { return "catalog.event_sources" }

// EventGenre maps catalog.event_genres, a many-to-many join.
type EventGenre struct {
	EventID int64 `gorm:"column:event_id;type:bigint;primaryKey"`
	GenreID int32 `gorm:"column:genre_id;type:integer;primaryKey"`
}

func (EventGenre) TableName() string { return "catalog.event_genres" }

// EventArtist maps catalog.event_artists, a many-to-many join.
type EventArtist struct {
	EventID  int64 `gorm:"column:event_id;type:bigint;primaryKey"`
	ArtistID int64 `gorm:"column:artist_id;type:bigint;primaryKey"`
}

func (EventArtist) TableName() string { return "catalog.event_artists" }

// Candidate maps catalog.candidates, the staging area ahead of resolution.
type Candidate struct {
	CandidateID int64 `gorm:"column:candidate_id;primaryKey;autoIncrement"`

	SourceID   int64           `gorm:"column:source_id;type:bigint;not null"`
	ExternalID string          `gorm:"column:external_id;type:text;not null"`
	SourceURL  *string         `gorm:"column:source_url;type:text"`
	RawPayload json.RawMessage `gorm:"column:raw_payload;type:jsonb;not null"`

	RawName            string  `gorm:"column:raw_name;type:text;not null"`
	RawEventType       *string `gorm:"column:raw_event_type;type:text"`
	RawStartDate       *string `gorm:"column:raw_start_date;type:text"`
	RawEndDate         *string `gorm:"column:raw_end_date;type:text"`
	RawCityName        *string `gorm:"column:raw_city_name;type:text"`
	RawVenueName       *string `gorm:"column:raw_venue_name;type:text"`
	RawOrganizerName   *string `gorm:"column:raw_organizer_name;type:text"`
	RawDescription     *string `gorm:"column:raw_description;type:text"`
	RawOfficialWebsite *string `gorm:"column:raw_official_website;type:text"`
	RawHasTickets      *bool   `gorm:"column:raw_has_tickets;type:boolean"`

	NormalizedName string     `gorm:"column:normalized_name;type:text;not null"`
	EventType      string     `gorm:"column:event_type;type:catalog.event_type;not null"`
	StartDate      *time.Time `gorm:"column:start_date;type:date"`
	EndDate        *time.Time `gorm:"column:end_date;type:date"`
	CityID         *int32     `gorm:"column:city_id;type:integer"`
	VenueName      *string    `gorm:"column:venue_name;type:text"`

	Processed       bool       `gorm:"column:processed;type:boolean;not null;default:false"`
	Outcome         *string    `gorm:"column:outcome;type:catalog.candidate_outcome"`
	MatchedEventID  *int64     `gorm:"column:matched_event_id;type:bigint"`
	MatchConfidence *float64   `gorm:"column:match_confidence;type:double precision"`
	MatchType       *string    `gorm:"column:match_type;type:text"`

	IngestedAt  time.Time  `gorm:"column:ingested_at;type:timestamptz;not null;default:now()"`
	ProcessedAt *time.Time `gorm:"column:processed_at;type:timestamptz"`
}

func (Candidate) TableName() string { return "catalog.candidates" }

// Fingerprint maps catalog.fingerprints, a content-addressed lookup key owned by an event.
type Fingerprint struct {
	FingerprintID int64     `gorm:"column:fingerprint_id;primaryKey;autoIncrement"`
	EventID       int64     `gorm:"column:event_id;type:bigint;not null"`
	Kind          string    `gorm:"column:kind;type:catalog.fingerprint_kind;not null"`
	Hash          string    `gorm:"column:hash;type:char(64);not null"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Fingerprint) TableName() string { return "catalog.fingerprints" }

// EditorialAction maps catalog.editorial_actions, an append-only audit log.
type EditorialAction struct {
	EditorialActionID int64           `gorm:"column:editorial_action_id;primaryKey;autoIncrement"`
	ActionType        string          `gorm:"column:action_type;type:catalog.editorial_action_type;not null"`
	EventID           int64           `gorm:"column:event_id;type:bigint;not null"`
	Actor             string          `gorm:"column:actor;type:text;not null"`
	Payload           json.RawMessage `gorm:"column:payload;type:jsonb"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (EditorialAction) TableName() string { return "catalog.editorial_actions" }

// EventSnapshot maps catalog.event_snapshots, the immutable pre-merge record of a losing event.
type EventSnapshot struct {
	EventSnapshotID int64           `gorm:"column:event_snapshot_id;primaryKey;autoIncrement"`
	EventID         int64           `gorm:"column:event_id;type:bigint;not null"`
	Snapshot        json.RawMessage `gorm:"column:snapshot;type:jsonb;not null"`
	Reason          string          `gorm:"column:reason;type:text;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (EventSnapshot) TableName() string { return "catalog.event_snapshots" }

// SearchProjectionRetry maps catalog.search_projection_retries, the queue a failed
// post-commit projection hook falls back to.
type SearchProjectionRetry struct {
	SearchProjectionRetryID int64     `gorm:"column:search_projection_retry_id;primaryKey;autoIncrement"`
	IdempotencyKey          string    `gorm:"column:idempotency_key;type:uuid;not null;unique"`
	EventID                 int64     `gorm:"column:event_id;type:bigint;not null"`
	Operation               string    `gorm:"column:operation;type:text;not null"`
	Attempts                int       `gorm:"column:attempts;type:integer;not null;default:0"`
	LastError               *string   `gorm:"column:last_error;type:text"`
	CreatedAt               time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (SearchProjectionRetry) TableName() string { return "catalog.search_projection_retries" }

func autoMigrateModels() []any {
	return []any{
		&Region{},
		&City{},
		&Venue{},
		&Organizer{},
		&Genre{},
		&Artist{},
		&Source{},
		&Event{},
		&EventSource{},
		&EventGenre{},
		&EventArtist{},
		&Candidate{},
		&Fingerprint{},
		&EditorialAction{},
		&EventSnapshot{},
		&SearchProjectionRetry{},
	}
}
