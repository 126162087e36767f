package source

import "encoding/json"

// EventPayload is the wire shape shared by the api and manual_import
// adapters: a first-party JSON endpoint and a manually uploaded batch both
// carry events in this shape.
type EventPayload struct {
	ExternalID      string `json:"external_id"`
	Name            string `json:"name"`
	EventType       string `json:"event_type"`
	Description     string `json:"description,omitempty"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date,omitempty"`
	CityName        string `json:"city"`
	VenueName       string `json:"venue,omitempty"`
	OrganizerName   string `json:"organizer,omitempty"`
	OfficialWebsite string `json:"official_website,omitempty"`
	SourceURL       string `json:"source_url"`
}

// SourceBlock identifies the originating source of a manual_import batch:
// a payload carrying an array of events and a source block naming the
// source's type, name, and reliability.
type SourceBlock struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Reliability float64 `json:"reliability"`
}

// BatchPayload is the manual import envelope.
type BatchPayload struct {
	Source SourceBlock    `json:"source"`
	Events []EventPayload `json:"events"`
}

func decodeEventPayload(raw []byte) (EventPayload, error) {
	var p EventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return EventPayload{}, err
	}
	return p, nil
}

func (p EventPayload) toCandidate(sourceURL string, raw []byte) Candidate {
	url := p.SourceURL
	if url == "" {
		url = sourceURL
	}
	return Candidate{
		ExternalID:      p.ExternalID,
		SourceURL:       url,
		RawPayload:      raw,
		Name:            p.Name,
		EventType:       p.EventType,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		CityName:        p.CityName,
		VenueName:       p.VenueName,
		OrganizerName:   p.OrganizerName,
		Description:     p.Description,
		OfficialWebsite: p.OfficialWebsite,
	}
}
