package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gnaoua.dev/catalog/internal/errorkind"
	"gnaoua.dev/catalog/internal/globaltime"
)

const (
	// DefaultAPIReliability is the default reliability_score for api
	// sources.
	DefaultAPIReliability = 0.8

	defaultAPITimeout  = 30 * time.Second
	apiDefaultUserAgent = "catalog-ingest/1.0"
)

// APIAdapter polls a first-party JSON HTTP endpoint, passing since as a
// query parameter.
type APIAdapter struct {
	BaseURL     string
	Token       string
	HTTPClient  *http.Client
	Timeout     time.Duration
	UserAgent   string
	Reliability float64
}

func (a *APIAdapter) SourceType() string { return "api" }

func (a *APIAdapter) DefaultReliability() float64 {
	if a.Reliability > 0 {
		return a.Reliability
	}
	return DefaultAPIReliability
}

func (a *APIAdapter) Fetch(ctx context.Context, since time.Time) ([]RawRecord, error) {
	if strings.TrimSpace(a.BaseURL) == "" {
		return nil, fmt.Errorf("api adapter: base url is required")
	}

	endpoint, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api adapter: parse base url: %w", err)
	}
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("api adapter: build request: %w", err)
	}
	userAgent := strings.TrimSpace(a.UserAgent)
	if userAgent == "" {
		userAgent = apiDefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		kind := errorkind.SourceUnavailable
		if fetchCtx.Err() != nil {
			kind = errorkind.NetworkTimeout
		}
		return nil, errorkind.New(kind, fmt.Errorf("api adapter: fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errorkind.New(errorkind.RateLimited, fmt.Errorf("api adapter: rate limited (status %d)", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorkind.New(errorkind.SourceUnavailable, fmt.Errorf("api adapter: unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, errorkind.New(errorkind.NetworkTimeout, fmt.Errorf("api adapter: read body: %w", err))
	}

	var payloads []EventPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, errorkind.New(errorkind.ParseError, fmt.Errorf("api adapter: decode response: %w", err))
	}

	fetchedAt := globaltime.UTC()
	records := make([]RawRecord, 0, len(payloads))
	for _, p := range payloads {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("api adapter: re-encode event payload: %w", err)
		}
		records = append(records, RawRecord{
			ExternalID: p.ExternalID,
			SourceURL:  p.SourceURL,
			Payload:    raw,
			FetchedAt:  fetchedAt,
		})
	}
	return records, nil
}

func (a *APIAdapter) Normalize(record RawRecord) (Candidate, error) {
	p, err := decodeEventPayload(record.Payload)
	if err != nil {
		return Candidate{}, fmt.Errorf("api adapter: decode record %q: %w", record.ExternalID, err)
	}
	return p.toCandidate(record.SourceURL, record.Payload), nil
}
