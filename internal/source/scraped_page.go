package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"

	"gnaoua.dev/catalog/internal/errorkind"
	"gnaoua.dev/catalog/internal/globaltime"
)

// DefaultScrapedPageReliability is the default reliability_score for
// scraped_page sources.
const DefaultScrapedPageReliability = 0.5

const defaultScrapedPageUserAgent = "catalog-ingest/1.0 (+scraped-page adapter)"

// scrapedPagePayload is what ScrapedPageAdapter.Normalize decodes: the raw
// HTML fetch result is not itself structured event data, so the payload
// carries the extracted readable text plus the URLs the page came from, for
// a human or a downstream manual_import batch to turn into event fields.
type scrapedPagePayload struct {
	ExtractedText string `json:"extracted_text"`
	CanonicalURL  string `json:"canonical_url"`
}

// ScrapedPageAdapter fetches an HTML page per URL in its watch list and
// extracts readable article-style content for manual downstream parsing
// into event fields, grounded on the teacher's reader.FetchTextWithOptions.
type ScrapedPageAdapter struct {
	URLs        []string
	HTTPClient  *http.Client
	Timeout     time.Duration
	UserAgent   string
	Reliability float64
}

func (s *ScrapedPageAdapter) SourceType() string { return "scraped_page" }

func (s *ScrapedPageAdapter) DefaultReliability() float64 {
	if s.Reliability > 0 {
		return s.Reliability
	}
	return DefaultScrapedPageReliability
}

func (s *ScrapedPageAdapter) Fetch(ctx context.Context, _ time.Time) ([]RawRecord, error) {
	fetchedAt := globaltime.UTC()
	records := make([]RawRecord, 0, len(s.URLs))
	for _, pageURL := range s.URLs {
		text, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			return records, errorkind.New(errorkind.SourceUnavailable, fmt.Errorf("scraped_page adapter: fetch %q: %w", pageURL, err))
		}
		payload := scrapedPagePayload{
			ExtractedText: text,
			CanonicalURL:  pageURL,
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return records, fmt.Errorf("scraped_page adapter: encode payload for %q: %w", pageURL, err)
		}
		records = append(records, RawRecord{
			ExternalID: pageURL,
			SourceURL:  pageURL,
			Payload:    raw,
			FetchedAt:  fetchedAt,
		})
	}
	return records, nil
}

func (s *ScrapedPageAdapter) fetchPage(ctx context.Context, pageURL string) (string, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return "", fmt.Errorf("page url is required")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	userAgent := strings.TrimSpace(s.UserAgent)
	if userAgent == "" {
		userAgent = defaultScrapedPageUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	pageURLParsed, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURLParsed)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := cleanText(rendered.String())
	if text == "" {
		text = cleanText(article.Excerpt())
	}
	return text, nil
}

func cleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// Normalize leaves every event field empty except Description (the
// extracted readable text): a scraped_page candidate is meant for manual
// downstream parsing into event fields, not automatic field extraction.
func (s *ScrapedPageAdapter) Normalize(record RawRecord) (Candidate, error) {
	var payload scrapedPagePayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return Candidate{}, fmt.Errorf("scraped_page adapter: decode record %q: %w", record.ExternalID, err)
	}
	return Candidate{
		ExternalID:  record.ExternalID,
		SourceURL:   payload.CanonicalURL,
		RawPayload:  record.Payload,
		Description: payload.ExtractedText,
	}, nil
}
