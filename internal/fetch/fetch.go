// Package fetch implements the two HTTP polling strategies the scheduler
// drives: one request per aerodrome code, and paginated free-text search.
// Both share rate limiting, error classification, and per-run
// deduplication.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"notamwatch/internal/icaoparse"
)

// Fetcher retrieves every configured target's raw envelopes, deduplicated
// across targets and pages, in one logical call.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]icaoparse.RawEnvelope, error)
}

// envelopeJSON mirrors the subset of the FAA-shaped JSON response the
// parser actually reads.
type envelopeJSON struct {
	NotamNumber        string `json:"notamNumber"`
	ICAOMessage        string `json:"icaoMessage"`
	FacilityDesignator string `json:"facilityDesignator"`
	IcaoID             string `json:"icaoId"`
	AirportName        string `json:"airportName"`
	IssueDate          string `json:"issueDate"`
	Source             string `json:"source"`
	SourceType         string `json:"sourceType"`
	TransactionID      string `json:"transactionID"`
	HasHistory         bool   `json:"hasHistory"`
	CancelledOrExpired bool   `json:"cancelledOrExpired"`
	Status             string `json:"status"`
}

func (e envelopeJSON) toRaw(searchTerm string) icaoparse.RawEnvelope {
	facility := e.FacilityDesignator
	if facility == "" {
		facility = e.IcaoID
	}
	return icaoparse.RawEnvelope{
		NotamNumber:        e.NotamNumber,
		ICAOMessage:        e.ICAOMessage,
		FacilityDesignator: facility,
		AirportName:        e.AirportName,
		IssueDate:          e.IssueDate,
		Source:             e.Source,
		SourceType:         e.SourceType,
		TransactionID:      e.TransactionID,
		HasHistory:         e.HasHistory,
		CancelledOrExpired: e.CancelledOrExpired,
		Status:             e.Status,
		SearchTerm:         searchTerm,
	}
}

// baseFetcher holds what every strategy shares: HTTP client, endpoint,
// jitter window, and an optional bearer token for the authenticated
// variant.
type baseFetcher struct {
	client      *http.Client
	apiURL      string
	apiKey      string
	minDelay    float64
	maxDelay    float64
	logger      *log.Logger
	sleepJitter func(min, max float64)
}

func newBaseFetcher(apiURL, apiKey string, minDelay, maxDelay float64, logger *log.Logger) baseFetcher {
	return baseFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		apiURL:   apiURL,
		apiKey:   apiKey,
		minDelay: minDelay,
		maxDelay: maxDelay,
		logger:   logger,
		sleepJitter: func(min, max float64) {
			d := min + rand.Float64()*(max-min)
			time.Sleep(time.Duration(d * float64(time.Second)))
		},
	}
}

func (b baseFetcher) post(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; notamwatch/1.0)")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: transport error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

var errRateLimited = fmt.Errorf("fetch: rate limited (HTTP 429)")

func (b baseFetcher) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Printf(format, args...)
	}
}

// AerodromeFetcher issues one request per configured ICAO code.
type AerodromeFetcher struct {
	baseFetcher
	codes []string
}

// NewAerodromeFetcher builds a Fetcher for the aerodrome strategy. An
// apiKey switches on the authenticated-client variant: a bearer token
// header with no other contract, per the spec's open question.
func NewAerodromeFetcher(apiURL, apiKey string, codes []string, minDelay, maxDelay float64, logger *log.Logger) *AerodromeFetcher {
	return &AerodromeFetcher{
		baseFetcher: newBaseFetcher(apiURL, apiKey, minDelay, maxDelay, logger),
		codes:       codes,
	}
}

func (f *AerodromeFetcher) FetchAll(ctx context.Context) ([]icaoparse.RawEnvelope, error) {
	seen := make(map[string]bool)
	var out []icaoparse.RawEnvelope

	for i, code := range f.codes {
		if i > 0 {
			f.sleepJitter(f.minDelay, f.maxDelay)
		}

		form := url.Values{
			"searchType":             {"0"},
			"designatorsForLocation": {code},
			"notamsOnly":             {"true"},
			"latLong":                {""},
			"radius":                 {"10"},
		}
		body, err := f.post(ctx, form)
		if err != nil {
			if err == errRateLimited {
				f.logf("fetch: rate limited fetching aerodrome %s, abandoning target", code)
			} else {
				f.logf("fetch: error fetching aerodrome %s: %v", code, err)
			}
			continue
		}

		envelopes, err := decodeAerodromeResponse(body)
		if err != nil {
			f.logf("fetch: malformed response for aerodrome %s: %v", code, err)
			continue
		}

		for _, e := range envelopes {
			if e.NotamNumber == "" || seen[e.NotamNumber] {
				continue
			}
			seen[e.NotamNumber] = true
			out = append(out, e.toRaw(""))
		}
	}
	return out, nil
}

// decodeAerodromeResponse accepts a top-level array or an object wrapping
// the list under "items" or "data".
func decodeAerodromeResponse(body []byte) ([]envelopeJSON, error) {
	var list []envelopeJSON
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapper struct {
		Items []envelopeJSON `json:"items"`
		Data  []envelopeJSON `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Items) > 0 {
		return wrapper.Items, nil
	}
	return wrapper.Data, nil
}

// FreeTextFetcher issues paginated requests per configured search term.
type FreeTextFetcher struct {
	baseFetcher
	terms []string
}

// NewFreeTextFetcher builds a Fetcher for the free-text search strategy.
func NewFreeTextFetcher(apiURL, apiKey string, terms []string, minDelay, maxDelay float64, logger *log.Logger) *FreeTextFetcher {
	return &FreeTextFetcher{
		baseFetcher: newBaseFetcher(apiURL, apiKey, minDelay, maxDelay, logger),
		terms:       terms,
	}
}

type searchResponse struct {
	NotamList        []envelopeJSON `json:"notamList"`
	TotalNotamCount  int            `json:"totalNotamCount"`
	StartRecordCount int            `json:"startRecordCount"`
	EndRecordCount   int            `json:"endRecordCount"`
}

func (f *FreeTextFetcher) FetchAll(ctx context.Context) ([]icaoparse.RawEnvelope, error) {
	seen := make(map[string]bool)
	var out []icaoparse.RawEnvelope
	first := true

	for _, term := range f.terms {
		offset := 0
		for {
			if !first {
				f.sleepJitter(f.minDelay, f.maxDelay)
			}
			first = false

			form := url.Values{
				"searchType":   {"4"},
				"freeFormText": {term},
				"notamsOnly":   {"false"},
				"latLong":      {""},
				"radius":       {"10"},
				"offset":       {strconv.Itoa(offset)},
			}
			body, err := f.post(ctx, form)
			if err != nil {
				if err == errRateLimited {
					f.logf("fetch: rate limited fetching term %q, abandoning target", term)
				} else {
					f.logf("fetch: error fetching term %q: %v", term, err)
				}
				break
			}

			var page searchResponse
			if err := json.Unmarshal(body, &page); err != nil {
				f.logf("fetch: malformed response for term %q: %v", term, err)
				break
			}

			if len(page.NotamList) == 0 {
				break
			}

			for _, e := range page.NotamList {
				if e.NotamNumber == "" || seen[e.NotamNumber] {
					continue
				}
				seen[e.NotamNumber] = true
				out = append(out, e.toRaw(term))
			}

			if page.EndRecordCount >= page.TotalNotamCount {
				break
			}
			offset = page.EndRecordCount
		}
	}
	return out, nil
}
