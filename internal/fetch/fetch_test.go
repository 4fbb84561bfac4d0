package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func noSleep(min, max float64) {}

func TestDecodeAerodromeResponse_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"top-level array", `[{"notamNumber":"A0001/25"}]`, 1},
		{"items wrapper", `{"items":[{"notamNumber":"A0001/25"},{"notamNumber":"A0002/25"}]}`, 2},
		{"data wrapper", `{"data":[{"notamNumber":"A0001/25"}]}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAerodromeResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("decodeAerodromeResponse() returned error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("decodeAerodromeResponse() returned %d envelopes, want %d", len(got), tt.want)
			}
		})
	}
}

func TestAerodromeFetcher_DedupAcrossCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{"notamNumber": "A0001/25"},
			{"notamNumber": "A0001/25"},
		})
	}))
	defer server.Close()

	f := NewAerodromeFetcher(server.URL, "", []string{"EGLL", "LFPG"}, 0, 0, nil)
	f.sleepJitter = noSleep

	got, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() returned error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("FetchAll() returned %d envelopes, want 1 (deduplicated across codes and within one response)", len(got))
	}
}

func TestAerodromeFetcher_RateLimitAbandonsTarget(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{{"notamNumber": "A0002/25"}})
	}))
	defer server.Close()

	f := NewAerodromeFetcher(server.URL, "", []string{"EGLL", "LFPG"}, 0, 0, nil)
	f.sleepJitter = noSleep

	got, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() returned error: %v", err)
	}
	if len(got) != 1 || got[0].NotamNumber != "A0002/25" {
		t.Errorf("FetchAll() = %v, want exactly the second target's record", got)
	}
}

func TestFreeTextFetcher_Pagination(t *testing.T) {
	pages := [][]byte{
		[]byte(`{"notamList":[{"notamNumber":"A0001/25"}],"totalNotamCount":2,"startRecordCount":0,"endRecordCount":1}`),
		[]byte(`{"notamList":[{"notamNumber":"A0002/25"}],"totalNotamCount":2,"startRecordCount":1,"endRecordCount":2}`),
	}
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(pages[call])
		call++
	}))
	defer server.Close()

	f := NewFreeTextFetcher(server.URL, "", []string{"drone"}, 0, 0, nil)
	f.sleepJitter = noSleep

	got, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FetchAll() returned %d envelopes, want 2 across both pages", len(got))
	}
	if got[0].SearchTerm != "drone" || got[1].SearchTerm != "drone" {
		t.Errorf("envelopes not tagged with originating search term: %+v", got)
	}
}

func TestFreeTextFetcher_StopsOnEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"notamList":[],"totalNotamCount":0,"startRecordCount":0,"endRecordCount":0}`))
	}))
	defer server.Close()

	f := NewFreeTextFetcher(server.URL, "", []string{"nothing"}, 0, 0, nil)
	f.sleepJitter = noSleep

	got, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("FetchAll() = %v, want empty", got)
	}
}
