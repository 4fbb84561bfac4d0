package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"notamwatch/internal/notam"
)

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name     string
		n        notam.Notam
		minScore int
		want     bool
	}{
		{"above threshold", notam.Notam{PriorityScore: 90}, 80, true},
		{"below threshold", notam.Notam{PriorityScore: 50}, 80, false},
		{"low-confidence cancel suppressed", notam.Notam{Kind: notam.KindCancel, PriorityScore: 70}, 40, false},
		{"high-confidence cancel allowed", notam.Notam{Kind: notam.KindCancel, PriorityScore: 85}, 40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldAlert(&tt.n, tt.minScore)
			if got != tt.want {
				t.Errorf("shouldAlert() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriorityHeader(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{90, "urgent"},
		{80, "urgent"},
		{65, "high"},
		{60, "high"},
		{40, "default"},
		{10, "low"},
	}
	for _, tt := range tests {
		got := priorityHeader(tt.score)
		if got != tt.want {
			t.Errorf("priorityHeader(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestTagsHeader(t *testing.T) {
	n := &notam.Notam{
		Flags: notam.Flags{IsClosure: true, IsDroneRelated: true, IsRestriction: true},
		IsPermanent: true,
	}
	got := tagsHeader(n)
	for _, want := range []string{"warning", "airplane", "no_entry", "heavy_plus_sign"} {
		if !strings.Contains(got, want) {
			t.Errorf("tagsHeader() = %q, missing tag %q", got, want)
		}
	}
}

func TestSanitizeLatin1(t *testing.T) {
	got := sanitizeLatin1("A3097/25 — closed ✈")
	for _, r := range got {
		if r > 0xFF {
			t.Errorf("sanitizeLatin1() left a non-Latin-1 rune: %q", r)
		}
	}
}

func TestNotifier_AddAccumulatesAndFlushes(t *testing.T) {
	var mu sync.Mutex
	var received []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		received = append(received, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	nf := New(Config{URL: server.URL, MinScore: 80, MaxDigestItems: 10}, nil)

	nf.Add(&notam.Notam{ID: "A0001/25", PriorityScore: 90, AirportCode: "EGLL"})
	nf.Add(&notam.Notam{ID: "A0002/25", PriorityScore: 50, AirportCode: "EGLL"}) // below digest threshold

	nf.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(received) < 2 {
		t.Fatalf("expected at least an immediate alert and one digest POST, got %v", received)
	}
}

func TestNotifier_InertWithoutURL(t *testing.T) {
	nf := New(Config{}, nil)
	nf.Add(&notam.Notam{ID: "A0001/25", PriorityScore: 100})
	nf.Flush() // must not panic or block
}

func TestNotifier_StartStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	nf := New(Config{URL: server.URL, DigestInterval: time.Hour, MinScore: 0, MaxDigestItems: 5}, nil)
	nf.Add(&notam.Notam{ID: "A0001/25", PriorityScore: 10})

	ctx, cancel := context.WithCancel(context.Background())
	nf.Start(ctx)
	cancel()

	// Give the background goroutine a chance to observe cancellation and
	// run its forced flush; the test passes as long as this does not hang.
	time.Sleep(50 * time.Millisecond)
}
