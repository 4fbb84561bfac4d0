// Package notifier sends immediate alerts and periodic digests to an
// external push endpoint. Both sub-behaviors are active only when a push
// URL is configured.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"notamwatch/internal/notam"
)

// Config holds the notifier's tunable thresholds, mirroring the §6
// configuration table.
type Config struct {
	URL             string
	DigestInterval  time.Duration
	MinScore        int
	MaxDigestItems  int
}

// Notifier accumulates high-priority NOTAMs under a mutex and flushes a
// digest on a timer, in addition to sending immediate per-record alerts.
// The mutex is the only shared mutable state: the timer loop snapshots
// under lock, releases it, and only then performs the HTTP call.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *log.Logger

	mu       sync.Mutex
	notams   []*notam.Notam
	total    int
	closures int
	drone    int
	restr    int
	airports map[string]bool
}

// New builds a Notifier. It is inert (every method a no-op) when
// cfg.URL is empty.
func New(cfg Config, logger *log.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		airports: make(map[string]bool),
	}
}

func (nf *Notifier) logf(format string, args ...any) {
	if nf.logger != nil {
		nf.logger.Printf(format, args...)
	}
}

// Start launches the background digest timer. It returns immediately;
// the goroutine exits when ctx is cancelled, after performing one final
// forced flush.
func (nf *Notifier) Start(ctx context.Context) {
	if nf.cfg.URL == "" || nf.cfg.DigestInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(nf.cfg.DigestInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				nf.Flush()
				return
			case <-ticker.C:
				nf.Flush()
			}
		}
	}()
}

// Add appends n to the digest accumulator if it meets the score
// threshold. It also sends the immediate alert, independent of the
// digest accumulation, when should_alert(n) holds.
func (nf *Notifier) Add(n *notam.Notam) {
	if nf.cfg.URL == "" {
		return
	}

	if shouldAlert(n, nf.cfg.MinScore) {
		nf.sendAlert(n)
	}

	if n.PriorityScore < nf.cfg.MinScore {
		return
	}

	nf.mu.Lock()
	nf.notams = append(nf.notams, n)
	nf.total++
	if n.IsClosure {
		nf.closures++
	}
	if n.IsDroneRelated {
		nf.drone++
	}
	if n.IsRestriction {
		nf.restr++
	}
	if n.AirportCode != "" {
		nf.airports[n.AirportCode] = true
	}
	nf.mu.Unlock()
}

// shouldAlert holds iff priority_score >= minScore and the record is not
// a low-confidence cancellation (kind=CANCEL with score < 80).
func shouldAlert(n *notam.Notam, minScore int) bool {
	if n.PriorityScore < minScore {
		return false
	}
	if n.Kind == notam.KindCancel && n.PriorityScore < 80 {
		return false
	}
	return true
}

func priorityHeader(score int) string {
	switch {
	case score >= 80:
		return "urgent"
	case score >= 60:
		return "high"
	case score >= 40:
		return "default"
	default:
		return "low"
	}
}

func tagsHeader(n *notam.Notam) string {
	var tags []string
	if n.IsClosure {
		tags = append(tags, "warning")
	}
	if n.IsDroneRelated {
		tags = append(tags, "airplane")
	}
	if n.IsRestriction {
		tags = append(tags, "no_entry")
	}
	if n.IsPermanent {
		tags = append(tags, "heavy_plus_sign")
	}
	return strings.Join(tags, ",")
}

// sanitizeLatin1 drops any rune outside the Latin-1 range so the string
// is safe to use as an HTTP header value.
func sanitizeLatin1(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= 0xFF {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (nf *Notifier) sendAlert(n *notam.Notam) {
	place := n.AirportCode
	if place == "" {
		place = n.Location
	}
	title := fmt.Sprintf("%s — %s (%s)", n.ID, place, n.AirportName)

	var body strings.Builder
	fmt.Fprintf(&body, "%s\n", n.Body)
	fmt.Fprintf(&body, "Issued %s\n", humanize.Time(n.IssueDate))
	if n.ValidTo != nil {
		fmt.Fprintf(&body, "Valid until %s\n", n.ValidTo.Format(time.RFC3339))
	} else if n.IsPermanent {
		body.WriteString("Permanent\n")
	}

	nf.post(title, body.String(), priorityHeader(n.PriorityScore), tagsHeader(n))
}

// Flush snapshots the accumulator under the mutex, clears it, releases
// the lock, and only then builds and sends the digest message.
func (nf *Notifier) Flush() {
	nf.mu.Lock()
	if len(nf.notams) == 0 {
		nf.mu.Unlock()
		return
	}
	items := nf.notams
	total, closures, drone, restr := nf.total, nf.closures, nf.drone, nf.restr
	airportCount := len(nf.airports)

	nf.notams = nil
	nf.total, nf.closures, nf.drone, nf.restr = 0, 0, 0, 0
	nf.airports = make(map[string]bool)
	nf.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].PriorityScore > items[j].PriorityScore
	})

	title := fmt.Sprintf("NOTAM Digest: %d new high-priority items", total)
	body := buildDigestBody(items, total, closures, drone, restr, airportCount, nf.cfg.MaxDigestItems)

	nf.post(title, body, "default", "bell")
}

func buildDigestBody(items []*notam.Notam, total, closures, drone, restr, airportCount, maxItems int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary\n")
	fmt.Fprintf(&b, "Total: %d\n", total)
	fmt.Fprintf(&b, "Closures: %d\n", closures)
	fmt.Fprintf(&b, "Drone-related: %d\n", drone)
	fmt.Fprintf(&b, "Restrictions: %d\n", restr)
	fmt.Fprintf(&b, "Airports affected: %d\n\n", airportCount)

	b.WriteString("Top items\n")
	n := maxItems
	if n > len(items) {
		n = len(items)
	}
	for i := 0; i < n; i++ {
		item := items[i]
		airport := item.AirportCode
		if airport == "" {
			airport = item.Location
		}
		var flags []string
		if item.IsClosure {
			flags = append(flags, "CLOSURE")
		}
		if item.IsDroneRelated {
			flags = append(flags, "DRONE")
		}
		if item.IsRestriction {
			flags = append(flags, "RESTRICTED")
		}
		flagStr := ""
		if len(flags) > 0 {
			flagStr = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintf(&b, "%d. %s - %s (Score: %d)%s\n  %s\n",
			i+1, item.ID, airport, item.PriorityScore, flagStr, previewBody(item.Body, 100))
	}
	if len(items) > n {
		fmt.Fprintf(&b, "... and %d more\n", len(items)-n)
	}
	return b.String()
}

func previewBody(body string, max int) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(body, "\n", " "))
	if len(cleaned) <= max {
		return cleaned
	}
	return cleaned[:max] + "..."
}

func (nf *Notifier) post(title, body, priority, tags string) {
	req, err := http.NewRequest(http.MethodPost, nf.cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		nf.logf("notifier: build request failed: %v", err)
		return
	}
	req.Header.Set("Title", sanitizeLatin1(title))
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	resp, err := nf.client.Do(req)
	if err != nil {
		nf.logf("notifier: send failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		nf.logf("notifier: send returned status %d", resp.StatusCode)
	}
}
