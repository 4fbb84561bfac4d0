// Package classify derives the boolean operational-relevance flags from a
// parsed NOTAM. Every predicate here is a pure, deterministic function of
// the record and a keyword configuration; none can fail.
package classify

import (
	"regexp"
	"strings"

	"notamwatch/internal/notam"
)

var closureKeywords = []string{
	"closed", "clsd", "closure", "not avbl",
	"unavailable", "suspended", "ad clsd",
	"airport closed", "rwy closed", "runway closed",
}

var closureConditions = map[string]bool{
	"LC": true, // closed
	"LI": true, // closed to IFR
	"LN": true, // closed to all night ops
	"LV": true, // closed to VFR
}

var restrictionSubjects = map[string]bool{
	"RD": true,
	"RP": true,
	"RR": true,
	"RT": true,
	"RA": true,
	"WU": true,
}

var restrictionKeywords = []string{
	"restricted area", "prohibited area", "danger area",
	"temporary restricted", "activated",
}

// Classify computes the four flags for n using the configured drone
// keyword list. The caller is expected to store the result once on the
// record rather than recompute it on every read.
func Classify(n *notam.Notam, droneKeywords []string) notam.Flags {
	body := strings.ToLower(n.Body)
	qCode := strings.ToUpper(n.QCode)

	return notam.Flags{
		IsClosure:      isClosure(body, qCode),
		IsDroneRelated: isDroneRelated(body, droneKeywords),
		IsRestriction:  isRestriction(body, qCode),
		IsTrigger:      isTrigger(n.Body),
	}
}

func isClosure(lowerBody, qCode string) bool {
	if len(qCode) >= 5 && closureConditions[qCode[3:5]] {
		return true
	}
	return containsAny(lowerBody, closureKeywords)
}

func isDroneRelated(lowerBody string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		pattern := `\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`
		if matched, _ := regexp.MatchString(pattern, lowerBody); matched {
			return true
		}
	}
	return false
}

func isRestriction(lowerBody, qCode string) bool {
	if len(qCode) >= 3 && restrictionSubjects[qCode[1:3]] {
		return true
	}
	return containsAny(lowerBody, restrictionKeywords)
}

func isTrigger(body string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(body)), "TRIGGER NOTAM")
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
