// Package icaoparse decodes one raw NOTAM envelope into a typed
// notam.Notam. Field extraction never aborts the whole record: a failing
// sub-field is left null and extraction continues, mirroring the
// registry parsers' "nil on no match, never abort" discipline.
package icaoparse

import (
	"html"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"notamwatch/internal/notam"
)

// RawEnvelope is one record as returned by the NOTAM search endpoint,
// shaped to the fields the parser actually reads.
type RawEnvelope struct {
	NotamNumber        string
	ICAOMessage        string
	FacilityDesignator string
	AirportName        string
	IssueDate          string
	Source             string
	SourceType         string
	TransactionID      string
	HasHistory         bool
	CancelledOrExpired bool
	Status             string
	SearchTerm         string // set by the fetcher when retrieved via a free-text term
}

var (
	idRe          = regexp.MustCompile(`^([A-Za-z])(\d+)/(\d+)$`)
	notamRRe      = regexp.MustCompile(`NOTAMR\s+(\S+)`)
	notamCRe      = regexp.MustCompile(`NOTAMC\s+(\S+)`)
	fieldMarkerRe = regexp.MustCompile(`(?:^|\s)([A-GQ])\)`)
	tenDigitsRe   = regexp.MustCompile(`^\d{10}`)
)

// Parse decodes one envelope. It returns (nil, false) only when the
// envelope is pre-filtered out or lacks a NOTAM identifier; every other
// failure is tolerated field-by-field.
func Parse(env RawEnvelope, logger *log.Logger) (*notam.Notam, bool) {
	if env.CancelledOrExpired || strings.EqualFold(env.Status, "expired") {
		return nil, false
	}
	if env.NotamNumber == "" {
		return nil, false
	}

	n := &notam.Notam{
		ID:             env.NotamNumber,
		AirportCode:    env.FacilityDesignator,
		AirportName:    env.AirportName,
		Source:         env.Source,
		SourceType:     env.SourceType,
		TransactionID:  env.TransactionID,
		HasHistory:     env.HasHistory,
		RawICAOMessage: env.ICAOMessage,
		SearchTerm:     env.SearchTerm,
		Kind:           notam.KindNew,
	}

	parseIdentity(n, env.NotamNumber, logger)
	parseKind(n, env.ICAOMessage)

	fields := splitFields(env.ICAOMessage)
	parseQLine(n, fields["Q"], logger)
	parseLocation(n, fields["A"])
	parseValidFrom(n, fields["B"], logger)
	parseValidTo(n, fields["C"], logger)
	n.Schedule = fields["D"]
	n.Body = html.UnescapeString(fields["E"])
	n.LowerLimitText = fields["F"]
	n.UpperLimitText = fields["G"]

	if t, ok := parseEnvelopeDate(env.IssueDate); ok {
		n.IssueDate = t
	}

	return n, true
}

func parseIdentity(n *notam.Notam, id string, logger *log.Logger) {
	m := idRe.FindStringSubmatch(id)
	if m == nil {
		if logger != nil {
			logger.Printf("icaoparse: could not decode identity from id %q", id)
		}
		return
	}
	n.Series = strings.ToUpper(m[1])
	if v, err := strconv.Atoi(m[2]); err == nil {
		n.Number = v
	}
	if v, err := strconv.Atoi(m[3]); err == nil {
		n.Year = v
	}
}

func parseKind(n *notam.Notam, icaoMessage string) {
	firstLine := icaoMessage
	if i := strings.IndexByte(icaoMessage, '\n'); i >= 0 {
		firstLine = icaoMessage[:i]
	}
	if m := notamRRe.FindStringSubmatch(firstLine); m != nil {
		n.Kind = notam.KindReplace
		n.ReplacesID = m[1]
		return
	}
	if m := notamCRe.FindStringSubmatch(firstLine); m != nil {
		n.Kind = notam.KindCancel
		n.CancelsID = m[1]
		return
	}
	n.Kind = notam.KindNew
}

// splitFields locates every "X)" lettered-field marker and returns the
// trimmed text running from just after it to the next marker (or end of
// string). This generalizes directly to the Q) field: its content ends
// right before "A)" because "A)" is itself the next marker.
func splitFields(text string) map[string]string {
	locs := fieldMarkerRe.FindAllStringSubmatchIndex(text, -1)
	fields := make(map[string]string, len(locs))
	for i, loc := range locs {
		letter := text[loc[2]:loc[3]]
		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		fields[letter] = strings.TrimSpace(text[start:end])
	}
	return fields
}

func parseQLine(n *notam.Notam, qline string, logger *log.Logger) {
	if qline == "" {
		return
	}
	parts := strings.SplitN(qline, "/", 8)
	get := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	n.FIR = get(0)
	n.QCode = get(1)
	n.Traffic = get(2)
	n.Purpose = get(3)
	n.Scope = get(4)
	n.LowerLimit = parseIntOrNil(get(5))
	n.UpperLimit = parseIntOrNil(get(6))
	n.Coordinates = get(7)

	if len(n.QCode) >= 5 {
		n.QSubject = notam.DecodeSubject(strings.ToUpper(n.QCode[1:3]))
		n.QCondition = notam.DecodeCondition(strings.ToUpper(n.QCode[3:5]))
	}

	parseCoordinates(n, n.Coordinates, logger)
}

// parseCoordinates decodes a DDMM[NS]DDDMM[EW]RRR token. Any sub-field
// failure leaves the corresponding attribute nil without failing the rest
// of the record.
func parseCoordinates(n *notam.Notam, token string, logger *log.Logger) {
	if len(token) < 11 {
		return
	}
	latPart := token[0:5]
	lonPart := token[5:11]
	radiusPart := ""
	if len(token) > 11 {
		end := len(token)
		if end > 14 {
			end = 14
		}
		radiusPart = token[11:end]
	}

	lat, latOK := decodeDMS(latPart[0:2], latPart[2:4], latPart[4:5])
	lon, lonOK := decodeDMS(lonPart[0:3], lonPart[3:5], lonPart[5:6])
	if !latOK {
		if logger != nil {
			logger.Printf("icaoparse: could not decode latitude from %q", latPart)
		}
	}
	if !lonOK {
		if logger != nil {
			logger.Printf("icaoparse: could not decode longitude from %q", lonPart)
		}
	}
	if latOK && lonOK {
		// orb.Point is [lon, lat] by convention; it is the intermediate
		// representation before splitting into the stored fields.
		point := orb.Point{lon, lat}
		longitude, latitude := point[0], point[1]
		n.Longitude = &longitude
		n.Latitude = &latitude
	} else if latOK {
		n.Latitude = &lat
	} else if lonOK {
		n.Longitude = &lon
	}
	if radiusPart != "" {
		n.RadiusNM = parseIntOrNil(radiusPart)
	}
}

// decodeDMS converts degrees+minutes+hemisphere into signed decimal
// degrees. hemisphere of "S" or "W" negates the result.
func decodeDMS(degStr, minStr, hemisphere string) (float64, bool) {
	deg, err := strconv.Atoi(degStr)
	if err != nil {
		return 0, false
	}
	min, err := strconv.Atoi(minStr)
	if err != nil {
		return 0, false
	}
	val := float64(deg) + float64(min)/60.0
	if hemisphere == "S" || hemisphere == "W" {
		val = -val
	}
	return val, true
}

func parseLocation(n *notam.Notam, aField string) {
	if aField == "" {
		return
	}
	n.Location = strings.Fields(aField)[0]
}

func parseValidFrom(n *notam.Notam, bField string, logger *log.Logger) {
	digits := tenDigitsRe.FindString(bField)
	if digits == "" {
		if logger != nil && bField != "" {
			logger.Printf("icaoparse: could not decode B) valid_from from %q", bField)
		}
		return
	}
	if t, ok := decodeYYMMDDHHMM(digits); ok {
		n.ValidFrom = t
	}
}

func parseValidTo(n *notam.Notam, cField string, logger *log.Logger) {
	trimmed := strings.ToUpper(strings.TrimSpace(cField))
	if trimmed == "PERM" {
		n.IsPermanent = true
		n.ValidTo = nil
		return
	}
	digits := tenDigitsRe.FindString(cField)
	if digits == "" {
		n.IsPermanent = false
		if logger != nil && cField != "" {
			logger.Printf("icaoparse: could not decode C) valid_to from %q", cField)
		}
		return
	}
	if t, ok := decodeYYMMDDHHMM(digits); ok {
		n.ValidTo = &t
		n.IsPermanent = false
	}
}

// decodeYYMMDDHHMM decodes the ICAO 10-digit date format used in B)/C).
// Years below 50 are 20xx, years 50 and above are 19xx.
func decodeYYMMDDHHMM(digits string) (time.Time, bool) {
	if len(digits) != 10 {
		return time.Time{}, false
	}
	yy, err1 := strconv.Atoi(digits[0:2])
	mm, err2 := strconv.Atoi(digits[2:4])
	dd, err3 := strconv.Atoi(digits[4:6])
	hh, err4 := strconv.Atoi(digits[6:8])
	mi, err5 := strconv.Atoi(digits[8:10])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return time.Time{}, false
	}
	year := 2000 + yy
	if yy >= 50 {
		year = 1900 + yy
	}
	return time.Date(year, time.Month(mm), dd, hh, mi, 0, 0, time.UTC), true
}

var envelopeDateSuffixRe = regexp.MustCompile(`\s*(EST|UTC|GMT)$`)

// parseEnvelopeDate decodes the envelope's "MM/DD/YYYY HHMM" issue date,
// optionally suffixed with a timezone label that is stripped (all NOTAM
// times are UTC regardless of the label).
func parseEnvelopeDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	cleaned := envelopeDateSuffixRe.ReplaceAllString(strings.TrimSpace(s), "")
	parts := strings.Fields(cleaned)
	if len(parts) < 2 {
		return time.Time{}, false
	}
	dateParts := strings.Split(parts[0], "/")
	if len(dateParts) != 3 {
		return time.Time{}, false
	}
	month, err1 := strconv.Atoi(dateParts[0])
	day, err2 := strconv.Atoi(dateParts[1])
	year, err3 := strconv.Atoi(dateParts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	timePart := parts[1]
	hour, minute := 0, 0
	if len(timePart) >= 4 {
		hour, _ = strconv.Atoi(timePart[0:2])
		minute, _ = strconv.Atoi(timePart[2:4])
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}

func parseIntOrNil(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
