package advisory

import (
	"strings"
	"time"
	_ "time/tzdata" // publish dates may name an IANA zone
)

// Normalized is what the normalizer extracts from one upstream document.
type Normalized struct {
	CountryName   string
	AdvisoryText  string
	PublishedDate string
	PublishedZone string // IANA zone sent next to the date, if any

	// Fallback is set when the demo table replaced an empty advisory.
	Fallback *Fallback
}

// Strategy pulls fields out of one known document shape.
// It reports false when the shape does not apply.
type Strategy func(doc map[string]any) (Normalized, bool)

// Strategies are tried in order; the first applicable one wins.
var Strategies = []Strategy{
	TopLevelEnglish,
	NestedDataEnglish,
}

// TopLevelEnglish reads {"eng": {...}, "date-published": ...}.
func TopLevelEnglish(doc map[string]any) (Normalized, bool) {
	eng, ok := doc["eng"].(map[string]any)
	if !ok {
		return Normalized{}, false
	}
	date, zone := publishedDate(doc["date-published"])
	return Normalized{
		CountryName:   stringField(eng, "name"),
		AdvisoryText:  stringField(eng, "advisory-text"),
		PublishedDate: date,
		PublishedZone: zone,
	}, true
}

// NestedDataEnglish reads {"data": {"eng": {...}}}. This shape carries no publish date.
func NestedDataEnglish(doc map[string]any) (Normalized, bool) {
	data, ok := doc["data"].(map[string]any)
	if !ok {
		return Normalized{}, false
	}
	eng, ok := data["eng"].(map[string]any)
	if !ok {
		return Normalized{}, false
	}
	return Normalized{
		CountryName:  stringField(eng, "name"),
		AdvisoryText: stringField(eng, "advisory-text"),
	}, true
}

// Fallback is a fixed advisory used when the upstream text is empty.
type Fallback struct {
	CountryName string
	Score       float64
	Message     string
}

var (
	highRisk = Fallback{
		CountryName: "High Risk Zone",
		Score:       5,
		Message:     "Avoid all travel. Active conflict or extreme security risk reported for this country.",
	}
	moderateRisk = Fallback{
		CountryName: "Moderate Risk Zone",
		Score:       3,
		Message:     "Exercise a high degree of caution due to elevated security concerns.",
	}
)

// Fallbacks is the demo table keyed by uppercase country code.
var Fallbacks = map[string]Fallback{
	"UA": highRisk, "RU": highRisk, "SY": highRisk, "AF": highRisk,
	"YE": highRisk, "SD": highRisk, "KP": highRisk, "IR": highRisk,
	"IQ": highRisk, "LY": highRisk, "SO": highRisk, "SS": highRisk,
	"ML": highRisk, "MM": highRisk, "BY": highRisk, "HT": highRisk,

	"IN": moderateRisk, "MX": moderateRisk, "CO": moderateRisk, "TH": moderateRisk,
	"EG": moderateRisk, "TR": moderateRisk, "PH": moderateRisk, "BR": moderateRisk,
	"ZA": moderateRisk, "NG": moderateRisk,
}

// Normalize extracts the advisory from raw, strips its markup and applies the
// demo fallback for countryCode when no text is left. Any shape is accepted.
func Normalize(raw any, countryCode string) Normalized {
	var n Normalized
	if doc, ok := raw.(map[string]any); ok {
		for _, strategy := range Strategies {
			if found, ok := strategy(doc); ok {
				n = found
				break
			}
		}
	}

	n.AdvisoryText = Strip(n.AdvisoryText)

	if strings.TrimSpace(n.AdvisoryText) == "" {
		if fb, ok := Fallbacks[strings.ToUpper(countryCode)]; ok {
			n.CountryName = fb.CountryName
			n.AdvisoryText = fb.Message
			n.Fallback = &fb
		}
	}
	return n
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// publishedDate accepts either "2024-05-01 10:00:00" or
// {"date": "2024-05-01 10:00:00.000000", "timezone": "America/Toronto"}.
func publishedDate(v any) (date, zone string) {
	switch d := v.(type) {
	case string:
		return d, ""
	case map[string]any:
		return stringField(d, "date"), stringField(d, "timezone")
	default:
		return "", ""
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// normalizeDate renders an upstream date as RFC 3339 UTC. Dates without an
// offset are read in zone when it names a known location, else in UTC.
// It reports false when no layout matches.
func normalizeDate(raw, zone string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	loc := time.UTC
	if zone = strings.TrimSpace(zone); zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC().Format(time.RFC3339), true
		}
	}
	return "", false
}
