package advisory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		doc          string
		code         string
		wantName     string
		wantText     string
		wantDate     string
		wantZone     string
		wantFallback bool
	}{
		{
			name:     "Top level english",
			doc:      `{"eng":{"name":"Sri Lanka","advisory-text":"<p>Exercise a high degree of caution</p>"}}`,
			code:     "LK",
			wantName: "Sri Lanka",
			wantText: "Exercise a high degree of caution",
		},
		{
			name:     "Top level with string date",
			doc:      `{"eng":{"name":"France","advisory-text":"Take normal security precautions"},"date-published":"2024-05-01 10:00:00"}`,
			code:     "FR",
			wantName: "France",
			wantText: "Take normal security precautions",
			wantDate: "2024-05-01 10:00:00",
		},
		{
			name:     "Top level with date object",
			doc:      `{"eng":{"name":"Japan","advisory-text":"x"},"date-published":{"date":"2024-02-03","timestamp":1706918400}}`,
			code:     "JP",
			wantName: "Japan",
			wantText: "x",
			wantDate: "2024-02-03",
		},
		{
			name:     "Date object with timezone",
			doc:      `{"eng":{"name":"Canada","advisory-text":"x"},"date-published":{"date":"2024-05-01 10:00:00.000000","timezone":"America/Toronto"}}`,
			code:     "CA",
			wantName: "Canada",
			wantText: "x",
			wantDate: "2024-05-01 10:00:00.000000",
			wantZone: "America/Toronto",
		},
		{
			name:     "Nested data english ignores dates",
			doc:      `{"data":{"eng":{"name":"Chile","advisory-text":"<b>Avoid non-essential travel</b>"}},"date-published":"2024-01-01"}`,
			code:     "CL",
			wantName: "Chile",
			wantText: "Avoid non-essential travel",
		},
		{
			name:     "Top level wins over nested",
			doc:      `{"eng":{"name":"Top"},"data":{"eng":{"name":"Nested","advisory-text":"text"}}}`,
			code:     "DE",
			wantName: "Top",
		},
		{
			name:     "Wrong field types are ignored",
			doc:      `{"eng":{"name":42,"advisory-text":["a"]}}`,
			code:     "DE",
			wantName: "",
			wantText: "",
		},
		{
			name:         "Empty doc falls back for listed code",
			doc:          `{}`,
			code:         "UA",
			wantName:     "High Risk Zone",
			wantText:     "Avoid all travel. Active conflict or extreme security risk reported for this country.",
			wantFallback: true,
		},
		{
			name:         "Markup only falls back",
			doc:          `{"eng":{"name":"Mexico","advisory-text":"<p></p>"}}`,
			code:         "mx",
			wantName:     "Moderate Risk Zone",
			wantText:     "Exercise a high degree of caution due to elevated security concerns.",
			wantFallback: true,
		},
		{
			name: "Empty doc unlisted code",
			doc:  `{}`,
			code: "CA",
		},
		{
			name: "Array document",
			doc:  `[1,2,3]`,
			code: "CA",
		},
		{
			name: "Null document",
			doc:  `null`,
			code: "CA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(decode(t, tt.doc), tt.code)
			assert.Equal(t, tt.wantName, n.CountryName)
			assert.Equal(t, tt.wantText, n.AdvisoryText)
			assert.Equal(t, tt.wantDate, n.PublishedDate)
			assert.Equal(t, tt.wantZone, n.PublishedZone)
			assert.Equal(t, tt.wantFallback, n.Fallback != nil)
		})
	}
}

func TestFallbackTable(t *testing.T) {
	for code, fb := range Fallbacks {
		assert.Len(t, code, 2)
		assert.Contains(t, []float64{3, 5}, fb.Score, code)
		// table scores agree with what the scorer would say about the message
		assert.Equal(t, fb.Score, Score(fb.Message), code)

		n := Normalize(nil, code)
		require.NotNil(t, n.Fallback, code)
		assert.Equal(t, fb.CountryName, n.CountryName)
	}
	assert.Len(t, Fallbacks, 26)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		zone   string
		want   string
		wantOK bool
	}{
		{name: "space separated", in: "2024-05-01 10:00:00", want: "2024-05-01T10:00:00Z", wantOK: true},
		{name: "date only", in: "2024-05-01", want: "2024-05-01T00:00:00Z", wantOK: true},
		{name: "offset wins over zone", in: "2024-05-01T10:00:00-04:00", zone: "Asia/Tokyo", want: "2024-05-01T14:00:00Z", wantOK: true},
		{name: "microseconds", in: "2024-05-01 10:00:00.000000", want: "2024-05-01T10:00:00Z", wantOK: true},
		{name: "named zone", in: "2024-05-01 10:00:00.000000", zone: "America/Toronto", want: "2024-05-01T14:00:00Z", wantOK: true},
		{name: "winter offset", in: "2024-01-15 10:00:00", zone: "America/Toronto", want: "2024-01-15T15:00:00Z", wantOK: true},
		{name: "unknown zone read as UTC", in: "2024-05-01 10:00:00", zone: "Mars/Olympus", want: "2024-05-01T10:00:00Z", wantOK: true},
		{name: "long month", in: "May 1, 2024", want: "2024-05-01T00:00:00Z", wantOK: true},
		{name: "unparsable", in: "May 1st", wantOK: false},
		{name: "empty", in: "  ", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeDate(tt.in, tt.zone)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
