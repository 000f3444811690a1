package advisory

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Empty", "", ""},
		{"Plain text", "Exercise normal security precautions", "Exercise normal security precautions"},
		{"Nested tags", "<p>Avoid <b>all</b> travel</p>", "Avoid all travel"},
		{"Attributes", `<a href="https://travel.gc.ca">Details</a> here`, "Details here"},
		{"Tag across lines", "<p\nclass=\"x\">Text</p>", "Text"},
		{"Entities untouched", "<p>Fish &amp; chips&nbsp;</p>", "Fish &amp; chips&nbsp;"},
		{"Whitespace preserved", "<p> a </p>\n<p>b</p>", " a \nb"},
		{"Unclosed bracket kept", "a < b", "a < b"},
		{"Only tags", "<br/><hr>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strip(tt.in); got != tt.want {
				t.Errorf("Strip(%q)=%q want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("text without angle brackets is unchanged", prop.ForAll(
		func(s string) bool {
			return Strip(s) == s
		},
		gen.AnyString().SuchThat(func(s string) bool { return !strings.ContainsAny(s, "<>") }),
	))

	properties.Property("wrapping text in tags yields the text", prop.ForAll(
		func(tag, s string) bool {
			return Strip("<"+tag+">"+s+"</"+tag+">") == s
		},
		gen.OneConstOf("p", "b", "div", "span class=\"warn\""),
		gen.AlphaString(),
	))

	properties.Property("stripping is idempotent", prop.ForAll(
		func(s string) bool {
			once := Strip(s)
			return Strip(once) == once || strings.Contains(once, "<")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
