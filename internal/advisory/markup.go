package advisory

import "regexp"

// tagPattern matches one tag at a time; (?s) lets a tag span line breaks.
var tagPattern = regexp.MustCompile(`(?s)<.*?>`)

// Strip removes markup tags from advisory text. Entities such as &amp; are
// left as they are and the remaining text is not trimmed or re-spaced.
func Strip(html string) string {
	if html == "" {
		return ""
	}
	return tagPattern.ReplaceAllString(html, "")
}
