package engine

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var blankLinesRe = regexp.MustCompile(`\n\s*\n`)

// preserved elements keep their content byte for byte.
var preserved = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// Normalize collapses runs of blank lines into one newline and drops
// whitespace-only text between two tags. Text inside pre, textarea, script
// and style elements is left alone, and markup is never rewritten: the
// output is the input minus whitespace.
func Normalize(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	b.Grow(len(doc))

	depth := 0
	afterTag := false
	pending := ""
	hasPending := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if hasPending {
				b.WriteString(collapseBlankLines(pending))
			}
			return b.String()
		}
		raw := string(z.Raw())

		if tt == html.TextToken {
			if hasPending {
				raw = pending + raw
				hasPending = false
			}
			switch {
			case depth > 0:
				b.WriteString(raw)
				afterTag = false
			case afterTag && strings.TrimSpace(raw) == "":
				pending, hasPending = raw, true
			default:
				b.WriteString(collapseBlankLines(raw))
				afterTag = false
			}
			continue
		}

		// Whitespace held since the previous tag sat between two tags.
		hasPending = false
		b.WriteString(raw)
		afterTag = true

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if preserved[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if preserved[string(name)] && depth > 0 {
				depth--
			}
		}
	}
}

func collapseBlankLines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	return blankLinesRe.ReplaceAllString(s, "\n")
}
