// Package menu locates a menu reference on a restaurant's website: a pure
// link classifier plus a bounded, same-origin, breadth-first crawler that
// stops at the first plausible hit.
package menu

import (
	"net/url"
	"strings"
)

// DefaultKeywords are the link tokens that suggest a menu page. They are
// policy knobs, overridable via configuration.
var DefaultKeywords = []string{
	"menu", "food", "drink", "brunch", "dinner", "breakfast", "lunch",
	"carte", "prix-fixe", "wine-list", "cocktails", "a-la-carte",
}

// DefaultExclusions veto hrefs that keyword-match only because of social,
// login, or booking widgets.
var DefaultExclusions = []string{
	"instagram", "facebook", "twitter", "login", "booking", "reservation",
}

// Classifier decides whether a hyperlink plausibly points at a menu.
type Classifier struct {
	keywords   []string
	exclusions []string
}

// NewClassifier builds a Classifier; empty slices fall back to the defaults.
func NewClassifier(keywords, exclusions []string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if len(exclusions) == 0 {
		exclusions = DefaultExclusions
	}
	return &Classifier{
		keywords:   lowerAll(keywords),
		exclusions: lowerAll(exclusions),
	}
}

// IsMenuLink classifies a link by its href and visible text. A href whose
// path ends in .pdf is a direct document hit and takes priority; otherwise
// the lowercased href+text must contain a keyword and the href must not
// contain an exclusion term. Exclusions are checked against the href only,
// so anchor text mentioning "booking" cannot veto a genuine menu page.
func (c *Classifier) IsMenuLink(href, text string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	text = strings.ToLower(strings.TrimSpace(text))
	if href == "" {
		return false
	}

	if strings.HasSuffix(pathOf(href), ".pdf") {
		return true
	}

	combined := href + " " + text
	matched := false
	for _, kw := range c.keywords {
		if strings.Contains(combined, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, ex := range c.exclusions {
		if strings.Contains(href, ex) {
			return false
		}
	}
	return true
}

// pathOf isolates the path component so query strings and fragments do not
// mask a .pdf target.
func pathOf(href string) string {
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		return u.Path
	}
	return href
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
