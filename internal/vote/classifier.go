package vote

import "strings"

// DefaultKeywords is the keyword set used when none is configured.
var DefaultKeywords = []string{"nintendo"}

// Classifier maps a title to an Action by case-insensitive substring match.
type Classifier struct {
	keywords []string
}

// NewClassifier builds a classifier over keywords. Blank entries are dropped.
// An empty set classifies every title as AssertNegative.
func NewClassifier(keywords ...string) *Classifier {
	c := &Classifier{}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			c.keywords = append(c.keywords, kw)
		}
	}
	return c
}

// Keywords returns the normalised keyword set.
func (c *Classifier) Keywords() []string {
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

// Classify is total: every title yields exactly one action.
func (c *Classifier) Classify(title string) Action {
	if _, ok := c.Match(title); ok {
		return AssertPositive
	}
	return AssertNegative
}

// Match returns the first keyword found in title.
func (c *Classifier) Match(title string) (string, bool) {
	lower := strings.ToLower(title)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
