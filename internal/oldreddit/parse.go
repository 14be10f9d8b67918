package oldreddit

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xkilldash9x/redvote/internal/vote"
)

// DefaultSnippetLength bounds the markup kept for diagnostics.
const DefaultSnippetLength = 500

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return doc, nil
}

// ParseListing extracts every listing item from a page in document order.
// Eligibility is left to the caller; items are reported as they appear.
func ParseListing(html string) ([]vote.RawItem, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	var items []vote.RawItem
	doc.Find(Thing).Each(func(_ int, thing *goquery.Selection) {
		items = append(items, rawItem(thing))
	})
	return items, nil
}

func rawItem(thing *goquery.Selection) vote.RawItem {
	class := strings.ToLower(thing.AttrOr("class", ""))
	promotedAttr := thing.AttrOr(AttrPromoted, "")

	return vote.RawItem{
		Title:     strings.TrimSpace(thing.Find(ThingTitle).First().Text()),
		StableID:  thing.AttrOr(AttrFullname, ""),
		Permalink: thing.AttrOr(AttrPermalink, ""),
		Flags: vote.Flags{
			Pinned:   strings.Contains(class, "stickied"),
			Promoted: strings.Contains(class, "promoted") || (promotedAttr != "" && promotedAttr != "false"),
		},
	}
}

// ParseProbe reads the vote controls of the item with the given fullname.
// snippetLen <= 0 uses DefaultSnippetLength.
func ParseProbe(html, fullname string, snippetLen int) (vote.Probe, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return vote.Probe{}, err
	}

	thing := doc.Find(Thing).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr(AttrFullname, "") == fullname
	}).First()
	if thing.Length() == 0 {
		return vote.Probe{}, nil
	}

	up := thing.Find(UpArrow).First()
	down := thing.Find(DownArrow).First()

	inner, _ := thing.Html()
	return vote.Probe{
		Found:    true,
		Positive: vote.Control{Present: up.Length() > 0, Active: up.HasClass(ActiveUp)},
		Negative: vote.Control{Present: down.Length() > 0, Active: down.HasClass(ActiveDown)},
		Snippet:  truncate(inner, snippetLen),
	}, nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		n = DefaultSnippetLength
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
