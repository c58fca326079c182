// Package serp extracts facts from search result pages and compares text
// against the search term.
package serp

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// titleSelector narrows a result link down to the element holding its title.
const titleSelector = "h3, span[aria-label], div[aria-label]"

// VideoLink is a related video found on the results page.
type VideoLink struct {
	URL   string
	Title string
}

// VideoLinks returns the links in rawHTML whose target contains pattern, in
// document order and without duplicate URLs. Redirect wrappers of the form
// /url?q=<target> are unwrapped first.
func VideoLinks(rawHTML, pattern string) ([]VideoLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var links []VideoLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := unwrapRedirect(s.AttrOr("href", ""))
		if !strings.Contains(href, pattern) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, VideoLink{URL: href, Title: linkTitle(s)})
	})
	return links, nil
}

// linkTitle returns the inner text of the first title-like descendant,
// falling back to its aria-label.
func linkTitle(s *goquery.Selection) string {
	el := s.Find(titleSelector).First()
	if el.Length() == 0 {
		return ""
	}
	if text := strings.TrimSpace(el.Text()); text != "" {
		return text
	}
	return strings.TrimSpace(el.AttrOr("aria-label", ""))
}

func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Path != "/url" {
		return href
	}
	q := u.Query()
	for _, key := range []string{"q", "url"} {
		if target := q.Get(key); target != "" {
			return target
		}
	}
	return href
}
