// Package parser extracts article data from raw HTML pages. All
// functions are pure: no I/O, deterministic for identical input.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dawnscraper/internal/news"
)

// Selector ladders mirror the markup variants the source has used over
// time; the first match wins.
var (
	listingLinkSelectors = []string{
		"article a[href]",
		".story__link",
		"a[href*=\"/news/\"]",
		"a[href*=\"/story/\"]",
		".media__item a",
		"h2 a",
		"h3 a",
	}

	detailTitleSelectors = []string{
		"h1.story__title",
		"h1.media__title",
		"h1",
		".story__headline",
		".media__headline",
	}

	detailContentSelectors = []string{
		".story__content",
		".media__content",
		".article-content",
		".story__body",
		".media__body",
		"article .content",
		".entry-content",
	}

	detailDateSelectors = []string{
		".story__time",
		".media__time",
		".story__date",
		".media__date",
		"time",
		".timestamp",
	}
)

// Section and utility paths on the source that never point at articles.
var excludedPaths = []string{
	"/latest-news",
	"/home",
	"/opinion",
	"/business",
	"/sport",
	"/world",
	"/pakistan",
	"/images",
	"/videos",
	"/search",
	"/subscribe",
	"/advertise",
	"/contact",
	"/about",
	"/privacy",
	"/terms",
	"/rss",
	"/sitemap",
}

var dateFormats = []string{
	"2 Jan, 2006 3:04PM",
	"2 January, 2006 3:04PM",
	"2 Jan 2006 3:04PM",
	"2 January 2006 3:04PM",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var (
	whitespaceExpr  = regexp.MustCompile(`\s+`)
	numericDateExpr = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)

	boilerplateExprs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Published \d+ \w+ \d+`),
		regexp.MustCompile(`(?i)Updated \d+ \w+ \d+`),
		regexp.MustCompile(`(?i)Follow Dawn\.com on.*`),
		regexp.MustCompile(`(?i)Read more.*`),
		regexp.MustCompile(`(?i)Advertisement.*`),
		regexp.MustCompile(`(?i)Sponsored.*`),
		regexp.MustCompile(`(?i)Also read.*`),
	}
)

const minParagraphLen = 20

// ParseListing extracts article summaries from a listing page in
// document order, with duplicate URLs removed. It fails with
// ErrMalformedDocument only when the page carries no links at all,
// which signals a source layout change rather than an empty listing.
func ParseListing(html []byte, baseURL string) ([]news.ArticleSummary, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}

	if doc.Find("a[href]").Length() == 0 {
		return nil, fmt.Errorf("listing page has no links: %w", news.ErrMalformedDocument)
	}

	seen := map[string]struct{}{}
	var summaries []news.ArticleSummary

	for _, selector := range listingLinkSelectors {
		doc.Find(selector).Each(func(_ int, link *goquery.Selection) {
			href, ok := link.Attr("href")
			if !ok || href == "" {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			full := base.ResolveReference(ref)
			full.Fragment = ""
			target := full.String()
			if _, dup := seen[target]; dup {
				return
			}
			if !isArticleURL(full, base) {
				return
			}
			seen[target] = struct{}{}

			title := strings.TrimSpace(link.Text())
			summaries = append(summaries, news.ArticleSummary{
				URL:      target,
				Title:    title,
				Category: Categorize(title, ""),
			})
		})
	}

	return summaries, nil
}

// isArticleURL keeps links that point at article pages on the source
// host and drops section indexes and utility pages.
func isArticleURL(u, base *url.URL) bool {
	if u.Hostname() == "" || !strings.HasSuffix(u.Hostname(), strings.TrimPrefix(base.Hostname(), "www.")) {
		return false
	}
	if u.Path == "" || u.Path == "/" {
		return false
	}
	for _, prefix := range excludedPaths {
		if strings.HasPrefix(u.Path, prefix) {
			return false
		}
	}
	return true
}

// ParseDetail extracts the full content of one article page. Missing
// optional fields never fail the parse: an unparseable date yields a
// nil PublishedAt. The parse fails with ErrMalformedDocument only when
// neither a title nor a content container can be located.
func ParseDetail(html []byte) (news.ArticleContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return news.ArticleContent{}, fmt.Errorf("parse detail html: %w", err)
	}

	var content news.ArticleContent

	for _, selector := range detailTitleSelectors {
		if el := doc.Find(selector).First(); el.Length() > 0 {
			content.Title = strings.TrimSpace(el.Text())
			if content.Title != "" {
				break
			}
		}
	}

	var parts []string
	for _, selector := range detailContentSelectors {
		doc.Find(selector).Each(func(_ int, container *goquery.Selection) {
			container.Find("p").Each(func(_ int, p *goquery.Selection) {
				text := strings.TrimSpace(p.Text())
				if len(text) > minParagraphLen {
					parts = append(parts, text)
				}
			})
		})
		if len(parts) > 0 {
			break
		}
	}
	content.Content = cleanContent(strings.Join(parts, " "))

	if content.Title == "" && content.Content == "" {
		return news.ArticleContent{}, fmt.Errorf("no title or content containers: %w", news.ErrMalformedDocument)
	}

	for _, selector := range detailDateSelectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if parsed := parseDate(strings.TrimSpace(el.Text())); parsed != nil {
			content.PublishedAt = parsed
			break
		}
	}

	return content, nil
}

// parseDate tries the source's known formats, then falls back to a
// bare dd/mm/yyyy pattern. Returns nil when nothing matches.
func parseDate(text string) *time.Time {
	if text == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	if m := numericDateExpr.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse("2/1/2006", fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3])); err == nil {
			return &t
		}
	}
	return nil
}

func cleanContent(content string) string {
	content = whitespaceExpr.ReplaceAllString(content, " ")
	for _, expr := range boilerplateExprs {
		content = expr.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}
