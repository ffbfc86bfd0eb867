// Package news holds the domain types and contracts shared by the
// fetcher, parser, store, pipeline, and API layers.
package news

import "time"

// Article is one stored news article. URL is the natural key; ID is the
// database surrogate.
type Article struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	PublishedAt *time.Time `json:"published_at"`
	ScrapedAt   time.Time  `json:"scraped_at"`
}

// ArticleSummary is a listing-page entry before the detail fetch.
type ArticleSummary struct {
	URL      string
	Title    string
	Category string
}

// ArticleContent is the body extracted from one detail page.
type ArticleContent struct {
	Title       string
	Content     string
	PublishedAt *time.Time
}

// ScrapeRun summarizes one pipeline pass. Counters are best-effort
// tallies; Errors carries every per-URL failure the run survived.
type ScrapeRun struct {
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      time.Time  `json:"finished_at"`
	PagesVisited    int        `json:"pages_visited"`
	ArticlesFound   int        `json:"articles_found"`
	ArticlesNew     int        `json:"articles_new"`
	ArticlesUpdated int        `json:"articles_updated"`
	ArticlesFailed  int        `json:"articles_failed"`
	Errors          []RunError `json:"errors,omitempty"`
}

// RunError records one failure inside a run.
type RunError struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Stats aggregates corpus-wide counts and the scrape date range.
type Stats struct {
	Total       int            `json:"total"`
	PerCategory map[string]int `json:"per_category"`
	Earliest    *time.Time     `json:"earliest_scraped_at"`
	Latest      *time.Time     `json:"latest_scraped_at"`
}

// ArticleList is one page of results plus pagination metadata.
type ArticleList struct {
	Items      []Article `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is a pagination request.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page request into its valid range: page numbers
// start at 1, sizes land in [1, 100] with a default of 10.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset is the row offset for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages is the page count for total rows at this page size.
func (p Page) TotalPages(total int) int {
	if total <= 0 || p.Size <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}
