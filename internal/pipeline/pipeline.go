// Package pipeline orchestrates one scraping run: listing pages are
// walked in order, detail pages are fetched for new or stale articles,
// and results are committed through the store's upsert contract.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"dawnscraper/internal/metrics"
	"dawnscraper/internal/news"
	"dawnscraper/internal/parser"
)

// Config controls Pipeline behavior.
type Config struct {
	BaseURL         string
	ListingURL      string
	MaxListingPages int
	// Staleness is the age past which a stored article is re-fetched;
	// fresher rows are skipped without a detail request.
	Staleness time.Duration
}

// Pipeline runs Fetcher -> Parser -> Store for one scraping pass.
type Pipeline struct {
	fetcher news.Fetcher
	store   news.Store
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Pipeline.
func New(fetcher news.Fetcher, store news.Store, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxListingPages <= 0 {
		cfg.MaxListingPages = 1
	}
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one scraping pass bounded by maxArticles. Per-URL
// failures are recorded in the run summary and never abort the run;
// the worst outcome is a summary with a high error count.
func (p *Pipeline) Run(ctx context.Context, maxArticles int) news.ScrapeRun {
	if maxArticles <= 0 {
		maxArticles = 10
	}
	run := news.ScrapeRun{StartedAt: p.now().UTC()}

	summaries := p.collectSummaries(ctx, maxArticles, &run)
	run.ArticlesFound = len(summaries)

	for _, summary := range summaries {
		if ctx.Err() != nil {
			break
		}
		p.processSummary(ctx, summary, &run)
	}

	run.FinishedAt = p.now().UTC()
	p.logger.Info("scrape run finished",
		zap.Int("pages_visited", run.PagesVisited),
		zap.Int("articles_found", run.ArticlesFound),
		zap.Int("articles_new", run.ArticlesNew),
		zap.Int("articles_updated", run.ArticlesUpdated),
		zap.Int("articles_failed", run.ArticlesFailed),
		zap.Int("errors", len(run.Errors)),
	)
	return run
}

// collectSummaries walks listing pages in order until maxArticles
// summaries are collected or a page yields nothing further.
func (p *Pipeline) collectSummaries(ctx context.Context, maxArticles int, run *news.ScrapeRun) []news.ArticleSummary {
	seen := map[string]struct{}{}
	var summaries []news.ArticleSummary

	for pageNum := 1; pageNum <= p.cfg.MaxListingPages && len(summaries) < maxArticles; pageNum++ {
		pageURL := p.listingPageURL(pageNum)
		run.PagesVisited++

		resp, err := p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			p.recordError(run, pageURL, err)
			break
		}
		pageSummaries, err := parser.ParseListing(resp.Body, p.cfg.BaseURL)
		if err != nil {
			p.recordError(run, pageURL, err)
			break
		}
		if len(pageSummaries) == 0 {
			break
		}
		for _, s := range pageSummaries {
			if len(summaries) >= maxArticles {
				break
			}
			if _, dup := seen[s.URL]; dup {
				continue
			}
			seen[s.URL] = struct{}{}
			summaries = append(summaries, s)
		}
	}
	return summaries
}

// processSummary fetches and stores one article. A detail failure means
// no row is written for that URL; an existing fresh row is left alone.
func (p *Pipeline) processSummary(ctx context.Context, summary news.ArticleSummary, run *news.ScrapeRun) {
	if fresh := p.isFresh(ctx, summary.URL); fresh {
		p.logger.Debug("skipping fresh article", zap.String("url", summary.URL))
		return
	}

	run.PagesVisited++
	resp, err := p.fetcher.Fetch(ctx, summary.URL)
	if err != nil {
		run.ArticlesFailed++
		p.recordError(run, summary.URL, err)
		return
	}

	detail, err := parser.ParseDetail(resp.Body)
	if err != nil {
		run.ArticlesFailed++
		p.recordError(run, summary.URL, err)
		return
	}

	article := buildArticle(summary, detail, p.now().UTC())
	_, inserted, err := p.store.Upsert(ctx, article)
	if err != nil {
		run.ArticlesFailed++
		p.recordError(run, summary.URL, fmt.Errorf("store article: %w", err))
		return
	}
	metrics.ObserveUpsert(inserted)
	if inserted {
		run.ArticlesNew++
	} else {
		run.ArticlesUpdated++
	}
}

// isFresh reports whether the URL already has a row younger than the
// staleness threshold. Store errors here are treated as "not fresh" so
// a read hiccup costs a redundant fetch, not a lost article.
func (p *Pipeline) isFresh(ctx context.Context, articleURL string) bool {
	if p.cfg.Staleness <= 0 {
		return false
	}
	existing, err := p.store.GetByURL(ctx, articleURL)
	if err != nil {
		return false
	}
	return p.now().UTC().Sub(existing.ScrapedAt) < p.cfg.Staleness
}

func buildArticle(summary news.ArticleSummary, detail news.ArticleContent, scrapedAt time.Time) news.Article {
	title := detail.Title
	if title == "" {
		title = summary.Title
	}
	return news.Article{
		URL:         summary.URL,
		Title:       title,
		Content:     detail.Content,
		Category:    parser.Categorize(title, detail.Content),
		PublishedAt: detail.PublishedAt,
		ScrapedAt:   scrapedAt,
	}
}

func (p *Pipeline) recordError(run *news.ScrapeRun, pageURL string, err error) {
	run.Errors = append(run.Errors, news.RunError{
		URL:     pageURL,
		Kind:    news.ErrorKind(err),
		Message: err.Error(),
	})
	p.logger.Warn("scrape step failed", zap.String("url", pageURL), zap.Error(err))
}

// listingPageURL appends a page query for listings past the first page.
func (p *Pipeline) listingPageURL(pageNum int) string {
	if pageNum <= 1 {
		return p.cfg.ListingURL
	}
	u, err := url.Parse(p.cfg.ListingURL)
	if err != nil {
		return p.cfg.ListingURL
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(pageNum))
	u.RawQuery = q.Encode()
	return u.String()
}
