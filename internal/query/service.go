// Package query is the read-only facade over the article store used by
// the HTTP layer. It validates inputs and shapes pagination metadata;
// it never writes.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dawnscraper/internal/news"
)

// Service wraps a news.Store for read operations.
type Service struct {
	store  news.Store
	logger *zap.Logger
}

// New constructs a Service.
func New(store news.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ListArticles returns one page of the full corpus.
func (s *Service) ListArticles(ctx context.Context, page news.Page) (news.ArticleList, error) {
	page = page.Normalize()
	items, total, err := s.store.List(ctx, page)
	if err != nil {
		return news.ArticleList{}, fmt.Errorf("list articles: %w", err)
	}
	return paged(items, total, page), nil
}

// GetArticle looks up a single article; ErrNotFound when absent.
func (s *Service) GetArticle(ctx context.Context, id int64) (news.Article, error) {
	article, err := s.store.GetByID(ctx, id)
	if err != nil {
		return news.Article{}, err
	}
	return article, nil
}

// ListByCategory returns one page of articles with an exact category match.
func (s *Service) ListByCategory(ctx context.Context, category string, page news.Page) (news.ArticleList, error) {
	if strings.TrimSpace(category) == "" {
		return news.ArticleList{}, fmt.Errorf("category is required: %w", news.ErrInvalidArgument)
	}
	page = page.Normalize()
	items, total, err := s.store.ListByCategory(ctx, category, page)
	if err != nil {
		return news.ArticleList{}, fmt.Errorf("list by category: %w", err)
	}
	return paged(items, total, page), nil
}

// SearchArticles matches term as a case-insensitive substring against
// title or content. An empty term is rejected, never defaulted.
func (s *Service) SearchArticles(ctx context.Context, term string, page news.Page) (news.ArticleList, error) {
	if strings.TrimSpace(term) == "" {
		return news.ArticleList{}, fmt.Errorf("search term is required: %w", news.ErrInvalidArgument)
	}
	page = page.Normalize()
	items, total, err := s.store.Search(ctx, term, page)
	if err != nil {
		return news.ArticleList{}, fmt.Errorf("search articles: %w", err)
	}
	return paged(items, total, page), nil
}

// Stats aggregates corpus-wide counts and the scrape date range.
func (s *Service) Stats(ctx context.Context) (news.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return news.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

func paged(items []news.Article, total int, page news.Page) news.ArticleList {
	if items == nil {
		items = []news.Article{}
	}
	return news.ArticleList{
		Items:      items,
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages(total),
	}
}
