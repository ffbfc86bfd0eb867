// Package postgres provides the Postgres-backed article store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dawnscraper/internal/news"
)

// pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

// ArticleStore implements news.Store on Postgres. Upserts are single
// statements, so per-row atomicity comes from the database itself and
// concurrent readers never observe a half-written article.
type ArticleStore struct {
	pool pool
}

// New connects a pool and returns the store.
func New(ctx context.Context, cfg Config) (*ArticleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ArticleStore{pool: p}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*ArticleStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ArticleStore{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *ArticleStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the articles table and its indexes when missing.
func (s *ArticleStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'Uncategorized',
			published_at TIMESTAMPTZ,
			scraped_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles (category)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_scraped_at ON articles (scraped_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const upsertQuery = `
	INSERT INTO articles (url, title, content, category, published_at, scraped_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (url) DO UPDATE SET
		title = EXCLUDED.title,
		content = EXCLUDED.content,
		category = EXCLUDED.category,
		published_at = EXCLUDED.published_at,
		scraped_at = EXCLUDED.scraped_at
	RETURNING id, (xmax = 0) AS inserted;
`

// Upsert inserts or refreshes an article keyed by its URL. The
// (xmax = 0) trick distinguishes a fresh insert from an update.
func (s *ArticleStore) Upsert(ctx context.Context, a news.Article) (int64, bool, error) {
	if a.URL == "" {
		return 0, false, fmt.Errorf("article url is required: %w", news.ErrInvalidArgument)
	}
	var (
		id       int64
		inserted bool
	)
	err := s.pool.QueryRow(ctx, upsertQuery,
		a.URL, a.Title, a.Content, a.Category, a.PublishedAt, a.ScrapedAt,
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, fmt.Errorf("upsert article: %w", err)
	}
	return id, inserted, nil
}

const articleColumns = `id, url, title, content, category, published_at, scraped_at`

// GetByID retrieves a single article by its surrogate id.
func (s *ArticleStore) GetByID(ctx context.Context, id int64) (news.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1;`
	return s.getOne(ctx, query, id)
}

// GetByURL retrieves a single article by its natural key.
func (s *ArticleStore) GetByURL(ctx context.Context, url string) (news.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE url = $1;`
	return s.getOne(ctx, query, url)
}

func (s *ArticleStore) getOne(ctx context.Context, query string, arg any) (news.Article, error) {
	var a news.Article
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.URL, &a.Title, &a.Content, &a.Category, &a.PublishedAt, &a.ScrapedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return news.Article{}, news.ErrNotFound
		}
		return news.Article{}, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

// List returns a page of articles ordered by scraped_at descending,
// ties broken by id, so pagination stays consistent absent writes.
func (s *ArticleStore) List(ctx context.Context, page news.Page) ([]news.Article, int, error) {
	return s.listWhere(ctx, page, "", nil)
}

// ListByCategory returns a page of articles with an exact category match.
func (s *ArticleStore) ListByCategory(ctx context.Context, category string, page news.Page) ([]news.Article, int, error) {
	return s.listWhere(ctx, page, `WHERE category = $1`, []any{category})
}

// Search returns articles whose title or content contains term,
// case-insensitively. An empty term is an input error.
func (s *ArticleStore) Search(ctx context.Context, term string, page news.Page) ([]news.Article, int, error) {
	if strings.TrimSpace(term) == "" {
		return nil, 0, fmt.Errorf("search term is required: %w", news.ErrInvalidArgument)
	}
	where := `WHERE title ILIKE '%' || $1 || '%' OR content ILIKE '%' || $1 || '%'`
	return s.listWhere(ctx, page, where, []any{term})
}

func (s *ArticleStore) listWhere(ctx context.Context, page news.Page, where string, args []any) ([]news.Article, int, error) {
	page = page.Normalize()

	countQuery := `SELECT COUNT(*) FROM articles ` + where + `;`
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	limitPos := len(args) + 1
	listQuery := fmt.Sprintf(
		`SELECT %s FROM articles %s ORDER BY scraped_at DESC, id DESC LIMIT $%d OFFSET $%d;`,
		articleColumns, where, limitPos, limitPos+1,
	)
	rows, err := s.pool.Query(ctx, listQuery, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var items []news.Article
	for rows.Next() {
		var a news.Article
		if err := rows.Scan(
			&a.ID, &a.URL, &a.Title, &a.Content, &a.Category, &a.PublishedAt, &a.ScrapedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan article row: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate article rows: %w", err)
	}
	return items, total, nil
}

// Stats aggregates counts and the scrape date range for the corpus.
func (s *ArticleStore) Stats(ctx context.Context) (news.Stats, error) {
	stats := news.Stats{PerCategory: map[string]int{}}

	var (
		earliest *time.Time
		latest   *time.Time
	)
	summaryQuery := `SELECT COUNT(*), MIN(scraped_at), MAX(scraped_at) FROM articles;`
	if err := s.pool.QueryRow(ctx, summaryQuery).Scan(&stats.Total, &earliest, &latest); err != nil {
		return news.Stats{}, fmt.Errorf("stats summary: %w", err)
	}
	stats.Earliest = earliest
	stats.Latest = latest

	rows, err := s.pool.Query(ctx, `SELECT category, COUNT(*) FROM articles GROUP BY category;`)
	if err != nil {
		return news.Stats{}, fmt.Errorf("stats per category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return news.Stats{}, fmt.Errorf("scan category row: %w", err)
		}
		stats.PerCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		return news.Stats{}, fmt.Errorf("iterate category rows: %w", err)
	}
	return stats, nil
}
