package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dawnscraper/internal/news"
)

func newMockStore(t *testing.T) (*ArticleStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func sampleArticle() news.Article {
	published := time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)
	return news.Article{
		URL:         "https://www.dawn.com/news/1234567/flood-warning",
		Title:       "Flood warning issued",
		Content:     "Authorities issued a flood warning on Wednesday.",
		Category:    "Pakistan",
		PublishedAt: &published,
		ScrapedAt:   time.Date(2026, time.January, 15, 11, 0, 0, 0, time.UTC),
	}
}

func TestUpsertInsertsNewArticle(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleArticle()

	mock.ExpectQuery(`INSERT INTO articles`).
		WithArgs(a.URL, a.Title, a.Content, a.Category, a.PublishedAt, a.ScrapedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(int64(7), true))

	id, inserted, err := store.Upsert(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUpdatesExistingArticle(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleArticle()

	mock.ExpectQuery(`INSERT INTO articles`).
		WithArgs(a.URL, a.Title, a.Content, a.Category, a.PublishedAt, a.ScrapedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(int64(7), false))

	id, inserted, err := store.Upsert(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsEmptyURL(t *testing.T) {
	store, _ := newMockStore(t)
	a := sampleArticle()
	a.URL = ""

	_, _, err := store.Upsert(context.Background(), a)
	assert.ErrorIs(t, err, news.ErrInvalidArgument)
}

func TestGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM articles WHERE id`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "content", "category", "published_at", "scraped_at",
		}))

	_, err := store.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, news.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByURL(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleArticle()

	mock.ExpectQuery(`SELECT .* FROM articles WHERE url`).
		WithArgs(a.URL).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "content", "category", "published_at", "scraped_at",
		}).AddRow(int64(7), a.URL, a.Title, a.Content, a.Category, a.PublishedAt, a.ScrapedAt))

	got, err := store.GetByURL(context.Background(), a.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.ScrapedAt, got.ScrapedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPaginates(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleArticle()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(25))

	mock.ExpectQuery(`SELECT .* FROM articles .* ORDER BY scraped_at DESC, id DESC LIMIT`).
		WithArgs(10, 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "content", "category", "published_at", "scraped_at",
		}).AddRow(int64(7), a.URL, a.Title, a.Content, a.Category, a.PublishedAt, a.ScrapedAt))

	items, total, err := store.List(context.Background(), news.Page{Number: 2, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, items, 1)
	assert.Equal(t, a.URL, items[0].URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListClampsPageSize(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT .* FROM articles .* LIMIT`).
		WithArgs(100, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "content", "category", "published_at", "scraped_at",
		}))

	_, _, err := store.List(context.Background(), news.Page{Number: 1, Size: 5000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByCategory(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleArticle()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles WHERE category`).
		WithArgs("Pakistan").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`SELECT .* FROM articles WHERE category .* LIMIT`).
		WithArgs("Pakistan", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "content", "category", "published_at", "scraped_at",
		}).AddRow(int64(7), a.URL, a.Title, a.Content, a.Category, a.PublishedAt, a.ScrapedAt))

	items, total, err := store.ListByCategory(context.Background(), "Pakistan", news.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Pakistan", items[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRejectsEmptyTerm(t *testing.T) {
	store, _ := newMockStore(t)

	_, _, err := store.Search(context.Background(), "   ", news.Page{})
	assert.ErrorIs(t, err, news.ErrInvalidArgument)
}

func TestSearch(t *testing.T) {
	store, mock := newMockStore(t)
	a := sampleArticle()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles WHERE title ILIKE`).
		WithArgs("flood").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`SELECT .* FROM articles WHERE title ILIKE .* LIMIT`).
		WithArgs("flood", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "content", "category", "published_at", "scraped_at",
		}).AddRow(int64(7), a.URL, a.Title, a.Content, a.Category, a.PublishedAt, a.ScrapedAt))

	items, total, err := store.Search(context.Background(), "flood", news.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	store, mock := newMockStore(t)
	earliest := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\), MIN\(scraped_at\), MAX\(scraped_at\) FROM articles`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "min", "max"}).
			AddRow(12, &earliest, &latest))

	mock.ExpectQuery(`SELECT category, COUNT\(\*\) FROM articles GROUP BY category`).
		WillReturnRows(pgxmock.NewRows([]string{"category", "count"}).
			AddRow("Pakistan", 8).
			AddRow("Sports", 4))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Total)
	assert.Equal(t, map[string]int{"Pakistan": 8, "Sports": 4}, stats.PerCategory)
	require.NotNil(t, stats.Earliest)
	assert.Equal(t, earliest, *stats.Earliest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsEmptyCorpus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), MIN\(scraped_at\), MAX\(scraped_at\) FROM articles`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "min", "max"}).
			AddRow(0, nil, nil))

	mock.ExpectQuery(`SELECT category, COUNT\(\*\) FROM articles GROUP BY category`).
		WillReturnRows(pgxmock.NewRows([]string{"category", "count"}))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Nil(t, stats.Earliest)
	assert.Nil(t, stats.Latest)
	assert.Empty(t, stats.PerCategory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS articles`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_articles_category`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_articles_scraped_at`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err := store.EnsureSchema(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
