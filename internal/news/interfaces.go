package news

import "context"

// FetchResponse is the raw result of one successful page fetch.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves one page. Implementations own retry, backoff, and
// politeness; a returned error is already final for that URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Store persists and queries articles. Upsert reports whether the row
// was newly inserted so callers can count new vs updated.
type Store interface {
	Upsert(ctx context.Context, a Article) (id int64, inserted bool, err error)
	GetByID(ctx context.Context, id int64) (Article, error)
	GetByURL(ctx context.Context, url string) (Article, error)
	List(ctx context.Context, page Page) ([]Article, int, error)
	ListByCategory(ctx context.Context, category string, page Page) ([]Article, int, error)
	Search(ctx context.Context, term string, page Page) ([]Article, int, error)
	Stats(ctx context.Context) (Stats, error)
}
