package news

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{name: "zero value gets defaults", in: Page{}, want: Page{Number: 1, Size: 10}},
		{name: "negative page clamps to first", in: Page{Number: -3, Size: 20}, want: Page{Number: 1, Size: 20}},
		{name: "oversized page size clamps", in: Page{Number: 2, Size: 500}, want: Page{Number: 2, Size: 100}},
		{name: "valid request unchanged", in: Page{Number: 4, Size: 25}, want: Page{Number: 4, Size: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, Page{Number: 1, Size: 10}.Offset())
	assert.Equal(t, 30, Page{Number: 4, Size: 10}.Offset())
}

func TestPageTotalPages(t *testing.T) {
	page := Page{Number: 1, Size: 10}
	assert.Equal(t, 0, page.TotalPages(0))
	assert.Equal(t, 1, page.TotalPages(10))
	assert.Equal(t, 2, page.TotalPages(11))
	assert.Equal(t, 10, page.TotalPages(95))
}

func TestFetchErrorRetryable(t *testing.T) {
	retryable := []FetchKind{FetchTimeout, FetchConnectionFailed, FetchTooManyRequests}
	for _, kind := range retryable {
		err := &FetchError{Kind: kind, URL: "https://example.com"}
		assert.True(t, err.Retryable(), "kind %s should be retryable", kind)
	}

	terminal := &FetchError{Kind: FetchHTTPError, URL: "https://example.com", StatusCode: 404}
	assert.False(t, terminal.Retryable())
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &FetchError{Kind: FetchConnectionFailed, URL: "https://example.com", Err: inner}
	assert.ErrorIs(t, err, inner)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&FetchError{Kind: FetchTimeout}, "timeout"},
		{fmt.Errorf("wrapped: %w", &FetchError{Kind: FetchTooManyRequests}), "too_many_requests"},
		{fmt.Errorf("bad page: %w", ErrMalformedDocument), "parse_failure"},
		{fmt.Errorf("bad input: %w", ErrInvalidArgument), "invalid_argument"},
		{ErrNotFound, "not_found"},
		{errors.New("connection pool exhausted"), "storage_failure"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
