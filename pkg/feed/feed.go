// Package feed accumulates pages of a remote paginated list into a single
// deduplicated, order-preserving list for a scrollable view.
package feed

import (
	"context"
	"errors"
	"fmt"
)

// Status is the lifecycle position of a feed.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Exhausted
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status as its lowercase name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Page is the result of one fetch.
type Page[T any] struct {
	Items      []T
	PageNumber int
	TotalPages int
}

// FetchFunc loads the given 1-based page.
type FetchFunc[T any] func(ctx context.Context, pageNumber int) (Page[T], error)

// State is a snapshot of a feed. Items is a copy and may be kept by the caller.
type State[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	Status      Status
	Err         error
	Generation  uint64
	// Appended is the number of items the most recent LoadNextPage call added
	// to the tail of Items. A call that changes nothing resets it to 0.
	Appended int
}

// NewItems returns the items added by the most recently applied page.
func (s State[T]) NewItems() []T {
	return s.Items[len(s.Items)-s.Appended:]
}

// ErrEmptyResult means the first page had no items at all, as opposed to
// running out of pages.
var ErrEmptyResult = errors.New("feed: first page returned no items")

// NetworkError wraps a transport failure, timeout or unexpected upstream status.
type NetworkError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("feed: page %d: upstream status %d: %v", e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("feed: page %d: %v", e.Page, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response missing expected fields or with
// inconsistent paging metadata.
type MalformedResponseError struct {
	Page   int
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("feed: page %d: malformed response: %s", e.Page, e.Reason)
}

// classify maps an arbitrary fetch error onto the feed error taxonomy.
func classify(page int, err error) error {
	var netErr *NetworkError
	var malformed *MalformedResponseError
	switch {
	case errors.Is(err, ErrEmptyResult), errors.As(err, &netErr), errors.As(err, &malformed):
		return err
	default:
		return &NetworkError{Page: page, Err: err}
	}
}
