package feed

import (
	"context"
	"fmt"
	"sync"
)

// Option configures a Controller.
type Option[T any] func(*options[T])

type options[T any] struct {
	filter func(T) bool
}

// WithFilter keeps only items for which keep returns true. Filtering happens
// before deduplication, so a dropped item never marks its key as seen.
func WithFilter[T any](keep func(T) bool) Option[T] {
	return func(o *options[T]) {
		o.filter = keep
	}
}

// Controller fetches successive pages and accumulates their items, unique by
// key in first-seen order. At most one fetch is in flight per controller.
type Controller[T any, K comparable] struct {
	fetch  FetchFunc[T]
	keyOf  func(T) K
	filter func(T) bool

	mu          sync.Mutex
	items       []T
	seen        map[K]struct{}
	currentPage int
	totalPages  int
	status      Status
	err         error
	generation  uint64
	appended    int
}

// New returns an Idle controller. No page is fetched until LoadNextPage.
func New[T any, K comparable](fetch FetchFunc[T], keyOf func(T) K, opts ...Option[T]) *Controller[T, K] {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[T, K]{
		fetch:  fetch,
		keyOf:  keyOf,
		filter: o.filter,
		seen:   make(map[K]struct{}),
		status: Idle,
	}
}

// State returns a snapshot of the feed.
func (c *Controller[T, K]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// LoadNextPage fetches page CurrentPage+1 and applies it.
//
// While a fetch is in flight, or once the feed is exhausted, the call returns
// the current state without fetching. A failed fetch leaves the accumulated
// items and page counter untouched, so calling again retries the same page.
// A result that arrives after Reset is dropped. Appended in the returned state
// counts only items added by this call.
func (c *Controller[T, K]) LoadNextPage(ctx context.Context) State[T] {
	c.mu.Lock()
	if c.status == Loading || c.status == Exhausted {
		c.appended = 0
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st
	}
	c.status = Loading
	c.err = nil
	gen := c.generation
	pageNumber := c.currentPage + 1
	c.mu.Unlock()

	page, err := c.fetch(ctx, pageNumber)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		st := c.snapshotLocked()
		st.Appended = 0
		return st
	}
	if err == nil {
		err = c.validate(pageNumber, page)
	}
	if err != nil {
		c.status = Failed
		c.err = classify(pageNumber, err)
		c.appended = 0
		return c.snapshotLocked()
	}
	c.applyLocked(page)
	return c.snapshotLocked()
}

// Reset discards all accumulated items and returns a fresh Idle state. Any
// fetch still in flight belongs to the previous generation and is ignored.
func (c *Controller[T, K]) Reset() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.items = nil
	c.seen = make(map[K]struct{})
	c.currentPage = 0
	c.totalPages = 0
	c.status = Idle
	c.err = nil
	c.appended = 0
	return c.snapshotLocked()
}

func (c *Controller[T, K]) validate(requested int, page Page[T]) error {
	if page.PageNumber != requested {
		return &MalformedResponseError{
			Page:   requested,
			Reason: fmt.Sprintf("got page %d", page.PageNumber),
		}
	}
	if requested == 1 {
		if len(page.Items) == 0 {
			return ErrEmptyResult
		}
		if page.TotalPages < 1 {
			return &MalformedResponseError{Page: requested, Reason: "total pages must be at least 1"}
		}
		return nil
	}
	// totalPages is pinned by page 1; later pages past it cannot be reached
	// because the feed is exhausted first.
	if requested > c.totalPages {
		return &MalformedResponseError{
			Page:   requested,
			Reason: fmt.Sprintf("page beyond total %d", c.totalPages),
		}
	}
	return nil
}

func (c *Controller[T, K]) applyLocked(page Page[T]) {
	if page.PageNumber == 1 {
		c.totalPages = page.TotalPages
	}

	added := 0
	for _, item := range page.Items {
		if c.filter != nil && !c.filter(item) {
			continue
		}
		key := c.keyOf(item)
		if _, ok := c.seen[key]; ok {
			continue
		}
		c.seen[key] = struct{}{}
		c.items = append(c.items, item)
		added++
	}

	c.appended = added
	c.currentPage = page.PageNumber
	if c.currentPage >= c.totalPages {
		c.status = Exhausted
	} else {
		c.status = Ready
	}
}

func (c *Controller[T, K]) snapshotLocked() State[T] {
	items := make([]T, len(c.items))
	copy(items, c.items)
	return State[T]{
		Items:       items,
		CurrentPage: c.currentPage,
		TotalPages:  c.totalPages,
		Status:      c.status,
		Err:         c.err,
		Generation:  c.generation,
		Appended:    c.appended,
	}
}
