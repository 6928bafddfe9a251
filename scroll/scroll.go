package scroll

import (
	"context"
	"errors"
	"fmt"
)

// Scroll defaults and limits.
const (
	DefaultPageSize = 500
	MaxPageSize     = 10_000
)

// FetchFunc fetches a page of items starting at the cursor.
//
// The page must only contain items that match the base filter, are on or
// after the cursor order key and aren't listed in the cursor exclude set. The
// items must be sorted by the order key in the direction of the scroll and
// the page can't hold more than the page size items.
type FetchFunc[T any] func(ctx context.Context, cursor Cursor) ([]T, error)

// PageHandler is responsible for processing a page of items. A page is
// handed to the handler before the scroll decides whether to continue, so a
// returned error stops the scroll without any further fetches.
type PageHandler[T any] func(ctx context.Context, page []T) error

// Options for a scroll.
type Options[T any] struct {
	// PageSize is the number of items to request per page.
	PageSize int
	// IdentityKey returns a stable unique identifier for an item, used for
	// de-duplication of items that share an order key. Items without an
	// identity key cannot be excluded from the next page.
	IdentityKey func(item T) (string, bool)
	// OrderKey returns the order key of an item.
	OrderKey KeyFunc[T]
}

// Stats summarises a completed or aborted scroll.
type Stats struct {
	Pages   int
	Records int
}

// Scroll works through a collection page by page from the start.
func Scroll[T any](
	ctx context.Context,
	opts Options[T],
	fetch FetchFunc[T],
	handler PageHandler[T],
) (Stats, error) {
	return ScrollFrom(ctx, opts, Cursor{}, fetch, handler)
}

// ScrollFrom works through a collection page by page, starting at the given
// cursor. It runs until a page shorter than the page size has been handled
// or an error is encountered.
func ScrollFrom[T any](
	ctx context.Context,
	opts Options[T],
	cursor Cursor,
	fetch FetchFunc[T],
	handler PageHandler[T],
) (Stats, error) {
	var stats Stats

	if opts.PageSize <= 0 {
		return stats, ErrInvalidPageSize
	}

	if opts.OrderKey == nil || opts.IdentityKey == nil {
		return stats, fmt.Errorf(
			"both order and identity key functions are required: %w",
			ErrUnsupportedOrderKey)
	}

	for {
		err := ctx.Err()
		if err != nil {
			return stats, fmt.Errorf("scroll cancelled: %w", err)
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return stats, fmt.Errorf("fetch page %d: %w",
				stats.Pages+1, err)
		}

		stats.Pages++
		stats.Records += len(page)

		err = handler(ctx, page)
		if err != nil {
			return stats, fmt.Errorf("handle page %d: %w",
				stats.Pages, err)
		}

		if len(page) < opts.PageSize {
			return stats, nil
		}

		next, err := nextCursor(opts, page)
		if err != nil {
			return stats, fmt.Errorf("advance past page %d: %w",
				stats.Pages, err)
		}

		cursor = next
	}
}

// nextCursor calculates the cursor for the page following a full page.
func nextCursor[T any](opts Options[T], page []T) (Cursor, error) {
	last, err := opts.OrderKey(page[len(page)-1])
	if err != nil {
		return Cursor{}, fmt.Errorf("order key of last item: %w",
			keyError(err))
	}

	var (
		exclude []string
		ties    int
	)

	for i := range page {
		key, err := opts.OrderKey(page[i])
		if err != nil {
			return Cursor{}, fmt.Errorf("order key of item %d: %w",
				i, keyError(err))
		}

		if key != last {
			continue
		}

		ties++

		id, ok := opts.IdentityKey(page[i])
		if ok {
			exclude = append(exclude, id)
		}
	}

	// Items without identity keys can't be excluded, so a page full of
	// ties is a dead end even if the exclude set is smaller.
	if ties == len(page) {
		return Cursor{}, fmt.Errorf(
			"all %d items have the order key %d: %w",
			ties, last, ErrOrderKeyCardinality)
	}

	return Cursor{
		LastOrderKey: &last,
		Exclude:      exclude,
	}, nil
}

// keyError makes sure that order key extraction failures are classified as
// configuration errors.
func keyError(err error) error {
	if errors.Is(err, ErrUnsupportedOrderKey) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrUnsupportedOrderKey, err)
}
