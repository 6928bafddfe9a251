package scroll_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ttab/elephant-export/scroll"
	"github.com/ttab/elephantine/test"
)

type item struct {
	ID  string
	Key int64
}

type memoryCollection struct {
	items     []item
	direction scroll.Direction
	pageSize  int
	cursors   []scroll.Cursor
}

func newCollection(
	direction scroll.Direction, pageSize int, keys ...int64,
) *memoryCollection {
	c := memoryCollection{
		direction: direction,
		pageSize:  pageSize,
	}

	for i, k := range keys {
		c.items = append(c.items, item{
			ID:  fmt.Sprintf("item-%d", i),
			Key: k,
		})
	}

	sort.SliceStable(c.items, func(i, j int) bool {
		if direction == scroll.Descending {
			return c.items[i].Key > c.items[j].Key
		}

		return c.items[i].Key < c.items[j].Key
	})

	return &c
}

func (c *memoryCollection) Fetch(
	_ context.Context, cursor scroll.Cursor,
) ([]item, error) {
	c.cursors = append(c.cursors, cursor)

	var page []item

	for _, it := range c.items {
		if len(page) == c.pageSize {
			break
		}

		if cursor.LastOrderKey != nil {
			last := *cursor.LastOrderKey

			if c.direction == scroll.Ascending && it.Key < last {
				continue
			}

			if c.direction == scroll.Descending && it.Key > last {
				continue
			}
		}

		if slices.Contains(cursor.Exclude, it.ID) {
			continue
		}

		page = append(page, it)
	}

	return page, nil
}

func (c *memoryCollection) Options() scroll.Options[item] {
	return scroll.Options[item]{
		PageSize: c.pageSize,
		IdentityKey: func(it item) (string, bool) {
			return it.ID, true
		},
		OrderKey: func(it item) (int64, error) {
			return it.Key, nil
		},
	}
}

type collector struct {
	pages [][]item
}

func (c *collector) Handle(_ context.Context, page []item) error {
	c.pages = append(c.pages, page)

	return nil
}

func (c *collector) Items() []item {
	var all []item

	for _, p := range c.pages {
		all = append(all, p...)
	}

	return all
}

func TestScrollVisitsEveryItemOnce(t *testing.T) {
	ctx := context.Background()

	for n := 0; n <= 23; n++ {
		// Page sizes start at three, as smaller pages could be
		// made up of ties alone.
		for _, pageSize := range []int{3, 5, 7, 10} {
			var keys []int64

			for i := 0; i < n; i++ {
				// Pairs of items share keys.
				keys = append(keys, int64(i/2))
			}

			coll := newCollection(scroll.Ascending, pageSize, keys...)

			var c collector

			stats, err := scroll.Scroll(ctx, coll.Options(),
				coll.Fetch, c.Handle)
			test.Must(t, err, "scroll %d items with page size %d",
				n, pageSize)

			if diff := cmp.Diff(coll.items, c.Items()); diff != "" {
				t.Fatalf("%d items, page size %d: mismatch (-want +got):\n%s",
					n, pageSize, diff)
			}

			test.Equal(t, n, stats.Records, "record count")
			test.Equal(t, len(c.pages), stats.Pages, "page count")
		}
	}
}

func TestScrollPreservesOrder(t *testing.T) {
	ctx := context.Background()
	keys := []int64{9, 3, 3, 7, 1, 1, 1, 8, 2, 5, 5, 6, 4}

	for _, dir := range []scroll.Direction{scroll.Ascending, scroll.Descending} {
		coll := newCollection(dir, 4, keys...)

		var c collector

		_, err := scroll.Scroll(ctx, coll.Options(), coll.Fetch, c.Handle)
		test.Must(t, err, "scroll %s", dir)

		got := c.Items()

		test.Equal(t, len(keys), len(got), "number of %s items", dir)

		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1].Key, got[i].Key

			if dir == scroll.Ascending && cur < prev {
				t.Fatalf("ascending scroll went from %d to %d", prev, cur)
			}

			if dir == scroll.Descending && cur > prev {
				t.Fatalf("descending scroll went from %d to %d", prev, cur)
			}
		}
	}
}

func TestScrollExcludesTieGroup(t *testing.T) {
	ctx := context.Background()
	coll := newCollection(scroll.Ascending, 3, 1, 1, 1, 2, 2, 3)

	var c collector

	stats, err := scroll.Scroll(ctx, coll.Options(), coll.Fetch, c.Handle)
	test.Must(t, err, "scroll")

	one := int64(1)
	three := int64(3)

	wantCursors := []scroll.Cursor{
		{},
		{
			LastOrderKey: &one,
			Exclude:      []string{"item-0", "item-1", "item-2"},
		},
		{
			LastOrderKey: &three,
			Exclude:      []string{"item-5"},
		},
	}

	if diff := cmp.Diff(wantCursors, coll.cursors); diff != "" {
		t.Fatalf("cursor mismatch (-want +got):\n%s", diff)
	}

	wantPages := [][]item{
		{{"item-0", 1}, {"item-1", 1}, {"item-2", 1}},
		{{"item-3", 2}, {"item-4", 2}, {"item-5", 3}},
		nil,
	}

	if diff := cmp.Diff(wantPages, c.pages); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}

	test.Equal(t, 3, stats.Pages, "page count")
}

func TestScrollFailsOnPageOfTies(t *testing.T) {
	ctx := context.Background()
	coll := newCollection(scroll.Ascending, 3, 7, 7, 7, 7, 7)

	var c collector

	_, err := scroll.Scroll(ctx, coll.Options(), coll.Fetch, c.Handle)
	if !errors.Is(err, scroll.ErrOrderKeyCardinality) {
		t.Fatalf("expected an order key cardinality error, got: %v", err)
	}

	var confErr scroll.ConfigurationError

	if !errors.As(err, &confErr) {
		t.Fatal("expected the error to be a configuration error")
	}

	test.Equal(t, 1, len(coll.cursors), "number of fetches")
	test.Equal(t, 1, len(c.pages), "the first page is still handled")
}

func TestScrollStopsOnShortPage(t *testing.T) {
	ctx := context.Background()

	var fetches int

	fetch := func(_ context.Context, _ scroll.Cursor) ([]item, error) {
		fetches++

		// Pretend that there's more data, a short page must still
		// end the scroll.
		return []item{{"a", 1}, {"b", 2}}, nil
	}

	var c collector

	opts := newCollection(scroll.Ascending, 3).Options()

	stats, err := scroll.Scroll(ctx, opts, fetch, c.Handle)
	test.Must(t, err, "scroll")

	test.Equal(t, 1, fetches, "number of fetches")
	test.Equal(t, 2, stats.Records, "number of records")
}

func TestScrollPropagatesFetchErrors(t *testing.T) {
	ctx := context.Background()
	errBackend := errors.New("backend unavailable")

	fetch := func(_ context.Context, _ scroll.Cursor) ([]item, error) {
		return nil, errBackend
	}

	var c collector

	opts := newCollection(scroll.Ascending, 3).Options()

	_, err := scroll.Scroll(ctx, opts, fetch, c.Handle)
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected the backend error, got: %v", err)
	}

	test.Equal(t, 0, len(c.pages), "no pages handled")
}

func TestScrollStopsOnHandlerError(t *testing.T) {
	ctx := context.Background()
	coll := newCollection(scroll.Ascending, 2, 1, 2, 3, 4, 5)
	errWrite := errors.New("broken pipe")

	handler := func(_ context.Context, _ []item) error {
		return errWrite
	}

	_, err := scroll.Scroll(ctx, coll.Options(), coll.Fetch, handler)
	if !errors.Is(err, errWrite) {
		t.Fatalf("expected the handler error, got: %v", err)
	}

	test.Equal(t, 1, len(coll.cursors), "no fetches after the failure")
}

func TestScrollOrderKeyErrors(t *testing.T) {
	ctx := context.Background()
	coll := newCollection(scroll.Ascending, 2, 1, 2, 3)

	opts := coll.Options()
	opts.OrderKey = func(it item) (int64, error) {
		return scroll.NormalizeKey(fmt.Sprint(it.Key))
	}

	var c collector

	_, err := scroll.Scroll(ctx, opts, coll.Fetch, c.Handle)
	if !errors.Is(err, scroll.ErrUnsupportedOrderKey) {
		t.Fatalf("expected an unsupported order key error, got: %v", err)
	}

	opts.OrderKey = func(_ item) (int64, error) {
		return 0, errors.New("no key")
	}

	_, err = scroll.Scroll(ctx, opts, coll.Fetch, c.Handle)
	if !errors.Is(err, scroll.ErrUnsupportedOrderKey) {
		t.Fatalf("expected key errors to be classified, got: %v", err)
	}
}

func TestScrollInvalidPageSize(t *testing.T) {
	ctx := context.Background()
	coll := newCollection(scroll.Ascending, 0, 1, 2, 3)

	var c collector

	_, err := scroll.Scroll(ctx, coll.Options(), coll.Fetch, c.Handle)
	if !errors.Is(err, scroll.ErrInvalidPageSize) {
		t.Fatalf("expected an invalid page size error, got: %v", err)
	}

	test.Equal(t, 0, len(coll.cursors), "no fetches")
}

func TestScrollCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	coll := newCollection(scroll.Ascending, 2, 1, 2, 3, 4, 5)

	handler := func(_ context.Context, _ []item) error {
		cancel()

		return nil
	}

	_, err := scroll.Scroll(ctx, coll.Options(), coll.Fetch, handler)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a cancellation error, got: %v", err)
	}

	test.Equal(t, 1, len(coll.cursors), "number of fetches")
}

func TestScrollItemsWithoutIdentity(t *testing.T) {
	ctx := context.Background()
	coll := newCollection(scroll.Ascending, 3, 1, 2, 2, 3, 4)

	opts := coll.Options()
	opts.IdentityKey = func(_ item) (string, bool) {
		return "", false
	}

	var c collector

	_, err := scroll.Scroll(ctx, opts, coll.Fetch, c.Handle)
	test.Must(t, err, "scroll without identity keys")

	test.Equal(t, 0, len(coll.cursors[1].Exclude),
		"nothing to exclude without identity keys")

	// Without exclusion the tie groups at the page boundaries are
	// visited twice.
	test.Equal(t, 8, len(c.Items()), "number of visited items")
}

func TestScrollFromCursor(t *testing.T) {
	ctx := context.Background()
	coll := newCollection(scroll.Descending, 2, 1, 2, 3, 4, 5)

	three := int64(3)

	var c collector

	_, err := scroll.ScrollFrom(ctx, coll.Options(), scroll.Cursor{
		LastOrderKey: &three,
		Exclude:      []string{"item-2"},
	}, coll.Fetch, c.Handle)
	test.Must(t, err, "scroll from cursor")

	want := []item{{"item-1", 2}, {"item-0", 1}}

	if diff := cmp.Diff(want, c.Items()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
