package scroll

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyFunc returns the order key of an item.
type KeyFunc[T any] func(item T) (int64, error)

// Fields maps the names of orderable fields to their key functions.
type Fields[T any] map[string]KeyFunc[T]

// Resolve looks up the key function for a field. Resolve once when setting
// up a scroll, not per item.
func (f Fields[T]) Resolve(name string) (KeyFunc[T], error) {
	fn, ok := f[name]
	if !ok {
		names := make([]string, 0, len(f))

		for n := range f {
			names = append(names, n)
		}

		sort.Strings(names)

		return nil, fmt.Errorf("no order key %q, expected one of %s: %w",
			name, strings.Join(names, ", "), ErrUnsupportedOrderKey)
	}

	return fn, nil
}

// TimeKey normalises a timestamp to an order key with microsecond
// resolution.
func TimeKey(t time.Time) int64 {
	return t.UnixMicro()
}

// KeyTime is the inverse of TimeKey.
func KeyTime(key int64) time.Time {
	return time.UnixMicro(key).UTC()
}

// UUIDKey normalises a time ordered UUID (version 1, 6 or 7) to an order key
// based on its embedded timestamp. Note that UUIDs generated within the same
// microsecond will share an order key.
func UUIDKey(id uuid.UUID) (int64, error) {
	switch id.Version() {
	case 1, 6, 7:
	default:
		return 0, fmt.Errorf(
			"uuid version %d has no timestamp: %w",
			id.Version(), ErrUnsupportedOrderKey)
	}

	sec, nsec := id.Time().UnixTime()

	return TimeKey(time.Unix(sec, nsec)), nil
}

// NormalizeKey converts a dynamically typed field value to an order key.
func NormalizeKey(v any) (int64, error) {
	switch val := v.(type) {
	case time.Time:
		return TimeKey(val), nil
	case *time.Time:
		if val == nil {
			return 0, fmt.Errorf("nil time: %w", ErrUnsupportedOrderKey)
		}

		return TimeKey(*val), nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uuid.UUID:
		return UUIDKey(val)
	}

	return 0, fmt.Errorf("values of type %T cannot be used as order keys: %w",
		v, ErrUnsupportedOrderKey)
}
