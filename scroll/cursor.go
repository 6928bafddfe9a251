package scroll

// Direction of the scroll.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}

	return "asc"
}

// ParseDirection parses "asc" or "desc", the empty string is treated as
// ascending.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "", "asc":
		return Ascending, true
	case "desc":
		return Descending, true
	}

	return Ascending, false
}

// Cursor is the position that the next page should be fetched from. The zero
// value is the start of the collection.
type Cursor struct {
	// LastOrderKey is the order key of the last item of the previous
	// page, nil for the first page.
	LastOrderKey *int64 `json:"last_order_key,omitempty"`
	// Exclude holds the identity keys of the items in the previous page
	// that share LastOrderKey.
	Exclude []string `json:"exclude,omitempty"`
}

// IsStart returns true if this is the cursor for the first page.
func (c Cursor) IsStart() bool {
	return c.LastOrderKey == nil
}
