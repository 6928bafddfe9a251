package scroll

// ConfigurationError is used for errors that are caused by how the scroll
// was set up rather than by the data or the fetch collaborator. They are
// never worth retrying.
type ConfigurationError string

func (err ConfigurationError) Error() string {
	return string(err)
}

// Scroll configuration errors.
const (
	// ErrInvalidPageSize is returned when the page size isn't a positive
	// number.
	ErrInvalidPageSize ConfigurationError = "page size must be greater than zero"
	// ErrOrderKeyCardinality is returned when a full page of items share
	// the same order key. The scroll cannot make progress, either increase
	// the page size or use an order key with a finer granularity.
	ErrOrderKeyCardinality ConfigurationError = "too many items share the same order key"
	// ErrUnsupportedOrderKey is returned when an order key cannot be
	// extracted from an item or an order field is unknown.
	ErrUnsupportedOrderKey ConfigurationError = "unsupported order key"
)
