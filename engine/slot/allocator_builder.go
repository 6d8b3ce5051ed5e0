package slot

// allocatorConfig collects builder options before the allocator is sized.
type allocatorConfig struct {
	initialCapacity int
	maxCapacity     int
}

// AllocatorBuilderOption is a function that configures an Allocator during construction.
type AllocatorBuilderOption func(*allocatorConfig)

// WithInitialCapacity sets the starting capacity. Values below MinimumCapacity
// are raised to it and values above the maximum capacity are clamped to it.
//
// Parameters:
//   - capacity: the initial number of addressable handles
//
// Returns:
//   - AllocatorBuilderOption: a function that applies the initial capacity option
func WithInitialCapacity(capacity int) AllocatorBuilderOption {
	return func(c *allocatorConfig) {
		c.initialCapacity = capacity
	}
}

// WithMaxCapacity sets the capacity ceiling, typically the number of hardware
// units the device exposes. Values below 1 are raised to 1.
//
// Parameters:
//   - capacity: the maximum number of addressable handles
//
// Returns:
//   - AllocatorBuilderOption: a function that applies the max capacity option
func WithMaxCapacity(capacity int) AllocatorBuilderOption {
	return func(c *allocatorConfig) {
		c.maxCapacity = capacity
	}
}
