package render

// ContextBuilderOption is a function that configures a Context during construction.
type ContextBuilderOption func(*contextImpl)

// WithMaxImageUnits is an option builder that caps the image units handed out by
// the context below what the device reports. Values <= 0 keep the device limit.
//
// Parameters:
//   - n: the maximum number of units
//
// Returns:
//   - ContextBuilderOption: a function that applies the limit to a contextImpl
func WithMaxImageUnits(n int) ContextBuilderOption {
	return func(c *contextImpl) {
		c.maxUnits = n
	}
}

// WithFrameObserver is an option builder that sets the sink for draw statistics.
//
// Parameters:
//   - o: the observer; nil keeps the default no-op observer
//
// Returns:
//   - ContextBuilderOption: a function that applies the observer to a contextImpl
func WithFrameObserver(o FrameObserver) ContextBuilderOption {
	return func(c *contextImpl) {
		if o != nil {
			c.observer = o
		}
	}
}
