package dedupe

// Option configures the deduper.
type Option func(*ringDeduper)

// WithMaxSize bounds the number of remembered keys. Values below 1 are
// ignored.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}
