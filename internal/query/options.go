package query

import "time"

const (
	defaultGCTime = 5 * time.Minute
)

// Options controls how a query is resolved. Client-wide defaults are set in
// New and may be overridden per call.
type Options struct {
	// Enabled gates execution entirely. Disabled queries never fetch.
	Enabled bool
	// StaleTime is the freshness window. Cached data younger than this is
	// served without fetching. Zero means always refetch.
	StaleTime time.Duration
	// GCTime is how long resolved data is kept after it was fetched.
	GCTime time.Duration
	// Wait bounds how long a caller blocks on an in-flight fetch. Zero waits
	// until the fetch resolves or the caller's context ends.
	Wait time.Duration
	// AlwaysRefetch ignores freshness and fetches on every call.
	AlwaysRefetch bool
}

// Option mutates Options.
type Option func(*Options)

// WithEnabled sets whether the query may execute.
func WithEnabled(enabled bool) Option {
	return func(o *Options) { o.Enabled = enabled }
}

// EnabledIf narrows Enabled: the query runs only if it was already enabled
// and cond holds.
func EnabledIf(cond bool) Option {
	return func(o *Options) { o.Enabled = o.Enabled && cond }
}

// WithStaleTime sets the freshness window.
func WithStaleTime(d time.Duration) Option {
	return func(o *Options) { o.StaleTime = d }
}

// WithGCTime sets how long resolved data is retained.
func WithGCTime(d time.Duration) Option {
	return func(o *Options) { o.GCTime = d }
}

// WithWait bounds how long a caller blocks on an in-flight fetch.
func WithWait(d time.Duration) Option {
	return func(o *Options) { o.Wait = d }
}

// WithAlwaysRefetch toggles ignoring the freshness window.
func WithAlwaysRefetch(always bool) Option {
	return func(o *Options) { o.AlwaysRefetch = always }
}

func defaultOptions() Options {
	return Options{
		Enabled: true,
		GCTime:  defaultGCTime,
	}
}

func (o Options) apply(opts []Option) Options {
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.GCTime <= 0 {
		o.GCTime = defaultGCTime
	}
	if o.StaleTime < 0 {
		o.StaleTime = 0
	}
	return o
}
