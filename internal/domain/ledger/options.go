package ledger

import "time"

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service's time source. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// AppendOption configures a single append.
type AppendOption func(*appendConfig)

type appendConfig struct {
	skipBalance bool
}

// SkipBalanceUpdate appends the transaction without incrementing the owning
// profile's cached balance. Used for grants whose amount was already written
// to the profile directly (creation, cycle reset) to avoid double counting.
func SkipBalanceUpdate() AppendOption {
	return func(c *appendConfig) { c.skipBalance = true }
}
