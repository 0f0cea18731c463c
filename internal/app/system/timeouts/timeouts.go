// Package timeouts holds the deadlines handlers apply to database, storage,
// SMTP, and OAuth calls.
//
//   - Ping: health checks
//   - Short: single-document reads and writes, token issuance
//   - Medium: list queries, stats, outreach (includes SMTP)
//   - Long: uploads to object storage, exports
//   - Batch: roster imports
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 15 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

var current atomic.Pointer[Config]

func init() { Reset() }

func load() Config { return *current.Load() }

func Ping() time.Duration   { return load().Ping }
func Short() time.Duration  { return load().Short }
func Medium() time.Duration { return load().Medium }
func Long() time.Duration   { return load().Long }
func Batch() time.Duration  { return load().Batch }

// Configure overrides the non-zero fields of cfg. Call it during startup.
func Configure(cfg Config) {
	next := load()
	for _, p := range []struct {
		dst *time.Duration
		v   time.Duration
	}{
		{&next.Ping, cfg.Ping},
		{&next.Short, cfg.Short},
		{&next.Medium, cfg.Medium},
		{&next.Long, cfg.Long},
		{&next.Batch, cfg.Batch},
	} {
		if p.v > 0 {
			*p.dst = p.v
		}
	}
	current.Store(&next)
}

// Reset restores the defaults.
func Reset() {
	current.Store(&Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	})
}

// Current returns the active configuration.
func Current() Config { return load() }

// WithTimeout derives a context with timeout whose cancel func logs a
// warning when the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "roster import")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
