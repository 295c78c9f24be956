// Package numbering mints human-readable document numbers for invoices and quotes.
//
// The store is the source of truth for uniqueness: every candidate is checked for
// existence and, on collision, the candidate sequence is bumped and retried up to a
// fixed bound.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
)

const (
	// DefaultMaxAttempts bounds collision retries for a single generation.
	DefaultMaxAttempts = 100

	// QuotePrefix is the fixed prefix of quote numbers.
	QuotePrefix = "DEV"

	dateLayout     = "20060102"
	dateTimeLayout = "20060102150405"
)

// Lookup is the store view the generator needs. Implementations are expected to read
// inside the caller's transaction so that the existence check is part of its read set.
type Lookup interface {
	// NumberExists reports whether a document with this exact number exists.
	NumberExists(ctx context.Context, number string) (bool, error)
	// LatestNumberWithPrefix returns the highest number starting with prefix, if any.
	LatestNumberWithPrefix(ctx context.Context, prefix string) (string, bool, error)
}

// LookupFuncs adapts plain functions to Lookup.
type LookupFuncs struct {
	Exists func(ctx context.Context, number string) (bool, error)
	Latest func(ctx context.Context, prefix string) (string, bool, error)
}

func (l LookupFuncs) NumberExists(ctx context.Context, number string) (bool, error) {
	return l.Exists(ctx, number)
}

func (l LookupFuncs) LatestNumberWithPrefix(ctx context.Context, prefix string) (string, bool, error) {
	return l.Latest(ctx, prefix)
}

// Result is a minted number. Sequence is the numeric part that was used, so that an
// increment caller can persist Sequence+1 as the next seed.
type Result struct {
	Number   string
	Sequence int64
}

// Generator mints document numbers.
type Generator struct {
	maxAttempts int
	now         func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxAttempts overrides the collision retry bound.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a Generator with the default bound and the wall clock.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{maxAttempts: DefaultMaxAttempts, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxAttempts returns the configured collision retry bound.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate mints an invoice number for prefix under format.
//
//	datetime   PREFIX-YYYYMMDDHHmmss, then PREFIX-YYYYMMDDHHmmss-N on collision
//	date       PREFIX-YYYYMMDD-NNN, starting after the highest number of that day
//	increment  PREFIX-NNNNNN, starting at seed
func (g *Generator) Generate(ctx context.Context, lookup Lookup, prefix string, format domain.NumberingFormat, seed int64) (Result, error) {
	now := g.now()
	switch format {
	case domain.NumberingDateTime:
		base := fmt.Sprintf("%s-%s", prefix, now.Format(dateTimeLayout))
		return g.probe(ctx, lookup, 0, func(seq int64) string {
			if seq == 0 {
				return base
			}
			return fmt.Sprintf("%s-%d", base, seq)
		})
	case domain.NumberingDate:
		dayPrefix := fmt.Sprintf("%s-%s-", prefix, now.Format(dateLayout))
		start, err := nextAfterLatest(ctx, lookup, dayPrefix)
		if err != nil {
			return Result{}, err
		}
		return g.probe(ctx, lookup, start, func(seq int64) string {
			return fmt.Sprintf("%s%03d", dayPrefix, seq)
		})
	case domain.NumberingIncrement:
		if seed < 1 {
			seed = 1
		}
		return g.probe(ctx, lookup, seed, func(seq int64) string {
			return fmt.Sprintf("%s-%06d", prefix, seq)
		})
	default:
		return Result{}, fmt.Errorf("%w: unknown numbering format %q", apperrors.ErrValidation, format)
	}
}

// GenerateQuoteNumber mints DEV-YYYYMMDD-NNNN, continuing from the highest quote number of the day.
func (g *Generator) GenerateQuoteNumber(ctx context.Context, lookup Lookup) (Result, error) {
	dayPrefix := fmt.Sprintf("%s-%s-", QuotePrefix, g.now().Format(dateLayout))
	start, err := nextAfterLatest(ctx, lookup, dayPrefix)
	if err != nil {
		return Result{}, err
	}
	return g.probe(ctx, lookup, start, func(seq int64) string {
		return fmt.Sprintf("%s%04d", dayPrefix, seq)
	})
}

func (g *Generator) probe(ctx context.Context, lookup Lookup, start int64, format func(int64) string) (Result, error) {
	seq := start
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate := format(seq)
		exists, err := lookup.NumberExists(ctx, candidate)
		if err != nil {
			return Result{}, fmt.Errorf("checking number %s: %w", candidate, err)
		}
		if !exists {
			return Result{Number: candidate, Sequence: seq}, nil
		}
		seq++
	}
	return Result{}, fmt.Errorf("%w: %d candidates starting at %s", apperrors.ErrNumberGenerationExhausted, g.maxAttempts, format(start))
}

// nextAfterLatest returns max(sequence)+1 for numbers under prefix, or 1 when none exist.
func nextAfterLatest(ctx context.Context, lookup Lookup, prefix string) (int64, error) {
	latest, found, err := lookup.LatestNumberWithPrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("reading latest number for %s: %w", prefix, err)
	}
	if !found {
		return 1, nil
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(latest, prefix), 10, 64)
	if err != nil {
		// Foreign formats under the same prefix are skipped by the existence probe.
		return 1, nil
	}
	return n + 1, nil
}
