package numbering_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/core/numbering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	numbers map[string]bool
	checks  int
	err     error
}

func newFakeLookup(existing ...string) *fakeLookup {
	f := &fakeLookup{numbers: map[string]bool{}}
	for _, n := range existing {
		f.numbers[n] = true
	}
	return f
}

func (f *fakeLookup) NumberExists(_ context.Context, number string) (bool, error) {
	f.checks++
	if f.err != nil {
		return false, f.err
	}
	return f.numbers[number], nil
}

func (f *fakeLookup) LatestNumberWithPrefix(_ context.Context, prefix string) (string, bool, error) {
	var matches []string
	for n := range f.numbers {
		if strings.HasPrefix(n, prefix) {
			matches = append(matches, n)
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	sort.Strings(matches)
	return matches[len(matches)-1], true, nil
}

var fixedNow = time.Date(2024, 3, 15, 9, 5, 7, 0, time.UTC)

func newGenerator(opts ...numbering.Option) *numbering.Generator {
	opts = append([]numbering.Option{numbering.WithClock(func() time.Time { return fixedNow })}, opts...)
	return numbering.NewGenerator(opts...)
}

func TestGenerate_Increment(t *testing.T) {
	g := newGenerator()

	res, err := g.Generate(context.Background(), newFakeLookup(), "FAC", domain.NumberingIncrement, 42)

	require.NoError(t, err)
	assert.Equal(t, "FAC-000042", res.Number)
	assert.Equal(t, int64(42), res.Sequence)
}

func TestGenerate_IncrementSkipsCollisions(t *testing.T) {
	g := newGenerator()
	lookup := newFakeLookup("FAC-000042", "FAC-000043")

	res, err := g.Generate(context.Background(), lookup, "FAC", domain.NumberingIncrement, 42)

	require.NoError(t, err)
	assert.Equal(t, "FAC-000044", res.Number)
	assert.Equal(t, int64(44), res.Sequence)
	assert.Equal(t, 3, lookup.checks)
}

func TestGenerate_IncrementSeedDefaultsToOne(t *testing.T) {
	res, err := newGenerator().Generate(context.Background(), newFakeLookup(), "FAC", domain.NumberingIncrement, 0)

	require.NoError(t, err)
	assert.Equal(t, "FAC-000001", res.Number)
}

func TestGenerate_Date(t *testing.T) {
	g := newGenerator()

	res, err := g.Generate(context.Background(), newFakeLookup(), "FAC", domain.NumberingDate, 0)
	require.NoError(t, err)
	assert.Equal(t, "FAC-20240315-001", res.Number)

	lookup := newFakeLookup("FAC-20240315-001", "FAC-20240315-007", "FAC-20240314-020")
	res, err = g.Generate(context.Background(), lookup, "FAC", domain.NumberingDate, 0)
	require.NoError(t, err)
	assert.Equal(t, "FAC-20240315-008", res.Number)
}

func TestGenerate_DateTime(t *testing.T) {
	g := newGenerator()

	res, err := g.Generate(context.Background(), newFakeLookup(), "FAC", domain.NumberingDateTime, 0)
	require.NoError(t, err)
	assert.Equal(t, "FAC-20240315090507", res.Number)

	res, err = g.Generate(context.Background(), newFakeLookup("FAC-20240315090507", "FAC-20240315090507-1"), "FAC", domain.NumberingDateTime, 0)
	require.NoError(t, err)
	assert.Equal(t, "FAC-20240315090507-2", res.Number)
}

func TestGenerate_Exhausted(t *testing.T) {
	g := newGenerator(numbering.WithMaxAttempts(5))
	lookup := newFakeLookup()
	for i := 1; i <= 5; i++ {
		lookup.numbers[fmt.Sprintf("FAC-%06d", i)] = true
	}

	_, err := g.Generate(context.Background(), lookup, "FAC", domain.NumberingIncrement, 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNumberGenerationExhausted))
	assert.Equal(t, 5, lookup.checks)
}

func TestGenerate_DefaultBoundIsHundred(t *testing.T) {
	g := newGenerator()
	assert.Equal(t, 100, g.MaxAttempts())

	lookup := newFakeLookup()
	for i := 1; i <= 100; i++ {
		lookup.numbers[fmt.Sprintf("FAC-%06d", i)] = true
	}
	_, err := g.Generate(context.Background(), lookup, "FAC", domain.NumberingIncrement, 1)
	assert.ErrorIs(t, err, apperrors.ErrNumberGenerationExhausted)
	assert.Equal(t, 100, lookup.checks)
}

func TestGenerate_LookupError(t *testing.T) {
	lookup := newFakeLookup()
	lookup.err = errors.New("store down")

	_, err := newGenerator().Generate(context.Background(), lookup, "FAC", domain.NumberingIncrement, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
	assert.False(t, errors.Is(err, apperrors.ErrNumberGenerationExhausted))
}

func TestGenerate_UnknownFormat(t *testing.T) {
	_, err := newGenerator().Generate(context.Background(), newFakeLookup(), "FAC", "weekly", 1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGenerateQuoteNumber(t *testing.T) {
	g := newGenerator()

	res, err := g.GenerateQuoteNumber(context.Background(), newFakeLookup())
	require.NoError(t, err)
	assert.Equal(t, "DEV-20240315-0001", res.Number)

	res, err = g.GenerateQuoteNumber(context.Background(), newFakeLookup("DEV-20240315-0003", "DEV-20240314-0009"))
	require.NoError(t, err)
	assert.Equal(t, "DEV-20240315-0004", res.Number)
}

func TestLookupFuncs(t *testing.T) {
	l := numbering.LookupFuncs{
		Exists: func(context.Context, string) (bool, error) { return false, nil },
		Latest: func(context.Context, string) (string, bool, error) { return "", false, nil },
	}
	res, err := newGenerator().GenerateQuoteNumber(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, "DEV-20240315-0001", res.Number)
}
