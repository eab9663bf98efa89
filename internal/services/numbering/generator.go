// Package numbering formats document numbers from a per-series prefix template and counter.
package numbering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invoicing-system/internal/apperror"
)

// MaxAttempts bounds the uniqueness loop.
const MaxAttempts = 10000

type Series string

const (
	SeriesInvoice   Series = "invoice"
	SeriesQuotation Series = "quotation"
)

// Config is the numbering state of one series.
type Config struct {
	Prefix     string
	NextNumber int64
	Padding    int
}

type Result struct {
	Number      string
	NextCounter int64
}

// UniquenessCheck reports whether candidate is still free.
type UniquenessCheck func(ctx context.Context, candidate string) (bool, error)

// FormatPrefix substitutes {YYYY}, {MM} and {DD} with the parts of now.
func FormatPrefix(prefix string, now time.Time) string {
	return strings.NewReplacer(
		"{YYYY}", fmt.Sprintf("%04d", now.Year()),
		"{MM}", fmt.Sprintf("%02d", int(now.Month())),
		"{DD}", fmt.Sprintf("%02d", now.Day()),
	).Replace(prefix)
}

// Format renders the full document number for counter.
func Format(cfg Config, now time.Time, counter int64) string {
	padding := cfg.Padding
	if padding < 1 {
		padding = 1
	}
	return fmt.Sprintf("%s%0*d", FormatPrefix(cfg.Prefix, now), padding, counter)
}

// Generate picks the next document number. A nil isUnique assigns the counter as is;
// otherwise taken candidates are skipped until a free one is found or MaxAttempts is hit.
// Generate has no side effects: callers persist Result.NextCounter.
func Generate(ctx context.Context, cfg Config, now time.Time, isUnique UniquenessCheck) (Result, error) {
	counter := cfg.NextNumber
	if counter < 1 {
		counter = 1
	}

	if isUnique == nil {
		return Result{Number: Format(cfg, now, counter), NextCounter: counter + 1}, nil
	}

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		candidate := Format(cfg, now, counter)
		ok, err := isUnique(ctx, candidate)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Number: candidate, NextCounter: counter + 1}, nil
		}
		counter++
	}

	return Result{}, apperror.New("numbering.Generate", apperror.ErrNumberGenerationExhausted,
		fmt.Sprintf("no free number after %d attempts for prefix %q", MaxAttempts, cfg.Prefix))
}
