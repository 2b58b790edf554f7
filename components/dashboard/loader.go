package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

var errMissingSKU = errors.New("dashboard: sku is required")

// InsightError wraps the failure of one insight fetch.
type InsightError struct {
	Kind InsightKind
	Err  error
}

func (e *InsightError) Error() string {
	return fmt.Sprintf("dashboard: load %s: %v", e.Kind, e.Err)
}

func (e *InsightError) Unwrap() error {
	return e.Err
}

// LoadInsightSet issues the nine insight requests for sku in parallel. Either
// all succeed and a complete set is returned, or the first failure cancels the
// remaining requests and no set is returned.
func LoadInsightSet(ctx context.Context, src InsightSource, sku string) (InsightSet, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return InsightSet{}, errMissingSKU
	}
	if src == nil {
		return InsightSet{}, errors.New("dashboard: insight source not configured")
	}
	set := InsightSet{SKU: sku}
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(kind InsightKind, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				return &InsightError{Kind: kind, Err: err}
			}
			return nil
		})
	}

	fetch(InsightProfitMargin, func(ctx context.Context) (err error) {
		set.ProfitMargin, err = src.ProfitMargin(ctx, sku)
		return err
	})
	fetch(InsightSlowMovers, func(ctx context.Context) (err error) {
		set.SlowMovers, err = src.SlowMovers(ctx, sku)
		return err
	})
	fetch(InsightBreakeven, func(ctx context.Context) (err error) {
		set.Breakeven, err = src.Breakeven(ctx, sku)
		return err
	})
	fetch(InsightGoldenTimes, func(ctx context.Context) (err error) {
		set.GoldenTimes, err = src.GoldenTimes(ctx, sku)
		return err
	})
	fetch(InsightRevenueForecast, func(ctx context.Context) (err error) {
		set.RevenueForecast, err = src.RevenueForecast(ctx, sku)
		return err
	})
	fetch(InsightDiscountCompetition, func(ctx context.Context) (err error) {
		set.DiscountCompetition, err = src.DiscountCompetition(ctx, sku)
		return err
	})
	fetch(InsightRestockTime, func(ctx context.Context) (err error) {
		set.RestockTime, err = src.RestockTime(ctx, sku)
		return err
	})
	fetch(InsightSpeedCompare, func(ctx context.Context) (err error) {
		set.SpeedCompare, err = src.SpeedCompare(ctx, sku)
		return err
	})
	fetch(InsightCommentAnalysis, func(ctx context.Context) (err error) {
		set.CommentAnalysis, err = src.CommentAnalysis(ctx, sku)
		return err
	})

	if err := g.Wait(); err != nil {
		return InsightSet{}, err
	}
	return set, nil
}
