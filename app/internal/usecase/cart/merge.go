package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domcart "example.com/mechstore/app/internal/domain/cart"
)

type Outcome string

const (
	OutcomeMerged        Outcome = "merged"
	OutcomeAddFailed     Outcome = "add_failed"
	OutcomeOptionsFailed Outcome = "options_failed"
)

type ItemResult struct {
	ProductID string
	Outcome   Outcome
	Err       error
	Retryable bool
}

type Report struct {
	Items []ItemResult
}

func (r Report) Failed() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Outcome != OutcomeMerged {
			out = append(out, it)
		}
	}
	return out
}

// Merger replays a local cart into the upstream account cart. Items are sent
// one at a time, in cart order, because the upstream cart has no item-level
// locking. A failing item is recorded and skipped; only a failure to fetch
// the resulting upstream cart fails the merge.
type Merger struct {
	logger  *zap.Logger
	timeout time.Duration
}

func NewMerger(logger *zap.Logger, timeout time.Duration) *Merger {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	return &Merger{logger: logger, timeout: timeout}
}

// Merge moves c from not_synced through merging to synced, replacing its
// items with the upstream cart. On failure c returns to not_synced with its
// local items intact.
func (m *Merger) Merge(ctx context.Context, server ServerCart, c *domcart.Cart) (Report, error) {
	switch c.SyncState {
	case domcart.SyncSynced:
		return Report{}, ErrAlreadySynced
	case domcart.SyncMerging:
		return Report{}, ErrMergeInProgress
	}
	c.SyncState = domcart.SyncMerging

	local := c.Items()
	report := Report{Items: make([]ItemResult, 0, len(local))}
	for _, it := range local {
		report.Items = append(report.Items, m.mergeItem(ctx, server, it))
	}

	var items []domcart.Item
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		items, err = server.FetchCart(ctx)
		return err
	})
	if err == nil {
		err = c.Replace(items)
	}
	if err != nil {
		c.SyncState = domcart.SyncNotSynced
		m.logger.Warn("cart merge aborted", zap.Error(err))
		return report, fmt.Errorf("fetch account cart: %w", err)
	}

	c.SyncState = domcart.SyncSynced
	return report, nil
}

func (m *Merger) mergeItem(ctx context.Context, server ServerCart, it domcart.Item) ItemResult {
	res := ItemResult{ProductID: it.ProductID, Outcome: OutcomeMerged}

	err := m.call(ctx, func(ctx context.Context) error {
		_, err := server.AddItem(ctx, it.ProductID, it.Quantity)
		return err
	})
	if err != nil {
		m.logger.Warn("merge: add item failed", zap.String("product_id", it.ProductID), zap.Error(err))
		res.Outcome = OutcomeAddFailed
		res.Err = err
		res.Retryable = isRetryable(err)
		return res
	}

	opts, ok := domcart.OptionsFor(it)
	if !ok {
		return res
	}
	err = m.call(ctx, func(ctx context.Context) error {
		return server.UpdateOptions(ctx, it.ProductID, opts)
	})
	if err != nil {
		m.logger.Warn("merge: update options failed", zap.String("product_id", it.ProductID), zap.Error(err))
		res.Outcome = OutcomeOptionsFailed
		res.Err = err
		res.Retryable = isRetryable(err)
	}
	return res
}

func (m *Merger) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return fn(ctx)
}

func isRetryable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
