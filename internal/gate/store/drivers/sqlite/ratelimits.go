package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store/drivers/sqlite/gen"
)

type rateWindowsRepo struct {
	q *gen.Queries
}

// Increment runs as one UPSERT ... RETURNING statement, which sqlite executes
// under its write lock, so concurrent callers never lose an update.
func (r *rateWindowsRepo) Increment(
	ctx context.Context,
	key string,
	cost int64,
	window time.Duration,
	now time.Time,
) (domain.Window, error) {
	row, err := r.q.IncrementWindow(ctx, gen.IncrementWindowParams{
		Key:      key,
		Cost:     cost,
		Now:      toMillis(now),
		WindowMs: window.Milliseconds(),
	})
	if err != nil {
		return domain.Window{}, err
	}
	return domain.Window{
		Key:         key,
		Count:       row.Count,
		WindowStart: fromMillis(row.WindowStart),
		Length:      time.Duration(row.WindowMs) * time.Millisecond,
	}, nil
}

func (r *rateWindowsRepo) DeleteExpiredWindows(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredWindows(ctx, toMillis(now))
}
