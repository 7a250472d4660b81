// Package jobs holds batch work run outside the request path.
package jobs

import (
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/repository"
	"alcyxob/rehab-app/internal/service"
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const defaultResetWorkers = 8

// ResetReport summarizes one batch reset.
type ResetReport struct {
	Users  int
	Reset  int
	Failed int
}

// ResetAll runs the daily reset for every user. A failure for one user is
// logged and counted; only listing the users or a cancelled ctx aborts.
func ResetAll(ctx context.Context, users repository.UserRepository, assignments service.AssignmentService, workers int, log *logger.Logger) (ResetReport, error) {
	ids, err := users.ListIDs(ctx)
	if err != nil {
		return ResetReport{}, err
	}
	if workers <= 0 {
		workers = defaultResetWorkers
	}

	var reset, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := assignments.ResetDaily(gctx, id)
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case errors.Is(err, service.ErrUserNotFound):
				// deleted between listing and reset
			case err != nil:
				failed.Add(1)
				log.Error("daily reset failed", "user_id", id.Hex(), "error", err)
			case ok:
				reset.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	report := ResetReport{Users: len(ids), Reset: int(reset.Load()), Failed: int(failed.Load())}
	log.Info("daily reset finished", "users", report.Users, "reset", report.Reset, "failed", report.Failed)
	return report, err
}
