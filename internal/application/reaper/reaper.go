package reaper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"
)

const defaultRetention = 7 * 24 * time.Hour

// midnightTimer identifies the reaper's wait on a manual clock.
const midnightTimer = 1

type accountStore interface {
	DeleteUnverifiedOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Reaper deletes accounts that were never verified once they are older than
// the retention window. It runs as a supervised service and sweeps every
// local midnight.
type Reaper struct {
	store     accountStore
	retention time.Duration
	clock     abtime.AbstractTime
	log       logrus.FieldLogger

	after func(d time.Duration) <-chan time.Time
}

type Deps struct {
	Accounts  accountStore
	Retention time.Duration
	Clock     abtime.AbstractTime
	Log       logrus.FieldLogger
}

func New(deps Deps) *Reaper {
	r := &Reaper{
		store:     deps.Accounts,
		retention: deps.Retention,
		clock:     deps.Clock,
		log:       deps.Log,
	}
	if r.retention <= 0 {
		r.retention = defaultRetention
	}
	if r.clock == nil {
		r.clock = abtime.NewRealTime()
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	r.after = func(d time.Duration) <-chan time.Time {
		return r.clock.After(d, midnightTimer)
	}
	return r
}

func (r *Reaper) String() string { return "stale account reaper" }

// Sweep removes every unverified account created before now minus retention.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.retention)
	return r.store.DeleteUnverifiedOlderThan(ctx, cutoff)
}

func (r *Reaper) Serve(ctx context.Context) error {
	for {
		now := r.clock.Now()
		wait := nextMidnight(now).Sub(now)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(wait):
		}

		n, err := r.Sweep(ctx)
		entry := r.log.WithField("deleted", n)
		if err != nil {
			entry.WithError(err).Error("stale account sweep failed")
			continue
		}
		entry.Info("stale account sweep finished")
	}
}

// nextMidnight returns the first midnight strictly after now in now's location.
func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
