package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "timeaway-backend/internal/domain/request"

	"github.com/sirupsen/logrus"
)

// Report summarizes one pass over Processed requests. Superseded counts rows
// whose status changed between the scan and the write.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	Scanned    int       `json:"scanned"`
	Completed  int       `json:"completed"`
	NotDue     int       `json:"not_due"`
	Skipped    int       `json:"skipped"`
	Superseded int       `json:"superseded"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

type Option func(*Reconciler)

// WithLocation sets the zone whose calendar days drive completion and the
// midnight wake-up. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithBatchLimit caps how many Processed requests one pass reads; 0 means no cap.
func WithBatchLimit(n int) Option { return func(r *Reconciler) { r.batchLimit = n } }

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

// WithTimer replaces time.After, mainly for tests.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(r *Reconciler) { r.after = after }
}

type Reconciler struct {
	repo       domain.Repository
	log        *logrus.Entry
	loc        *time.Location
	batchLimit int
	now        func() time.Time
	after      func(time.Duration) <-chan time.Time

	mu   sync.RWMutex
	last *Report
}

func New(repo domain.Repository, log *logrus.Entry, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:  repo,
		log:   log,
		loc:   time.Local,
		now:   time.Now,
		after: time.After,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile completes every Processed request whose end date is before the
// calendar day of now. The write is conditional on the row still being
// Processed, so a status set by someone else after the scan is kept. A bad
// date or a failed write is logged and counted; it never aborts the pass.
// The error is non-nil only when the scan itself could not be read.
func (r *Reconciler) Reconcile(ctx context.Context, now time.Time) (Report, error) {
	now = now.In(r.loc)
	rep := Report{StartedAt: now}

	items, err := r.repo.FindByStatus(ctx, domain.StatusProcessed, r.batchLimit)
	if err != nil {
		rep.Error = err.Error()
		return rep, err
	}
	rep.Scanned = len(items)

	for _, it := range items {
		if ctx.Err() != nil {
			rep.Error = ctx.Err().Error()
			return rep, ctx.Err()
		}
		entry := r.log.WithField("request_id", it.ID)

		due, err := domain.CompletionDue(it.EndDate, now)
		if err != nil {
			entry.WithError(err).Warn("skipping request with unparseable end_date")
			rep.Skipped++
			continue
		}
		if !due {
			rep.NotDue++
			continue
		}

		ok, err := r.repo.TransitionStatus(ctx, it.ID, domain.CompletionFrom, domain.CompletionTo)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				entry.Info("request disappeared before completion")
			} else {
				entry.WithError(err).Error("failed to complete request")
			}
			rep.Failed++
			continue
		}
		if !ok {
			entry.Info("request status changed before completion, left as is")
			rep.Superseded++
			continue
		}
		entry.WithField("end_date", it.EndDate).Info("request completed")
		rep.Completed++
	}
	return rep, nil
}

// Run reconciles immediately and then once at each local midnight until ctx
// is cancelled. The wait is recomputed every cycle.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		rep, err := r.Reconcile(ctx, r.now())
		r.setLast(rep)
		fields := logrus.Fields{
			"scanned":    rep.Scanned,
			"completed":  rep.Completed,
			"not_due":    rep.NotDue,
			"skipped":    rep.Skipped,
			"superseded": rep.Superseded,
			"failed":     rep.Failed,
		}
		if err != nil && ctx.Err() == nil {
			r.log.WithFields(fields).WithError(err).Error("reconcile pass failed")
		} else {
			r.log.WithFields(fields).Info("reconcile pass finished")
		}

		now := r.now().In(r.loc)
		wait := domain.NextMidnight(now).Sub(now)
		r.log.WithField("sleep", wait.String()).Debug("waiting for next midnight")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(wait):
		}
	}
}

// LastReport returns the most recent pass, or nil before the first one.
func (r *Reconciler) LastReport() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

func (r *Reconciler) setLast(rep Report) {
	r.mu.Lock()
	r.last = &rep
	r.mu.Unlock()
}
