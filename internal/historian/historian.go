// Package historian drains match action records from the queue into the database in batches
// and marks matches abandoned once they stop producing actions.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. cache.ActionQueue implements it.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (models.MatchAction, bool, error)
}

// Sink persists batches. database.Repository implements it.
type Sink interface {
	InsertActions(ctx context.Context, actions []models.MatchAction) error
	MarkAbandoned(ctx context.Context, id uuid.UUID) (bool, error)
}

type Options struct {
	BatchSize int
	// FlushDelay bounds how long a partial batch waits before it is written.
	FlushDelay time.Duration
	// Inactivity is how long a match may go without actions before it is abandoned.
	Inactivity time.Duration
	// PopTimeout is the blocking wait per queue read.
	PopTimeout time.Duration
	// SweepEvery is how often inactivity is checked.
	SweepEvery time.Duration
}

func (o *Options) withDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = time.Second
	}
	if o.Inactivity <= 0 {
		o.Inactivity = 10 * time.Minute
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = 3 * time.Second
	}
	if o.SweepEvery <= 0 {
		o.SweepEvery = time.Minute
	}
}

// Service owns the batch and the per-match activity clock.
type Service struct {
	src    Source
	sink   Sink
	opts   Options
	logger *logrus.Logger
	now    func() time.Time

	batchMu sync.Mutex
	batch   []models.MatchAction

	lastActivity sync.Map // uuid.UUID -> time.Time
}

func New(src Source, sink Sink, opts Options, logger *logrus.Logger) *Service {
	opts.withDefaults()
	return &Service{
		src:    src,
		sink:   sink,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		batch:  make([]models.MatchAction, 0, opts.BatchSize),
	}
}

// Run reads, flushes and sweeps until ctx is cancelled, then flushes whatever is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.tickLoop(ctx)
	}()

	s.logger.Info("historian started")
	wg.Wait()
	s.Flush(context.Background())
	s.logger.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok, err := s.src.Pop(ctx, s.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Error("queue read failed")
			continue
		}
		if ok {
			s.Add(ctx, rec)
		}
	}
}

func (s *Service) tickLoop(ctx context.Context) {
	flush := time.NewTicker(s.opts.FlushDelay)
	defer flush.Stop()
	sweep := time.NewTicker(s.opts.SweepEvery)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			s.Flush(ctx)
		case <-sweep.C:
			s.Sweep(ctx)
		}
	}
}

// Add records activity for the match and queues the record, flushing at BatchSize.
func (s *Service) Add(ctx context.Context, rec models.MatchAction) {
	s.lastActivity.Store(rec.MatchID, s.now())

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one call. A failed batch is put back for the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if len(s.batch) == 0 {
		return
	}
	pending := make([]models.MatchAction, len(s.batch))
	copy(pending, s.batch)

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.logger.WithError(err).WithField("count", len(pending)).Error("flush failed")
		return
	}
	s.batch = s.batch[:0]
	s.logger.WithField("count", len(pending)).Debug("flushed actions")
}

// Sweep marks every match idle for longer than Inactivity as abandoned.
func (s *Service) Sweep(ctx context.Context) {
	now := s.now()
	s.lastActivity.Range(func(key, val interface{}) bool {
		id, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		marked, err := s.sink.MarkAbandoned(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("match", id).Error("failed to mark match abandoned")
			return true
		}
		s.lastActivity.Delete(id)
		if marked {
			s.logger.WithField("match", id).Info("marked match abandoned after inactivity")
		}
		return true
	})
}

// Pending is the number of records waiting for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
