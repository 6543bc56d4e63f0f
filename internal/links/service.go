package links

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/metrics"
)

// Service is the Connection Reconciler and Disconnect Engine.
// It holds no state besides its collaborators; the database is the only
// coordination point between replicas.
type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	metrics metrics.Recorder
	now     func() time.Time
	newID   func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics reports operation outcomes to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// NewService builds a link service on db.
func NewService(db *gorm.DB, log *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{
		db:      db,
		log:     log,
		metrics: metrics.Nop{},
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// run executes fn in one transaction. Any error rolls the whole transaction
// back; unclassified errors surface as PersistenceError.
func (s *Service) run(ctx context.Context, op, actor string, fn func(ls *linkStore) (bool, error)) (string, bool, error) {
	start := time.Now()
	ls := &linkStore{now: s.now(), opID: s.newID(), actor: actor}
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ls.tx = tx
		var err error
		changed, err = fn(ls)
		return err
	})

	result := "ok"
	switch {
	case err != nil:
		result = "error"
		err = apperr.Persistence(err, op+" failed")
	case !changed:
		result = "noop"
	}
	s.metrics.ObserveLinkOp(op, result, time.Since(start))
	return ls.opID, changed, err
}
