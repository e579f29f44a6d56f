package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// sweepKeyNamespace seeds the UUIDv5 idempotency keys of automatic confirmations
var sweepKeyNamespace = uuid.MustParse("5d0f6f1e-3c1b-4b9e-9a55-6f1d2c7e8b40")

const sweepLockKey = "wholesale:lock:deadline-sweep"

// Sweep outcomes per order
const (
	SweepConfirmed = "confirmed"
	SweepSkipped   = "skipped"
	SweepFailed    = "failed"
)

// SweepLocker keeps two sweeps from running at the same time
type SweepLocker interface {
	// TryLock returns ok=false without error when another sweep holds the lock
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// RedisSweepLocker shares the sweep lock across instances
type RedisSweepLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisSweepLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisSweepLocker {
	return &RedisSweepLocker{client: redislock.New(rdb), ttl: ttl}
}

func (l *RedisSweepLocker) TryLock(ctx context.Context) (func(), bool, error) {
	lock, err := l.client.Obtain(ctx, sweepLockKey, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to obtain sweep lock: %w", err)
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}
	return release, true, nil
}

// LocalSweepLocker serializes sweeps inside one process
type LocalSweepLocker struct {
	mu sync.Mutex
}

func (l *LocalSweepLocker) TryLock(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

// SweepConfig tunes the deadline sweep
type SweepConfig struct {
	BatchSize    int
	Concurrency  int
	OrderTimeout time.Duration
	KeyWindow    time.Duration
}

// SweptOrder is the outcome for one due order
type SweptOrder struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Result      string `json:"result"`
	Reason      string `json:"reason,omitempty"`
}

// SweepResult summarizes one sweep
type SweepResult struct {
	RanAt     time.Time    `json:"ranAt"`
	Skipped   bool         `json:"skipped"`
	Examined  int          `json:"examined"`
	Confirmed int          `json:"confirmed"`
	Ignored   int          `json:"ignored"`
	Failed    int          `json:"failed"`
	Orders    []SweptOrder `json:"orders"`
}

func (r *SweepResult) add(o SweptOrder) {
	r.Examined++
	switch o.Result {
	case SweepConfirmed:
		r.Confirmed++
	case SweepSkipped:
		r.Ignored++
	case SweepFailed:
		r.Failed++
	}
	r.Orders = append(r.Orders, o)
}

// DeadlineSweeper confirms PENDING orders whose confirmation deadline has passed
type DeadlineSweeper struct {
	db      *gorm.DB
	orders  OrderConfirmer
	locker  SweepLocker
	cfg     SweepConfig
	logger  *logrus.Logger
	metrics *Metrics
	clock   func() time.Time
}

func NewDeadlineSweeper(deps Dependencies, orders OrderConfirmer, locker SweepLocker, cfg SweepConfig) *DeadlineSweeper {
	e := newEngine(deps)
	if locker == nil {
		locker = &LocalSweepLocker{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 10 * time.Second
	}
	if cfg.KeyWindow <= 0 {
		cfg.KeyWindow = 5 * time.Minute
	}
	return &DeadlineSweeper{
		db:      e.db,
		orders:  orders,
		locker:  locker,
		cfg:     cfg,
		logger:  e.logger,
		metrics: e.metrics,
		clock:   e.clock,
	}
}

// SweepKey is the idempotency key of the automatic confirmation of orderID in the window containing at
func SweepKey(orderID string, at time.Time, window time.Duration) string {
	bucket := at.UTC().Truncate(window)
	return uuid.NewSHA1(sweepKeyNamespace, []byte(orderID+"|"+bucket.Format(time.RFC3339))).String()
}

// Sweep confirms every due order of a buyer with auto-confirmation enabled.
// One order failing never stops the others.
func (s *DeadlineSweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.clock().UTC()
	result := &SweepResult{RanAt: now, Orders: []SweptOrder{}}

	release, ok, err := s.locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("Deadline sweep already running elsewhere, skipping")
		result.Skipped = true
		return result, nil
	}
	defer release()
	s.metrics.sweepRun()

	var mu sync.Mutex
	lastID := ""
	for {
		batch, err := s.dueOrders(ctx, now, lastID)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			break
		}
		lastID = batch[len(batch)-1].ID

		g := &errgroup.Group{}
		g.SetLimit(s.cfg.Concurrency)
		for i := range batch {
			order := batch[i]
			g.Go(func() error {
				outcome := s.sweepOrder(ctx, order, now)
				s.metrics.sweepOrder(outcome.Result)
				mu.Lock()
				result.add(outcome)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if len(batch) < s.cfg.BatchSize || ctx.Err() != nil {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"examined":  result.Examined,
		"confirmed": result.Confirmed,
		"ignored":   result.Ignored,
		"failed":    result.Failed,
	}).Info("Deadline sweep finished")
	return result, ctx.Err()
}

// Run sweeps every interval until ctx is done
func (s *DeadlineSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Error("Deadline sweep failed")
			}
		}
	}
}

func (s *DeadlineSweeper) dueOrders(ctx context.Context, now time.Time, afterID string) ([]models.Order, error) {
	var orders []models.Order
	q := s.db.WithContext(ctx).
		Preload("Client").
		Where("status = ? AND confirmation_deadline IS NOT NULL AND confirmation_deadline <= ?", string(models.OrderPending), now)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(s.cfg.BatchSize).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list due orders: %w", err)
	}
	return orders, nil
}

func (s *DeadlineSweeper) sweepOrder(ctx context.Context, order models.Order, now time.Time) SweptOrder {
	outcome := SweptOrder{OrderID: order.ID, OrderNumber: order.OrderNumber}
	log := s.logger.WithField("order_id", order.ID)

	if order.Client == nil || !order.Client.AutoConfirmEnabled {
		outcome.Result = SweepSkipped
		outcome.Reason = "auto-confirmation disabled"
		return outcome
	}

	orderCtx, cancel := context.WithTimeout(ctx, s.cfg.OrderTimeout)
	defer cancel()

	res, err := s.orders.Confirm(orderCtx, SystemActor(), order.ID, TransitionInput{
		IdempotencyKey: SweepKey(order.ID, now, s.cfg.KeyWindow),
		Notes:          "Confirmed automatically after the confirmation deadline passed",
	})
	switch {
	case err == nil && res.Replayed:
		outcome.Result = SweepSkipped
		outcome.Reason = "already confirmed by an earlier sweep"
	case err == nil:
		outcome.Result = SweepConfirmed
	case errors.Is(err, ErrInvalidTransition):
		// Another actor moved the order after it was listed
		outcome.Result = SweepSkipped
		outcome.Reason = err.Error()
	default:
		outcome.Result = SweepFailed
		outcome.Reason = err.Error()
		log.WithError(err).Warn("Automatic confirmation failed")
	}
	return outcome
}
