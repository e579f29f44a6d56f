package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxTxAttempts bounds re-runs of a transaction that lost a compare-and-swap race
const maxTxAttempts = 3

// errStaleWrite means a conditional update matched no row because a concurrent writer committed first
var errStaleWrite = errors.New("row changed by a concurrent writer")

var (
	defaultNumbersOnce sync.Once
	defaultNumbers     *utils.NumberGenerator
)

// sharedNumbers is the generator used by services built without one, so ids stay unique across them
func sharedNumbers() *utils.NumberGenerator {
	defaultNumbersOnce.Do(func() {
		gen, err := utils.NewNumberGenerator(1)
		if err != nil {
			panic(err)
		}
		defaultNumbers = gen
	})
	return defaultNumbers
}

// Dependencies are shared by every engine service
type Dependencies struct {
	DB        *gorm.DB
	Publisher Publisher
	Metrics   *Metrics
	Logger    *logrus.Logger
	Numbers   *utils.NumberGenerator
	Clock     func() time.Time
}

type engine struct {
	db        *gorm.DB
	ledger    *IdempotencyLedger
	publisher Publisher
	metrics   *Metrics
	logger    *logrus.Logger
	numbers   *utils.NumberGenerator
	clock     func() time.Time
}

func newEngine(deps Dependencies) engine {
	e := engine{
		db:        deps.DB,
		ledger:    NewIdempotencyLedger(deps.DB),
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		numbers:   deps.Numbers,
		clock:     deps.Clock,
	}
	if e.publisher == nil {
		e.publisher = NopPublisher{}
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetOutput(io.Discard)
	}
	if e.numbers == nil {
		e.numbers = sharedNumbers()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

func (e *engine) now() time.Time {
	return e.clock().UTC()
}

// outcome is what a mutation produced inside its transaction
type outcome[T any] struct {
	Result T
	Prior  string
	Next   string
	Events []Event
}

// mutation is one keyed state change of a single entity
type mutation[T any] struct {
	Operation  string
	EntityType string
	EntityID   string
	Key        string
	Actor      Actor
	Apply      func(tx *gorm.DB) (outcome[T], error)
}

// execute runs m exactly once per idempotency key. A known key replays the
// stored result. Events are published only after the transaction commits.
func execute[T any](ctx context.Context, e *engine, m mutation[T]) (result T, replayed bool, err error) {
	defer func() { e.metrics.observe(m.Operation, replayed, err) }()

	log := e.logger.WithFields(logrus.Fields{
		"operation":       m.Operation,
		"entity_type":     m.EntityType,
		"entity_id":       m.EntityID,
		"actor_id":        m.Actor.ID,
		"actor_role":      m.Actor.Role,
		"idempotency_key": m.Key,
	})

	if m.Key != "" {
		record, findErr := e.ledger.Find(ctx, m.Key)
		if findErr != nil {
			return result, false, findErr
		}
		if record != nil {
			result, err = replay[T](record, m.Operation, m.EntityID)
			if err == nil {
				log.Info("Replaying already processed request")
			}
			return result, err == nil, err
		}
	}

	var out outcome[T]
	err = e.transact(ctx, func(tx *gorm.DB) error {
		var record *models.IdempotencyRecord
		if m.Key != "" {
			record = &models.IdempotencyRecord{
				Key:        m.Key,
				Operation:  m.Operation,
				EntityType: m.EntityType,
				EntityID:   m.EntityID,
				ActorID:    m.Actor.ID,
			}
			if err := e.ledger.Claim(tx, record); err != nil {
				return err
			}
		}

		o, err := m.Apply(tx)
		if err != nil {
			return err
		}

		if record != nil {
			if err := e.ledger.Complete(tx, record, o.Prior, o.Next, o.Result); err != nil {
				return err
			}
		}
		out = o
		return nil
	})
	if err != nil {
		// A concurrent request with the same key may have committed first
		if m.Key != "" {
			if record, findErr := e.ledger.Find(ctx, m.Key); findErr == nil && record != nil {
				result, err = replay[T](record, m.Operation, m.EntityID)
				if err == nil {
					log.Info("Request raced with an identical one, replaying its result")
				}
				return result, err == nil, err
			}
			if errors.Is(err, errKeyClaimed) {
				err = newError(CodeConflict, "request with idempotency key %q is in progress", m.Key)
			}
		}
		if _, typed := CodeOf(err); typed {
			log.WithError(err).Info("Operation rejected")
		} else {
			log.WithError(err).Error("Operation failed")
		}
		var zero T
		return zero, false, err
	}

	log.WithFields(logrus.Fields{"prior_status": out.Prior, "new_status": out.Next}).Info("Operation applied")
	if len(out.Events) > 0 {
		e.publisher.Publish(ctx, out.Events)
	}
	return out.Result, false, nil
}

// transact re-runs fn when it lost a compare-and-swap so the retry re-reads fresh state
func (e *engine) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	for attempt := 1; ; attempt++ {
		err := e.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, errStaleWrite) {
			return err
		}
		if attempt == maxTxAttempts {
			return newError(CodeConflict, "entity kept changing concurrently, retry later")
		}
	}
}

// compareAndSwap applies updates only if the row still carries version
func compareAndSwap(tx *gorm.DB, model interface{}, id string, version int, updates map[string]interface{}) error {
	updates["version"] = version + 1
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update %T %s: %w", model, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errStaleWrite
	}
	return nil
}

// appendNote adds line to an existing free-text notes column
func appendNote(existing, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return existing
	}
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

func hasRole(actor Actor, allowed []Role) bool {
	for _, r := range allowed {
		if actor.Role == r {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
