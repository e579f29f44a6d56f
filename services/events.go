package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType names something that happened to an order, return or credit note
type EventType string

const (
	EventOrderConfirmed     EventType = "order.confirmed"
	EventOrderAutoConfirmed EventType = "order.auto_confirmed"
	EventOrderPlaced        EventType = "order.placed"
	EventOrderLocked        EventType = "order.locked"
	EventOrderCompleted     EventType = "order.completed"
	EventOrderCanceled      EventType = "order.canceled"
	EventOrderInReview      EventType = "order.in_review"
	EventOrderIssueReported EventType = "order.issue_reported"
	EventOrderIssueResolved EventType = "order.issue_resolved"
	EventReturnRequested    EventType = "return.requested"
	EventReturnApproved     EventType = "return.approved"
	EventReturnRejected     EventType = "return.rejected"
	EventReturnCompleted    EventType = "return.completed"
	EventCreditNoteIssued   EventType = "credit_note.issued"
	EventCreditApplied      EventType = "credit_note.applied"
)

// Channel is a delivery medium requested for an event
type Channel string

const (
	ChannelInApp    Channel = "IN_APP"
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
)

// Event is emitted after a mutation commits
type Event struct {
	Type          EventType `json:"type"`
	OccurredAt    time.Time `json:"occurredAt"`
	RecipientRole Role      `json:"recipientRole"`
	RecipientID   string    `json:"recipientId"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Channels      []Channel `json:"channels,omitempty"`
	OrderID       string    `json:"orderId,omitempty"`
	ReturnID      string    `json:"returnId,omitempty"`
	CreditNoteID  string    `json:"creditNoteId,omitempty"`
	ActorID       string    `json:"actorId,omitempty"`
}

// Publisher receives the events of a committed mutation. Implementations must
// not block the caller and must not report delivery failures back to it.
type Publisher interface {
	Publish(ctx context.Context, events []Event)
}

// EventSink delivers a single event to one destination
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, []Event) {}

// Dispatcher queues events and fans them out to sinks from worker goroutines
type Dispatcher struct {
	sinks   []EventSink
	logger  *logrus.Logger
	timeout time.Duration
	queue   chan Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a bounded queue. Call Start to begin delivery.
func NewDispatcher(logger *logrus.Logger, bufferSize int, sinks ...EventSink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher{
		sinks:   sinks,
		logger:  logger,
		timeout: 10 * time.Second,
		queue:   make(chan Event, bufferSize),
	}
}

// Start launches the delivery workers
func (d *Dispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for evt := range d.queue {
				d.deliver(evt)
			}
		}()
	}
}

// Publish enqueues without blocking. Events that do not fit are dropped with a warning.
func (d *Dispatcher) Publish(_ context.Context, events []Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, evt := range events {
		if d.closed {
			d.logger.WithField("event_type", evt.Type).Warn("Dispatcher closed, dropping event")
			continue
		}
		select {
		case d.queue <- evt:
		default:
			d.logger.WithFields(logrus.Fields{
				"event_type":   evt.Type,
				"recipient_id": evt.RecipientID,
			}).Warn("Event queue full, dropping event")
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) deliver(evt Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Deliver(ctx, evt)
		cancel()
		if err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"sink":         sink.Name(),
				"event_type":   evt.Type,
				"recipient_id": evt.RecipientID,
				"order_id":     evt.OrderID,
			}).Warn("Event delivery failed")
		}
	}
}
