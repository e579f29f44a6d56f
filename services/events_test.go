package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleEvent(t EventType) Event {
	return Event{
		Type:          t,
		OccurredAt:    baseTime,
		RecipientRole: RoleBuyer,
		RecipientID:   "client-1",
		Title:         "Order confirmed",
		Message:       "Your order ORD-1 has been confirmed.",
		Channels:      []Channel{ChannelInApp},
		OrderID:       "order-1",
	}
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := NewMockEventSink(ctrl)
	second := NewMockEventSink(ctrl)
	first.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	second.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	d := NewDispatcher(quietLogger(), 8, first, second)
	d.Start(2)
	d.Publish(context.Background(), []Event{sampleEvent(EventOrderConfirmed), sampleEvent(EventOrderLocked)})
	d.Close()
}

func TestDispatcher_FailingSinkDoesNotStopOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	broken := NewMockEventSink(ctrl)
	healthy := NewMockEventSink(ctrl)
	broken.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(errors.New("smtp unavailable"))
	broken.EXPECT().Name().Return("email").AnyTimes()
	healthy.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil)

	logger, hook := logtest.NewNullLogger()
	d := NewDispatcher(logger, 4, broken, healthy)
	d.Start(1)
	d.Publish(context.Background(), []Event{sampleEvent(EventOrderCanceled)})
	d.Close()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "email", hook.LastEntry().Data["sink"])
}

func TestDispatcher_DropsWhenFullOrClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := NewMockEventSink(ctrl)
	sink.EXPECT().Deliver(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	logger, hook := logtest.NewNullLogger()
	d := NewDispatcher(logger, 1, sink)
	// Not started yet, so only one event fits in the queue
	d.Publish(context.Background(), []Event{sampleEvent(EventOrderConfirmed), sampleEvent(EventOrderLocked)})
	d.Start(1)
	d.Close()
	d.Publish(context.Background(), []Event{sampleEvent(EventOrderCompleted)})
	d.Close()

	dropped := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			dropped++
		}
	}
	assert.Equal(t, 2, dropped)
}

func TestDispatcher_ConcurrentPublishAndClose(t *testing.T) {
	d := NewDispatcher(quietLogger(), 16, NewLogSink(quietLogger()))
	d.Start(2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Publish(context.Background(), []Event{sampleEvent(EventOrderConfirmed)})
		}()
	}
	d.Close()
	wg.Wait()
}

func TestNotificationSink(t *testing.T) {
	db := setupTestDB(t)
	sink := NewNotificationSink(db)

	evt := sampleEvent(EventReturnApproved)
	evt.ReturnID = "return-1"
	require.NoError(t, sink.Deliver(context.Background(), evt))

	noRecipient := sampleEvent(EventOrderConfirmed)
	noRecipient.RecipientID = ""
	require.NoError(t, sink.Deliver(context.Background(), noRecipient))

	var notifications []models.Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, "buyer", n.RecipientRole)
	assert.Equal(t, "client-1", n.RecipientID)
	assert.Equal(t, string(EventReturnApproved), n.Type)
	require.NotNil(t, n.OrderID)
	assert.Equal(t, "order-1", *n.OrderID)
	require.NotNil(t, n.ReturnID)
	assert.Nil(t, n.CreditNoteID)
	assert.Nil(t, n.ReadAt)
}

func TestLogSink(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sink := NewLogSink(logger)
	assert.Equal(t, "log", sink.Name())

	require.NoError(t, sink.Deliver(context.Background(), sampleEvent(EventOrderLocked)))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Order confirmed", entry.Message)
	assert.Equal(t, EventOrderLocked, entry.Data["event_type"])
	assert.Equal(t, "order-1", entry.Data["order_id"])
}
