package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationSink stores events as in-app notifications
type NotificationSink struct {
	db *gorm.DB
}

func NewNotificationSink(db *gorm.DB) *NotificationSink {
	return &NotificationSink{db: db}
}

func (s *NotificationSink) Name() string { return "notifications" }

func (s *NotificationSink) Deliver(ctx context.Context, evt Event) error {
	if evt.RecipientID == "" {
		return nil
	}

	notification := models.Notification{
		RecipientRole: string(evt.RecipientRole),
		RecipientID:   evt.RecipientID,
		Type:          string(evt.Type),
		Title:         evt.Title,
		Message:       evt.Message,
		OrderID:       optional(evt.OrderID),
		ReturnID:      optional(evt.ReturnID),
		CreditNoteID:  optional(evt.CreditNoteID),
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// LogSink writes every event to the structured log
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, evt Event) error {
	s.logger.WithFields(logrus.Fields{
		"event_type":     evt.Type,
		"recipient_role": evt.RecipientRole,
		"recipient_id":   evt.RecipientID,
		"order_id":       evt.OrderID,
		"return_id":      evt.ReturnID,
		"credit_note_id": evt.CreditNoteID,
		"channels":       evt.Channels,
	}).Info(evt.Title)
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
