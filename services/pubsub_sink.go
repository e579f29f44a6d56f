package services

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubSink publishes events as JSON so email, SMS and chat consumers can deliver them
type PubSubSink struct {
	topic *pubsub.Topic
}

// NewPubSubSink wraps an existing topic
func NewPubSubSink(topic *pubsub.Topic) *PubSubSink {
	return &PubSubSink{topic: topic}
}

// OpenPubSubSink connects to Google Cloud Pub/Sub and returns a sink for topicID.
// The returned close function flushes pending messages and releases the client.
func OpenPubSubSink(ctx context.Context, projectID, topicID string) (*PubSubSink, func(), error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to check pubsub topic: %w", err)
	}
	if !exists {
		client.Close()
		return nil, nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}

	closeFn := func() {
		topic.Stop()
		client.Close()
	}
	return NewPubSubSink(topic), closeFn, nil
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Deliver(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":          string(evt.Type),
			"recipientRole": string(evt.RecipientRole),
			"recipientId":   evt.RecipientID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
