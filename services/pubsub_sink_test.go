package services

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakePubSub(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "wholesale-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return srv, client
}

func TestPubSubSink_PublishesEventJSON(t *testing.T) {
	srv, client := newFakePubSub(t)
	ctx := context.Background()
	topic, err := client.CreateTopic(ctx, "order-events")
	require.NoError(t, err)
	t.Cleanup(topic.Stop)

	sink := NewPubSubSink(topic)
	assert.Equal(t, "pubsub", sink.Name())

	evt := sampleEvent(EventOrderLocked)
	evt.Channels = []Channel{ChannelInApp, ChannelSMS}
	require.NoError(t, sink.Deliver(ctx, evt))

	messages := srv.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, string(EventOrderLocked), messages[0].Attributes["type"])
	assert.Equal(t, "buyer", messages[0].Attributes["recipientRole"])
	assert.Equal(t, "client-1", messages[0].Attributes["recipientId"])

	var decoded Event
	require.NoError(t, json.Unmarshal(messages[0].Data, &decoded))
	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, evt.OrderID, decoded.OrderID)
	assert.Equal(t, evt.Channels, decoded.Channels)
}

func TestOpenPubSubSink_Emulator(t *testing.T) {
	srv, client := newFakePubSub(t)
	ctx := context.Background()
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	_, _, err := OpenPubSubSink(ctx, "wholesale-test", "missing-topic")
	assert.Error(t, err)

	_, err = client.CreateTopic(ctx, "order-events")
	require.NoError(t, err)

	sink, closeFn, err := OpenPubSubSink(ctx, "wholesale-test", "order-events")
	require.NoError(t, err)
	defer closeFn()
	require.NoError(t, sink.Deliver(ctx, sampleEvent(EventOrderConfirmed)))
	assert.Len(t, srv.Messages(), 1)
}
