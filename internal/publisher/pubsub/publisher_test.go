package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishDeliversJSONWithEventAttribute(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "notifications")
	require.NoError(t, err)
	sub, err := client.CreateSubscription(ctx, "sub-id", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	p := New(topic)
	defer p.Stop()

	payload := map[string]any{"Company_Name": "Acme", "Link": "https://cdn.test/ar.pdf"}
	id, err := p.Publish(ctx, "company.notified", payload)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	received := make(chan *pubsub.Message, 1)
	recvCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			msg.Ack()
			select {
			case received <- msg:
			default:
			}
		})
	}()

	select {
	case msg := <-received:
		require.Equal(t, "company.notified", msg.Attributes[EventAttribute])
		var got map[string]any
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		require.Equal(t, "Acme", got["Company_Name"])
	case <-ctx.Done():
		t.Fatal("message not received")
	}
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "x", "payload")
	require.Error(t, err)
}
