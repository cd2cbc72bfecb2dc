package nats

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/saviobatista/sbs-viewer/internal/types"
	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := natscontainer.Run(ctx, "nats:2.10-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Server is ready")),
	)
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate NATS container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get NATS connection string: %v", err)
	}
	return url
}

func TestNATSClient_Integration_PublishAndSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client, err := New(setupNATS(t))
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}
	defer client.Close()

	const total = 10
	var (
		mu       sync.Mutex
		received []*types.SBSMessage
	)
	done := make(chan struct{})
	_, err = client.SubscribeSBSRaw("tracker-test", func(msg *types.SBSMessage) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
		if len(received) == total {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	for i := 0; i < total; i++ {
		msg := &types.SBSMessage{
			Raw:       fmt.Sprintf("MSG,1,1,1,ABC%03d,1", i),
			Timestamp: time.Now().UTC(),
			Source:    "feed1",
		}
		if err := client.PublishSBSMessage(msg); err != nil {
			t.Fatalf("Failed to publish message: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		mu.Lock()
		t.Fatalf("Timeout: received %d of %d messages", len(received), total)
	}

	mu.Lock()
	defer mu.Unlock()
	if received[0].Raw != "MSG,1,1,1,ABC000,1" {
		t.Errorf("Expected first message first, got %s", received[0].Raw)
	}
}

func TestNATSClient_Integration_StreamReuse(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	url := setupNATS(t)
	first, err := New(url)
	if err != nil {
		t.Fatalf("Failed to create first client: %v", err)
	}
	defer first.Close()

	second, err := New(url)
	if err != nil {
		t.Fatalf("Second client should reuse the existing stream: %v", err)
	}
	second.Close()
}
