//go:build integration

package client

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/card-catalog-client/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_SharedBudgetAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPartition("OP01", testutil.MakeCards("OP01", 3))
	mock.SetHeader("X-RateLimit-Remaining", "1")
	mock.SetHeader("X-RateLimit-Reset", "60")

	newClient := func() *Client {
		cfg := DefaultConfig(mock.URL(), "CardBrowser-Integration/1.0.0")
		cfg.Redis = redisClient
		cfg.RequestsPerSecond = 0
		cfg.Retry = fastRetryConfig()
		c, err := New(cfg)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		return c
	}

	first := newClient()
	second := newClient()
	ctx := context.Background()

	res, err := first.FetchByPartition(ctx, "OP01", 1, 2)
	if err != nil {
		t.Fatalf("first client request error = %v", err)
	}
	if len(res.Items) != 2 || res.TotalPages != 2 {
		t.Errorf("page = %+v, want 2 items of 2 pages", res)
	}

	// The budget recorded by the first client blocks the second one
	_, err = second.FetchByPartition(ctx, "OP01", 2, 2)
	if !errors.Is(err, ErrRequestBlocked) {
		t.Fatalf("second client error = %v, want ErrRequestBlocked", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.GetRequestCount())
	}
}

func TestIntegration_RedisUnavailableDoesNotBlock(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	cleanup() // container gone: tracker errors must not stop requests

	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetPartition("ST01", testutil.MakeCards("ST01", 1))

	cfg := DefaultConfig(mock.URL(), "CardBrowser-Integration/1.0.0")
	cfg.Redis = redisClient
	cfg.RequestsPerSecond = 0
	cfg.Retry = fastRetryConfig()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.FetchByPartition(context.Background(), "ST01", 1, 36); err != nil {
		t.Fatalf("FetchByPartition() error = %v", err)
	}
}
