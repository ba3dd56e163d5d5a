// helpers.go - Common test helpers for integration tests

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startHTTPContainer starts a throwaway nginx container with one exposed
// TCP port and returns the container plus the host/port it is reachable on.
// The container is terminated via t.Cleanup.
func startHTTPContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string, int) {
	req := testcontainers.ContainerRequest{
		Image:        "nginx:alpine",
		ExposedPorts: []string{"80/tcp"},
		WaitingFor:   wait.ForListeningPort("80/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	mapped, err := container.MappedPort(ctx, "80")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	t.Logf("container listening at %s:%d", host, mapped.Int())

	return container, host, mapped.Int()
}
