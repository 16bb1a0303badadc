package dynamock

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcdynamodb "github.com/testcontainers/testcontainers-go/modules/dynamodb"
)

// DefaultLocalImage is the DynamoDB Local image started when no instance is
// listening on the configured port.
const DefaultLocalImage = "amazon/dynamodb-local:2.5.2"

var shared struct {
	sync.Mutex
	started bool
	local   *LocalDynamoDB
	err     error
}

// SharedContainer returns a DynamoDB Local container shared by every test in
// the test binary, starting it on first use. The testcontainers reaper
// removes the container when the binary exits. The test is skipped when no
// container runtime is available.
func SharedContainer(t *testing.T, image string) *LocalDynamoDB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	shared.Lock()
	defer shared.Unlock()
	if !shared.started {
		shared.started = true
		shared.local, shared.err = runContainer(context.Background(), image)
	}
	if shared.err != nil {
		t.Fatalf("failed to start DynamoDB Local: %v", shared.err)
	}
	return shared.local
}

func runContainer(ctx context.Context, image string) (*LocalDynamoDB, error) {
	ctr, err := tcdynamodb.Run(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", image, err)
	}
	hostPort, err := ctr.ConnectionString(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read container endpoint: %w", err)
	}
	return NewLocalDynamoDBAt("http://" + hostPort), nil
}
