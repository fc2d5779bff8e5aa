package telemetry

import (
	"context"
	"testing"

	"agentchain/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.Trace{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned error: %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	// exporter 是惰性连接的，这里只验证能构造出来
	shutdown, err := Setup(context.Background(), config.Trace{
		Enabled:     true,
		Endpoint:    "http://127.0.0.1:4318/v1/traces",
		ServiceName: "agentchain-test",
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	_ = shutdown(context.Background())
}
