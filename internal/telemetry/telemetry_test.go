package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"hazacheck/internal/config"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown := Setup(config.TelemetryConfig{}, config.AppConfig{Name: "test"}, zap.NewNop())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	shutdown := Setup(config.TelemetryConfig{OTLPEndpoint: "localhost:4317", Insecure: true},
		config.AppConfig{Name: "test", Version: "1.0.0", Env: "test"}, zap.NewNop())
	assert.NotNil(t, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
