package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "full configuration",
			cfg: Config{
				ServiceName:    "wisdom-hub-test",
				ServiceVersion: "0.0.0",
				Endpoint:       "localhost:4318",
			},
		},
		{
			name: "fractional sampling",
			cfg: Config{
				ServiceName: "wisdom-hub-test",
				Endpoint:    "localhost:4318",
				SampleRatio: 0.25,
			},
		},
		{
			name: "empty service name still succeeds",
			cfg: Config{
				Endpoint: "localhost:4318",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := Init(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := Shutdown(shutdownCtx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}
