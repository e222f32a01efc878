package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wisdomhub/wisdom-hub/internal/config"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/services/ai"
	"go.uber.org/zap"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test external service connectivity",
		Long:  "Probe the database, the auth provider's JWKS endpoint and the configured AI provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			fmt.Println("Testing database connection...")
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database check failed: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()
			fmt.Println("✓ Database is reachable")

			fmt.Printf("\nTesting JWKS endpoint: %s\n", cfg.AuthJWKSURL)
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(cfg.AuthJWKSURL)
			if err != nil {
				return fmt.Errorf("failed to reach JWKS endpoint: %w", err)
			}
			if err := resp.Body.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("JWKS endpoint returned status: %d", resp.StatusCode)
			}
			fmt.Println("✓ JWKS endpoint is accessible")

			fmt.Printf("\nTesting AI provider: %s\n", cfg.AIProvider)
			provider, err := buildProvider(cfg)
			if err != nil {
				return err
			}
			chatService := ai.NewChatService(provider, zap.NewNop())
			if err := chatService.Ping(ctx); err != nil {
				if ai.IsAuthError(err) {
					return fmt.Errorf("AI provider rejected the API key, check your credentials: %w", err)
				}
				if ai.IsRateLimitError(err) {
					return fmt.Errorf("AI provider is rate limiting this key, try again later: %w", err)
				}
				return fmt.Errorf("AI provider probe failed: %w", err)
			}
			fmt.Println("✓ AI provider answered the probe")

			fmt.Println("\n✓ All connectivity checks passed")
			return nil
		},
	}

	return cmd
}

func buildProvider(cfg *config.Config) (ai.ChatProvider, error) {
	switch cfg.AIProvider {
	case config.ProviderDify:
		return ai.NewDifyProvider(cfg.DifyAPIKey, cfg.DifyBaseURL), nil
	case config.ProviderOpenAI:
		return ai.NewOpenAIProviderWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, nil), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AIProvider)
	}
}
