package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wisdomhub/wisdom-hub/internal/config"
	"github.com/wisdomhub/wisdom-hub/internal/database"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's content tree",
		Long:  "Print the workspace → box → block hierarchy for the given user",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a valid user id: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			workspaceRepo := database.NewWorkspaceRepository(db)
			boxRepo := database.NewBoxRepository(db)
			blockRepo := database.NewBlockRepository(db)

			ctx := context.Background()
			workspaces, err := workspaceRepo.GetByUserID(ctx, owner)
			if err != nil {
				return fmt.Errorf("failed to list workspaces: %w", err)
			}
			if len(workspaces) == 0 {
				fmt.Println("No workspaces found")
				return nil
			}

			for _, ws := range workspaces {
				fmt.Printf("Workspace: %s (%s)\n", ws.Name, ws.ID)
				boxes, err := boxRepo.GetByWorkspaceID(ctx, ws.ID)
				if err != nil {
					return fmt.Errorf("failed to list boxes for %s: %w", ws.ID, err)
				}
				for _, box := range boxes {
					fmt.Printf("  Box: %s (%s)\n", box.Name, box.ID)
					blocks, err := blockRepo.GetByBoxID(ctx, box.ID)
					if err != nil {
						return fmt.Errorf("failed to list blocks for %s: %w", box.ID, err)
					}
					for _, block := range blocks {
						fmt.Printf("    Block: %s (%s)\n", block.Title, block.ID)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to inspect (required)")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		panic(err)
	}

	return cmd
}
