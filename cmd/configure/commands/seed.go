package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wisdomhub/wisdom-hub/internal/config"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout for demo content
type seedFile struct {
	Workspaces []seedWorkspace `yaml:"workspaces"`
}

type seedWorkspace struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Boxes       []seedBox `yaml:"boxes"`
}

type seedBox struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Blocks      []seedBlock `yaml:"blocks"`
}

type seedBlock struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// NewSeedCmd creates the seed command
func NewSeedCmd() *cobra.Command {
	var userID string
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo content for a user",
		Long:  "Load workspaces, boxes and blocks from a YAML file and insert them for the given user",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a valid user id: %w", err)
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}

			var seed seedFile
			if err := yaml.Unmarshal(raw, &seed); err != nil {
				return fmt.Errorf("failed to parse seed file: %w", err)
			}
			if len(seed.Workspaces) == 0 {
				return fmt.Errorf("seed file contains no workspaces")
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

			userRepo := database.NewUserRepository(db)
			workspaceRepo := database.NewWorkspaceRepository(db)
			boxRepo := database.NewBoxRepository(db)
			blockRepo := database.NewBlockRepository(db)

			ctx := context.Background()
			if _, err := userRepo.GetByID(ctx, owner); err != nil {
				return fmt.Errorf("user %s not found: %w", owner, err)
			}

			var workspaces, boxes, blocks int
			for _, sw := range seed.Workspaces {
				ws := &models.Workspace{
					ID:          uuid.New(),
					UserID:      owner,
					Name:        sw.Name,
					Description: sw.Description,
				}
				if err := workspaceRepo.Create(ctx, ws); err != nil {
					return fmt.Errorf("failed to create workspace %q: %w", sw.Name, err)
				}
				workspaces++

				for _, sb := range sw.Boxes {
					box := &models.Box{
						ID:          uuid.New(),
						WorkspaceID: ws.ID,
						UserID:      owner,
						Name:        sb.Name,
						Description: sb.Description,
					}
					if err := boxRepo.Create(ctx, box); err != nil {
						return fmt.Errorf("failed to create box %q: %w", sb.Name, err)
					}
					boxes++

					for _, sbl := range sb.Blocks {
						block := &models.Block{
							ID:      uuid.New(),
							BoxID:   box.ID,
							UserID:  owner,
							Title:   sbl.Title,
							Content: sbl.Content,
						}
						if err := blockRepo.Create(ctx, block); err != nil {
							return fmt.Errorf("failed to create block %q: %w", sbl.Title, err)
						}
						blocks++
					}
				}
			}

			fmt.Printf("Seeded %d workspaces, %d boxes, %d blocks for user %s\n", workspaces, boxes, blocks, owner)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to own the seeded content (required)")
	cmd.Flags().StringVar(&file, "file", "seed.yaml", "Path to the YAML seed file")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		panic(err)
	}

	return cmd
}
