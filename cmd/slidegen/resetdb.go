package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"slidegraph/internal/config"
	"slidegraph/internal/repository/postgres"
)

type resetDBOptions struct {
	*rootOptions
	Yes bool
}

func newResetDBCommand(root *rootOptions) *cobra.Command {
	opt := &resetDBOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop every slide, link and chat of the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opt.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&opt.Yes, "yes", false, "Confirm the reset")
	return cmd
}

func (o *resetDBOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	if !o.Yes {
		return fmt.Errorf("refusing to reset the %s store without --yes", cfg.StoreDriver)
	}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is required")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgres.DropSchema(ctx, pool, postgres.NewTableNames(cfg.TablePrefix)); err != nil {
			return err
		}
		fmt.Printf("%s✓ All tables dropped (prefix: %s)%s\n", colorGreen, cfg.TablePrefix, colorReset)

	default:
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(cfg.SQLitePath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", cfg.SQLitePath+suffix, err)
			}
		}
		fmt.Printf("%s✓ Removed %s%s\n", colorGreen, cfg.SQLitePath, colorReset)
	}
	return nil
}
