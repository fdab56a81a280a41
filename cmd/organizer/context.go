package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/curriculum-organizer/internal/bootstrap"
	"github.com/kirillkom/curriculum-organizer/internal/config"
	"github.com/kirillkom/curriculum-organizer/internal/observability/logging"
)

type commandContext struct {
	workspaceFlag *string
}

func newCommandContext(workspaceFlag *string) *commandContext {
	return &commandContext{workspaceFlag: workspaceFlag}
}

// config reads the environment and applies persistent flag overrides.
func (c *commandContext) config() config.Config {
	cfg := config.Load()
	if c.workspaceFlag != nil {
		if ws := strings.TrimSpace(*c.workspaceFlag); ws != "" {
			cfg.WorkspaceDir = ws
		}
	}
	return cfg
}

func (c *commandContext) logger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	var w io.Writer = cmd.ErrOrStderr()
	return logging.New("curriculum-organizer", cfg.LogLevel, cfg.LogFormat, w)
}

func (c *commandContext) withApp(cmd *cobra.Command, cfg config.Config, fn func(context.Context, *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, c.logger(cmd, cfg))
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
