package commands

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/mcpserver"
	"github.com/colonyops/tasksync/internal/tasksync"
	"github.com/colonyops/tasksync/pkg/profiler"
)

type ServeMCPCmd struct {
	flags   *Flags
	app     *tasksync.App
	version string

	// flags
	profilerPort int
}

// NewServeMCPCmd creates a new serve-mcp command
func NewServeMCPCmd(flags *Flags, app *tasksync.App, version string) *ServeMCPCmd {
	return &ServeMCPCmd{flags: flags, app: app, version: version}
}

// Register adds the serve-mcp command to the application
func (cmd *ServeMCPCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve-mcp",
		Usage:     "Serve the scan and review workflow over MCP (stdio)",
		UsageText: "tasksync serve-mcp [--profiler-port <port>]",
		Description: `Runs a Model Context Protocol server on stdin/stdout so an agent can list
projects, scan them, review change-sets and resolve them. Every call acts as
the --identity the server was started with.

Logs never go to stdout; point --log-file somewhere or leave the default.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "profiler-port",
				Usage:       "serve pprof on 127.0.0.1:<port> (0 disables)",
				Sources:     cli.EnvVars("TASKSYNC_PROFILER_PORT"),
				Destination: &cmd.profilerPort,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeMCPCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.flags.Identity == "" {
		return fmt.Errorf("an identity is required; pass --identity or set TASKSYNC_IDENTITY")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.profilerPort > 0 {
		prof := profiler.New(cmd.profilerPort, log.Logger)
		if err := prof.Start(ctx); err != nil {
			return fmt.Errorf("start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := prof.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler")
			}
		}()
	}

	go tasksync.Sweep(ctx, cmd.app.Cache, tasksync.DefaultSweepInterval, log.Logger)

	srv := mcpserver.New(cmd.app, cmd.flags.Identity, log.Logger).MCP(cmd.version)

	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(stdlog.New(log.Logger, "", 0))

	log.Info().Str("identity", cmd.flags.Identity).Msg("mcp server listening on stdio")

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}
