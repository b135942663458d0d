package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/tasksync/internal/commands"
	"github.com/colonyops/tasksync/internal/core/config"
	"github.com/colonyops/tasksync/internal/core/eventbus"
	"github.com/colonyops/tasksync/internal/core/logging"
	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/internal/data/db"
	"github.com/colonyops/tasksync/internal/data/stores"
	"github.com/colonyops/tasksync/internal/github"
	"github.com/colonyops/tasksync/internal/tasksync"
	"github.com/colonyops/tasksync/pkg/executil"
	"github.com/colonyops/tasksync/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

// openDatabase opens the sqlite store, moving a corrupted file aside and
// starting fresh when the existing one cannot be read.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(cfg.DataDir, opts)
	if err == nil || !stores.IsCorruptionError(err) {
		return database, err
	}

	log.Warn().Err(err).Str("data_dir", cfg.DataDir).Msg("database corrupted, backing it up and starting fresh")
	if rerr := stores.RecoverFromCorruption(cfg.DataDir); rerr != nil {
		return nil, fmt.Errorf("recover database: %w", rerr)
	}
	return db.Open(cfg.DataDir, opts)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		app       = &tasksync.App{}
		database  *db.DB
		busCancel context.CancelFunc
		busDone   chan struct{}
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "tasksync",
		Usage:     "Track TODO-style annotations in GitHub repositories as tasks",
		UsageText: "tasksync [global options] command [command options]",
		Description: `tasksync scans a GitHub repository for tagged comments (TODO:, FIXME: and
whatever else a project configures), diffs them against the last accepted
scan and turns the reviewed result into durable tasks.

  tasksync project add --name api --repo-url acme/api
  tasksync scan <project-id>
  tasksync changes pending <project-id>
  tasksync resolve -f decision.json`,
		Version: build(),
		Flags:   commands.GlobalFlags(flags),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file unless told otherwise; stdout carries
			// command output and the MCP transport.
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "tasksync.log")
			}

			logger, closer, err := logutils.New(logutils.Options{
				Level:  flags.LogLevel,
				File:   logFile,
				Pretty: term.IsTerminal(int(os.Stderr.Fd())),
			})
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Validation ensures the name is known.
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			database, err = openDatabase(cfg)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			token, err := github.ResolveToken(ctx, &executil.RealExecutor{}, cfg.GitHub.Token, cfg.GitHub.UseGhAuth)
			if err != nil {
				log.Warn().Err(err).Msg("could not resolve a github token, continuing unauthenticated")
			}

			client, err := github.New(github.Options{
				Token:   token,
				BaseURL: cfg.GitHub.BaseURL,
				Logger:  logging.Component(log.Logger, "github"),
			})
			if err != nil {
				return ctx, fmt.Errorf("create github client: %w", err)
			}

			bus := eventbus.New(64)
			eventbus.RegisterDebugLogger(bus, log.Logger)
			eventbus.NewActivityLogger(bus, log.Logger).Register()

			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			busDone = make(chan struct{})
			go func() {
				defer close(busDone)
				bus.Start(busCtx)
			}()

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*app = *tasksync.NewApp(cfg, database, client, bus, log.Logger)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Drain buffered events before the logger goes away
			if busCancel != nil {
				busCancel()
				<-busDone
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = commands.RegisterAll(root, flags, app, version)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
