package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/tasksync"
)

// GlobalFlags returns the root flags, bound to flags.
func GlobalFlags(flags *Flags) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error, fatal, panic)",
			Sources:     cli.EnvVars("TASKSYNC_LOG_LEVEL"),
			Value:       "info",
			Destination: &flags.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "path to log file (defaults to <data-dir>/tasksync.log, - for stderr)",
			Sources:     cli.EnvVars("TASKSYNC_LOG_FILE"),
			Destination: &flags.LogFile,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to config file",
			Sources:     cli.EnvVars("TASKSYNC_CONFIG"),
			Value:       DefaultConfigPath(),
			Destination: &flags.ConfigPath,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "path to data directory",
			Sources:     cli.EnvVars("TASKSYNC_DATA_DIR"),
			Value:       DefaultDataDir(),
			Destination: &flags.DataDir,
		},
		&cli.StringFlag{
			Name:        "identity",
			Usage:       "identity that owns projects and tasks",
			Sources:     cli.EnvVars("TASKSYNC_IDENTITY"),
			Value:       DefaultIdentity(),
			Destination: &flags.Identity,
		},
	}
}

// RegisterAll adds every subcommand to root.
func RegisterAll(root *cli.Command, flags *Flags, app *tasksync.App, version string) *cli.Command {
	root = NewProjectCmd(flags, app).Register(root)
	root = NewScanCmd(flags, app).Register(root)
	root = NewChangesCmd(flags, app).Register(root)
	root = NewResolveCmd(flags, app).Register(root)
	root = NewTaskCmd(flags, app).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)
	root = NewServeMCPCmd(flags, app, version).Register(root)
	return root
}
