package commands

import (
	"context"
	"errors"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/core/config"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "tasksync config validate [options]",
				Description: "Validates the configuration file, checking ignore patterns, output templates and file paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type validationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type validationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []validationError          `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func validate(cfg *config.Config, configPath string) validationResult {
	res := validationResult{Warnings: cfg.Warnings()}

	err := cfg.ValidateDeep(configPath)
	if err == nil {
		res.Valid = true
		return res
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			res.Errors = append(res.Errors, validationError{Field: fe.Field, Message: fe.Err.Error()})
		}
		return res
	}

	res.Errors = append(res.Errors, validationError{Message: err.Error()})
	return res
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	result := validate(cmd.flags.Config, cmd.flags.ConfigPath)

	out := c.Root().Writer
	if cmd.format == "json" {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		outputText(out, result)
	}

	if !result.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

func outputText(out io.Writer, result validationResult) {
	for _, w := range result.Warnings {
		if w.Item != "" {
			warnf(out, "%s (%s): %s", w.Category, w.Item, w.Message)
			continue
		}
		warnf(out, "%s: %s", w.Category, w.Message)
	}

	for _, e := range result.Errors {
		if e.Field != "" {
			failf(out, "%s: %s", e.Field, e.Message)
			continue
		}
		failf(out, "%s", e.Message)
	}

	if result.Valid {
		successf(out, "Configuration is valid")
		return
	}
	failf(out, "%d error(s) found", len(result.Errors))
}
