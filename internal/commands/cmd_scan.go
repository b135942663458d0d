package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/internal/tasksync"
	"github.com/colonyops/tasksync/pkg/iojson"
)

type ScanCmd struct {
	flags *Flags
	app   *tasksync.App

	// flags
	jsonOutput bool
}

// NewScanCmd creates a new scan command
func NewScanCmd(flags *Flags, app *tasksync.App) *ScanCmd {
	return &ScanCmd{flags: flags, app: app}
}

// Register adds the scan command to the application
func (cmd *ScanCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "scan",
		Usage:     "Scan a project's repository for annotations",
		UsageText: "tasksync scan <project-id> [--json]",
		Description: `Fetches the linked repository, parses every file that survives the ignore
rules and diffs the result against the last accepted scan. The outcome is a
pending change-set to review with 'tasksync changes show' and apply with
'tasksync resolve'.

Progress is printed as it happens. With --json, or when stdout is not a
terminal, each progress message is written as one JSON object per line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "stream progress as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		ShellComplete: ProjectIDCompleter(cmd.app, cmd.flags),
		Action:        cmd.run,
	})

	return app
}

func (cmd *ScanCmd) run(ctx context.Context, c *cli.Command) error {
	projectID, err := projectArg(c)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	asJSON := cmd.jsonOutput || !isTerminal(out)

	var last tasksync.Progress
	for p := range cmd.app.Scans.Run(ctx, projectID, cmd.flags.Identity) {
		last = p

		if asJSON {
			if err := iojson.WriteLine(out, p); err != nil {
				return fmt.Errorf("encode progress: %w", err)
			}
			continue
		}

		switch {
		case p.Failed():
			failf(out, "%s", strings.TrimPrefix(p.Message, "error: "))
		case p.Step == tasksync.StepDone:
			successf(out, "change-set %s: %s", styles.IDStyle.Render(p.ChangeSetID), summaryLine(p.Summary))
		default:
			stepf(out, "%s", p.Message)
		}
	}

	if last.Failed() {
		log.Debug().Err(last.Err).Str("project_id", projectID).Str("kind", string(last.Kind)).Msg("scan failed")
		return cli.Exit("", 1)
	}
	return nil
}
