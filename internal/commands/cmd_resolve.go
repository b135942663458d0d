package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/tasksync"
	"github.com/colonyops/tasksync/pkg/iojson"
)

type ResolveCmd struct {
	flags *Flags
	app   *tasksync.App

	// flags
	jsonOutput bool
	input      iojson.FileReader[tasksync.ResolveRequest]
}

// NewResolveCmd creates a new resolve command
func NewResolveCmd(flags *Flags, app *tasksync.App) *ResolveCmd {
	return &ResolveCmd{flags: flags, app: app}
}

// Register adds the resolve command to the application
func (cmd *ResolveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "resolve",
		Usage:     "Accept or reject a pending change-set",
		UsageText: "tasksync resolve [-f request.json] [--json]",
		Description: `Reads a resolve request as JSON (comments allowed) from a file or stdin:

  {
    "project_id": "...",
    "change_set_id": "...",
    "approved": true,
    "actions": {
      "CREATE": ["<result-id>"],
      "CONFIRM": ["<result-id>"],
      "DELETE": ["<result-id>"]
    },
    "titles": {"<result-id>": "Custom task title"}
  }

NEW results take CREATE or IGNORE. SAME, MOVE and UPDATE take CONFIRM or
UNLINK. DELETE takes UNLINK, DELETE or COMPLETE. Results that are not listed
are ignored. With "approved": false the change-set is rejected and nothing is
applied.`,
		Flags: []cli.Flag{
			cmd.input.Flag(),
			jsonFlag(&cmd.jsonOutput),
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ResolveCmd) run(ctx context.Context, c *cli.Command) error {
	req, err := cmd.input.Read()
	if err != nil {
		return err
	}

	res, err := cmd.app.Resolver.Resolve(ctx, cmd.flags.Identity, req)

	out := c.Root().Writer
	if err != nil {
		if cmd.jsonOutput {
			data := map[string]any{"applied": res.Applied}
			var rerr *tasksync.ResolveError
			if errors.As(err, &rerr) {
				data["phase"] = rerr.Phase
				if rerr.ItemID != "" {
					data["item_id"] = rerr.ItemID
				}
			}
			if werr := iojson.WriteError(out, string(tasksync.Kind(err)), err.Error(), data); werr != nil {
				return werr
			}
			return cli.Exit("", 1)
		}
		return fmt.Errorf("resolve change-set: %w", err)
	}

	if cmd.jsonOutput {
		return writeJSON(out, res)
	}

	if !req.Approved {
		successf(out, "change-set %s rejected", styles.IDStyle.Render(req.ChangeSetID))
		return nil
	}

	successf(out, "change-set %s %s", styles.IDStyle.Render(req.ChangeSetID), res.Status)

	actions := make([]task.Action, 0, len(res.Counts))
	for a := range res.Counts {
		actions = append(actions, a)
	}
	slices.Sort(actions)
	for _, a := range actions {
		stepf(out, "%-8s %d", a, res.Counts[a])
	}
	for _, id := range res.Created {
		stepf(out, "created task %s", styles.IDStyle.Render(id))
	}
	return nil
}
