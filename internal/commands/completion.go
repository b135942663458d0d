package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/tasksync"
)

// ProjectIDCompleter returns a ShellCompleteFunc that suggests the caller's
// project ids as positional completions, with the project name as the
// description.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func ProjectIDCompleter(app *tasksync.App, flags *Flags) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if app.Projects == nil {
			return
		}

		projects, err := app.Projects.List(ctx, flags.Identity)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, p := range projects {
			_, _ = fmt.Fprintf(w, "%s:%s\n", p.ID, p.Name)
		}
	}
}
