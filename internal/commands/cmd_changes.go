package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/tasksync"
	"github.com/colonyops/tasksync/pkg/iojson"
	"github.com/colonyops/tasksync/pkg/tmpl"
)

type ChangesCmd struct {
	flags *Flags
	app   *tasksync.App

	// flags
	projectID   string
	status      string
	format      string
	jsonOutput  bool
	includeSame bool
}

// NewChangesCmd creates a new changes command
func NewChangesCmd(flags *Flags, app *tasksync.App) *ChangesCmd {
	return &ChangesCmd{flags: flags, app: app}
}

// Register adds the changes command to the application
func (cmd *ChangesCmd) Register(app *cli.Command) *cli.Command {
	showFlags := func() []cli.Flag {
		return []cli.Flag{
			jsonFlag(&cmd.jsonOutput),
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "include SAME results",
				Destination: &cmd.includeSame,
			},
		}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "changes",
		Usage: "Review change-sets produced by scans",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List change-sets, newest first",
				UsageText: "tasksync changes list [--project <id>] [--status <status>] [--format <template>]",
				Description: `Lists change-sets with their result counts by type.

--format takes a Go template rendered once per change-set, for example:

  tasksync changes list --format '{{.ID}} {{.Status}} {{len .Results}}'

The default comes from formats.change_set in the config file.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "project",
						Aliases:     []string{"p"},
						Usage:       "limit to one project",
						Destination: &cmd.projectID,
					},
					&cli.StringFlag{
						Name:        "status",
						Usage:       "filter by status (pending, accepted, rejected, ignored)",
						Destination: &cmd.status,
					},
					&cli.StringFlag{
						Name:        "format",
						Usage:       "Go template for each change-set",
						Destination: &cmd.format,
					},
					jsonFlag(&cmd.jsonOutput),
				},
				Action: cmd.runList,
			},
			{
				Name:      "show",
				Usage:     "Show a change-set grouped by result type",
				UsageText: "tasksync changes show <change-set-id> [--json] [--all]",
				Flags:     showFlags(),
				Action:    cmd.runShow,
			},
			{
				Name:          "pending",
				Usage:         "Show a project's pending change-set",
				UsageText:     "tasksync changes pending <project-id> [--json] [--all]",
				Flags:         showFlags(),
				ShellComplete: ProjectIDCompleter(cmd.app, cmd.flags),
				Action:        cmd.runPending,
			},
		},
	})

	return app
}

func (cmd *ChangesCmd) runList(ctx context.Context, c *cli.Command) error {
	status := scan.Status(strings.ToUpper(cmd.status))
	if status != "" && !status.IsValid() {
		return fmt.Errorf("unknown status %q", cmd.status)
	}

	list, err := cmd.app.Changes.List(ctx, cmd.flags.Identity, cmd.projectID, status)
	if err != nil {
		return fmt.Errorf("list change-sets: %w", err)
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, cs := range list {
			if err := iojson.WriteLine(out, cs); err != nil {
				return fmt.Errorf("encode change-set: %w", err)
			}
		}
		return nil
	}

	format := cmd.format
	if format == "" && cmd.flags.Config != nil {
		format = cmd.flags.Config.Formats.ChangeSet
	}
	if format != "" {
		for _, cs := range list {
			if err := renderLine(out, format, cs); err != nil {
				return err
			}
		}
		return nil
	}

	if len(list) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No change-sets found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROJECT\tSTATUS\tCREATED\tSUMMARY")
	for _, cs := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cs.ID, cs.ProjectID, cs.Status, formatTime(cs.CreatedAt), summaryLine(cs.Summary()))
	}
	return w.Flush()
}

func (cmd *ChangesCmd) runShow(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("change-set id is required")
	}

	cs, err := cmd.app.Changes.Get(ctx, cmd.flags.Identity, id)
	if err != nil {
		return fmt.Errorf("get change-set: %w", err)
	}
	return cmd.render(c.Root().Writer, cs)
}

func (cmd *ChangesCmd) runPending(ctx context.Context, c *cli.Command) error {
	projectID, err := projectArg(c)
	if err != nil {
		return err
	}

	cs, err := cmd.app.Changes.Pending(ctx, cmd.flags.Identity, projectID)
	if err != nil {
		return fmt.Errorf("get pending change-set: %w", err)
	}
	return cmd.render(c.Root().Writer, cs)
}

func (cmd *ChangesCmd) render(out io.Writer, cs scan.ChangeSet) error {
	if cmd.jsonOutput {
		return writeJSON(out, cs)
	}

	_, _ = fmt.Fprintf(out, "%s %s  %s\n",
		styles.HeaderStyle.Render("change-set"),
		styles.IDStyle.Render(cs.ID),
		cs.Status,
	)
	_, _ = fmt.Fprintf(out, "%s\n\n", styles.MutedStyle.Render(summaryLine(cs.Summary())))

	groups := diff.GroupByType(cs.Results)
	for _, typ := range diff.Types {
		if typ == diff.TypeSame && !cmd.includeSame {
			continue
		}
		for _, r := range groups[typ] {
			renderResult(out, r)
		}
	}
	return nil
}

func renderResult(out io.Writer, r diff.Result) {
	cur := r.Current()
	if cur == nil {
		return
	}
	_, _ = fmt.Fprintf(out, "%s %s %s\n", styles.TypeBadge(r.Type), styles.IDStyle.Render(r.ID), styles.TextStyle.Render(cur.Text))

	loc := fmt.Sprintf("%s:%d", cur.File, cur.Line)
	if r.Type == diff.TypeMove && r.Data.Old != nil {
		loc = fmt.Sprintf("%s:%d -> %s", r.Data.Old.File, r.Data.Old.Line, loc)
	}
	if r.Type == diff.TypeUpdate && r.Data.Old != nil {
		_, _ = fmt.Fprintf(out, "       was: %s\n", styles.MutedStyle.Render(r.Data.Old.Text))
	}

	allowed := task.AllowedActions(r.Type)
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}

	_, _ = fmt.Fprintf(out, "       %s  %s  %s\n",
		styles.MutedStyle.Render(r.Tag),
		loc,
		styles.MutedStyle.Render("["+strings.Join(names, "|")+"]"),
	)
	if len(cur.Context) > 0 {
		_, _ = fmt.Fprintln(out, indent(styles.ContextStyle.Render(strings.Join(cur.Context, "\n")), 7))
	}
	_, _ = fmt.Fprintln(out)
}

func renderLine(out io.Writer, format string, data any) error {
	line, err := tmpl.Render(format, data)
	if err != nil {
		return fmt.Errorf("render format: %w", err)
	}
	_, _ = fmt.Fprintln(out, strings.TrimRight(line, "\n"))
	return nil
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
