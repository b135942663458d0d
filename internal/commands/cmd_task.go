package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/tasksync"
	"github.com/colonyops/tasksync/pkg/iojson"
)

type TaskCmd struct {
	flags *Flags
	app   *tasksync.App

	// flags
	projectID      string
	includeDeleted bool
	format         string
	jsonOutput     bool
}

// NewTaskCmd creates a new task command
func NewTaskCmd(flags *Flags, app *tasksync.App) *TaskCmd {
	return &TaskCmd{flags: flags, app: app}
}

// Register adds the task and tag commands to the application
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:  "task",
			Usage: "Inspect tasks created from accepted annotations",
			Commands: []*cli.Command{
				{
					Name:      "list",
					Usage:     "List your tasks",
					UsageText: "tasksync task list [--project <id>] [--deleted] [--format <template>]",
					Description: `--format takes a Go template rendered once per task, for example:

  tasksync task list --format '{{.ID}} {{.Progress}} {{.Title | trunc 60}}'

The default comes from formats.task in the config file.`,
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:        "project",
							Aliases:     []string{"p"},
							Usage:       "limit to one project",
							Destination: &cmd.projectID,
						},
						&cli.BoolFlag{
							Name:        "deleted",
							Usage:       "include deleted tasks",
							Destination: &cmd.includeDeleted,
						},
						&cli.StringFlag{
							Name:        "format",
							Usage:       "Go template for each task",
							Destination: &cmd.format,
						},
						jsonFlag(&cmd.jsonOutput),
					},
					Action: cmd.runList,
				},
				{
					Name:      "show",
					Usage:     "Show a task with its annotation and tags",
					UsageText: "tasksync task show <task-id> [--json]",
					Flags:     []cli.Flag{jsonFlag(&cmd.jsonOutput)},
					Action:    cmd.runShow,
				},
				{
					Name:      "history",
					Usage:     "Show a task's history",
					UsageText: "tasksync task history <task-id> [--json]",
					Flags:     []cli.Flag{jsonFlag(&cmd.jsonOutput)},
					Action:    cmd.runHistory,
				},
			},
		},
		&cli.Command{
			Name:  "tag",
			Usage: "Manage the tags linked to new tasks",
			Description: `A task created from an annotation is linked to your active tag of the same
name as the annotation's tag, if one exists.`,
			Commands: []*cli.Command{
				{
					Name:      "add",
					Usage:     "Add an active tag",
					UsageText: "tasksync tag add <name>",
					Action:    cmd.runTagAdd,
				},
				{
					Name:   "list",
					Usage:  "List your tags",
					Flags:  []cli.Flag{jsonFlag(&cmd.jsonOutput)},
					Action: cmd.runTagList,
				},
			},
		},
	)

	return app
}

func taskArg(c *cli.Command) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", fmt.Errorf("task id is required")
	}
	return id, nil
}

func (cmd *TaskCmd) runList(ctx context.Context, c *cli.Command) error {
	tasks, err := cmd.app.Tasks.List(ctx, cmd.flags.Identity, cmd.projectID, cmd.includeDeleted)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, t := range tasks {
			if err := iojson.WriteLine(out, t); err != nil {
				return fmt.Errorf("encode task: %w", err)
			}
		}
		return nil
	}

	format := cmd.format
	if format == "" && cmd.flags.Config != nil {
		format = cmd.flags.Config.Formats.Task
	}
	if format != "" {
		for _, t := range tasks {
			if err := renderLine(out, format, t); err != nil {
				return err
			}
		}
		return nil
	}

	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROJECT\tPROGRESS\tLINKED\tTITLE")
	for _, t := range tasks {
		linked := "no"
		if t.Linked() {
			linked = "yes"
		}
		title := t.Title
		if t.Visibility == task.VisibilityDeleted {
			title += " (deleted)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.ProjectID, t.Progress, linked, title)
	}
	return w.Flush()
}

func (cmd *TaskCmd) runShow(ctx context.Context, c *cli.Command) error {
	id, err := taskArg(c)
	if err != nil {
		return err
	}

	view, err := cmd.app.Tasks.Get(ctx, cmd.flags.Identity, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return writeJSON(out, view)
	}

	_, _ = fmt.Fprintln(out, styles.HeaderStyle.Render(view.Title)+" "+styles.IDStyle.Render(view.ID))
	_, _ = fmt.Fprintf(out, "  project:  %s\n", view.ProjectID)
	_, _ = fmt.Fprintf(out, "  progress: %s\n", view.Progress)
	_, _ = fmt.Fprintf(out, "  status:   %s\n", view.Visibility)
	if len(view.Tags) > 0 {
		_, _ = fmt.Fprintf(out, "  tags:     %s\n", strings.Join(view.Tags, ", "))
	}

	if a := view.Annotation; a != nil {
		_, _ = fmt.Fprintf(out, "  source:   %s:%d %s\n", a.File, a.Line, styles.MutedStyle.Render(a.Tag))
		if len(a.Context) > 0 {
			_, _ = fmt.Fprintln(out, indent(styles.ContextStyle.Render(strings.Join(a.Context, "\n")), 2))
		}
	} else {
		_, _ = fmt.Fprintf(out, "  source:   %s\n", styles.MutedStyle.Render("not linked"))
	}
	return nil
}

func (cmd *TaskCmd) runHistory(ctx context.Context, c *cli.Command) error {
	id, err := taskArg(c)
	if err != nil {
		return err
	}

	entries, err := cmd.app.Tasks.History(ctx, cmd.flags.Identity, id)
	if err != nil {
		return fmt.Errorf("get task history: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, e := range entries {
			if err := iojson.WriteLine(out, e); err != nil {
				return fmt.Errorf("encode history: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tACTION\tACTOR\tDETAIL")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", formatTime(e.CreatedAt), e.Action, e.Actor, e.Detail)
	}
	return w.Flush()
}

func (cmd *TaskCmd) runTagAdd(ctx context.Context, c *cli.Command) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("tag name is required")
	}

	tag, err := cmd.app.Tasks.AddTag(ctx, cmd.flags.Identity, name)
	if err != nil {
		return fmt.Errorf("add tag: %w", err)
	}

	successf(c.Root().Writer, "added tag %s", tag.Name)
	return nil
}

func (cmd *TaskCmd) runTagList(ctx context.Context, c *cli.Command) error {
	tags, err := cmd.app.Tasks.Tags(ctx, cmd.flags.Identity)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, t := range tags {
			if err := iojson.WriteLine(out, t); err != nil {
				return fmt.Errorf("encode tag: %w", err)
			}
		}
		return nil
	}

	for _, t := range tags {
		state := styles.SuccessStyle.Render("active")
		if !t.Active {
			state = styles.MutedStyle.Render("inactive")
		}
		_, _ = fmt.Fprintf(out, "%s  %s\n", t.Name, state)
	}
	return nil
}
