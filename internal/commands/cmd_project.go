package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/styles"
	"github.com/colonyops/tasksync/internal/tasksync"
	"github.com/colonyops/tasksync/pkg/iojson"
)

type ProjectCmd struct {
	flags *Flags
	app   *tasksync.App

	// flags
	name       string
	repoURL    string
	ref        string
	jsonOutput bool
	configFile iojson.FileReader[project.Config]
}

// NewProjectCmd creates a new project command
func NewProjectCmd(flags *Flags, app *tasksync.App) *ProjectCmd {
	return &ProjectCmd{flags: flags, app: app}
}

// Register adds the project command to the application
func (cmd *ProjectCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "project",
		Usage: "Manage scanned projects",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a project",
				UsageText: "tasksync project add --name <name> [--repo-url <url>] [--ref <ref>]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "name",
						Usage:       "project name",
						Required:    true,
						Destination: &cmd.name,
					},
					&cli.StringFlag{
						Name:        "repo-url",
						Usage:       "GitHub repository (owner/repo or any clone URL)",
						Destination: &cmd.repoURL,
					},
					&cli.StringFlag{
						Name:        "ref",
						Usage:       "branch, tag or commit to scan (defaults to HEAD)",
						Destination: &cmd.ref,
					},
					jsonFlag(&cmd.jsonOutput),
				},
				Action: cmd.runAdd,
			},
			{
				Name:   "list",
				Usage:  "List your projects",
				Flags:  []cli.Flag{jsonFlag(&cmd.jsonOutput)},
				Action: cmd.runList,
			},
			{
				Name:          "show",
				Usage:         "Show a project",
				UsageText:     "tasksync project show <project-id>",
				Flags:         []cli.Flag{jsonFlag(&cmd.jsonOutput)},
				ShellComplete: ProjectIDCompleter(cmd.app, cmd.flags),
				Action:        cmd.runShow,
			},
			{
				Name:      "link",
				Usage:     "Link a project to a repository",
				UsageText: "tasksync project link <project-id> --repo-url <url> [--ref <ref>]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "repo-url",
						Usage:       "GitHub repository (owner/repo or any clone URL)",
						Required:    true,
						Destination: &cmd.repoURL,
					},
					&cli.StringFlag{
						Name:        "ref",
						Usage:       "branch, tag or commit to scan (defaults to HEAD)",
						Destination: &cmd.ref,
					},
				},
				ShellComplete: ProjectIDCompleter(cmd.app, cmd.flags),
				Action:        cmd.runLink,
			},
			{
				Name:  "config",
				Usage: "Show or replace a project's tag configuration",
				Commands: []*cli.Command{
					{
						Name:          "show",
						Usage:         "Print the tag configuration scans use",
						UsageText:     "tasksync project config show <project-id>",
						ShellComplete: ProjectIDCompleter(cmd.app, cmd.flags),
						Action:        cmd.runConfigShow,
					},
					{
						Name:      "set",
						Usage:     "Replace the stored tag configuration",
						UsageText: "tasksync project config set <project-id> -f config.json",
						Description: `Reads a JSON (or JSONC) document with "tags", "ignore" and "ignore_globs":

  {
    "tags": [{"name": "todo", "match": ["TODO:", "@todo"]}],
    "ignore": ["^vendor/"],
    "ignore_globs": ["**/*.pb.go"]
  }`,
						Flags:         []cli.Flag{cmd.configFile.Flag()},
						ShellComplete: ProjectIDCompleter(cmd.app, cmd.flags),
						Action:        cmd.runConfigSet,
					},
				},
			},
		},
	})

	return app
}

func projectArg(c *cli.Command) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", fmt.Errorf("project id is required")
	}
	return id, nil
}

func (cmd *ProjectCmd) runAdd(ctx context.Context, c *cli.Command) error {
	p, err := cmd.app.Projects.Create(ctx, cmd.flags.Identity, tasksync.CreateInput{
		Name:    cmd.name,
		RepoURL: cmd.repoURL,
		Ref:     cmd.ref,
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return writeJSON(out, p)
	}
	successf(out, "created project %s (%s)", styles.IDStyle.Render(p.ID), p.Name)
	return nil
}

func (cmd *ProjectCmd) runList(ctx context.Context, c *cli.Command) error {
	projects, err := cmd.app.Projects.List(ctx, cmd.flags.Identity)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, p := range projects {
			if err := iojson.WriteLine(out, p); err != nil {
				return fmt.Errorf("encode project: %w", err)
			}
		}
		return nil
	}

	if len(projects) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No projects found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tREPO\tREF\tSTATUS")
	for _, p := range projects {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.RepoURL, p.Ref(), p.ScanStatus)
	}
	return w.Flush()
}

func (cmd *ProjectCmd) runShow(ctx context.Context, c *cli.Command) error {
	id, err := projectArg(c)
	if err != nil {
		return err
	}

	p, err := cmd.app.Projects.Get(ctx, cmd.flags.Identity, id)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return writeJSON(out, p)
	}

	repo := p.RepoURL
	if repo == "" {
		repo = styles.MutedStyle.Render("not linked")
	}

	_, _ = fmt.Fprintln(out, styles.HeaderStyle.Render(p.Name)+" "+styles.IDStyle.Render(p.ID))
	_, _ = fmt.Fprintf(out, "  repo:    %s\n", repo)
	_, _ = fmt.Fprintf(out, "  ref:     %s\n", p.Ref())
	_, _ = fmt.Fprintf(out, "  status:  %s\n", p.ScanStatus)
	_, _ = fmt.Fprintf(out, "  created: %s\n", formatTime(p.CreatedAt))
	return nil
}

func (cmd *ProjectCmd) runLink(ctx context.Context, c *cli.Command) error {
	id, err := projectArg(c)
	if err != nil {
		return err
	}

	if err := cmd.app.Projects.LinkRepo(ctx, cmd.flags.Identity, id, cmd.repoURL, cmd.ref); err != nil {
		return fmt.Errorf("link project: %w", err)
	}

	successf(c.Root().Writer, "linked %s to %s", styles.IDStyle.Render(id), cmd.repoURL)
	return nil
}

func (cmd *ProjectCmd) runConfigShow(ctx context.Context, c *cli.Command) error {
	id, err := projectArg(c)
	if err != nil {
		return err
	}

	cfg, usingDefaults, err := cmd.app.Projects.Config(ctx, cmd.flags.Identity, id)
	if err != nil {
		return fmt.Errorf("get project config: %w", err)
	}

	if usingDefaults {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "Project has no tags configured; showing the defaults scans use")
	}
	return writeJSON(c.Root().Writer, cfg)
}

func (cmd *ProjectCmd) runConfigSet(ctx context.Context, c *cli.Command) error {
	id, err := projectArg(c)
	if err != nil {
		return err
	}

	cfg, err := cmd.configFile.Read()
	if err != nil {
		return err
	}

	if err := cmd.app.Projects.SetConfig(ctx, cmd.flags.Identity, id, cfg); err != nil {
		return fmt.Errorf("set project config: %w", err)
	}

	successf(c.Root().Writer, "stored %d tag(s) for %s", len(cfg.Tags), styles.IDStyle.Render(id))
	return nil
}
