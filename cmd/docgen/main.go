// Command docgen writes the CLI reference to docs/cli-reference.md, or to
// the path given as the first argument.
package main

import (
	"fmt"
	"os"

	docs "github.com/urfave/cli-docs/v3"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasksync/internal/commands"
	"github.com/colonyops/tasksync/internal/tasksync"
)

func main() {
	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "tasksync",
		Usage:     "Track TODO-style annotations in GitHub repositories as tasks",
		UsageText: "tasksync [global options] command [command options]",
		Flags:     commands.GlobalFlags(flags),
	}
	root = commands.RegisterAll(root, flags, &tasksync.App{}, "dev")

	md, err := docs.ToMarkdown(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating docs: %v\n", err)
		os.Exit(1)
	}

	outPath := "docs/cli-reference.md"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
