package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nkall/periscope/internal/config"
	"github.com/nkall/periscope/internal/contextfile"
	"github.com/nkall/periscope/internal/render"
)

func ctxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctx",
		Short: "Manage context files attached to queries",
		Long: `Manage the persisted set of context files sent with every query.
Patterns use doublestar globs, resolved against the current directory.

Examples:
  periscope ctx add "src/**/*.go"
  periscope ctx add docs/design.md
  periscope ctx list
  periscope ctx rm /abs/path/to/file.go`,
	}

	addCmd := &cobra.Command{
		Use:   "add <pattern>",
		Short: "Add files matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			set := loadSet()

			cwd, err := os.Getwd()
			if err != nil {
				exitErr(err)
			}

			added, err := set.Add(cwd, args[0])
			if err != nil {
				exitErr(err)
			}
			if err := set.Save(); err != nil {
				exitErr(err)
			}

			w := render.Stdout()
			if len(added) == 0 {
				w.Empty("No new files matched")
				return
			}
			w.Println("Added %d file(s):", len(added))
			for _, p := range added {
				w.Item("%s", p)
			}
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List attached context files",
		Run: func(cmd *cobra.Command, args []string) {
			set := loadSet()

			w := render.Stdout()
			if len(set.Paths) == 0 {
				w.Empty("No context files attached")
				return
			}
			for _, p := range set.Paths {
				w.Item("%s", p)
			}
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a context file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			set := loadSet()

			if !set.Remove(args[0]) {
				fmt.Fprintf(os.Stderr, "Error: not in context set: %s\n", args[0])
				os.Exit(1)
			}
			if err := set.Save(); err != nil {
				exitErr(err)
			}
			fmt.Printf("Removed: %s\n", args[0])
		},
	}

	cmd.AddCommand(addCmd, listCmd, rmCmd)
	return cmd
}

func loadSet() *contextfile.Set {
	set, err := contextfile.LoadSet(config.GetPaths().ContextFile)
	if err != nil {
		exitErr(err)
	}
	return set
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
