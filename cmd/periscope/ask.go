package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nkall/periscope/internal/render"
)

func askCmd() *cobra.Command {
	var showActivity bool

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a one-shot query to the agent",
		Long: `Send a single query and print the answer. Telemetry still streams in
the background so the action log is available with --activity.

Examples:
  periscope ask "what does the config loader do?"
  periscope ask --activity "refactor suggestions for main.go"`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a := buildApp()
			defer a.close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a.attachContext(ctx)
			a.startFileUpdates(ctx)

			reply, err := a.ctrl.Send(ctx, args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			fmt.Println(reply)

			if showActivity {
				r := render.New(pretty)
				fmt.Fprintln(os.Stderr)
				fmt.Fprint(os.Stderr, r.Actions(a.ctrl.Actions()))
			}
		},
	}

	cmd.Flags().BoolVarP(&showActivity, "activity", "a", false, "Print the agent action log to stderr")

	return cmd
}
