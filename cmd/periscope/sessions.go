package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkall/periscope/internal/audit"
	"github.com/nkall/periscope/internal/config"
	"github.com/nkall/periscope/internal/graph"
	"github.com/nkall/periscope/internal/render"
	"github.com/nkall/periscope/internal/transcript"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse stored session transcripts",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore()
			defer store.Close()

			sessions, err := store.ListSessions(context.Background(), limit)
			if err != nil {
				exitErr(err)
			}

			r := render.New(pretty)
			fmt.Print(r.Sessions(sessions))
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to show")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's transcript",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore()
			defer store.Close()

			messages, err := store.GetMessages(context.Background(), args[0])
			if err != nil {
				exitErr(err)
			}

			r := render.New(pretty)
			fmt.Print(r.Conversation(messages))
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore()
			defer store.Close()

			if err := store.DeleteSession(context.Background(), args[0]); err != nil {
				exitErr(err)
			}
			fmt.Printf("Deleted: %s\n", args[0])
		},
	}

	cmd.AddCommand(listCmd, showCmd, rmCmd)
	return cmd
}

func statsCmd() *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate session statistics from the graph",
		Run: func(cmd *cobra.Command, args []string) {
			env := config.Get()
			if env.NoGraph {
				fmt.Fprintln(os.Stderr, "Error: graph disabled (PERISCOPE_NO_GRAPH=1)")
				os.Exit(1)
			}

			drv := graph.ConnectWithRetry(2)
			if drv == nil {
				fmt.Fprintln(os.Stderr, "Error: graph unreachable")
				os.Exit(1)
			}
			sink := audit.NewSink(drv)
			defer sink.Close()

			stats, err := sink.GetStats(context.Background())
			if err != nil {
				exitErr(err)
			}

			w := render.Stdout()
			w.Println("SESSIONS")
			w.Line()
			w.Item("Total:     %d", stats.Total)
			w.Item("Completed: %d", stats.Completed)
			w.Item("Errored:   %d", stats.Errored)
			w.Item("Cancelled: %d", stats.Cancelled)
			w.Item("Actions:   %d", stats.TotalActions)
			if stats.AvgDurationMs > 0 {
				w.Item("Avg time:  %.0fms", stats.AvgDurationMs)
			}

			if recent > 0 {
				records, err := sink.RecentSessions(context.Background(), recent)
				if err != nil {
					exitErr(err)
				}
				w.Line()
				w.Println("RECENT")
				w.Line()
				for _, r := range records {
					d := time.Duration(graph.GetInt64(r, "duration_ms")) * time.Millisecond
					w.Item("%s  %-10s %7s  %d actions",
						render.Truncate(graph.GetString(r, "id"), 8),
						graph.GetString(r, "status"),
						render.FormatDuration(d),
						graph.GetInt(r, "action_count"))
				}
			}
		},
	}
	cmd.Flags().IntVarP(&recent, "recent", "r", 0, "Also list the N most recent sessions")
	return cmd
}

func openStore() *transcript.Store {
	store, err := transcript.New(config.GetPaths().Data)
	if err != nil {
		exitErr(err)
	}
	return store
}
