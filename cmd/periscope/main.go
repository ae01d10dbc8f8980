// Package main provides the periscope CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nkall/periscope/internal/api"
	"github.com/nkall/periscope/internal/audit"
	"github.com/nkall/periscope/internal/config"
	"github.com/nkall/periscope/internal/contextfile"
	"github.com/nkall/periscope/internal/controller"
	"github.com/nkall/periscope/internal/graph"
	"github.com/nkall/periscope/internal/logging"
	"github.com/nkall/periscope/internal/transcript"
	"github.com/nkall/periscope/internal/tui"
)

var (
	version = "0.1.0"
	pretty  = term.IsTerminal(int(os.Stdout.Fd()))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "periscope",
		Short: "Interactive client for the agent gateway",
		Long: `Periscope drives a conversational AI agent through its gateway:
queries block until the agent answers while telemetry streams the agent's
activity live, and attached context files are kept fresh between queries.

Usage modes:
  periscope              Start the interactive chat TUI
  periscope ask "..."    One-shot query, answer to stdout
  periscope ctx add ...  Attach context files to queries`,
		Run: func(cmd *cobra.Command, args []string) {
			runChat()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", pretty, "Pretty print output")

	rootCmd.AddCommand(
		askCmd(),
		ctxCmd(),
		sessionsCmd(),
		statsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired client stack for one command invocation.
type app struct {
	env     *config.Env
	client  *api.Client
	ctrl    *controller.Controller
	channel *api.TelemetryChannel
	store   *transcript.Store
	sink    *audit.Sink
	ctxSet  *contextfile.Set
	log     *logging.Logger
}

// buildApp wires the controller with its gateway client, telemetry channel,
// transcript store, and audit sink. Storage and graph failures degrade to
// warnings; the chat flow only needs the gateway.
func buildApp() *app {
	env := config.Get()
	paths := config.GetPaths()
	log := logging.New("main")

	client := api.NewClient(env.GatewayURL)

	var opts []controller.Option
	if env.ActionLogCap != "" {
		if n, err := strconv.Atoi(env.ActionLogCap); err == nil && n > 0 {
			opts = append(opts, controller.WithActionCap(n))
		}
	}

	store, err := transcript.New(paths.Data)
	if err != nil {
		log.Warn("transcript_unavailable", nil, err)
		store = nil
	} else {
		opts = append(opts, controller.WithTranscripts(store))
	}

	sink := audit.NewSink(nil)
	if !env.NoGraph {
		if drv := graph.ConnectWithRetry(2); drv != nil {
			sink = audit.NewSink(drv)
		}
	}
	if sink.Enabled() {
		opts = append(opts, controller.WithAudit(sink))
	}

	ctrl := controller.New(client, opts...)
	channel := api.NewTelemetryChannel(env.GatewayURL, &http.Client{}, ctrl)
	ctrl.SetChannel(channel)

	ctxSet, err := contextfile.LoadSet(paths.ContextFile)
	if err != nil {
		log.Warn("context_set_unreadable", nil, err)
		ctxSet = &contextfile.Set{}
	}

	return &app{
		env:     env,
		client:  client,
		ctrl:    ctrl,
		channel: channel,
		store:   store,
		sink:    sink,
		ctxSet:  ctxSet,
		log:     log,
	}
}

// attachContext fetches every persisted context file and registers it for
// freshness tracking. Missing files are reported, not fatal.
func (a *app) attachContext(ctx context.Context) {
	for _, path := range a.ctxSet.Paths {
		if err := a.ctrl.AddContextFile(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: context file unavailable: %s\n", path)
		}
	}
}

// startFileUpdates opens the session-independent file-update stream and the
// local fallback watcher, both feeding the freshness tracker.
func (a *app) startFileUpdates(ctx context.Context) {
	fu := api.NewFileUpdateChannel(a.env.GatewayURL, &http.Client{}, a.ctrl)
	fu.Start(ctx)

	if len(a.ctxSet.Paths) > 0 {
		go contextfile.Watch(ctx, a.ctrl.Tracker(), a.ctxSet.Paths)
	}
}

func (a *app) close() {
	a.channel.Close()
	if a.store != nil {
		a.store.Close()
	}
	a.sink.Close()
}

func runChat() {
	a := buildApp()
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.attachContext(ctx)
	a.startFileUpdates(ctx)

	if err := tui.Run(a.ctrl, a.env.GatewayURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show periscope version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("periscope version %s\n", version)
		},
	}
}
