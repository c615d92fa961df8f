package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/config"
	"github.com/teamkit/teamkit/internal/llm"
	"github.com/teamkit/teamkit/internal/session"
)

func newRunCommand() *cobra.Command {
	var rosterPath string
	var dashboard bool
	var message string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a session and either stream its events or open the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if baseDir != "" {
				cfg.BaseDir = baseDir
			}

			agents := defaultRoster()
			if rosterPath != "" {
				agents, err = loadRoster(rosterPath)
				if err != nil {
					return err
				}
			}
			for i := range agents {
				if agents[i].Provider == "" {
					agents[i].Provider = provider
				}
			}

			events := broadcast.NewBroadcaster(nil)
			mgr, err := session.NewManager(cfg, events, nil)
			if err != nil {
				return err
			}
			mgr.RegisterProvider("mock", llm.NewMockBuilder())

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sessionID, te, err := mgr.Create(ctx, agents, nil)
			if err != nil {
				return err
			}
			color.New(color.FgCyan, color.Bold).Printf("session %s started with %d agents\n", sessionID, len(agents))

			if message != "" {
				// empty target routes to the session's top leader.
				if err := te.SendUserMessage(message, ""); err != nil {
					return err
				}
			}

			if dashboard {
				return runDashboard(ctx, te, events, sessionID)
			}
			return streamToStdout(ctx, events, sessionID)
		},
	}

	cmd.Flags().StringVar(&rosterPath, "roster", "", "path to a YAML roster file (defaults to a built-in two-agent roster)")
	cmd.Flags().BoolVar(&dashboard, "dashboard", false, "render a live bubbletea dashboard instead of streaming plain text")
	cmd.Flags().StringVar(&message, "message", "", "seed the session with an initial user message")
	return cmd
}

func streamToStdout(ctx context.Context, events *broadcast.Broadcaster, sessionID string) error {
	ch, unsubscribe := events.Subscribe(sessionID)
	defer unsubscribe()

	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Printf("%s %s %s\n", gray(event.Timestamp.Format("15:04:05")), bold(event.Type), formatEventData(event.Data))
			if event.Type == broadcast.TypeSessionEnd {
				return nil
			}
		}
	}
}

func formatEventData(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", data)
}
