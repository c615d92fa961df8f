// teamctl is the cobra-rooted CLI that drives a local session headlessly
// or renders a live bubbletea dashboard of inbox/task/event activity.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	baseDir  string
	provider string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "teamctl",
		Short: "Drive a teamkit multi-agent session from the command line",
		Long: `teamctl runs a local multi-agent session: it loads an agent roster,
starts the session scheduler, and either streams turn-by-turn activity to
the terminal or renders a live dashboard of inboxes, tasks, and events.`,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to teamkit.yaml")
	root.PersistentFlags().StringVar(&baseDir, "base-dir", "", "override configured session storage directory")
	root.PersistentFlags().StringVar(&provider, "provider", "mock", "LLM provider name to use for every agent (mock is always available)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newVersionCommand())

	viper.SetEnvPrefix("TEAMKIT")
	viper.AutomaticEnv()

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("teamctl (dev build)")
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
