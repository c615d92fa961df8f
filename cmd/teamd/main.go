// teamd is the HTTP/SSE server process: a thin gin shell around
// session.Manager, team.TeamEngine and broadcast.Broadcaster exposing
// session create/message/event-stream endpoints over the network.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/config"
	"github.com/teamkit/teamkit/internal/llm"
	"github.com/teamkit/teamkit/internal/logging"
	"github.com/teamkit/teamkit/internal/session"
	"github.com/teamkit/teamkit/internal/team"
)

func main() {
	configFile := flag.String("config", "", "path to teamkit.yaml (defaults to ./teamkit.yaml or $HOME/teamkit.yaml)")
	flag.Parse()

	logger := logging.NewComponentLogger("teamd")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("teamd: load config: %v", err)
	}

	registry := prometheus.NewRegistry()
	broadcastMetrics := broadcast.MustNewMetrics(registry)
	teamMetrics := team.MustNewMetrics(registry)

	events := broadcast.NewBroadcaster(broadcastMetrics)
	mgr, err := session.NewManager(cfg, events, teamMetrics)
	if err != nil {
		log.Fatalf("teamd: new session manager: %v", err)
	}

	// "mock" is always available for dry runs; real providers
	// (OpenAI, Anthropic, Kimi, ...) are registered by a deployment's
	// own init code; this module never talks to a network LLM backend.
	mgr.RegisterProvider("mock", llm.NewMockBuilder())

	router := newRouter(mgr, events, registry)

	addr := cfg.ListenAddr
	if v := os.Getenv("TEAMKIT_LISTEN_ADDR"); v != "" {
		addr = v
	}
	logger.Info("listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("teamd: serve: %v", err)
	}
}
