package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-cachetier/pkg/metrics"
	"github.com/dd0wney/cluso-cachetier/pkg/tierclient"
	"github.com/dd0wney/cluso-cachetier/pkg/topology"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML tier config")
	url := flag.String("url", "", "Tier control URL (overrides -config)")
	managerName := flag.String("manager", "probe", "Cache manager name")
	waitOrchestrator := flag.Bool("wait-orchestrator", false, "Block until the orchestrator is ready")
	waitTimeout := flag.Duration("wait-timeout", 30*time.Second, "Orchestrator wait timeout")
	watch := flag.Bool("watch", false, "Keep running and print topology changes")
	metricsPort := flag.Int("metrics", 0, "Prometheus metrics port (0 disables)")
	flag.Parse()

	fmt.Printf("🔌 Cluso CacheTier - Probe\n")
	fmt.Printf("==========================\n\n")

	cfg, err := loadConfig(*configPath, *url)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := tierclient.New(*managerName, cfg)
	if err != nil {
		log.Fatalf("Failed to create tier client: %v", err)
	}
	defer client.Shutdown()

	fmt.Printf("🔗 Connecting to clustering tier...\n")
	created, err := client.InitializeOnce()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	if !created {
		fmt.Printf("⚠️  No clustering configuration, nothing to probe\n")
		return
	}

	conn, _ := client.Connection()
	fmt.Printf("✅ Connected (connection %s)\n\n", conn.ID())

	topo, err := client.Topology()
	if err != nil {
		log.Fatalf("Failed to read topology: %v", err)
	}
	printMembers(topo.Members())

	if *waitOrchestrator {
		fmt.Printf("\n⏳ Waiting for orchestrator (timeout %s)...\n", *waitTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), *waitTimeout)
		err := client.WaitForOrchestrator(ctx, *managerName)
		cancel()
		if err != nil {
			log.Fatalf("Orchestrator not ready: %v", err)
		}
		fmt.Printf("✅ Orchestrator ready\n")
	}

	if *metricsPort > 0 {
		go serveMetrics(*metricsPort)
		fmt.Printf("📊 Metrics: http://localhost:%d/metrics\n", *metricsPort)
	}

	if !*watch {
		return
	}

	topo.AddListener(printingListener{})
	fmt.Printf("\n👀 Watching topology (Ctrl-C to stop)...\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Printf("\n👋 Shutting down...\n")
}

func loadConfig(path, url string) (*tierclient.Config, error) {
	if url != "" {
		return tierclient.DefaultConfig(url), nil
	}
	if path != "" {
		return tierclient.LoadConfig(path)
	}
	return nil, fmt.Errorf("one of -config or -url is required")
}

func printMembers(members []topology.Member) {
	fmt.Printf("📋 Topology: %d member(s)\n", len(members))
	for _, m := range members {
		health := "healthy"
		if !m.Healthy {
			health = "unhealthy"
		}
		fmt.Printf("  - %s @ %s (%s)\n", m.ID, m.Addr, health)
	}
}

type printingListener struct{}

func (printingListener) ClusterTopologyChanged(members []topology.Member) {
	fmt.Printf("\n🔄 Topology changed at %s\n", time.Now().Format(time.RFC3339))
	printMembers(members)
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		metrics.DefaultRegistry().GetPrometheusRegistry(),
		promhttp.HandlerOpts{},
	))
	addr := fmt.Sprintf(":%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Metrics server failed: %v", err)
	}
}
