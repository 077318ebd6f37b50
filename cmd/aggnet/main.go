package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

func main() {
	configPath := flag.String("config", "topology.yml", "YAML topology file")
	metricsAddr := flag.String("metrics", "", "Prometheus listen address (overrides the config)")
	queryTimeout := flag.Duration("timeout", 5*time.Second, "sum command timeout")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := utils.NewDefaultLogger(level)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cluster, err := BuildCluster(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "topology:", err)
		os.Exit(1)
	}

	addr := cfg.Metrics
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(cluster.registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("metrics server", "err", err)
			}
		}()
		fmt.Printf("metrics on http://%s/metrics\n", addr)
	}

	repl := REPL{cluster: cluster, timeout: *queryTimeout}
	if err = repl.Open(); err != nil {
		fmt.Fprintln(os.Stderr, "readline:", err)
		os.Exit(1)
	}
	defer repl.Close()

	fmt.Printf("%d node(s) up; try: sum <node> <id,id,...>\n", len(cluster.nodes))
	for {
		if err = repl.REPL(); err != nil {
			if err != io.EOF {
				fmt.Fprintln(os.Stderr, err)
			}
			break
		}
	}
}
