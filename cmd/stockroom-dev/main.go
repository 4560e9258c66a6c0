// Command stockroom-dev serves an in-memory products API for local use and
// end-to-end testing of the stockroom client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/five82/stockroom/internal/devserver"
	"github.com/five82/stockroom/internal/logging"
)

const service = "stockroom-dev"

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:3000", "listen address")
	seed := flag.Bool("seed", true, "start with a few sample products")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logging.New(service, "stderr", *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", service, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := devserver.NewMemStore()
	if *seed {
		store = devserver.NewMemStore(devserver.DefaultSeed()...)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := devserver.NewHandler(&devserver.Server{Store: store}, devserver.HTTPDeps{
		Log:      log,
		Service:  service,
		Registry: reg,
	})

	log.Info("serving products", zap.Int("seeded", store.Len()))
	if err := devserver.Run(ctx, *addr, h, log); err != nil {
		log.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}
