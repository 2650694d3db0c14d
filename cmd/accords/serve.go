package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/accords/accords/coordinator"
	"github.com/arthur-debert/accords/accords/metrics"
	"github.com/arthur-debert/accords/accords/page"
	"github.com/arthur-debert/accords/accords/server"
	"github.com/arthur-debert/accords/accords/session"
)

const (
	keyAddr        = "addr"
	keyPageSize    = "page-size"
	keyMaxSessions = "max-sessions"
	keySessionTTL  = "session-ttl"
	keyDebounce    = "debounce"
)

const shutdownTimeout = 10 * time.Second

func (cli *CLI) addServeCommand() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the explorer over HTTP",
		Long: `Load the dataset and serve the JSON API: sessions, filters, results,
statistics, map layer, record details, suggestions and imports. Prometheus
metrics are exposed at /metrics.

Examples:
  accords serve --addr :8080
  ACCORDS_ADDR=:9000 accords serve --debounce 150ms`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cli.serve(ctx, nil)
		},
	}

	flags := cmd.Flags()
	flags.String(keyAddr, ":8080", "Listen address")
	flags.Int(keyPageSize, page.DefaultSize, "Rows per results page")
	flags.Int(keyMaxSessions, session.DefaultMaxSessions, "Sessions kept in memory")
	flags.Duration(keySessionTTL, session.DefaultSessionTTL, "Idle lifetime of a session")
	flags.Duration(keyDebounce, coordinator.DefaultDelay, "Quiet period after a filter edit before querying")

	cli.rootCmd.AddCommand(cmd)
}

// serve runs until ctx is done. ready, when set, receives the bound address.
func (cli *CLI) serve(ctx context.Context, ready chan<- string) error {
	v := cli.viperInst

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e, ds, closeFn, err := cli.openExplorer(ctx, session.Options{
		PageSize:    v.GetInt(keyPageSize),
		MaxSessions: v.GetInt(keyMaxSessions),
		SessionTTL:  v.GetDuration(keySessionTTL),
		Delay:       v.GetDuration(keyDebounce),
		Metrics:     metrics.New(reg),
	})
	if err != nil {
		return err
	}
	defer closeFn()

	ln, err := net.Listen("tcp", v.GetString(keyAddr))
	if err != nil {
		return NewConfigError("serve", fmt.Sprintf("cannot listen on %s: %v", v.GetString(keyAddr), err),
			"Choose another --addr")
	}

	srv := &http.Server{
		Handler:           server.New(e, server.Options{Logger: cli.logs.main, Gatherer: reg}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cli.logs.main.Info("serving", "addr", ln.Addr().String(), "dataset", describeDataset(ds))
	fmt.Fprintf(cli.stderr, "Serving %s on %s\n", describeDataset(ds), ln.Addr())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		cli.logs.main.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
