package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/semop"
	"github.com/aretw0/semop/internal/presentation/tui"
	httpAdapter "github.com/aretw0/semop/pkg/adapters/http"
	"github.com/aretw0/semop/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Serves the engine as a JSON API, with Prometheus metrics on /metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}

			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			// Request spans carry the dispatch events; they are logged at debug level.
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(observability.NewSpanLogger(logger)))
			defer func() { _ = tp.Shutdown(context.Background()) }()

			hooks := observability.Combine(metrics.Hooks(), observability.Tracing())
			if v.GetBool("log-dispatches") {
				hooks = observability.Combine(hooks, observability.Logging(logger))
			}

			eng, cleanup, err := newEngine(v, semop.WithLifecycleHooks(hooks))
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr: v.GetString("listen"),
				Handler: httpAdapter.NewHandler(eng,
					httpAdapter.WithGatherer(reg),
					httpAdapter.WithLogger(logger),
					httpAdapter.WithTracerProvider(tp),
				),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				tui.PrintBanner(cmd.ErrOrStderr(), semop.Version)
				fmt.Fprintf(cmd.ErrOrStderr(), "Starting semop server on %s\n", srv.Addr)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case <-ctx.Done():
				fmt.Fprintln(cmd.ErrOrStderr(), "\nStart shutdown...")

				// Give outstanding requests a deadline for completion.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "semop server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().String("listen", ":8080", "Address to listen on")
	cmd.Flags().Bool("log-dispatches", false, "Log every dispatch event at info level")
	_ = v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = v.BindPFlag("log-dispatches", cmd.Flags().Lookup("log-dispatches"))
	return cmd
}
