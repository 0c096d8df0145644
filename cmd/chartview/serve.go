package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/host"
	"github.com/nicktill/tinychart/pkg/render"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart widget page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, v)
		},
	}

	cmd.Flags().String("addr", config.DefaultWidgetAddr, "listen address")
	cmd.Flags().String("web-dir", config.DefaultWebDir, "directory holding widget.html")

	_ = v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("web_dir", cmd.Flags().Lookup("web-dir"))

	return cmd
}

// newHostHandler wires the widget host routes behind access logging and
// panic recovery.
func newHostHandler(h *host.Handler) http.Handler {
	router := mux.NewRouter()
	h.SetupRoutes(router)
	return handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router))
}

func runServe(ctx context.Context, v *viper.Viper) error {
	log.Println("🚀 Starting TinyChart widget host...")

	location, src := newSource(v)
	h := host.NewHandler(location, src, render.NewRenderer(), v.GetString("web_dir"))

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go h.Hub().Run(hubCtx)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:         addr,
		Handler:      newHostHandler(h),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("📊 Data source: %s", location)
		log.Printf("🌐 Widget host listening on %s", addr)
		log.Println("📡 API endpoints:")
		log.Println("   GET  /                      - Widget page")
		log.Println("   GET  /v1/ws                 - Widget session (websocket)")
		log.Println("   GET  /v1/chart.png          - Rendered view (?timeframe=)")
		log.Println("   GET  /v1/chart/export       - Download chart.png")
		log.Println("   GET  /v1/series             - Aggregated series (json|csv)")
		log.Println("✅ Server ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Shutdown signal received...")
	cancelHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	log.Println("👋 TinyChart widget host exited cleanly")
	return nil
}
