package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	Long: `Starts the HTTP API over the stored moments. When a library is selected with
--album or --dir, analysis jobs can be started through POST /api/v1/analyze
and followed as server-sent events; otherwise the server only serves stored
results.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addLibraryFlags(serveCmd)
	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.service.Load(ctx); err != nil {
		a.log.Warn("failed to load stored clusters", "error", err)
	}

	webCfg := a.cfg.Web
	webCfg.Port = intFlagOr(cmd, "port", webCfg.Port)
	webCfg.Host = stringFlagOr(cmd, "host", webCfg.Host)

	var source curator.PhotoSource
	if a.source != nil {
		source = a.source
	} else {
		fmt.Println("No library selected, analysis endpoints are disabled")
	}
	server := web.NewServer(webCfg, a.service, source, a.log)

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Moments API on http://%s:%d/api/v1\n", webCfg.Host, webCfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
