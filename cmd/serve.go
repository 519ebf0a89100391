package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lanshare/lanshare/pkg/config"
	"github.com/lanshare/lanshare/pkg/netutil"
	"github.com/lanshare/lanshare/pkg/server"
	"github.com/lanshare/lanshare/pkg/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LAN sharing server",
	Long: `Start the web server on all network interfaces so that other devices
on the local network can upload/download files and share text snippets.`,
	RunE: runServe,
}

func init() {
	viper.AutomaticEnv()
	// Replace . with _ in env var names (e.g., server.port becomes SERVER_PORT)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	rootCmd.AddCommand(serveCmd)

	// Serve-specific flags
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Address to bind to")
	serveCmd.Flags().StringP("dir", "d", "", "Upload directory (default ./uploads)")
	serveCmd.Flags().String("text-file", "", "Text store file (default ./texts.json)")
	serveCmd.Flags().Int64("max-body-bytes", 500*1024*1024, "Maximum accepted request body size in bytes")
	serveCmd.Flags().Bool("enable-telemetry", false, "Enable OpenTelemetry tracing")
	serveCmd.Flags().String("otel-endpoint", "", "OpenTelemetry endpoint (if empty, uses auto-export)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("storage.dir", serveCmd.Flags().Lookup("dir"))
	_ = viper.BindPFlag("storage.text_file", serveCmd.Flags().Lookup("text-file"))
	_ = viper.BindPFlag("server.max_body_bytes", serveCmd.Flags().Lookup("max-body-bytes"))
	_ = viper.BindPFlag("telemetry.enabled", serveCmd.Flags().Lookup("enable-telemetry"))
	_ = viper.BindPFlag("telemetry.endpoint", serveCmd.Flags().Lookup("otel-endpoint"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := GetLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize telemetry if enabled
	var cleanup func()
	if cfg.Telemetry.Enabled {
		logger.Info("Initializing OpenTelemetry")
		cleanup, err = telemetry.Initialize(cfg.Telemetry, logger)
		if err != nil {
			logger.Warnf("Failed to initialize telemetry: %v", err)
		} else {
			defer cleanup()
		}
	}

	// Create and start server
	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	printStartupURLs(cfg.Server.Port)

	// Wait for interrupt signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-interrupt:
		logger.Infof("Received signal %v, shutting down...", sig)

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
			return err
		}

		logger.Info("Server stopped gracefully")
		return nil
	}
}

// printStartupURLs reports where the server can be reached. The LAN address is
// best effort and purely advisory.
func printStartupURLs(port int) {
	logger := GetLogger()
	logger.Infof("Local access:   http://localhost:%d", port)
	logger.Infof("Network access: http://%s:%d", netutil.LocalIP(), port)
	logger.Info("Press Ctrl+C to stop")
}
