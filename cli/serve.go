package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/policycow/cowmcp/pkg/config"
	"github.com/policycow/cowmcp/pkg/logger"
	"github.com/policycow/cowmcp/server"
)

// ServeCmd starts the MCP gateway. Without flags it speaks MCP over
// stdio; --port switches to the SSE listener.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP gateway",
		Long: "Start the MCP gateway over stdio (the default) or, when --port is set,\n" +
			"as an SSE server. Backend connection settings come from CCOW_* environment\n" +
			"variables.",
		RunE: runServe,
	}

	cmd.Flags().String("host", "", "host to bind the SSE listener to")
	cmd.Flags().Int("port", -1, "port for the SSE listener (0 selects stdio)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	log := newLogger(cfg)
	server.Version = Version

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log)
	if err := srv.Run(ctx); err != nil {
		log.Error("server exited with error", "error", err)
		return err
	}
	return nil
}

// applyServeFlags lets command-line flags override the loaded
// configuration. Flags that were not set leave the config untouched.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("host") {
		host, err := cmd.Flags().GetString("host")
		if err != nil {
			return fmt.Errorf("failed to get host flag: %w", err)
		}
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return fmt.Errorf("failed to get port flag: %w", err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port: %d", port)
		}
		cfg.Server.Port = port
	}
	return nil
}

func newLogger(cfg *config.Config) logger.Logger {
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(cfg.Runtime.LogLevel)
	logCfg.JSON = cfg.Runtime.LogJSON
	return logger.NewLogger(logCfg)
}
