package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"socwatch/config"
	"socwatch/internal/client"
	"socwatch/internal/logger"
)

type options struct {
	configPath string
	apiURL     string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "socwatch",
		Short:         "Security operations dashboard and SOC backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to socwatch.yml")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "SOC API base URL (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newDashboardCmd(opts),
		newServeCmd(opts),
		newGenerateCmd(opts),
		newAlertsCmd(opts),
		newChatCmd(opts),
		newHeartbeatCmd(opts),
	)
	return root
}

// load reads the config, applies flag overrides and initialises logging.
// console false keeps log lines off the terminal.
func (o *options) load(console bool) (*config.Config, error) {
	cfg, path, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(o.apiURL); v != "" {
		cfg.SocWatch.API.BaseURL = v
	}
	if v := strings.TrimSpace(o.logLevel); v != "" {
		cfg.SocWatch.Logging.Level = v
	}

	lc := cfg.SocWatch.Logging
	if err := logger.Init(lc.Enabled, lc.Level, lc.File, lc.Console && console); err != nil {
		return nil, errors.Wrap(err, "initialize logger")
	}
	if path != "" {
		logger.Infof("Config loaded from: %s", path)
	} else {
		logger.Infof("No config file found, using defaults")
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: cfg.SocWatch.API.BaseURL,
		Timeout: cfg.SocWatch.API.Timeout,
		Headers: cfg.SocWatch.API.Headers,
	})
}
