// Package cli is the developer harness for the overlay engine: it wires
// configuration, logging, metrics, the backend client, and the session
// coordinator, and exposes the engine's operations as subcommands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/citypath/overlay/internal/backend"
	"github.com/citypath/overlay/internal/config"
	"github.com/citypath/overlay/internal/logging"
	"github.com/citypath/overlay/internal/metrics"
	"github.com/citypath/overlay/internal/overlay"
	"github.com/citypath/overlay/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	ServerAddr string
	Role       string
	JSONOut    bool
}

// cliContext carries the initialized engine through the command tree.
type cliContext struct {
	cfg   config.Config
	log   logging.Logger
	coord *overlay.Coordinator
}

type ctxKey struct{}

// NewRootCommand creates the root command with global flags and all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "citypath",
		Short:   "CityPath overlay engine harness",
		Long:    "Drives the CityPath geospatial overlay engine against a running\nanalytics backend: grid and hotspot loading, site recommendations,\nadvisory questions, and event management.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initContext(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: env + built-in defaults)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&opts.ServerAddr, "server", "", "backend base URL override")
	pf.StringVar(&opts.Role, "role", "", "session role override (urban-planner, local-leader)")
	pf.BoolVar(&opts.JSONOut, "json", false, "print results as JSON")

	cmd.AddCommand(
		newGridCmd(opts),
		newHotspotsCmd(opts),
		newRecommendCmd(opts),
		newAskCmd(opts),
		newLayersCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

func initContext(cmd *cobra.Command, opts *RootOptions) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if opts.ServerAddr != "" {
		cfg.Backend.BaseURL = opts.ServerAddr
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Role != "" {
		cfg.Session.Role = opts.Role
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	m := metrics.NewNop()
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	}

	client, err := backend.New(cfg.Backend, log, m)
	if err != nil {
		return err
	}
	coord, err := overlay.NewCoordinator(*cfg, overlay.CoordinatorDeps{
		Backend: client,
		Logger:  log,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	cmd.SetContext(context.WithValue(cmd.Context(), ctxKey{}, &cliContext{cfg: *cfg, log: log, coord: coord}))
	return nil
}

func getContext(cmd *cobra.Command) (*cliContext, error) {
	cc, ok := cmd.Context().Value(ctxKey{}).(*cliContext)
	if !ok {
		return nil, errors.New(errors.CodeInternal, "CLI context not initialized")
	}
	return cc, nil
}

func printResult(cmd *cobra.Command, opts *RootOptions, v interface{}) error {
	if opts.JSONOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// Main is the process entry point shared by cmd/citypath.
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.UserMessage(err))
		os.Exit(1)
	}
}
