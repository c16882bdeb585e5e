// Package main provides the CLI entry point for the mcprobe multicast
// connectivity prober.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcastio/mcprobe/internal/config"
	"github.com/mcastio/mcprobe/internal/logging"
	"github.com/mcastio/mcprobe/internal/mcast"
	"github.com/mcastio/mcprobe/internal/metrics"
	"github.com/mcastio/mcprobe/internal/pacing"
	"github.com/mcastio/mcprobe/internal/prober"
	"github.com/mcastio/mcprobe/internal/responder"
	"github.com/mcastio/mcprobe/internal/wizard"
)

var (
	// Version is set at build time
	Version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcprobe",
		Short: "mcprobe - Multicast connectivity prober",
		Long: `mcprobe validates multicast reachability across a network path.

One instance sends sequenced probe datagrams to a multicast group and
measures responsiveness via unicast acknowledgements; a peer instance on
the far side of the path joins the group and answers every probe. The
sender adapts its probe rate to the observed success or failure.`,
		Version: Version,
	}

	// Add subcommands
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(recvCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// groupFlags registers the flags shared by both roles and returns a loader
// that resolves the final configuration (file values overridden by any flag
// set on the command line).
func groupFlags(cmd *cobra.Command) func() (*config.Config, error) {
	var configPath string
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringP("group", "g", "239.1.1.1", "IPv4 multicast group address")
	cmd.Flags().IntP("port", "p", 10000, "UDP port")
	cmd.Flags().Bool("metrics", false, "Enable the Prometheus metrics endpoint")
	cmd.Flags().String("metrics-address", "", "Metrics listen address (implies --metrics)")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "", "Log format: text, json")

	return func() (*config.Config, error) {
		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}

		flags := cmd.Flags()
		if flags.Changed("group") {
			cfg.Group.Address, _ = flags.GetString("group")
		}
		if flags.Changed("port") {
			cfg.Group.Port, _ = flags.GetInt("port")
		}
		if flags.Changed("metrics") {
			cfg.Metrics.Enabled, _ = flags.GetBool("metrics")
		}
		if flags.Changed("metrics-address") {
			cfg.Metrics.Address, _ = flags.GetString("metrics-address")
			cfg.Metrics.Enabled = true
		}
		if flags.Changed("log-level") {
			cfg.Log.Level, _ = flags.GetString("log-level")
		}
		if flags.Changed("log-format") {
			cfg.Log.Format, _ = flags.GetString("log-format")
		}

		return cfg, nil
	}
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send probes to the multicast group",
		Long: `Send sequenced probe datagrams to the multicast group and wait for
unicast acknowledgements after each one. The inter-probe delay halves on
every acknowledged probe and doubles (bounded) on every missed one.`,
	}

	load := groupFlags(cmd)
	cmd.Flags().Int("ttl", 20, "Multicast TTL for outbound probes")
	cmd.Flags().DurationP("timeout", "t", 200*time.Millisecond, "Ack wait timeout per probe")
	cmd.Flags().String("correlation", "", "Ack correlation mode: strict or loose")
	cmd.Flags().Uint64("count", 0, "Stop after this many probes (0 = run until interrupted)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("ttl") {
			cfg.Group.TTL, _ = flags.GetInt("ttl")
		}
		if flags.Changed("timeout") {
			cfg.Send.Timeout, _ = flags.GetDuration("timeout")
		}
		if flags.Changed("correlation") {
			cfg.Send.Correlation, _ = flags.GetString("correlation")
		}
		count, _ := flags.GetUint64("count")

		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stopMetrics, err := startMetrics(cfg, logger)
		if err != nil {
			return err
		}
		defer stopMetrics()

		conn, err := mcast.NewSenderConn(cfg.Group.TTL)
		if err != nil {
			return err
		}
		defer conn.Close()

		p, err := prober.New(prober.Options{
			Conn:    conn,
			Group:   cfg.GroupAddr(),
			Timeout: cfg.Send.Timeout,
			Pacing: pacing.Config{
				Initial: cfg.Send.InitialDelay,
				Floor:   cfg.Send.MinBackoff,
				Ceiling: cfg.Send.MaxBackoff,
			},
			Correlation:      cfg.Send.Correlation,
			MaxCycles:        count,
			ProgressInterval: cfg.Send.ProgressInterval,
			Logger:           logger,
			Metrics:          metrics.Default(),
		})
		if err != nil {
			return err
		}

		logger.Info("probing multicast group",
			logging.KeyGroup, cfg.GroupAddr().String(),
			logging.KeyLocalAddr, conn.LocalAddr().String(),
			logging.KeyTimeout, cfg.Send.Timeout,
			logging.KeyMode, cfg.Send.Correlation,
		)

		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("prober stopped")
		return nil
	}

	return cmd
}

func recvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Answer probes received on the multicast group",
		Long: `Join the multicast group and unicast an acknowledgement back to the
source of every valid probe datagram. Datagrams from unrelated
applications on the same group/port trigger a cooldown instead of an ack.`,
	}

	load := groupFlags(cmd)
	cmd.Flags().Duration("cooldown", 5*time.Second, "Pause after receiving foreign traffic")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("cooldown") {
			cfg.Recv.Cooldown, _ = cmd.Flags().GetDuration("cooldown")
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stopMetrics, err := startMetrics(cfg, logger)
		if err != nil {
			return err
		}
		defer stopMetrics()

		conn, err := mcast.NewResponderConn(cfg.GroupAddr().IP, cfg.Group.Port)
		if err != nil {
			return err
		}
		defer conn.Close()

		r, err := responder.New(responder.Options{
			Conn:     conn,
			Cooldown: cfg.Recv.Cooldown,
			Logger:   logger,
			Metrics:  metrics.Default(),
		})
		if err != nil {
			return err
		}

		logger.Info("listening on multicast group",
			logging.KeyGroup, cfg.GroupAddr().String(),
			logging.KeyLocalAddr, conn.LocalAddr().String(),
		)

		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("responder stopped")
		return nil
	}

	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration setup",
		Long:  "Generate a configuration file through an interactive wizard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wizard.New().Run()
			return err
		},
	}
}

// startMetrics starts the optional metrics endpoint and returns a stop
// function. The returned stop is a no-op when metrics are disabled.
func startMetrics(cfg *config.Config, logger *slog.Logger) (func(), error) {
	if !cfg.Metrics.Enabled {
		return func() {}, nil
	}

	srvCfg := metrics.DefaultServerConfig()
	srvCfg.Address = cfg.Metrics.Address
	srv := metrics.NewServer(srvCfg)
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("start metrics server: %w", err)
	}
	logger.Info("metrics endpoint started", logging.KeyAddress, srv.Addr())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(shutdownCtx)
	}, nil
}
