// Package wizard provides an interactive setup wizard for mcprobe.
package wizard

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/mcastio/mcprobe/internal/config"
)

// Result contains the wizard output.
type Result struct {
	Config     *config.Config
	ConfigPath string
}

// Wizard manages the interactive setup process.
type Wizard struct {
	theme *huh.Theme
}

// New creates a new setup wizard.
func New() *Wizard {
	return &Wizard{
		theme: huh.ThemeDracula(),
	}
}

// Run executes the interactive setup wizard.
func (w *Wizard) Run() (*Result, error) {
	w.printBanner()

	configPath, err := w.askConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := config.Default()

	if err := w.askGroup(cfg); err != nil {
		return nil, err
	}
	if err := w.askProbing(cfg); err != nil {
		return nil, err
	}
	if err := w.askAdvancedOptions(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := w.writeConfig(cfg, configPath); err != nil {
		return nil, err
	}

	w.printSummary(configPath, cfg)

	return &Result{
		Config:     cfg,
		ConfigPath: configPath,
	}, nil
}

func (w *Wizard) printBanner() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Render(`
  _ __ ___   ___ _ __  _ __ ___ | |__   ___
 | '_ ` + "`" + ` _ \ / __| '_ \| '__/ _ \| '_ \ / _ \
 | | | | | | (__| |_) | | | (_) | |_) |  __/
 |_| |_| |_|\___| .__/|_|  \___/|_.__/ \___|
                |_|
`)

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("  Multicast Connectivity Prober - Setup Wizard\n")

	fmt.Println(banner)
	fmt.Println(subtitle)
}

func (w *Wizard) askConfigPath() (string, error) {
	configPath := "./config.yaml"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Basic Setup").
				Description("Choose where to write the configuration file."),

			huh.NewInput().
				Title("Config File Path").
				Placeholder("./config.yaml").
				Value(&configPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("config path is required")
					}
					if !strings.HasSuffix(s, ".yaml") && !strings.HasSuffix(s, ".yml") {
						return fmt.Errorf("config file should have .yaml or .yml extension")
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return "", err
	}
	return configPath, nil
}

func (w *Wizard) askGroup(cfg *config.Config) error {
	address := cfg.Group.Address
	port := strconv.Itoa(cfg.Group.Port)
	ttl := strconv.Itoa(cfg.Group.TTL)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Multicast Group").
				Description("Both sides of the test must use the same group and port."),

			huh.NewInput().
				Title("Group Address").
				Description("IPv4 multicast address to probe").
				Placeholder("239.1.1.1").
				Value(&address).
				Validate(func(s string) error {
					ip := net.ParseIP(s)
					if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
						return fmt.Errorf("must be an IPv4 multicast address (224.0.0.0/4)")
					}
					return nil
				}),

			huh.NewInput().
				Title("UDP Port").
				Placeholder("10000").
				Value(&port).
				Validate(validateIntRange(1, 65535)),

			huh.NewInput().
				Title("Multicast TTL").
				Description("Hop limit for outbound probes").
				Placeholder("20").
				Value(&ttl).
				Validate(validateIntRange(1, 255)),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Group.Address = address
	cfg.Group.Port, _ = strconv.Atoi(port)
	cfg.Group.TTL, _ = strconv.Atoi(ttl)
	return nil
}

func (w *Wizard) askProbing(cfg *config.Config) error {
	timeout := cfg.Send.Timeout.String()
	correlation := cfg.Send.Correlation

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Probing").
				Description("Sender-side tuning. These settings are ignored by the receiver role."),

			huh.NewInput().
				Title("Ack Timeout").
				Description("How long to wait for acknowledgements per probe").
				Placeholder("200ms").
				Value(&timeout).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil {
						return fmt.Errorf("invalid duration (e.g. 200ms, 1s)")
					}
					if d < 0 {
						return fmt.Errorf("timeout must not be negative")
					}
					return nil
				}),

			huh.NewSelect[string]().
				Title("Ack Correlation").
				Description("Strict matches acks by sequence number").
				Options(
					huh.NewOption("Strict (recommended)", config.CorrelationStrict),
					huh.NewOption("Loose (any reply counts)", config.CorrelationLoose),
				).
				Value(&correlation),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Send.Timeout, _ = time.ParseDuration(timeout)
	cfg.Send.Correlation = correlation
	return nil
}

func (w *Wizard) askAdvancedOptions(cfg *config.Config) error {
	metricsEnabled := cfg.Metrics.Enabled
	logLevel := cfg.Log.Level

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Advanced Options"),

			huh.NewConfirm().
				Title("Enable Prometheus metrics endpoint?").
				Value(&metricsEnabled),

			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&logLevel),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Metrics.Enabled = metricsEnabled
	cfg.Log.Level = logLevel
	return nil
}

func (w *Wizard) writeConfig(cfg *config.Config, path string) error {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Add header comment
	header := `# mcprobe Configuration
# Generated by setup wizard

`
	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (w *Wizard) printSummary(configPath string, cfg *config.Config) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("─────────────────────────────────────────────────")

	fmt.Println()
	fmt.Println(divider)
	fmt.Println(style.Render("✓ Setup Complete!"))
	fmt.Println(divider)
	fmt.Println()

	fmt.Printf("  Config file:  %s\n", configPath)
	fmt.Printf("  Group:        %s:%d (ttl %d)\n", cfg.Group.Address, cfg.Group.Port, cfg.Group.TTL)
	fmt.Printf("  Correlation:  %s\n", cfg.Send.Correlation)

	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics:      http://%s/metrics\n", cfg.Metrics.Address)
	}

	fmt.Println()
	fmt.Println("  To start probing:")
	fmt.Printf("    mcprobe send -c %s\n", configPath)
	fmt.Println("  To answer probes on the far side:")
	fmt.Printf("    mcprobe recv -c %s\n", configPath)
	fmt.Println()
}

// validateIntRange returns a huh validator for decimal integers in [lo, hi].
func validateIntRange(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}
