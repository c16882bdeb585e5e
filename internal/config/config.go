// Package config provides configuration parsing and validation for mcprobe.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Correlation modes for matching acks to probes.
const (
	// CorrelationStrict only counts acks whose sequence number matches an
	// in-flight probe.
	CorrelationStrict = "strict"

	// CorrelationLoose counts any datagram received within the wait window,
	// regardless of payload.
	CorrelationLoose = "loose"
)

// Config represents the complete mcprobe configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Group   GroupConfig   `yaml:"group"`
	Send    SendConfig    `yaml:"send"`
	Recv    RecvConfig    `yaml:"recv"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// GroupConfig identifies the multicast group shared by both roles.
type GroupConfig struct {
	Address string `yaml:"address"` // IPv4 multicast group
	Port    int    `yaml:"port"`    // UDP port
	TTL     int    `yaml:"ttl"`     // multicast TTL for outbound probes
}

// SendConfig contains prober settings.
type SendConfig struct {
	// Timeout bounds the wait for acks after each probe.
	Timeout time.Duration `yaml:"timeout"`

	// InitialDelay seeds the pacing loop.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MinBackoff is the pacing floor once the loop is backing off.
	MinBackoff time.Duration `yaml:"min_backoff"`

	// MaxBackoff is the pacing ceiling.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// Correlation selects strict or loose ack matching.
	Correlation string `yaml:"correlation"`

	// ProgressInterval is how often the cumulative probe count is logged.
	// 0 disables progress logging.
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// RecvConfig contains responder settings.
type RecvConfig struct {
	// Cooldown is how long the responder pauses after receiving a datagram
	// that is not a probe, to avoid tight-looping against foreign traffic.
	Cooldown time.Duration `yaml:"cooldown"`
}

// MetricsConfig defines the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Group: GroupConfig{
			Address: "239.1.1.1",
			Port:    10000,
			TTL:     20,
		},
		Send: SendConfig{
			Timeout:          200 * time.Millisecond,
			InitialDelay:     2 * time.Second,
			MinBackoff:       1 * time.Second,
			MaxBackoff:       10 * time.Second,
			Correlation:      CorrelationStrict,
			ProgressInterval: 10 * time.Second,
		},
		Recv: RecvConfig{
			Cooldown: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9477",
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	// Start with defaults
	cfg := Default()

	// Parse YAML
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		// Handle default values: ${VAR:-default}
		if idx := strings.Index(name, ":-"); idx != -1 {
			varName := name[:idx]
			defaultVal := name[idx+2:]
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultVal
		}

		// Simple lookup
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // Keep original if not found
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !isValidLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !isValidLogFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}

	if !isMulticastAddress(c.Group.Address) {
		errs = append(errs, fmt.Sprintf("group.address must be an IPv4 multicast address, got: %s", c.Group.Address))
	}
	if c.Group.Port < 1 || c.Group.Port > 65535 {
		errs = append(errs, fmt.Sprintf("group.port must be between 1 and 65535, got: %d", c.Group.Port))
	}
	if c.Group.TTL < 1 || c.Group.TTL > 255 {
		errs = append(errs, fmt.Sprintf("group.ttl must be between 1 and 255, got: %d", c.Group.TTL))
	}

	// A zero timeout is legal: it degenerates to an immediate-failure cycle.
	if c.Send.Timeout < 0 {
		errs = append(errs, "send.timeout must not be negative")
	}
	if c.Send.InitialDelay <= 0 {
		errs = append(errs, "send.initial_delay must be positive")
	}
	if c.Send.MinBackoff <= 0 {
		errs = append(errs, "send.min_backoff must be positive")
	}
	if c.Send.MaxBackoff < c.Send.MinBackoff {
		errs = append(errs, "send.max_backoff must be >= send.min_backoff")
	}
	if c.Send.Correlation != CorrelationStrict && c.Send.Correlation != CorrelationLoose {
		errs = append(errs, fmt.Sprintf("send.correlation must be %q or %q, got: %s",
			CorrelationStrict, CorrelationLoose, c.Send.Correlation))
	}
	if c.Send.ProgressInterval < 0 {
		errs = append(errs, "send.progress_interval must not be negative")
	}

	if c.Recv.Cooldown < 0 {
		errs = append(errs, "recv.cooldown must not be negative")
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, "metrics.address is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// GroupAddr returns the group as a resolved UDP address.
func (c *Config) GroupAddr() *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.ParseIP(c.Group.Address),
		Port: c.Group.Port,
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	}
	return false
}

func isMulticastAddress(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && ip.IsMulticast()
}
