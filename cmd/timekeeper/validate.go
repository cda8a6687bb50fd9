package main

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/timekeeper/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the timekeeper configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with -dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		_, _ = red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	// If dump requested, show full configuration with defaults highlighted
	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		defaults, err := config.Defaults()
		if err != nil {
			return err
		}
		dumpConfig(cfg, defaults)
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	valid := make(map[string]bool)
	for _, key := range config.Keys() {
		valid[key] = true
	}

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !valid[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	dumpField("user", cfg.User, defaultCfg.User, yellow, green)
	dumpField("disabled", cfg.Disabled, defaultCfg.Disabled, yellow, green)

	// Storage
	_, _ = cyan.Println("\n[storage]")
	dumpField("  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	dumpField("  data_dir", cfg.Storage.DataDir, defaultCfg.Storage.DataDir, yellow, green)
	dumpField("  bolt_path", cfg.Storage.BoltPath, defaultCfg.Storage.BoltPath, yellow, green)
	_, _ = cyan.Println("  [storage.redis]")
	r, dr := cfg.Storage.Redis, defaultCfg.Storage.Redis
	dumpField("    network", r.Network, dr.Network, yellow, green)
	dumpField("    address", r.Address, dr.Address, yellow, green)
	dumpField("    password", redactPassword(r.Password), redactPassword(dr.Password), yellow, green)
	dumpField("    db", r.DB, dr.DB, yellow, green)
	dumpField("    pool_size", r.PoolSize, dr.PoolSize, yellow, green)
	dumpField("    dial_timeout", r.DialTimeout, dr.DialTimeout, yellow, green)
	dumpField("    read_timeout", r.ReadTimeout, dr.ReadTimeout, yellow, green)
	dumpField("    write_timeout", r.WriteTimeout, dr.WriteTimeout, yellow, green)
	dumpField("    journal_ttl", r.JournalTTL, dr.JournalTTL, yellow, green)

	// Logging
	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)

	// Metrics
	_, _ = cyan.Println("\n[metrics]")
	dumpField("  textfile", cfg.Metrics.Textfile, defaultCfg.Metrics.Textfile, yellow, green)
	dumpField("  interval", cfg.Metrics.Interval, defaultCfg.Metrics.Interval, yellow, green)

	// Logout
	_, _ = cyan.Println("\n[logout]")
	dumpField("  enabled", cfg.Logout.Enabled, defaultCfg.Logout.Enabled, yellow, green)
	dumpField("  use_logind", cfg.Logout.UseLogind, defaultCfg.Logout.UseLogind, yellow, green)
	dumpField("  grace_period", cfg.Logout.GracePeriod, defaultCfg.Logout.GracePeriod, yellow, green)
	dumpField("  commands", cfg.Logout.Commands, defaultCfg.Logout.Commands, yellow, green)

	_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
