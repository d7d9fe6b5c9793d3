// Package enginecfg loads the engine's run configuration: profile name,
// workdir/outdir, default forks/cache/scheduler, plugin selection and log
// level. Grounded on the viper-based loader pattern (defaults -> config
// file -> env overrides) with pflag wired in for CLI overrides, same
// layering the status surface's auth config uses.
package enginecfg

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the engine's run configuration (spec §3's pipeline-level
// fields, pulled out so a CLI invocation can override them without
// editing the pipeline file).
type Config struct {
	Profile string `mapstructure:"PROFILE"`
	Workdir string `mapstructure:"WORKDIR"`
	Outdir  string `mapstructure:"OUTDIR"`

	Forks     int    `mapstructure:"FORKS"`
	Cache     string `mapstructure:"CACHE"`
	Scheduler string `mapstructure:"SCHEDULER"`

	Plugins  []string `mapstructure:"PLUGINS"`
	LogLevel string   `mapstructure:"LOG_LEVEL"`

	// StatusAddr, when non-empty, starts the status/control HTTP surface
	// (component C9) on this address.
	StatusAddr string `mapstructure:"STATUS_ADDR"`
	JWTSecret  string `mapstructure:"JWT_SECRET"`

	// LedgerDSN, when non-empty, enables the optional run ledger
	// (component C10); the default is disabled.
	LedgerDSN string `mapstructure:"LEDGER_DSN"`
}

// Flags registers the pflag overrides a cmd/pipex invocation exposes.
// Call Parse on the returned set, then Load(path, fs) to merge it in.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("pipex", pflag.ContinueOnError)
	fs.String("profile", "", "pipeline profile file to run")
	fs.String("workdir", "", "job working directory")
	fs.String("outdir", "", "pipeline end-process output directory")
	fs.Int("forks", 0, "default process concurrency cap")
	fs.String("cache", "true", "default cache mode: force, true, false")
	fs.String("scheduler", "local", "default scheduler back-end")
	fs.StringSlice("plugins", nil, "plugin selection: name, +name, -name")
	fs.String("loglevel", "info", "log/slog level: debug, info, warn, error")
	fs.String("status-addr", "", "address for the status/control HTTP surface; empty disables it")
	fs.String("ledger-dsn", "", "postgres DSN for the optional run ledger; empty disables it")
	return fs
}

// Load builds a Config the same way the rest of the engine loads
// configuration: defaults, then an optional app.yaml in path, then
// PIPEX_-prefixed environment variables, then any explicitly-set CLI
// flags (highest priority).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("PROFILE", "")
	v.SetDefault("WORKDIR", "./work")
	v.SetDefault("OUTDIR", "./out")
	v.SetDefault("FORKS", 0)
	v.SetDefault("CACHE", "true")
	v.SetDefault("SCHEDULER", "local")
	v.SetDefault("PLUGINS", []string{})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATUS_ADDR", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("LEDGER_DSN", "")

	if path != "" {
		v.AddConfigPath(path)
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	v.SetEnvPrefix("PIPEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
		// Flag names that differ from their config key are bound by hand.
		for key, name := range map[string]string{"LOG_LEVEL": "loglevel", "STATUS_ADDR": "status-addr", "LEDGER_DSN": "ledger-dsn"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
