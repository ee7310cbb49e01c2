package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds the command tree. Every setting can come from a flag, a
// SEMOP_* environment variable or the config file, in that order of precedence.
func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:          "semop",
		Short:        "semop dispatches semantic operations to handlers",
		Long:         `semop resolves abstract operators (resolve, select, equals, ...) against values by offering them to a chain of backends, and explains or executes the resulting plan.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./semop.yaml if present)")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("prompts", "", "Directory of prompt templates overriding the builtin ones")
	flags.String("completers", "completers.yaml", "Completer definitions (YAML or JSON)")
	flags.String("completer", "", `Completer to use: a name from --completers, or "echo"`)
	flags.String("redis-addr", "", "Redis address of the shared completion cache")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.Duration("cache-ttl", 0, "Expiration of cached completions (0 keeps them)")
	flags.String("order", "latest", `Backend order: "latest" or "registration"`)
	flags.Bool("backends-first", false, "Offer requests to backends before value types")
	flags.StringSlice("pack", nil, "Context pack files (YAML or TOML) kept in scope")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("semop")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(
		newCallCmd(v),
		newExplainCmd(v),
		newGraphCmd(v),
		newBackendsCmd(v),
		newCacheCmd(v),
		newOperatorsCmd(),
		newServeCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

func initConfig(v *viper.Viper) error {
	cfgFile := v.GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("semop")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}
